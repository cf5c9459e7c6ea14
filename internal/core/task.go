package core

import "context"

// Task 可被调度器执行的任务，params 来自注册默认值、配置文件 jobs 或 sys_jobs
type Task interface {
	Identifier() string
	Run(ctx context.Context, params map[string]any) error
}

// TaskCreator 每次注册时构造一个任务实例
type TaskCreator func() Task

// TaskSource 调度来源，写入执行日志和 /api/tasks
type TaskSource string

const (
	TaskTypeSYSTEM TaskSource = "SYSTEM"
	TaskTypeYAML   TaskSource = "YAML"
	TaskTypeDB     TaskSource = "DB"
)
