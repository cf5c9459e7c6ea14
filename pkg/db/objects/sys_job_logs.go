package objects

import "time"

// JobLogStatus 单次执行的状态
type JobLogStatus int

const (
	JobLogRunning JobLogStatus = iota
	JobLogSuccess
	JobLogFailed
)

// SysJobLog 每次定时任务执行写一行，执行结束后回填耗时和错误
type SysJobLog struct {
	ID          uint         `gorm:"primarykey"`
	JobName     string       `gorm:"index;size:128"`
	HandlerName string       `gorm:"size:128"`
	Source      string       `gorm:"size:16"` // SYSTEM / YAML / DB
	Status      JobLogStatus `gorm:"index"`
	ErrorMsg    string       `gorm:"type:text"`
	DurationMs  int64
	StartTime   time.Time `gorm:"index"`
	EndTime     *time.Time
}

func (SysJobLog) TableName() string { return "sys_job_logs" }
