package tasks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/iceymoss/newsfeed/internal/core"
	"github.com/iceymoss/newsfeed/pkg/logger"

	"go.uber.org/zap"
)

type Scheduler interface {
	AddJob(cronExpr, taskName, uniqueJobName string, params map[string]any, source core.TaskSource) error
}

// AutoJob 定义一个“自启动任务”的结构
type AutoJob struct {
	Name    string           // 任务唯一标识
	Cron    string           // Cron 表达式
	Creator core.TaskCreator // 构造函数
	Params  map[string]any   // 默认参数
}

// Manager 任务注册表，由 main 组装后交给调度器
type Manager struct {
	mu       sync.RWMutex
	registry map[string]core.TaskCreator // 普通任务注册（供 Config 调用）
	autoJobs []*AutoJob                  // 自动任务列表（供代码直接启动）
	log      *zap.Logger
}

func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = logger.Named("tasks")
	}
	return &Manager{registry: make(map[string]core.TaskCreator), log: log}
}

func (m *Manager) Register(name string, creator core.TaskCreator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = creator
}

// RegisterAuto 注册并自动启动；cron 为空时只注册，可手动触发
func (m *Manager) RegisterAuto(name, cron string, creator core.TaskCreator, defaultParams map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.registry[name] = creator
	if cron == "" {
		return
	}
	m.autoJobs = append(m.autoJobs, &AutoJob{
		Name:    name,
		Cron:    cron,
		Creator: creator,
		Params:  defaultParams,
	})
}

func (m *Manager) Get(name string) (core.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	creator, ok := m.registry[name]
	if !ok {
		return nil, fmt.Errorf("task implementation '%s' not found", name)
	}
	return creator(), nil
}

// Names 已注册的任务名，排序后返回
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.registry))
	for name := range m.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyAutoJobs 把自动任务交给调度器，单个失败不影响其余
func (m *Manager) ApplyAutoJobs(sched Scheduler) int {
	m.mu.RLock()
	jobs := append([]*AutoJob(nil), m.autoJobs...)
	m.mu.RUnlock()

	loaded := 0
	for _, job := range jobs {
		err := sched.AddJob(job.Cron, job.Name, job.Name, job.Params, core.TaskTypeSYSTEM)
		if err != nil {
			m.log.Error("❌ [AutoLoad] failed to load", zap.String("job", job.Name), zap.Error(err))
			continue
		}
		loaded++
		m.log.Info("✅ [AutoLoad] loaded", zap.String("job", job.Name), zap.String("cron", job.Cron))
	}
	return loaded
}
