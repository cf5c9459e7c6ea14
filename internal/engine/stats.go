package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/iceymoss/newsfeed/internal/core"
)

const timeLayout = "2006-01-02 15:04:05"

// JobStats 任务运行时状态
type JobStats struct {
	Name        string          `json:"name"`
	Handler     string          `json:"handler"`
	CronExpr    string          `json:"cron_expr"`
	Status      string          `json:"status"`      // Idle, Running, Error
	LastRunTime string          `json:"last_run"`    // 格式化后的时间
	NextRunTime string          `json:"next_run"`    // 格式化后的时间
	LastResult  string          `json:"last_result"` // 成功或错误信息
	RunCount    int64           `json:"run_count"`
	Source      core.TaskSource `json:"source"`
}

const (
	StatusIdle    = "Idle"
	StatusRunning = "Running"
	StatusError   = "Error"
)

// StatManager 所有读写都在锁内完成，对外只返回副本
type StatManager struct {
	stats map[string]*JobStats
	mu    sync.RWMutex
}

func NewStatManager() *StatManager {
	return &StatManager{
		stats: make(map[string]*JobStats),
	}
}

func (m *StatManager) Set(name string, stat JobStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[name] = &stat
}

func (m *StatManager) Get(name string) (JobStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[name]
	if !ok {
		return JobStats{}, false
	}
	return *s, true
}

// Update 在锁内修改一条状态
func (m *StatManager) Update(name string, fn func(s *JobStats)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stats[name]; ok {
		fn(s)
	}
}

func (m *StatManager) started(name string, at time.Time) {
	m.Update(name, func(s *JobStats) {
		s.Status = StatusRunning
		s.LastRunTime = at.Format(timeLayout)
		s.RunCount++
	})
}

func (m *StatManager) finished(name string, err error, next time.Time) {
	m.Update(name, func(s *JobStats) {
		if err != nil {
			s.Status = StatusError
			s.LastResult = "Error: " + err.Error()
		} else {
			s.Status = StatusIdle
			s.LastResult = "Success"
		}
		if !next.IsZero() {
			s.NextRunTime = next.Format(timeLayout)
		}
	})
}

func (m *StatManager) GetAll() []JobStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]JobStats, 0, len(m.stats))
	for _, s := range m.stats {
		list = append(list, *s)
	}
	// 按名称排序
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}
