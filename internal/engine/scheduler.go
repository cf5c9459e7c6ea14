package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iceymoss/newsfeed/internal/conf"
	"github.com/iceymoss/newsfeed/internal/core"
	"github.com/iceymoss/newsfeed/internal/metrics"
	"github.com/iceymoss/newsfeed/pkg/db/objects"
	"github.com/iceymoss/newsfeed/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultRunTimeout = 30 * time.Minute

var ErrJobNotFound = errors.New("job not found")

// TaskProvider 按名称构造任务
type TaskProvider interface {
	Get(name string) (core.Task, error)
}

// RunLogger 持久化每次执行记录
type RunLogger interface {
	CreateLog(ctx context.Context, log *objects.SysJobLog) error
	UpdateLog(ctx context.Context, log *objects.SysJobLog) error
}

// JobSource 库里声明的任务
type JobSource interface {
	GetActiveJobs(ctx context.Context) ([]*objects.SysJob, error)
}

type Options struct {
	Tasks      TaskProvider
	Location   *time.Location
	RunLogger  RunLogger
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	RunTimeout time.Duration
}

type registered struct {
	handler string
	task    core.Task
	params  map[string]any
	source  core.TaskSource
	entryID cron.EntryID
}

type Scheduler struct {
	cron       *cron.Cron
	Stats      *StatManager
	tasks      TaskProvider
	runLogger  RunLogger
	metrics    *metrics.Metrics
	log        *zap.Logger
	runTimeout time.Duration

	mu         sync.RWMutex
	registered map[string]registered
	// 同一个任务不重叠执行
	running map[string]bool
	wg      sync.WaitGroup

	// 所有执行的父 ctx，Stop 时取消
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(o Options) *Scheduler {
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}
	log := o.Logger
	if log == nil {
		log = logger.Named("scheduler")
	}
	timeout := o.RunTimeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Stats:      NewStatManager(),
		tasks:      o.Tasks,
		runLogger:  o.RunLogger,
		metrics:    o.Metrics,
		log:        log,
		runTimeout: timeout,
		registered: make(map[string]registered),
		running:    make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// AddJob 添加任务；cronExpr 为空时只登记，可手动触发
func (s *Scheduler) AddJob(cronExpr, taskName, uniqueJobName string, params map[string]any, source core.TaskSource) error {
	// 1. 获取任务实现
	taskInstance, err := s.tasks.Get(taskName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registered[uniqueJobName]; exists {
		return fmt.Errorf("job %q already scheduled", uniqueJobName)
	}

	reg := registered{handler: taskName, task: taskInstance, params: params, source: source}
	stat := JobStats{
		Name:       uniqueJobName,
		Handler:    taskName,
		CronExpr:   cronExpr,
		Status:     StatusIdle,
		LastResult: "Pending",
		Source:     source,
	}

	// 2. 加入 Cron
	if cronExpr != "" {
		entryID, err := s.cron.AddFunc(cronExpr, func() {
			s.wg.Add(1)
			defer s.wg.Done()
			s.run(uniqueJobName)
		})
		if err != nil {
			return fmt.Errorf("job %q: invalid cron %q: %w", uniqueJobName, cronExpr, err)
		}
		reg.entryID = entryID
		stat.NextRunTime = s.cron.Entry(entryID).Next.Format(timeLayout)
	}

	s.registered[uniqueJobName] = reg
	s.Stats.Set(uniqueJobName, stat)
	return nil
}

// LoadConfigJobs 注册配置文件里启用的任务
func (s *Scheduler) LoadConfigJobs(jobs []conf.JobConfig) int {
	loaded := 0
	for _, job := range jobs {
		if !job.Enable {
			continue
		}
		if err := s.AddJob(job.Cron, job.TaskName(), job.Name, job.Params, core.TaskTypeYAML); err != nil {
			s.log.Warn("⚠️ [Schedule] failed to schedule yaml job", zap.String("job", job.Name), zap.Error(err))
			continue
		}
		loaded++
		s.log.Info("✅ [Schedule] job scheduled", zap.String("job", job.Name), zap.String("cron", job.Cron))
	}
	return loaded
}

// LoadDBJobs 注册 sys_jobs 表里启用的任务
func (s *Scheduler) LoadDBJobs(ctx context.Context, src JobSource) (int, error) {
	jobs, err := src.GetActiveJobs(ctx)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, job := range jobs {
		params, err := job.ParamMap()
		if err != nil {
			s.log.Warn("⚠️ [Schedule] bad params in sys_jobs", zap.String("job", job.Name), zap.Error(err))
			continue
		}
		if err := s.AddJob(job.CronExpr, job.ServiceHandler, job.Name, params, core.TaskTypeDB); err != nil {
			s.log.Warn("⚠️ [Schedule] failed to schedule db job", zap.String("job", job.Name), zap.Error(err))
			continue
		}
		loaded++
	}
	return loaded, nil
}

func (s *Scheduler) lookup(name string) (registered, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.registered[name]
	return reg, ok
}

func (s *Scheduler) acquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, name)
}

// run 执行并记录状态
func (s *Scheduler) run(name string) {
	reg, ok := s.lookup(name)
	if !ok {
		return
	}
	if !s.acquire(name) {
		s.log.Warn("⏭️ [Schedule] previous run still in progress, skipped", zap.String("job", name))
		return
	}
	defer s.release(name)

	start := time.Now()
	s.Stats.started(name, start)
	runLog := s.openRunLog(name, reg, start)
	s.log.Info("🚀 [Schedule] starting job", zap.String("job", name))

	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()
	err := s.safeRun(ctx, reg)

	elapsed := time.Since(start)
	var next time.Time
	if reg.entryID != 0 {
		next = s.cron.Entry(reg.entryID).Next
	}
	s.Stats.finished(name, err, next)
	s.closeRunLog(runLog, err, start, elapsed)

	status := "success"
	if err != nil {
		status = "error"
		s.log.Error("❌ [Schedule] job failed", zap.String("job", name), zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		s.log.Info("✅ [Schedule] job finished", zap.String("job", name), zap.Duration("elapsed", elapsed))
	}
	s.metrics.ObserveJob(name, status, elapsed.Seconds())
}

func (s *Scheduler) safeRun(ctx context.Context, reg registered) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return reg.task.Run(ctx, reg.params)
}

func (s *Scheduler) openRunLog(name string, reg registered, start time.Time) *objects.SysJobLog {
	if s.runLogger == nil {
		return nil
	}
	entry := &objects.SysJobLog{
		JobName:     name,
		HandlerName: reg.handler,
		Source:      string(reg.source),
		Status:      objects.JobLogRunning,
		StartTime:   start,
	}
	if err := s.runLogger.CreateLog(context.Background(), entry); err != nil {
		s.log.Warn("⚠️ [Schedule] create run log failed", zap.String("job", name), zap.Error(err))
		return nil
	}
	return entry
}

func (s *Scheduler) closeRunLog(entry *objects.SysJobLog, err error, start time.Time, elapsed time.Duration) {
	if entry == nil {
		return
	}
	end := start.Add(elapsed)
	entry.EndTime = &end
	entry.DurationMs = elapsed.Milliseconds()
	entry.Status = objects.JobLogSuccess
	if err != nil {
		entry.Status = objects.JobLogFailed
		entry.ErrorMsg = err.Error()
	}
	if uerr := s.runLogger.UpdateLog(context.Background(), entry); uerr != nil {
		s.log.Warn("⚠️ [Schedule] update run log failed", zap.String("job", entry.JobName), zap.Error(uerr))
	}
}

// ManualRun 手动触发，异步执行
func (s *Scheduler) ManualRun(uniqueJobName string) error {
	if _, ok := s.lookup(uniqueJobName); !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, uniqueJobName)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(uniqueJobName)
	}()
	return nil
}

// RunNow 同步执行一次，CLI 使用
func (s *Scheduler) RunNow(uniqueJobName string) error {
	if _, ok := s.lookup(uniqueJobName); !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, uniqueJobName)
	}
	s.run(uniqueJobName)
	st, _ := s.Stats.Get(uniqueJobName)
	if st.Status == StatusError {
		return errors.New(st.LastResult)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度，取消在途任务的 ctx 并等待它们返回
func (s *Scheduler) Stop() {
	// cron.Stop 会等在途任务，必须先取消
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// Jobs 任务面板数据
func (s *Scheduler) Jobs() []JobStats {
	return s.Stats.GetAll()
}
