package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iceymoss/newsfeed/internal/conf"
	"github.com/iceymoss/newsfeed/internal/core"
	"github.com/iceymoss/newsfeed/internal/metrics"
	"github.com/iceymoss/newsfeed/internal/tasks"
	"github.com/iceymoss/newsfeed/pkg/db/objects"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingTask struct {
	calls atomic.Int32
	err   error
	block chan struct{}
	last  atomic.Value
}

func (t *countingTask) Run(_ context.Context, params map[string]any) error {
	t.calls.Add(1)
	t.last.Store(params)
	if t.block != nil {
		<-t.block
	}
	return t.err
}

func (t *countingTask) Identifier() string { return "counting" }

type memRunLog struct {
	mu   sync.Mutex
	logs []objects.SysJobLog
}

func (m *memRunLog) CreateLog(_ context.Context, l *objects.SysJobLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uint(len(m.logs) + 1)
	m.logs = append(m.logs, *l)
	return nil
}

func (m *memRunLog) UpdateLog(_ context.Context, l *objects.SysJobLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[l.ID-1] = *l
	return nil
}

type memJobSource []*objects.SysJob

func (s memJobSource) GetActiveJobs(context.Context) ([]*objects.SysJob, error) { return s, nil }

func newTestScheduler(task core.Task, o Options) *Scheduler {
	m := tasks.NewManager(zap.NewNop())
	m.Register("counting", func() core.Task { return task })
	o.Tasks = m
	o.Logger = zap.NewNop()
	return NewScheduler(o)
}

func TestScheduler_RunNowRecordsStatsAndLog(t *testing.T) {
	task := &countingTask{}
	runLog := &memRunLog{}
	m := metrics.New(nil)
	s := newTestScheduler(task, Options{RunLogger: runLog, Metrics: m})

	require.NoError(t, s.AddJob("0 0 * * * *", "counting", "hourly", map[string]any{"limit": 5}, core.TaskTypeYAML))
	require.NoError(t, s.RunNow("hourly"))

	st, ok := s.Stats.Get("hourly")
	require.True(t, ok)
	assert.Equal(t, StatusIdle, st.Status)
	assert.Equal(t, "Success", st.LastResult)
	assert.Equal(t, int64(1), st.RunCount)
	assert.NotEmpty(t, st.NextRunTime)
	assert.Equal(t, core.TaskTypeYAML, st.Source)
	assert.Equal(t, map[string]any{"limit": 5}, task.last.Load())

	require.Len(t, runLog.logs, 1)
	assert.Equal(t, objects.JobLogSuccess, runLog.logs[0].Status)
	assert.Equal(t, "counting", runLog.logs[0].HandlerName)
	assert.NotNil(t, runLog.logs[0].EndTime)

	assert.Equal(t, 1, testutil.CollectAndCount(m.JobDuration))
}

func TestScheduler_FailureIsRecorded(t *testing.T) {
	task := &countingTask{err: errors.New("provider down")}
	runLog := &memRunLog{}
	s := newTestScheduler(task, Options{RunLogger: runLog})

	require.NoError(t, s.AddJob("", "counting", "manual", nil, core.TaskTypeSYSTEM))
	err := s.RunNow("manual")
	assert.ErrorContains(t, err, "provider down")

	st, _ := s.Stats.Get("manual")
	assert.Equal(t, StatusError, st.Status)
	assert.Empty(t, st.NextRunTime)
	assert.Equal(t, objects.JobLogFailed, runLog.logs[0].Status)
	assert.Equal(t, "provider down", runLog.logs[0].ErrorMsg)
}

func TestScheduler_Errors(t *testing.T) {
	s := newTestScheduler(&countingTask{}, Options{})

	assert.Error(t, s.AddJob("* * *", "counting", "bad", nil, core.TaskTypeYAML))
	assert.ErrorContains(t, s.AddJob("", "nope", "x", nil, core.TaskTypeYAML), "not found")

	require.NoError(t, s.AddJob("", "counting", "dup", nil, core.TaskTypeYAML))
	assert.ErrorContains(t, s.AddJob("", "counting", "dup", nil, core.TaskTypeYAML), "already scheduled")

	assert.ErrorIs(t, s.ManualRun("ghost"), ErrJobNotFound)
	_, ok := s.Stats.Get("bad")
	assert.False(t, ok)
}

func TestScheduler_NoOverlap(t *testing.T) {
	task := &countingTask{block: make(chan struct{})}
	s := newTestScheduler(task, Options{})
	require.NoError(t, s.AddJob("", "counting", "slow", nil, core.TaskTypeSYSTEM))

	require.NoError(t, s.ManualRun("slow"))
	require.Eventually(t, func() bool { return task.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// 第一次还没结束，第二次直接跳过
	require.NoError(t, s.RunNow("slow"))
	assert.Equal(t, int32(1), task.calls.Load())

	close(task.block)
	s.Stop()
	st, _ := s.Stats.Get("slow")
	assert.Equal(t, StatusIdle, st.Status)
}

func TestScheduler_LoadJobs(t *testing.T) {
	s := newTestScheduler(&countingTask{}, Options{})

	n := s.LoadConfigJobs([]conf.JobConfig{
		{Name: "fetch-often", Handler: "counting", Cron: "0 */5 * * * *", Enable: true},
		{Name: "disabled", Handler: "counting", Cron: "0 * * * * *"},
		{Name: "counting", Cron: "0 0 1 * * *", Enable: true},
	})
	assert.Equal(t, 2, n)

	loaded, err := s.LoadDBJobs(context.Background(), memJobSource{
		{Name: "ops-requeue", CronExpr: "0 30 * * * *", ServiceHandler: "counting", Params: `{"limit": 10}`},
		{Name: "broken", CronExpr: "0 30 * * * *", ServiceHandler: "counting", Params: `{`},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)

	all := s.Stats.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"counting", "fetch-often", "ops-requeue"}, []string{all[0].Name, all[1].Name, all[2].Name})
	assert.Equal(t, core.TaskTypeDB, all[2].Source)
}

// ctxTask 一直阻塞到 ctx 取消
type ctxTask struct {
	started chan struct{}
}

func (t *ctxTask) Run(ctx context.Context, _ map[string]any) error {
	close(t.started)
	<-ctx.Done()
	return ctx.Err()
}

func (t *ctxTask) Identifier() string { return "counting" }

func TestScheduler_StopCancelsRunningJobs(t *testing.T) {
	task := &ctxTask{started: make(chan struct{})}
	runLog := &memRunLog{}
	s := newTestScheduler(task, Options{RunLogger: runLog, RunTimeout: time.Hour})
	require.NoError(t, s.AddJob("", "counting", "long", nil, core.TaskTypeSYSTEM))
	s.Start()

	require.NoError(t, s.ManualRun("long"))
	select {
	case <-task.started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop blocked on a running job")
	}

	st, ok := s.Stats.Get("long")
	require.True(t, ok)
	assert.Equal(t, StatusError, st.Status)
	runLog.mu.Lock()
	defer runLog.mu.Unlock()
	require.Len(t, runLog.logs, 1)
	assert.Equal(t, objects.JobLogFailed, runLog.logs[0].Status)
}
