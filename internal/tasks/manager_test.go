package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/iceymoss/newsfeed/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noopTask struct{ name string }

func (t noopTask) Run(context.Context, map[string]any) error { return nil }
func (t noopTask) Identifier() string                       { return t.name }

type fakeScheduler struct {
	added []string
	fail  string
}

func (s *fakeScheduler) AddJob(cronExpr, taskName, uniqueJobName string, _ map[string]any, source core.TaskSource) error {
	if taskName == s.fail {
		return errors.New("bad cron")
	}
	s.added = append(s.added, uniqueJobName+"@"+cronExpr+"#"+string(source))
	return nil
}

func TestManager_RegisterAndGet(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Register("a", func() core.Task { return noopTask{"a"} })

	task, err := m.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", task.Identifier())

	_, err = m.Get("missing")
	assert.ErrorContains(t, err, "not found")
}

func TestManager_ApplyAutoJobs(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.RegisterAuto("fetch", "0 */15 * * * *", func() core.Task { return noopTask{"fetch"} }, nil)
	m.RegisterAuto("broken", "nope", func() core.Task { return noopTask{"broken"} }, nil)
	// 没有 cron 只注册，不自动启动
	m.RegisterAuto("manual", "", func() core.Task { return noopTask{"manual"} }, nil)

	sched := &fakeScheduler{fail: "broken"}
	assert.Equal(t, 1, m.ApplyAutoJobs(sched))
	assert.Equal(t, []string{"fetch@0 */15 * * * *#SYSTEM"}, sched.added)

	_, err := m.Get("manual")
	assert.NoError(t, err)
	assert.Equal(t, []string{"broken", "fetch", "manual"}, m.Names())
}

func TestParams(t *testing.T) {
	params := map[string]any{"a": 5, "b": float64(7), "c": " 9 ", "d": "x", "s1": []any{"x", 1, "y"}, "s2": "p, q,,", "s3": []string{}}

	assert.Equal(t, 5, IntParam(params, "a", 0))
	assert.Equal(t, 7, IntParam(params, "b", 0))
	assert.Equal(t, 9, IntParam(params, "c", 0))
	assert.Equal(t, 3, IntParam(params, "d", 3))
	assert.Equal(t, 3, IntParam(nil, "a", 3))

	assert.Equal(t, []string{"x", "y"}, StringsParam(params, "s1", nil))
	assert.Equal(t, []string{"p", "q"}, StringsParam(params, "s2", nil))
	assert.Equal(t, []string{"def"}, StringsParam(params, "s3", []string{"def"}))
}
