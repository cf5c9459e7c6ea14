// Package news 新闻相关的定时任务
package news

import (
	"context"

	"github.com/iceymoss/newsfeed/internal/core"
	"github.com/iceymoss/newsfeed/internal/ingest"
	"github.com/iceymoss/newsfeed/internal/tasks"

	"go.uber.org/zap"
)

const (
	FetchTaskName   = "news:fetch"
	RequeueTaskName = "news:requeue"
)

type Ingester interface {
	Run(ctx context.Context, limit int) (ingest.Report, error)
}

// FetchTask 跑一次入库
type FetchTask struct {
	pipeline     Ingester
	defaultLimit int
	log          *zap.Logger
}

func NewFetchTask(p Ingester, defaultLimit int, log *zap.Logger) *FetchTask {
	if defaultLimit <= 0 {
		defaultLimit = ingest.DefaultLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FetchTask{pipeline: p, defaultLimit: defaultLimit, log: log}
}

func (t *FetchTask) Identifier() string { return FetchTaskName }

func (t *FetchTask) Run(ctx context.Context, params map[string]any) error {
	limit := tasks.IntParam(params, "limit", t.defaultLimit)
	t.log.Info("🕷️ [Fetch] start", zap.Int("limit", limit))

	report, err := t.pipeline.Run(ctx, limit)
	if err != nil {
		return err
	}
	t.log.Info("🎉 [Fetch] done", zap.Int("stored", report.Stored), zap.Int("skipped", report.Skipped), zap.Int("failed", report.Failed))
	return nil
}

// Deps 注册新闻任务需要的依赖
type Deps struct {
	Pipeline     Ingester
	Articles     ArticleLister
	Queue        ingest.Enqueuer
	DefaultLimit int
	FetchCron    string
	RequeueCron  string
	Logger       *zap.Logger
}

// Register 注册 news:fetch 和 news:requeue；cron 非空时随调度器自动启动。
// RequeueCron 通常留空，failed 文章由运维手动重新投递
func Register(m *tasks.Manager, d Deps) {
	fetch := NewFetchTask(d.Pipeline, d.DefaultLimit, d.Logger)
	m.RegisterAuto(FetchTaskName, d.FetchCron, func() core.Task { return fetch },
		map[string]any{"limit": fetch.defaultLimit})

	requeue := NewRequeueTask(d.Articles, d.Queue, d.Logger)
	m.RegisterAuto(RequeueTaskName, d.RequeueCron, func() core.Task { return requeue },
		map[string]any{"statuses": []string{"failed"}, "limit": DefaultRequeueLimit})
}
