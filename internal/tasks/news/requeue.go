package news

import (
	"context"
	"fmt"

	"github.com/iceymoss/newsfeed/internal/ingest"
	"github.com/iceymoss/newsfeed/internal/tasks"
	"github.com/iceymoss/newsfeed/pkg/db/objects"

	"go.uber.org/zap"
)

const DefaultRequeueLimit = 100

type ArticleLister interface {
	ArticleIDsByStatus(ctx context.Context, statuses []objects.ArticleStatus, limit int) ([]uint64, error)
}

// RequeueTask 把卡在 pending/failed 的文章重新投递摘要
type RequeueTask struct {
	articles ArticleLister
	queue    ingest.Enqueuer
	log      *zap.Logger
}

func NewRequeueTask(articles ArticleLister, q ingest.Enqueuer, log *zap.Logger) *RequeueTask {
	if log == nil {
		log = zap.NewNop()
	}
	return &RequeueTask{articles: articles, queue: q, log: log}
}

func (t *RequeueTask) Identifier() string { return RequeueTaskName }

func (t *RequeueTask) Run(ctx context.Context, params map[string]any) error {
	statuses, err := ParseStatuses(tasks.StringsParam(params, "statuses", []string{string(objects.StatusFailed)}))
	if err != nil {
		return err
	}
	limit := tasks.IntParam(params, "limit", DefaultRequeueLimit)

	ids, err := t.articles.ArticleIDsByStatus(ctx, statuses, limit)
	if err != nil {
		return fmt.Errorf("list articles: %w", err)
	}

	enqueued := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.queue.Enqueue(ctx, id); err != nil {
			t.log.Error("❌ [Requeue] enqueue failed", zap.Uint64("article_id", id), zap.Error(err))
			continue
		}
		enqueued++
	}

	t.log.Info("🔁 [Requeue] done", zap.Any("statuses", statuses), zap.Int("found", len(ids)), zap.Int("enqueued", enqueued))
	if len(ids) > 0 && enqueued == 0 {
		return fmt.Errorf("none of %d articles could be enqueued", len(ids))
	}
	return nil
}

// ParseStatuses 只允许未完成的状态
func ParseStatuses(raw []string) ([]objects.ArticleStatus, error) {
	out := make([]objects.ArticleStatus, 0, len(raw))
	for _, s := range raw {
		st := objects.ArticleStatus(s)
		if st != objects.StatusPending && st != objects.StatusFailed {
			return nil, fmt.Errorf("cannot requeue status %q (want pending or failed)", s)
		}
		out = append(out, st)
	}
	return out, nil
}
