package queue

import (
	"context"
	"time"

	"github.com/iceymoss/newsfeed/internal/metrics"
	"github.com/iceymoss/newsfeed/pkg/logger"

	"go.uber.org/zap"
)

// Inline 同步执行的投递器，fetch --sync 和测试使用
type Inline struct {
	handler Handler
	policy  Policy
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewInline(h Handler, p Policy, log *zap.Logger, m *metrics.Metrics) *Inline {
	if log == nil {
		log = logger.Named("inline")
	}
	return &Inline{handler: h, policy: p.normalize(), log: log, metrics: m}
}

// Enqueue 当场执行直到成功或放弃；任务本身的失败不作为投递错误返回
func (q *Inline) Enqueue(ctx context.Context, articleID uint64) error {
	job := Job{ArticleID: articleID, Attempt: 1, EnqueuedAt: time.Now().UTC()}
	for {
		res, d := attempt(ctx, q.handler, q.policy, job)
		report(q.log, q.metrics, job, res, d, q.policy.MaxAttempts)
		if d != retry {
			return nil
		}

		wait := q.policy.delay(job.Attempt)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		job.Attempt++
	}
}
