package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iceymoss/newsfeed/internal/metrics"
	"github.com/iceymoss/newsfeed/pkg/logger"

	"go.uber.org/zap"
)

const pollTimeout = time.Second

// Broker worker 依赖的队列能力
type Broker interface {
	Pop(ctx context.Context, timeout time.Duration) (*Job, error)
	Schedule(ctx context.Context, job Job, at time.Time) error
	Ack(ctx context.Context, job Job) error
}

type WorkerConfig struct {
	Queue       Broker
	Handler     Handler
	Policy      Policy
	Concurrency int
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

type Worker struct {
	queue       Broker
	handler     Handler
	policy      Policy
	concurrency int
	log         *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewWorker(c WorkerConfig) *Worker {
	w := &Worker{
		queue:       c.Queue,
		handler:     c.Handler,
		policy:      c.Policy.normalize(),
		concurrency: c.Concurrency,
		log:         c.Logger,
		metrics:     c.Metrics,
		now:         time.Now,
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.log == nil {
		w.log = logger.Named("worker")
	}
	return w
}

// Run 启动 concurrency 个消费协程，ctx 取消后等待在途任务结束再返回
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("🚀 [Worker] started", zap.Int("concurrency", w.concurrency),
		zap.Int("max_attempts", w.policy.MaxAttempts), zap.Duration("timeout", w.policy.Timeout))

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	w.log.Info("🛑 [Worker] stopped")
	return nil
}

func (w *Worker) loop(ctx context.Context, id int) {
	for ctx.Err() == nil {
		if _, err := w.ProcessOne(ctx); err != nil {
			w.log.Error("❌ [Worker] pop failed", zap.Int("worker", id), zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(pollTimeout):
			}
		}
	}
}

// ProcessOne 最多处理一个任务；队列为空时返回 false
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	job, err := w.queue.Pop(ctx, pollTimeout)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return false, nil
		}
		return false, err
	}
	if job == nil {
		return false, nil
	}

	// 在途任务不随 worker 停止而中断，只受单次超时约束
	res, d := attempt(context.WithoutCancel(ctx), w.handler, w.policy, *job)
	report(w.log, w.metrics, *job, res, d, w.policy.MaxAttempts)

	if d == retry {
		next := *job
		next.Attempt++
		at := w.now().Add(w.policy.delay(job.Attempt))
		if err := w.queue.Schedule(context.WithoutCancel(ctx), next, at); err != nil {
			// 不 Ack，租约到期后原任务会被重新领取
			w.log.Error("❌ [Worker] schedule retry failed, job redelivered after lease",
				zap.Uint64("article_id", job.ArticleID), zap.Error(err))
			return true, nil
		}
	}
	if err := w.queue.Ack(context.WithoutCancel(ctx), *job); err != nil {
		w.log.Warn("⚠️ [Worker] ack failed, job may run again",
			zap.Uint64("article_id", job.ArticleID), zap.Error(err))
	}
	return true, nil
}
