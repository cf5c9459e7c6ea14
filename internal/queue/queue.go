// Package queue 摘要任务的投递与执行
//
// 投递语义是至少一次：同一篇文章可能被执行多次，处理函数需要幂等。
package queue

import (
	"context"
	"time"

	"github.com/iceymoss/newsfeed/internal/conf"
	"github.com/iceymoss/newsfeed/internal/core"
	"github.com/iceymoss/newsfeed/internal/metrics"

	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 60 * time.Second

	// 租约在单次超时之外留出标记失败和安排重试的时间
	leaseMargin = 30 * time.Second
)

// Job 队列里的一条消息，Attempt 从 1 开始
type Job struct {
	ArticleID  uint64    `json:"article_id"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`

	raw string // 出队时的原始消息，Ack 用
}

// Handler 执行一次摘要，返回值决定是否重试
type Handler func(ctx context.Context, articleID uint64) core.Result

// Policy 重试策略
type Policy struct {
	MaxAttempts int
	Timeout     time.Duration
	Backoff     time.Duration
}

func PolicyFromConfig(c conf.WorkerConfig) Policy {
	return Policy{MaxAttempts: c.MaxAttempts, Timeout: c.Timeout, Backoff: c.RetryBackoff}.normalize()
}

func (p Policy) normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// Lease 一次领取最长占用多久，超过即视为 worker 已经挂掉
func (p Policy) Lease() time.Duration {
	return p.normalize().Timeout + leaseMargin
}

// delay 第 attempt 次失败后的等待时间，线性退避
func (p Policy) delay(attempt int) time.Duration {
	return p.Backoff * time.Duration(attempt)
}

type decision int

const (
	done decision = iota
	retry
	abandon
	drop
)

// attempt 在独立超时下执行一次，并按策略给出下一步
func attempt(ctx context.Context, h Handler, p Policy, job Job) (core.Result, decision) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	res := h(attemptCtx, job.ArticleID)
	switch res.Outcome {
	case core.Success, core.SoftFailure:
		return res, done
	case core.PermanentFailure:
		return res, drop
	default:
		if job.Attempt < p.MaxAttempts {
			return res, retry
		}
		return res, abandon
	}
}

// report 统一的结果日志
func report(log *zap.Logger, m *metrics.Metrics, job Job, res core.Result, d decision, maxAttempts int) {
	fields := []zap.Field{
		zap.Uint64("article_id", job.ArticleID),
		zap.Int("attempt", job.Attempt),
		zap.String("outcome", res.Outcome.String()),
	}
	if res.Err != nil {
		fields = append(fields, zap.Error(res.Err))
	}
	switch d {
	case retry:
		m.Retry()
		log.Warn("🔁 [Queue] retry scheduled", fields...)
	case abandon:
		m.Abandon()
		log.Error("❌ [Queue] abandoned after max attempts", append(fields, zap.Int("max_attempts", maxAttempts))...)
	case drop:
		log.Error("❌ [Queue] permanent failure, dropped", fields...)
	default:
		log.Debug("✅ [Queue] done", fields...)
	}
}
