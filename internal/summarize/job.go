// Package summarize 单篇文章的摘要任务
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iceymoss/newsfeed/internal/core"
	"github.com/iceymoss/newsfeed/internal/metrics"
	"github.com/iceymoss/newsfeed/internal/repo"
	"github.com/iceymoss/newsfeed/internal/sources/summary"
	"github.com/iceymoss/newsfeed/pkg/db/objects"
	"github.com/iceymoss/newsfeed/pkg/logger"

	"go.uber.org/zap"
)

const (
	NoSummary     = "No summary available."
	FailedSummary = "Summary generation failed."
)

type Store interface {
	GetArticle(ctx context.Context, id uint64) (*objects.Article, error)
	SaveSummary(ctx context.Context, id uint64, summary string, status objects.ArticleStatus, at time.Time) error
	MarkFailed(ctx context.Context, id uint64, at time.Time) error
}

type Deps struct {
	Store   Store
	Summary summary.Source
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type Job struct {
	store   Store
	summary summary.Source
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewJob(d Deps) *Job {
	j := &Job{store: d.Store, summary: d.Summary, log: d.Logger, metrics: d.Metrics, now: d.Now}
	if j.log == nil {
		j.log = logger.Named("summarize")
	}
	if j.now == nil {
		j.now = time.Now
	}
	return j
}

// Run 为一篇文章生成摘要；可重复投递，已完成的文章直接返回成功
func (j *Job) Run(ctx context.Context, articleID uint64) core.Result {
	res := j.run(ctx, articleID)
	j.metrics.Summary(res.Outcome.String())
	return res
}

func (j *Job) run(ctx context.Context, articleID uint64) core.Result {
	article, err := j.store.GetArticle(ctx, articleID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			j.log.Error("❌ [Summary] article not found, dropped", zap.Uint64("article_id", articleID))
			return core.Permanent(err)
		}
		// 读库失败不改状态，交给队列重试
		j.log.Error("❌ [Summary] load article failed", zap.Uint64("article_id", articleID), zap.Error(err))
		return core.Retryable(fmt.Errorf("load article %d: %w", articleID, err))
	}

	if article.Status.Summarized() {
		j.log.Debug("⏭️ [Summary] already summarized", zap.Uint64("article_id", articleID), zap.String("status", string(article.Status)))
		return core.Succeeded(article.Status)
	}

	input := article.Content
	if strings.TrimSpace(input) == "" {
		input = article.Description
	}
	if strings.TrimSpace(input) == "" {
		text := orDefault(article.Description, NoSummary)
		if err := j.store.SaveSummary(ctx, articleID, text, objects.StatusProcessed, j.now()); err != nil {
			return j.fail(ctx, articleID, fmt.Errorf("save summary: %w", err))
		}
		j.log.Info("✅ [Summary] no content, placeholder saved", zap.Uint64("article_id", articleID))
		return core.Succeeded(objects.StatusProcessed)
	}

	text, err := j.summary.GenerateSummary(ctx, article.Title, input)
	if err != nil {
		return j.fail(ctx, articleID, fmt.Errorf("generate summary: %w", err))
	}

	if strings.TrimSpace(text) == "" {
		fallback := orDefault(article.Description, FailedSummary)
		if err := j.store.SaveSummary(ctx, articleID, fallback, objects.StatusPartial, j.now()); err != nil {
			return j.fail(ctx, articleID, fmt.Errorf("save summary: %w", err))
		}
		j.log.Warn("⚠️ [Summary] empty summary, marked partial", zap.Uint64("article_id", articleID))
		return core.Soft(objects.StatusPartial)
	}

	if err := j.store.SaveSummary(ctx, articleID, text, objects.StatusProcessed, j.now()); err != nil {
		return j.fail(ctx, articleID, fmt.Errorf("save summary: %w", err))
	}
	j.log.Info("✅ [Summary] saved", zap.Uint64("article_id", articleID))
	return core.Succeeded(objects.StatusProcessed)
}

func (j *Job) fail(ctx context.Context, articleID uint64, cause error) core.Result {
	j.log.Error("❌ [Summary] failed", zap.Uint64("article_id", articleID), zap.Error(cause))

	// 原 ctx 可能已超时，标记失败用独立的短超时
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := j.store.MarkFailed(markCtx, articleID, j.now()); err != nil {
		j.log.Error("❌ [Summary] mark failed", zap.Uint64("article_id", articleID), zap.Error(err))
	}
	return core.Retryable(cause)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
