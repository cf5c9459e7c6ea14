// Package ingest 新闻入库：拉分类 -> 抓取 -> url 去重 -> 分类 -> 写 pending -> 投递摘要任务
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iceymoss/newsfeed/internal/metrics"
	"github.com/iceymoss/newsfeed/internal/repo"
	"github.com/iceymoss/newsfeed/internal/sources/news"
	"github.com/iceymoss/newsfeed/pkg/db/objects"
	"github.com/iceymoss/newsfeed/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultLimit  = 50
	UnknownAuthor = "Unknown"
)

var errMalformed = errors.New("malformed article")

// Store 入库需要的持久化能力
type Store interface {
	ActiveCategories(ctx context.Context) ([]objects.Category, error)
	Categories(ctx context.Context) ([]objects.Category, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	FindOrCreateSource(ctx context.Context, name string) (*objects.Source, error)
	CreateArticle(ctx context.Context, a *objects.Article) error
}

// Enqueuer 投递摘要任务
type Enqueuer interface {
	Enqueue(ctx context.Context, articleID uint64) error
}

// Archiver 抓取原始数据存档，可选
type Archiver interface {
	ArchiveBatch(ctx context.Context, b repo.FetchBatch) error
}

// Report 一次运行的统计；Failed 既不算 stored 也不算 skipped
type Report struct {
	Stored  int `json:"stored"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type Deps struct {
	Store           Store
	News            news.Source
	Queue           Enqueuer
	Archive         Archiver
	DefaultCategory string
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	Now             func() time.Time
}

type Pipeline struct {
	store           Store
	news            news.Source
	queue           Enqueuer
	archive         Archiver
	defaultCategory string
	log             *zap.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

func NewPipeline(d Deps) *Pipeline {
	p := &Pipeline{
		store:           d.Store,
		news:            d.News,
		queue:           d.Queue,
		archive:         d.Archive,
		defaultCategory: d.DefaultCategory,
		log:             d.Logger,
		metrics:         d.Metrics,
		now:             d.Now,
	}
	if p.defaultCategory == "" {
		p.defaultCategory = "technology"
	}
	if p.log == nil {
		p.log = logger.Named("ingest")
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

type outcome int

const (
	stored outcome = iota
	skipped
	failed
)

func (o outcome) String() string {
	return [...]string{"stored", "skipped", "failed"}[o]
}

// Run 抓取最多 limit 条新文章
// 只有整批抓取失败才返回错误；单条失败记录日志后继续，中途取消返回已完成部分的统计
func (p *Pipeline) Run(ctx context.Context, limit int) (Report, error) {
	var report Report
	if limit <= 0 {
		limit = DefaultLimit
	}

	active, err := p.store.ActiveCategories(ctx)
	if err != nil {
		p.metrics.IngestRun("error")
		return report, fmt.Errorf("load active categories: %w", err)
	}
	if len(active) == 0 {
		p.log.Warn("⚠️ [Ingest] no active categories, nothing to fetch")
		p.metrics.IngestRun("empty")
		return report, nil
	}

	refs := make([]news.CategoryRef, 0, len(active))
	slugs := make([]string, 0, len(active))
	for _, c := range active {
		refs = append(refs, news.CategoryRef{ID: c.ID, Slug: c.Slug})
		slugs = append(slugs, c.Slug)
	}

	res, err := p.news.FetchNews(ctx, refs, limit)
	if err != nil || !res.OK() {
		fields := []zap.Field{zap.String("provider", p.news.Name()), zap.Int("limit", limit)}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		if res != nil {
			fields = append(fields, zap.String("status", res.Status), zap.String("code", res.Code), zap.String("message", res.Message))
		}
		p.log.Error("❌ [Ingest] fetch failed, batch aborted", fields...)
		p.metrics.IngestRun("error")
		if err == nil {
			err = errors.New("provider returned no result")
			if res != nil {
				err = fmt.Errorf("provider status %q: %s", res.Status, res.Message)
			}
		}
		return report, fmt.Errorf("%w: %v", news.ErrFetchFailed, err)
	}
	p.archiveBatch(ctx, res, limit, slugs)

	reference, err := p.store.Categories(ctx)
	if err != nil {
		p.metrics.IngestRun("error")
		return report, fmt.Errorf("load categories: %w", err)
	}
	classifier := NewClassifier(reference, p.defaultCategory)

	for _, raw := range res.Articles {
		if err := ctx.Err(); err != nil {
			// 已写入的文章照常保留，剩下的交给下一次抓取
			p.log.Warn("⚠️ [Ingest] run cancelled, returning partial report",
				zap.Int("stored", report.Stored), zap.Int("skipped", report.Skipped), zap.Int("failed", report.Failed),
				zap.Int("remaining", len(res.Articles)-report.Stored-report.Skipped-report.Failed), zap.Error(err))
			p.metrics.IngestRun("cancelled")
			return report, nil
		}

		o, err := p.ingestOne(ctx, raw, classifier)
		p.metrics.IngestArticle(o.String())
		switch o {
		case stored:
			report.Stored++
		case skipped:
			report.Skipped++
		default:
			report.Failed++
			p.log.Error("❌ [Ingest] article failed", zap.String("url", raw.URL), zap.Error(err))
		}
	}

	p.metrics.IngestRun("ok")
	p.log.Info("🎉 [Ingest] finished",
		zap.Int("stored", report.Stored), zap.Int("skipped", report.Skipped), zap.Int("failed", report.Failed))
	return report, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, raw news.RawArticle, classifier *Classifier) (outcome, error) {
	url := strings.TrimSpace(raw.URL)
	title := strings.TrimSpace(raw.Title)
	if url == "" {
		return failed, fmt.Errorf("%w: missing url", errMalformed)
	}
	if title == "" {
		return failed, fmt.Errorf("%w: missing title", errMalformed)
	}

	exists, err := p.store.ExistsByURL(ctx, url)
	if err != nil {
		return failed, fmt.Errorf("check url: %w", err)
	}
	if exists {
		p.log.Debug("⏭️ [Ingest] skip duplicate", zap.String("url", url))
		return skipped, nil
	}

	publishedAt, err := parsePublishedAt(raw.PublishedAt, p.now)
	if err != nil {
		return failed, fmt.Errorf("%w: %v", errMalformed, err)
	}

	var sourceID *uint64
	if name := strings.TrimSpace(raw.Source.Name); name != "" {
		src, err := p.store.FindOrCreateSource(ctx, name)
		if err != nil {
			return failed, fmt.Errorf("resolve source %q: %w", name, err)
		}
		sourceID = &src.ID
	}

	description := deref(raw.Description)
	category := classifier.Classify(title + " " + description)
	if category == nil {
		return failed, errors.New("no category to assign")
	}

	author := strings.TrimSpace(deref(raw.Author))
	if author == "" {
		author = UnknownAuthor
	}

	article := &objects.Article{
		CategoryID:  category.ID,
		SourceID:    sourceID,
		Title:       title,
		Description: description,
		Content:     deref(raw.Content),
		URL:         url,
		ImageURL:    nonEmpty(raw.URLToImage),
		Author:      &author,
		PublishedAt: publishedAt,
		Status:      objects.StatusPending,
	}
	if err := p.store.CreateArticle(ctx, article); err != nil {
		if errors.Is(err, repo.ErrDuplicateURL) {
			// 并发入库撞唯一索引
			return skipped, nil
		}
		return failed, fmt.Errorf("persist: %w", err)
	}

	if err := p.queue.Enqueue(ctx, article.ID); err != nil {
		// 文章保持 pending，由 news:requeue 补投递
		p.log.Error("❌ [Ingest] enqueue summary failed",
			zap.Uint64("article_id", article.ID), zap.String("url", url), zap.Error(err))
	}
	p.log.Debug("✅ [Ingest] saved", zap.Uint64("article_id", article.ID), zap.String("category", category.Slug))
	return stored, nil
}

func (p *Pipeline) archiveBatch(ctx context.Context, res *news.Result, limit int, slugs []string) {
	if p.archive == nil {
		return
	}
	err := p.archive.ArchiveBatch(ctx, repo.FetchBatch{
		Provider:   p.news.Name(),
		Limit:      limit,
		Status:     res.Status,
		Categories: slugs,
		Count:      len(res.Articles),
		Articles:   res.Articles,
		FetchedAt:  p.now(),
	})
	if err != nil {
		p.log.Warn("⚠️ [Ingest] archive fetch batch failed", zap.Error(err))
	}
}

var publishedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// parsePublishedAt 空值取当前时间
func parsePublishedAt(s string, now func() time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now().UTC(), nil
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable publishedAt %q", s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
