// Package news 新闻源：mock / newsapi / rss 三种实现，返回 newsapi 形状的原始文章
package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/iceymoss/newsfeed/internal/conf"

	"go.uber.org/zap"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrFetchFailed 整批抓取失败
var ErrFetchFailed = errors.New("news fetch failed")

// CategoryRef 抓取时使用的分类描述
type CategoryRef struct {
	ID   uint64 `json:"id"`
	Slug string `json:"slug"`
}

type RawSource struct {
	ID   *string `json:"id" bson:"id"`
	Name string  `json:"name" bson:"name"`
}

// RawArticle 供应商返回的单条文章，可选字段用指针区分缺失与空串
type RawArticle struct {
	Source      RawSource `json:"source" bson:"source"`
	Author      *string   `json:"author" bson:"author"`
	Title       string    `json:"title" bson:"title"`
	Description *string   `json:"description" bson:"description"`
	URL         string    `json:"url" bson:"url"`
	URLToImage  *string   `json:"urlToImage" bson:"url_to_image"`
	PublishedAt string    `json:"publishedAt" bson:"published_at"`
	Content     *string   `json:"content" bson:"content"`
}

// Result 一次抓取的结果
type Result struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	Articles     []RawArticle `json:"articles"`
	Code         string       `json:"code,omitempty"`
	Message      string       `json:"message,omitempty"`
}

func (r *Result) OK() bool {
	return r != nil && r.Status == StatusOK
}

// Source 新闻源能力
type Source interface {
	FetchNews(ctx context.Context, categories []CategoryRef, limit int) (*Result, error)
	Name() string
}

// New 按注入的配置选择实现
func New(cfg conf.NewsConfig, useMock bool, log *zap.Logger) (Source, error) {
	if useMock {
		return NewMock(), nil
	}
	client := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Provider {
	case conf.ProviderNewsAPI, "":
		return NewNewsAPI(cfg.APIKey, WithBaseURL(cfg.BaseURL), WithLanguage(cfg.Language),
			WithHTTPClient(client), WithLogger(log)), nil
	case conf.ProviderRSS:
		return NewRSS(cfg.Feeds, client, log), nil
	default:
		return nil, fmt.Errorf("unknown news provider %q", cfg.Provider)
	}
}

func strPtr(s string) *string {
	return &s
}

func truncate(articles []RawArticle, limit int) []RawArticle {
	if limit >= 0 && len(articles) > limit {
		return articles[:limit]
	}
	return articles
}
