package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iceymoss/newsfeed/pkg/logger"
	"github.com/iceymoss/newsfeed/pkg/utils"

	"go.uber.org/zap"
)

const defaultNewsAPIBase = "https://newsapi.org/v2"

// NewsAPI newsapi.org top-headlines 客户端
// 单个分类请求失败只记日志，该分类贡献 0 条，不影响整批
type NewsAPI struct {
	apiKey   string
	baseURL  string
	language string
	client   *http.Client
	log      *zap.Logger
}

type NewsAPIOption func(*NewsAPI)

func WithBaseURL(u string) NewsAPIOption {
	return func(n *NewsAPI) {
		if u != "" {
			n.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithLanguage(lang string) NewsAPIOption {
	return func(n *NewsAPI) {
		if lang != "" {
			n.language = lang
		}
	}
}

func WithHTTPClient(c *http.Client) NewsAPIOption {
	return func(n *NewsAPI) {
		if c != nil {
			n.client = c
		}
	}
}

func WithLogger(l *zap.Logger) NewsAPIOption {
	return func(n *NewsAPI) {
		if l != nil {
			n.log = l
		}
	}
}

func NewNewsAPI(apiKey string, opts ...NewsAPIOption) *NewsAPI {
	n := &NewsAPI{
		apiKey:   apiKey,
		baseURL:  defaultNewsAPIBase,
		language: "en",
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      logger.Named("newsapi"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *NewsAPI) Name() string { return "newsapi" }

func (n *NewsAPI) FetchNews(ctx context.Context, categories []CategoryRef, limit int) (*Result, error) {
	pageSize := utils.CeilDiv(limit, len(categories))
	var all []RawArticle

	for _, c := range categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		articles, err := n.topHeadlines(ctx, c.Slug, pageSize)
		if err != nil {
			n.log.Error("❌ [NewsAPI] category fetch failed",
				zap.String("category", c.Slug), zap.Error(err))
			continue
		}
		all = append(all, articles...)
	}

	total := len(all)
	return &Result{Status: StatusOK, TotalResults: total, Articles: truncate(all, limit)}, nil
}

func (n *NewsAPI) topHeadlines(ctx context.Context, category string, pageSize int) ([]RawArticle, error) {
	q := url.Values{}
	q.Set("apiKey", n.apiKey)
	q.Set("category", category)
	q.Set("language", n.language)
	q.Set("pageSize", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/top-headlines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", n.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload Result
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Status != "" && payload.Status != StatusOK {
		return nil, fmt.Errorf("provider error %s: %s", payload.Code, payload.Message)
	}
	return payload.Articles, nil
}
