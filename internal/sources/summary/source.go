// Package summary 摘要源：mock 模板 / openai 兼容接口
package summary

import (
	"context"
	"net/http"

	"github.com/iceymoss/newsfeed/internal/conf"

	"go.uber.org/zap"
)

// Source 摘要能力，返回空串表示没有生成摘要 (软失败)，不是错误
type Source interface {
	GenerateSummary(ctx context.Context, title, content string) (string, error)
}

func New(cfg conf.SummaryConfig, useMock bool, log *zap.Logger) (Source, error) {
	if useMock {
		return NewMock(), nil
	}
	return NewOpenAI(OpenAIConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		Logger:      log,
	})
}
