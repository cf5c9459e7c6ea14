package summary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iceymoss/newsfeed/pkg/logger"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const maxPromptContent = 1000

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// OpenAI chat completion 摘要，走 langchaingo
// 供应商侧的任何失败都降级为空串；只有调用方 ctx 结束时才返回错误，让任务超时按硬失败重试
type OpenAI struct {
	llm         llms.Model
	maxTokens   int
	temperature float64
	log         *zap.Logger
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("summary api key is empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 150
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Named("openai")
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(cfg.HTTPClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}

	return &OpenAI{
		llm:         llm,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		log:         cfg.Logger,
	}, nil
}

func (o *OpenAI) GenerateSummary(ctx context.Context, title, content string) (string, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, o.llm, buildPrompt(title, content),
		llms.WithMaxTokens(o.maxTokens),
		llms.WithTemperature(o.temperature),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		o.log.Error("❌ [OpenAI] summary request failed", zap.String("title", title), zap.Error(err))
		return "", nil
	}
	return strings.TrimSpace(resp), nil
}

func buildPrompt(title, content string) string {
	if r := []rune(content); len(r) > maxPromptContent {
		content = string(r[:maxPromptContent])
	}
	return "Summarize the following news article in 2-3 concise sentences:\n\n" +
		"Title: " + title + "\n\n" +
		"Content: " + content + "\n\n" +
		"Summary:"
}
