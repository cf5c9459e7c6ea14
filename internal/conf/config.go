package conf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iceymoss/newsfeed/pkg/config"

	"github.com/spf13/viper"
)

const (
	ProviderNewsAPI = "newsapi"
	ProviderRSS     = "rss"
)

type Config struct {
	Server   ServerConfig          `mapstructure:"server"`
	Database config.DatabaseConfig `mapstructure:"database"`
	Redis    config.RedisConfig    `mapstructure:"redis"`
	Mongo    config.MongoDB        `mapstructure:"mongo"`
	Services ServicesConfig        `mapstructure:"services"`
	News     NewsConfig            `mapstructure:"news"`
	Summary  SummaryConfig         `mapstructure:"summary"`
	Ingest   IngestConfig          `mapstructure:"ingest"`
	Worker   WorkerConfig          `mapstructure:"worker"`
	Jobs     []JobConfig           `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// ServicesConfig use_mock 同时决定新闻源和摘要源用 mock 还是 live
type ServicesConfig struct {
	UseMock  bool   `mapstructure:"use_mock"`
	Timezone string `mapstructure:"timezone"`
	LogLevel string `mapstructure:"log_level"`
}

type NewsConfig struct {
	Provider string              `mapstructure:"provider"` // newsapi | rss
	APIKey   string              `mapstructure:"api_key"`
	BaseURL  string              `mapstructure:"base_url"`
	Language string              `mapstructure:"language"`
	Timeout  time.Duration       `mapstructure:"timeout"`
	Feeds    map[string][]string `mapstructure:"feeds"` // rss: 分类 slug -> feed 地址
}

type SummaryConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type IngestConfig struct {
	Cron            string `mapstructure:"cron"`
	Limit           int    `mapstructure:"limit"`
	DefaultCategory string `mapstructure:"default_category"`
	RequeueCron     string `mapstructure:"requeue_cron"`
}

type WorkerConfig struct {
	Queue        string        `mapstructure:"queue"`
	Concurrency  int           `mapstructure:"concurrency"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type JobConfig struct {
	Name    string                 `mapstructure:"name"`
	Handler string                 `mapstructure:"handler"` // 为空时与 name 相同
	Cron    string                 `mapstructure:"cron"`
	Enable  bool                   `mapstructure:"enable"`
	Params  map[string]interface{} `mapstructure:"params"`
}

func (j JobConfig) TaskName() string {
	if j.Handler != "" {
		return j.Handler
	}
	return j.Name
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("database.driver", config.DriverMySQL)
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.dbname", "newsfeed")
	v.SetDefault("database.logLevel", "warning")
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("services.use_mock", true)
	v.SetDefault("services.timezone", "UTC")
	v.SetDefault("news.provider", ProviderNewsAPI)
	v.SetDefault("news.base_url", "https://newsapi.org/v2")
	v.SetDefault("news.language", "en")
	v.SetDefault("news.timeout", 30*time.Second)
	v.SetDefault("summary.base_url", "https://api.openai.com/v1")
	v.SetDefault("summary.model", "gpt-3.5-turbo")
	v.SetDefault("summary.max_tokens", 150)
	v.SetDefault("summary.temperature", 0.7)
	v.SetDefault("summary.timeout", 30*time.Second)
	v.SetDefault("ingest.limit", 50)
	v.SetDefault("ingest.default_category", "technology")
	v.SetDefault("worker.queue", "newsfeed:summaries")
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.timeout", 60*time.Second)
	v.SetDefault("worker.retry_backoff", 10*time.Second)
}

// LoadConfig 加载配置
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NEWSFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // 自动读取环境变量，如 NEWSFEED_NEWS_API_KEY

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	// 显式展开 YAML 中的 ${VAR}
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate 检查取值范围，live 模式下必须提供凭证
func (c *Config) Validate() error {
	if c.Ingest.Limit <= 0 {
		return fmt.Errorf("ingest.limit must be positive, got %d", c.Ingest.Limit)
	}
	if c.Worker.MaxAttempts <= 0 {
		return fmt.Errorf("worker.max_attempts must be positive, got %d", c.Worker.MaxAttempts)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency)
	}
	if c.Worker.Timeout <= 0 {
		return fmt.Errorf("worker.timeout must be positive")
	}
	if c.Services.UseMock {
		return nil
	}
	switch c.News.Provider {
	case ProviderNewsAPI:
		if c.News.APIKey == "" {
			return fmt.Errorf("news.api_key is required when services.use_mock is false")
		}
	case ProviderRSS:
		if len(c.News.Feeds) == 0 {
			return fmt.Errorf("news.feeds is required for the rss provider")
		}
	default:
		return fmt.Errorf("unknown news.provider %q", c.News.Provider)
	}
	if c.Summary.APIKey == "" {
		return fmt.Errorf("summary.api_key is required when services.use_mock is false")
	}
	return nil
}
