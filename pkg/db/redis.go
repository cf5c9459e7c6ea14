package db

import (
	"context"
	"fmt"
	"time"

	conf "github.com/iceymoss/newsfeed/pkg/config"

	"github.com/go-redis/redis/v8"
)

// NewRedis 创建 redis 客户端并做一次 ping
func NewRedis(ctx context.Context, cfg conf.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.PassWord,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr(), err)
	}
	return rdb, nil
}
