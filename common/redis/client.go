package redis

import (
	"context"
	"fmt"
	"time"

	"gasra-notifier/common/config"

	"github.com/go-redis/redis/v8"
)

// Client Redis客户端类型别名
type Client = redis.Client

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 3 * time.Second
	pingTimeout = 2 * time.Second
)

// NewRedisClient 创建Redis客户端
// 通知服务只做 SET NX / XADD 这类单次操作，连接池保持很小
func NewRedisClient(cfg *config.RedisConfig) *Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     4,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})
}

// Ping 测试Redis连接（启动时用于决定是否启用去重保护）
func Ping(ctx context.Context, client *Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis %s: %w", client.Options().Addr, err)
	}
	return nil
}

// Close 关闭Redis连接
func Close(client *Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
