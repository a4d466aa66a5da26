package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const guardKeyPrefix = "notifier:delivered"

// DeliveryGuard 基于 SET NX 的重复投递保护（problem_reports / maintenance_records）
// Redis 不可用时放行，不阻塞通知
type DeliveryGuard struct {
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
}

// NewDeliveryGuard 创建投递保护
func NewDeliveryGuard(kv KV, ttl time.Duration, logger *zap.Logger) *DeliveryGuard {
	return &DeliveryGuard{
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}
}

func guardKey(table, entityID string) string {
	return fmt.Sprintf("%s:%s:%s", guardKeyPrefix, table, entityID)
}

// Acquire 抢占 (table, id) 的投递权，owner 记录抢占者（request id）
// 返回 false 表示已被其他调用抢占
func (g *DeliveryGuard) Acquire(ctx context.Context, table, entityID, owner string) bool {
	key := guardKey(table, entityID)

	ok, err := g.kv.SetNX(ctx, key, owner, g.ttl)
	if err != nil {
		g.logger.Warn("Delivery guard unavailable, proceeding without it",
			zap.String("key", key),
			zap.Error(err),
		)
		return true
	}
	if !ok {
		holder, _ := g.kv.Get(ctx, key)
		g.logger.Info("Delivery already claimed",
			zap.String("key", key),
			zap.String("claimed_by", holder),
		)
	}
	return ok
}

// Release 释放投递权，用于整次投递未能开始（如凭证交换失败）时允许重投
func (g *DeliveryGuard) Release(ctx context.Context, table, entityID string) {
	key := guardKey(table, entityID)
	if err := g.kv.Del(ctx, key); err != nil {
		g.logger.Warn("Failed to release delivery guard",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
