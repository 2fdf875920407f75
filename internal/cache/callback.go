package cache

import (
	"context"
	"time"

	"github.com/dujiao-next/mall/internal/logger"
)

const callbackMarkerTTL = 24 * time.Hour

// appliedMarker 已处理回调的标记值
type appliedMarker struct {
	AppliedAt int64 `json:"applied_at"`
}

// CallbackCache 基于 Redis 的回调去重缓存；未启用 Redis 时全部未命中
type CallbackCache struct {
	ttl time.Duration
}

// NewCallbackCache 创建回调去重缓存
func NewCallbackCache(ttl time.Duration) *CallbackCache {
	if ttl <= 0 {
		ttl = callbackMarkerTTL
	}
	return &CallbackCache{ttl: ttl}
}

// IsApplied 回调是否已处理；读取失败按未命中处理，交由数据库判定
func (c *CallbackCache) IsApplied(ctx context.Context, key string) bool {
	hit, err := Exists(ctx, callbackKey(key))
	if err != nil {
		logger.Warnw("callback_cache_read_failed", "key", key, "error", err)
		return false
	}
	return hit
}

// MarkApplied 记录回调已处理
func (c *CallbackCache) MarkApplied(ctx context.Context, key string) {
	if err := SetJSON(ctx, callbackKey(key), appliedMarker{AppliedAt: time.Now().Unix()}, c.ttl); err != nil {
		logger.Warnw("callback_cache_write_failed", "key", key, "error", err)
	}
}

func callbackKey(key string) string {
	return "callback:" + key
}
