// Package cache 在 KV 存储之上提供带命名空间的泛型缓存，值使用 sonic 序列化.
//
// 基本用法:
//
//	store, _ := kv.NewMemoryKV(ctx, nil)
//	ledger := cache.NewCache(store, cache.WithNamespace("ledger"))
//
//	n, err := cache.Incr(ctx, ledger, "file-1", time.Hour)
//	v, ok, err := cache.Lookup[int](ctx, ledger, "file-1")
//
// 缓存未命中通过 kv.ErrKeyNotFound 或 Lookup 的 ok=false 表达，不视为故障.
// 并发安全性取决于底层 KV 实现；Incr 是读改写，同一个键不应被并发递增.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/filetally/pkg/internal/storage/kv"
)

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore   kv.KVStore
	namespace string
}

// Option 配置 Cache.
type Option func(*Cache)

// WithNamespace 为所有键加上 "namespace:" 前缀，使多个用途可以共享同一个 KV.
func WithNamespace(ns string) Option {
	return func(c *Cache) {
		ns = strings.TrimSuffix(ns, ":")
		if ns != "" {
			c.namespace = ns + ":"
		}
	}
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore, opts ...Option) *Cache {
	c := &Cache{kvStore: kvStore}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Cache) key(k string) string { return c.namespace + k }

// Get 泛型获取缓存值，未命中时返回 kv.ErrKeyNotFound.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, c.key(key))
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Lookup 与 Get 相同，但把未命中折叠为 ok=false.
func Lookup[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	value, err := Get[T](ctx, c, key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return value, false, nil
	}

	if err != nil {
		return value, false, err
	}

	return value, true, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, c.key(key), data, ttl)
}

// Incr 将计数加一并刷新 TTL，返回新值. 不存在的键从 0 开始.
func Incr(ctx context.Context, c *Cache, key string, ttl time.Duration) (int, error) {
	n, _, err := Lookup[int](ctx, c, key)
	if err != nil {
		return 0, err
	}

	n++

	if err := Set(ctx, c, key, n, ttl); err != nil {
		return 0, err
	}

	return n, nil
}

// Delete 删除缓存键，键不存在不算错误.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kvStore.Delete(ctx, c.key(key))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil
	}

	return err
}

// Keys 返回命名空间内的键（已去掉前缀）.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.kvStore.Keys(ctx, c.namespace+"*")
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, c.namespace))
	}

	return out, nil
}

// Clear 删除命名空间内的全部键.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.Keys(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if delErr := c.Delete(ctx, key); delErr != nil {
			return delErr
		}
	}

	return nil
}
