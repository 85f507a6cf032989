package kv_test

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	mrand "math/rand"
	"os"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/filetally/pkg/configs"
	"github.com/yeisme/filetally/pkg/internal/storage/kv"
)

func TestMemoryKVBasics(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}

	if _, err := store.Get(ctx, "ledger:missing"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("get missing err = %v, want ErrKeyNotFound", err)
	}

	if err := store.Set(ctx, "ledger:f1", []byte("2"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, "ledger:f1")
	if err != nil || string(got) != "2" {
		t.Fatalf("get = %q, %v", got, err)
	}

	// 修改返回值不影响存储.
	got[0] = '9'

	again, _ := store.Get(ctx, "ledger:f1")
	if string(again) != "2" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}

	if err := store.Delete(ctx, "ledger:f1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if ok, _ := store.Exists(ctx, "ledger:f1"); ok {
		t.Fatalf("key still exists after delete")
	}
}

func TestMemoryKVExpiry(t *testing.T) {
	ctx := context.Background()
	store, _ := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)

	if err := store.Set(ctx, "short", []byte("x"), 20*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}

	if ok, _ := store.Exists(ctx, "short"); !ok {
		t.Fatalf("key missing before expiry")
	}

	time.Sleep(60 * time.Millisecond)

	if _, err := store.Get(ctx, "short"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("expired get err = %v, want ErrKeyNotFound", err)
	}

	keys, _ := store.Keys(ctx, "")
	if len(keys) != 0 {
		t.Fatalf("expired key listed: %v", keys)
	}
}

func TestKeysGlob(t *testing.T) {
	ctx := context.Background()

	for _, typ := range []kv.KVType{kv.KVTypeMemory, kv.KVTypeGroupcache} {
		var cfg any
		if typ == kv.KVTypeGroupcache {
			cfg = &configs.GroupcacheKVConfig{Name: "glob-test", CacheBytes: 1 << 20}
		}

		store, err := kv.NewKVStore(ctx, typ, cfg)
		if err != nil {
			t.Fatalf("%s: create: %v", typ, err)
		}

		for _, k := range []string{"ledger:a", "ledger:b", "other:c"} {
			_ = store.Set(ctx, k, []byte("1"), 0)
		}

		keys, err := store.Keys(ctx, "ledger:*")
		if err != nil {
			t.Fatalf("%s: keys: %v", typ, err)
		}

		if want := []string{"ledger:a", "ledger:b"}; !reflect.DeepEqual(keys, want) {
			t.Fatalf("%s: keys = %v, want %v", typ, keys, want)
		}
	}
}

func TestGroupcacheKVLocalReadsAfterDelete(t *testing.T) {
	ctx := context.Background()
	cfg := &configs.GroupcacheKVConfig{Name: "delete-test", CacheBytes: 1 << 20}

	store, err := kv.NewKVStore(ctx, kv.KVTypeGroupcache, cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_ = store.Set(ctx, "k", []byte("v1"), 0)
	_ = store.Set(ctx, "k", []byte("v2"), 0)

	if got, _ := store.Get(ctx, "k"); string(got) != "v2" {
		t.Fatalf("get = %q, want v2", got)
	}

	_ = store.Delete(ctx, "k")

	if _, err := store.Get(ctx, "k"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("get after delete err = %v", err)
	}
}

func TestNewKVClientSelectsType(t *testing.T) {
	client, err := kv.NewKVClient(context.Background(), configs.KVConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if client.Type() != kv.KVTypeMemory {
		t.Fatalf("type = %s", client.Type())
	}

	if _, err := kv.NewKVClient(context.Background(), configs.KVConfig{Type: "etcd"}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func BenchmarkMemoryKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}

	benchKV(b, "memory", store)
	benchKVParallel(b, "memory", store)
	_ = store.Close()
}

func BenchmarkGroupcacheKV(b *testing.B) {
	cfg := &configs.GroupcacheKVConfig{
		Name:       "bench-groupcache",
		CacheBytes: 32 * 1024 * 1024,
		Peers:      []string{},
		Self:       "http://127.0.0.1:0",
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeGroupcache, cfg)
	if err != nil {
		b.Fatalf("create groupcache kv: %v", err)
	}

	benchKV(b, "groupcache", store)
	benchKVParallel(b, "groupcache", store)
	_ = store.Close()
}

// BenchmarkRedisKV 需设置 ENABLE_REDIS_BENCH=1，REDIS_ADDR 默认 127.0.0.1:6379.
func BenchmarkRedisKV(b *testing.B) {
	if os.Getenv("ENABLE_REDIS_BENCH") == "" {
		b.Skip("set ENABLE_REDIS_BENCH=1 to enable")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	cfg := &configs.RedisKVConfig{Addr: addr, Password: "", DB: 0}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeRedis, cfg)
	if err != nil {
		b.Skipf("redis not available: %v", err)
		return
	}

	benchKV(b, "redis", store)
	benchKVParallel(b, "redis", store)
	_ = store.Close()
}

// BenchmarkNATSKV 需设置 ENABLE_NATS_BENCH=1，NATS_URL 默认 nats://127.0.0.1:4222.
func BenchmarkNATSKV(b *testing.B) {
	if os.Getenv("ENABLE_NATS_BENCH") == "" {
		b.Skip("set ENABLE_NATS_BENCH=1 to enable")
	}

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://127.0.0.1:4222"
	}

	bucket := os.Getenv("NATS_BUCKET")
	if bucket == "" {
		bucket = "bench-kv"
	}

	cfg := &configs.NATSKVConfig{URL: url, User: "", Password: "", Bucket: bucket}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeNATS, cfg)
	if err != nil {
		b.Skipf("nats not available: %v", err)
		return
	}

	benchKV(b, "nats", store)
	benchKVParallel(b, "nats", store)
	_ = store.Close()
}

// randBytes 返回 n 个随机字节.
func randBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		mr := mrand.New(mrand.NewSource(42))
		for i := range b {
			b[i] = byte(mr.Intn(256))
		}
	}

	return b
}

// benchKV 执行基本的 Set/Get/Delete 基准测试.
func benchKV(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	// 确认计数的值很小，TTL 与对账账本保持一致.
	sizes := []int{8, 64, 1024}
	ttls := []time.Duration{0, 24 * time.Hour}

	for _, size := range sizes {
		payload := randBytes(size)
		for _, ttl := range ttls {
			b.Run(fmt.Sprintf("%s/size=%d/ttl=%s", name, size, ttl), func(b *testing.B) {
				b.ReportAllocs()

				for i := 0; b.Loop(); i++ {
					key := fmt.Sprintf("ledger-%s-%d", name, i)
					if err := store.Set(ctx, key, payload, ttl); err != nil {
						b.Fatalf("set failed: %v", err)
					}

					if _, err := store.Get(ctx, key); err != nil {
						b.Fatalf("get failed: %v", err)
					}

					if err := store.Delete(ctx, key); err != nil {
						b.Fatalf("delete failed: %v", err)
					}
				}
			})
		}
	}
}

// benchKVParallel 执行并行的 Set/Get/Delete 基准测试.
func benchKVParallel(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	payload := randBytes(64)

	var ctr uint64

	b.Run(fmt.Sprintf("%s/parallel", name), func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				i := atomic.AddUint64(&ctr, 1)

				// NATS KV 键不允许冒号
				key := fmt.Sprintf("ledger-%s-p-%d", name, i)
				if err := store.Set(ctx, key, payload, 0); err != nil {
					b.Fatalf("set failed: %v", err)
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Fatalf("get failed: %v", err)
				}

				if err := store.Delete(ctx, key); err != nil {
					b.Fatalf("delete failed: %v", err)
				}
			}
		})
	})
}
