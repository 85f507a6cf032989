// Package storage 聚合外部资源：对象存储（存在性探测）、审计数据库、消息队列与 KV.
//
// 除 KV 与 MQ 外都是可选的，未启用的客户端为 nil，调用方需自行判断.
//
// Example:
//
//	mgr, err := storage.Init(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	if s3 := mgr.GetS3Client(); s3 != nil {
//		_, err = s3.StatFile(ctx, "file-id")
//	}
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/filetally/pkg/configs"
	dbc "github.com/yeisme/filetally/pkg/internal/storage/db"
	kvc "github.com/yeisme/filetally/pkg/internal/storage/kv"
	mqc "github.com/yeisme/filetally/pkg/internal/storage/mq"
	s3c "github.com/yeisme/filetally/pkg/internal/storage/s3"
	nlog "github.com/yeisme/filetally/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	S3 *s3c.Client
	DB *dbc.Client
	MQ *mqc.Client
	KV *kvc.Client
}

// Option 调整 Init 的行为.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
}

// WithMetrics 为 MQ 与 DB 注册 prometheus 指标.
func WithMetrics(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// Init 按配置创建全部资源. 任一资源失败时关闭已创建的资源并返回错误.
func Init(ctx context.Context, cfg *configs.AppConfig, opts ...Option) (*Manager, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{}
	logger := nlog.Logger()

	fail := func(what string, err error) (*Manager, error) {
		_ = m.Close()
		return nil, fmt.Errorf("init %s: %w", what, err)
	}

	kvi, err := kvc.NewKVClient(ctx, cfg.KV)
	if err != nil {
		return fail("kv", err)
	}

	m.KV = kvi

	var mqOpts []mqc.Option
	if o.registerer != nil {
		mqOpts = append(mqOpts, mqc.WithMetrics(o.registerer))
	}

	mqi, err := mqc.New(ctx, cfg.MQ, mqOpts...)
	if err != nil {
		return fail("mq", err)
	}

	m.MQ = mqi

	if cfg.S3.Enabled {
		s3i, err := s3c.New(ctx, cfg.S3)
		if err != nil {
			return fail("s3", err)
		}

		m.S3 = s3i
	}

	if cfg.DB.Enabled {
		dbi, err := dbc.New(ctx, cfg.DB, dbc.WithMetrics(o.registerer != nil))
		if err != nil {
			return fail("db", err)
		}

		m.DB = dbi
	}

	logger.Info().
		Str("kv", string(m.KV.Type())).
		Str("mq", string(m.MQ.Type())).
		Bool("s3", m.S3 != nil).
		Bool("db", m.DB != nil).
		Msg("storage manager initialized")

	return m, nil
}

// GetS3Client 获取 S3 客户端，未启用时为 nil.
func (m *Manager) GetS3Client() *s3c.Client {
	if m == nil {
		return nil
	}

	return m.S3
}

// GetDBClient 获取 DB 客户端，未启用时为 nil.
func (m *Manager) GetDBClient() *dbc.Client {
	if m == nil {
		return nil
	}

	return m.DB
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	if m == nil {
		return nil
	}

	return m.MQ
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	if m == nil {
		return nil
	}

	return m.KV
}

// Close 关闭所有已创建的资源.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}

	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	return errors.Join(errs...)
}
