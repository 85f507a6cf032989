// Package probe 实现对账使用的存在性探测与"已消失"确认账本.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/yeisme/filetally/pkg/configs"
	s3c "github.com/yeisme/filetally/pkg/internal/storage/s3"
	nlog "github.com/yeisme/filetally/pkg/log"
	"github.com/yeisme/filetally/pkg/metrics"
)

// Stater 查询单个文件对应的对象，*s3.Client 满足该接口.
type Stater interface {
	StatFile(ctx context.Context, fileID string) (minio.ObjectInfo, error)
}

// 探测结果标签.
const (
	resultExists   = "exists"
	resultGone     = "gone"
	resultError    = "error"
	resultRejected = "rejected"
)

// S3Prober 通过对象存储判断文件是否仍然存在.
//
// 对象不存在返回 (false, nil)；存储不可用、超时、熔断打开时返回错误，由对账策略决定如何处理.
type S3Prober struct {
	stater  Stater
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
	logger  zerolog.Logger
}

// Option 调整 S3Prober.
type Option func(*S3Prober)

// WithBreaker 按配置启用熔断，cfg.Enabled 为 false 时忽略.
func WithBreaker(cfg configs.CircuitBreakerConfig) Option {
	return func(p *S3Prober) {
		if cfg.Enabled {
			p.breaker = newBreaker(cfg)
		}
	}
}

// WithRateLimit 限制探测速率，rps<=0 时不限速.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *S3Prober) {
		if rps <= 0 {
			return
		}

		if burst <= 0 {
			burst = 1
		}

		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout 单次探测超时.
func WithTimeout(d time.Duration) Option { return func(p *S3Prober) { p.timeout = d } }

// WithLogger 替换默认 logger.
func WithLogger(l zerolog.Logger) Option { return func(p *S3Prober) { p.logger = l } }

// NewS3Prober 创建探测器.
func NewS3Prober(stater Stater, opts ...Option) *S3Prober {
	p := &S3Prober{stater: stater, logger: nlog.Component("probe")}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// FromConfig 按应用配置组装探测器.
func FromConfig(stater Stater, cfg *configs.AppConfig) *S3Prober {
	return NewS3Prober(stater,
		WithBreaker(cfg.CircuitBreaker),
		WithRateLimit(cfg.Reconcile.ProbeRPS, cfg.Reconcile.ProbeBurst),
		WithTimeout(time.Duration(cfg.S3.ProbeTimeout)*time.Second),
	)
}

func newBreaker(cfg configs.CircuitBreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "s3-probe",
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l := nlog.Component("probe")
			l.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state changed")
		},
	})
}

// Exists 实现 tracker.Prober.
func (p *S3Prober) Exists(ctx context.Context, fileID string) (bool, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			metrics.ProbeResults.WithLabelValues(resultRejected).Inc()
			return false, fmt.Errorf("probe %s: %w", fileID, err)
		}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	stat := func() (any, error) {
		_, err := p.stater.StatFile(ctx, fileID)
		if errors.Is(err, s3c.ErrObjectNotFound) {
			return false, nil
		}

		if err != nil {
			return nil, err
		}

		return true, nil
	}

	var (
		out any
		err error
	)

	if p.breaker != nil {
		out, err = p.breaker.Execute(stat)
	} else {
		out, err = stat()
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ProbeResults.WithLabelValues(resultRejected).Inc()
		return false, fmt.Errorf("probe %s: %w", fileID, err)
	case err != nil:
		metrics.ProbeResults.WithLabelValues(resultError).Inc()
		p.logger.Debug().Err(err).Str("file_id", fileID).Msg("probe failed")

		return false, fmt.Errorf("probe %s: %w", fileID, err)
	}

	exists, _ := out.(bool)
	if exists {
		metrics.ProbeResults.WithLabelValues(resultExists).Inc()
	} else {
		metrics.ProbeResults.WithLabelValues(resultGone).Inc()
	}

	return exists, nil
}

// State 返回熔断器状态，未启用熔断时为 closed.
func (p *S3Prober) State() gobreaker.State {
	if p.breaker == nil {
		return gobreaker.StateClosed
	}

	return p.breaker.State()
}
