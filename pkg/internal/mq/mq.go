// Package mq 订阅消息队列中的文件观察事件并交给 TrackerService 登记.
//
// 消费基于 watermill Router，与 HTTP 入口共用同一个 TrackerService. 解码失败的消息会被确认并丢弃，
// 登记结果（包括重复与无媒体）都不会触发重投.
package mq

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/yeisme/filetally/pkg/configs"
	ftcontext "github.com/yeisme/filetally/pkg/context"
	"github.com/yeisme/filetally/pkg/internal/service"
	mqc "github.com/yeisme/filetally/pkg/internal/storage/mq"
	"github.com/yeisme/filetally/pkg/internal/tracker"
	nlog "github.com/yeisme/filetally/pkg/log"
	"github.com/yeisme/filetally/pkg/queue"
)

// HandlerName 文件观察事件处理器名称.
const HandlerName = "tracker.observe"

// Consumer 文件观察事件消费者.
type Consumer struct {
	router *message.Router
	svc    *service.TrackerService
	topic  string
	logger zerolog.Logger
}

// Option 配置 Consumer.
type Option func(*consumerOptions)

type consumerOptions struct {
	registerer prometheus.Registerer
}

// WithMetrics 为 Router 注册 prometheus 指标.
func WithMetrics(r prometheus.Registerer) Option {
	return func(o *consumerOptions) { o.registerer = r }
}

// NewConsumer 创建消费者，Run 之后开始订阅.
func NewConsumer(client *mqc.Client, svc *service.TrackerService, cfg configs.SourceConfig, opts ...Option) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("mq client not initialized")
	}

	if svc == nil {
		return nil, fmt.Errorf("tracker service is nil")
	}

	if cfg.Topic == "" {
		cfg.Topic = queue.TopicFileObserved
	}

	var o consumerOptions
	for _, opt := range opts {
		opt(&o)
	}

	router, err := message.NewRouter(message.RouterConfig{}, client.Logger())
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	router.AddMiddleware(middleware.CorrelationID, middleware.Recoverer)

	if o.registerer != nil {
		metrics.NewPrometheusMetricsBuilder(o.registerer, "filetally", "consumer").AddPrometheusRouterMetrics(router)
	}

	c := &Consumer{
		router: router,
		svc:    svc,
		topic:  cfg.Topic,
		logger: nlog.Component("consumer"),
	}

	router.AddNoPublisherHandler(HandlerName, cfg.Topic, client.Subscriber(), c.handle)

	return c, nil
}

// Run 阻塞运行直到 ctx 取消或 Close.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().Str("topic", c.topic).Msg("consuming file events")

	return c.router.Run(ctx)
}

// Running 处理器全部完成订阅后关闭.
func (c *Consumer) Running() chan struct{} { return c.router.Running() }

// Close 停止消费.
func (c *Consumer) Close() error { return c.router.Close() }

func (c *Consumer) handle(msg *message.Message) error {
	ctx := msg.Context()

	event, err := queue.ParseFileObserved(msg)
	if err != nil {
		c.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping undecodable file event")
		return nil
	}

	rec, err := c.svc.Observe(ctx, event.Payload.Message)

	l := ftcontext.WithTraceContext(ctx, c.logger)

	switch {
	case err == nil:
		l.Debug().Str("file_id", rec.FileID).Str("source", event.Payload.Source).Msg("file event consumed")
	case errors.Is(err, tracker.ErrNoMedia), errors.Is(err, tracker.ErrDuplicate), errors.Is(err, tracker.ErrInvalidEvent):
		// 已在 service 中记录.
	default:
		l.Error().Err(err).Str("message_uuid", msg.UUID).Msg("file event failed")
	}

	return nil
}
