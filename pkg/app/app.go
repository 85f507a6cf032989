// Package app 提供应用程序的初始化、运行与关闭.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/filetally/pkg/api"
	"github.com/yeisme/filetally/pkg/configs"
	ftcontext "github.com/yeisme/filetally/pkg/context"
	"github.com/yeisme/filetally/pkg/internal/handle"
	"github.com/yeisme/filetally/pkg/internal/jobs"
	"github.com/yeisme/filetally/pkg/internal/mq"
	"github.com/yeisme/filetally/pkg/internal/service"
	"github.com/yeisme/filetally/pkg/internal/storage"
	"github.com/yeisme/filetally/pkg/log"
	"github.com/yeisme/filetally/pkg/metrics"
	"github.com/yeisme/filetally/pkg/middleware"
	"github.com/yeisme/filetally/pkg/scheduler"
	"github.com/yeisme/filetally/pkg/tracing"
)

// shutdownTimeout 优雅关闭的最长等待时间.
const shutdownTimeout = 10 * time.Second

// App 持有进程内的全部组件.
type App struct {
	Engine *gin.Engine

	config    *configs.AppConfig
	manager   *storage.Manager
	service   *service.TrackerService
	scheduler *scheduler.Scheduler
	consumer  *mq.Consumer
	logger    zerolog.Logger
}

// NewApp 加载配置并初始化全部组件. 失败时已创建的资源会被释放.
func NewApp(ctx context.Context, configPath string) (_ *App, err error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()

	log.Init()
	l := log.Logger()

	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	var storageOpts []storage.Option
	if config.Metrics.Enabled {
		storageOpts = append(storageOpts, storage.WithMetrics(metrics.Registerer()))
	}

	manager, err := storage.Init(ctx, config, storageOpts...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &App{config: config, manager: manager, logger: log.Component("app")}

	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	svc, err := service.NewFromContext(ftcontext.WithStorageManager(ctx, manager), config)
	if err != nil {
		return nil, fmt.Errorf("init tracker service: %w", err)
	}

	a.service = svc

	if config.Metrics.Enabled {
		if err := metrics.Registerer().Register(metrics.NewTrackerCollector(svc)); err != nil {
			return nil, fmt.Errorf("register tracker collector: %w", err)
		}
	}

	if a.scheduler, err = scheduler.NewScheduler(); err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(ctx, a.scheduler, svc, config.Reconcile); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	if config.Source.Subscribe {
		var opts []mq.Option
		if config.Metrics.Enabled {
			opts = append(opts, mq.WithMetrics(metrics.Registerer()))
		}

		if a.consumer, err = mq.NewConsumer(manager.GetMQClient(), svc, config.Source, opts...); err != nil {
			return nil, fmt.Errorf("init consumer: %w", err)
		}
	}

	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	a.Engine = a.newEngine()

	return a, nil
}

func (a *App) newEngine() *gin.Engine {
	engine := gin.New()

	engine.Use(
		middleware.RecoveryMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(a.config.Server),
	)

	if a.config.Server.Gzip {
		engine.Use(gzip.Gzip(gzip.DefaultCompression))
	}

	engine.Use(
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(a.config.RateLimit),
		middleware.StorageMiddleware(a.manager),
		middleware.SchedulerMiddleware(a.scheduler),
	)

	handlers := handle.NewTrackerHandlers(a.service, handle.WithReconcileTimeout(a.config.Server.GetTimeoutDuration()*10))
	api.RegisterGroup(engine, handlers)

	if a.config.Metrics.Endpoint == "" {
		_ = metrics.StartMetricsServer(a.config.Metrics, engine)
	}

	return engine
}

// Service 返回文件追踪服务.
func (a *App) Service() *service.TrackerService { return a.service }

// Run 启动 HTTP 服务、事件消费与定时任务，阻塞到 ctx 取消或任一组件失败.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	servers := []*http.Server{{
		Addr:              net.JoinHostPort(a.config.Server.Host, strconv.Itoa(a.config.Server.Port)),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}}

	if a.config.Metrics.Enabled && a.config.Metrics.Endpoint != "" {
		mux := http.NewServeMux()
		mux.Handle(a.config.Metrics.Path, metrics.Handler())

		servers = append(servers, &http.Server{
			Addr:              a.config.Metrics.Endpoint,
			Handler:           mux,
			ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
		})
	}

	for _, srv := range servers {
		g.Go(func() error {
			a.logger.Info().Str("addr", srv.Addr).Msg("http server listening")

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}

			return nil
		})
	}

	if a.consumer != nil {
		g.Go(func() error { return a.consumer.Run(gctx) })
	}

	a.scheduler.Start()

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		errs := make([]error, 0, len(servers))
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}

		return errors.Join(errs...)
	})

	return g.Wait()
}

// Close 依次停止调度器、存储连接与追踪导出.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Shutdown())
	}

	if a.manager != nil {
		errs = append(errs, a.manager.Close())
	}

	errs = append(errs, tracing.ShutdownTracer(ctx))

	return errors.Join(errs...)
}
