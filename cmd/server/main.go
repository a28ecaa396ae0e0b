package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"compsystem/internal/config"
	"compsystem/internal/handler"
	"compsystem/internal/infrastructure/cache"
	"compsystem/internal/infrastructure/database"
	"compsystem/internal/infrastructure/lock"
	"compsystem/internal/infrastructure/metrics"
	"compsystem/internal/infrastructure/mq"
	"compsystem/internal/job"
	"compsystem/internal/repository"
	"compsystem/internal/service"
	"compsystem/pkg/idgen"
	"compsystem/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "compensation-server"

func main() {
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		panic(fmt.Sprintf("初始化日志失败: %v", err))
	}
	defer log.Sync() //nolint:errcheck

	// 初始化 ID 生成器
	if err := idgen.Init(cfg.Server.WorkerID); err != nil {
		log.Fatal("初始化 ID 生成器失败", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	var (
		store     service.CompensationStore
		operators service.OperatorStore
		sessions  cache.SessionStore
		locker    lock.Locker
		sender    *job.OutboxSender
	)

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		log.Warn("使用内存存储，进程重启后数据丢失")
		store = repository.NewMemoryCompensationRepository()
		operators = repository.NewMemoryOperatorRepository()
		sessions = cache.NewMemorySessionStore()
		locker = lock.NewLocalLocker()

	default:
		db, err := database.InitMySQL(&cfg.MySQL, log)
		if err != nil {
			log.Fatal("初始化 MySQL 失败", zap.Error(err))
		}
		defer database.Close(db) //nolint:errcheck

		redisClient, err := cache.InitRedis(&cfg.Redis, log)
		if err != nil {
			log.Fatal("初始化 Redis 失败", zap.Error(err))
		}
		defer redisClient.Close()

		outbox := repository.NewOutboxRepository(db)
		store = repository.NewCompensationRepository(db, outbox, cfg.Kafka.Topic.CompensationEvent)
		operators = repository.NewOperatorRepository(db)
		sessions = cache.NewRedisSessionStore(redisClient)
		locker = lock.NewRedisLocker(redisClient)

		var publisher job.Publisher = mq.NewLogPublisher(log)
		if cfg.Kafka.Enabled {
			producer, err := mq.InitKafka(&cfg.Kafka, log)
			if err != nil {
				log.Fatal("初始化 Kafka 失败", zap.Error(err))
			}
			defer producer.Close()
			publisher = producer
		}
		sender = job.NewOutboxSender(outbox, publisher, cfg.Business.MaxRetryCount, log)
	}

	compensationService, err := service.NewCompensationService(store, locker, m, log, service.CompensationOptions{
		Policy:   cfg.Policy(),
		PageSize: cfg.Business.PageSize,
		Location: cfg.Location(),
	})
	if err != nil {
		log.Fatal("初始化补偿服务失败", zap.Error(err))
	}
	importService := service.NewImportService(store, cfg.Business.MaxImportRows, m, log)
	authService := service.NewAuthService(operators, sessions, log, service.AuthOptions{
		Enabled:    cfg.Auth.Enabled,
		Secret:     cfg.Auth.JWTSecret,
		TTL:        cfg.SessionTTL(),
		BcryptCost: cfg.Auth.BcryptCost,
	})
	if err := authService.EnsureOperator(ctx, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPassword); err != nil {
		log.Fatal("创建初始操作员失败", zap.Error(err))
	}
	if !authService.Enabled() {
		log.Warn("未启用登录，所有请求按匿名会话处理")
	}

	h := handler.NewHandler(compensationService, importService, authService, cfg.MaxUploadBytes(), log)
	router := handler.SetupRouter(h, authService, promhttp.Handler(), log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("服务启动", zap.Int("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	})

	if sender != nil {
		g.Go(func() error {
			return sender.Run(gctx)
		})
	}

	// 收到信号或任一任务失败后关闭 HTTP 服务（等待最多5秒）
	g.Go(func() error {
		<-gctx.Done()
		log.Info("正在关闭服务...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("服务异常退出", zap.Error(err))
		return
	}
	log.Info("服务已关闭")
}
