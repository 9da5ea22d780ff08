// Package main 是服务端的入口点
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/cache"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/config"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/handler"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/middleware"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/model"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/repository"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("./configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}

	// 自动迁移数据库表
	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化 Redis
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		log.Fatalf("Failed to init redis: %v", err)
	}
	defer func() {
		if err := redisCache.Close(); err != nil {
			log.Printf("Failed to close redis: %v", err)
		}
	}()

	if cfg.AI.APIKey == "" {
		log.Println("[WARN] ai.api_key is empty, chat requests will fail")
	}

	// 初始化 Repository 层
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	knowledgeRepo := repository.NewKnowledgeRepository(db)

	// 初始化 Service 层
	aiService := service.NewAIService(cfg)
	chatOpts := []service.ChatOption{
		service.WithCacheTTL(cfg.Redis.TTL),
		service.WithHistoryLimit(cfg.AI.HistoryLimit),
	}
	if cfg.Knowledge.Enabled {
		if cfg.Knowledge.Seed {
			seedKnowledge(knowledgeRepo)
		}
		chatOpts = append(chatOpts, service.WithRetriever(service.NewSourceRouter(knowledgeRepo, cfg.Knowledge.MaxResults)))
	}
	chatService := service.NewChatService(sessionRepo, messageRepo, redisCache, aiService, chatOpts...)

	// 过期会话清理
	if cfg.Janitor.Enabled {
		janitor, err := service.NewJanitor(chatService, cfg.Janitor.Schedule, cfg.Janitor.MaxIdle)
		if err != nil {
			log.Fatalf("Failed to init janitor: %v", err)
		}
		janitor.Start()
		defer func() { <-janitor.Stop().Done() }()
	}

	// 初始化 Handler 层
	chatHandler := handler.NewChatHandler(chatService)
	healthHandler := handler.NewHealthHandler(cfg.Server.Version, map[string]handler.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"cache": redisCache.Ping,
	})

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	router := gin.New()

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(cfg.Server.CORS...)))

	// 注册路由
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	router.GET("/metrics", middleware.MetricsHandler())
	api := router.Group("/api")
	healthHandler.RegisterRoutes(api)
	chatHandler.RegisterRoutes(api, middleware.RateLimitMiddleware(limiter))

	// 创建 HTTP 服务器
	// 回答生成可能较慢，写超时要大于 AI 请求超时
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.AI.Timeout + 10*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		// 创建关闭上下文，设置超时
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server exited with error: %v", err)
		return
	}
	log.Println("Server exited")
}

// initDatabase 初始化数据库连接
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	// 构建 DSN (Data Source Name)
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=UTC",
		cfg.MySQL.Username,
		cfg.MySQL.Password,
		cfg.MySQL.Host,
		cfg.MySQL.Port,
		cfg.MySQL.Database,
		cfg.MySQL.Charset,
	)

	// 配置 GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	// 连接数据库
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MySQL.MaxLifetime) * time.Second)

	log.Println("Database connected successfully")
	return db, nil
}

// seedKnowledge 知识库为空时写入初始数据
func seedKnowledge(repo *repository.KnowledgeRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	seeded, err := repo.Seed(ctx, repository.DefaultDocuments(), repository.DefaultRecords())
	if err != nil {
		log.Printf("[WARN] Failed to seed knowledge base: %v", err)
		return
	}
	if seeded {
		log.Println("Knowledge base seeded")
	}
}

// autoMigrate 自动迁移数据库表
func autoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&model.Session{},
		&model.Message{},
		&model.KnowledgeDocument{},
		&model.CampusRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}
