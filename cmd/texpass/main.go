package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/weftlab/texpass/internal/config"
	dppentity "github.com/weftlab/texpass/internal/dpp/entity"
	dpphandler "github.com/weftlab/texpass/internal/dpp/handler"
	dpprepo "github.com/weftlab/texpass/internal/dpp/repository"
	dppsvc "github.com/weftlab/texpass/internal/dpp/service"
	lotentity "github.com/weftlab/texpass/internal/lot/entity"
	lothandler "github.com/weftlab/texpass/internal/lot/handler"
	lotrepo "github.com/weftlab/texpass/internal/lot/repository"
	lotsvc "github.com/weftlab/texpass/internal/lot/service"
	"github.com/weftlab/texpass/internal/middleware"
	"github.com/weftlab/texpass/internal/shared/storage"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting texpass service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// AutoMigrate
	if err := db.AutoMigrate(
		&lotentity.SupplyChainRole{},
		&lotentity.Factory{},
		&lotentity.Lot{},
		&lotentity.LotFactory{},
		&lotentity.LotFactoryRole{},
		&lotentity.LotApproval{},
		&lotentity.Inspection{},
		&lotentity.InspectionDefect{},
		&dppentity.Dpp{},
		&dppentity.DppEvent{},
		&dppentity.DppAccessLog{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化对象存储
	var store *storage.ObjectStorage
	if cfg.MinIO.Endpoint != "" {
		store, err = storage.New(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL)
		if err != nil {
			zapLogger.Warn("MinIO unavailable, report uploads disabled", zap.Error(err))
			store = nil
		} else if err := store.EnsureBucket(context.Background()); err != nil {
			zapLogger.Warn("MinIO bucket check failed", zap.Error(err))
		}
	}

	// 初始化仓库与服务
	lotRepos := lotrepo.NewRepositories(db)
	lotServices := lotsvc.NewServices(db, lotRepos, store)
	dppRepos := dpprepo.NewRepositories(db)
	dppServices := dppsvc.NewServices(db, dppRepos, lotRepos, rdb, zapLogger)

	// 种子化工序目录
	if err := lotServices.Catalog.SeedDefaults(context.Background()); err != nil {
		zapLogger.Warn("Seed supply chain roles warning", zap.Error(err))
	}

	lotHandlers := lothandler.NewHandlers(lotServices)
	dppHandlers := dpphandler.NewHandlers(dppServices)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, lotHandlers, dppHandlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, lotH *lothandler.Handlers, dppH *dpphandler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// 公共护照端点（无需认证，仅published可见）
	r.GET("/public/dpps/:id", dppH.Dpp.Public)

	// API v1
	v1 := r.Group("/api/v1")

	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 工序目录
		authorized.GET("/supply-chain-roles", lotH.Catalog.ListRoles)

		// 工厂管理
		factories := authorized.Group("/factories")
		{
			factories.GET("", lotH.Factory.List)
			factories.POST("", lotH.Factory.Create)
			factories.GET("/:id", lotH.Factory.Get)
			factories.PUT("/:id", lotH.Factory.Update)
			factories.DELETE("/:id", lotH.Factory.Delete)
		}

		// 批次管理
		lots := authorized.Group("/lots")
		{
			lots.GET("", lotH.Lot.List)
			lots.POST("", lotH.Lot.Create)
			lots.GET("/:id", lotH.Lot.Get)
			lots.PUT("/:id", lotH.Lot.Update)
			lots.DELETE("/:id", lotH.Lot.Delete)

			// 供应商指派与链路推进
			lots.PUT("/:id/suppliers", lotH.Lot.AssignSuppliers)
			lots.GET("/:id/chain", lotH.Lot.GetChain)
			lots.POST("/:id/chain/advance", lotH.Lot.AdvanceChain)

			// 批次审批
			lots.POST("/:id/approve", lotH.Lot.Approve)
			lots.POST("/:id/reject", lotH.Lot.Reject)
			lots.GET("/:id/approvals", lotH.Lot.ListApprovals)

			// 批次检验
			lots.GET("/:id/inspections", lotH.Inspection.List)
			lots.POST("/:id/inspections", lotH.Inspection.Create)
		}

		// 检验
		inspections := authorized.Group("/inspections")
		{
			inspections.GET("/:id", lotH.Inspection.Get)
			inspections.POST("/:id/complete", lotH.Inspection.Complete)
			inspections.POST("/:id/report", lotH.Inspection.UploadReport)
		}

		// 护照管理
		dpps := authorized.Group("/dpps")
		{
			dpps.GET("", dppH.Dpp.List)
			dpps.POST("", dppH.Dpp.Create)
			dpps.PUT("/:id", dppH.Dpp.Update)
			dpps.POST("/:id/publish", dppH.Dpp.Publish)
			dpps.POST("/:id/archive", dppH.Dpp.Archive)
			dpps.POST("/:id/ingest", dppH.Dpp.Ingest)
			dpps.POST("/:id/events", dppH.Dpp.AppendEvent)
			dpps.GET("/:id/events", dppH.Dpp.ListEvents)

			// 受限视图与访问审计（需要内部角色）
			dpps.GET("/:id", middleware.RequireRole("dpp_viewer"), dppH.Dpp.Restricted)
			dpps.GET("/:id/access-logs", middleware.RequireRole("dpp_viewer"), dppH.Dpp.ListAccessLogs)
			dpps.GET("/:id/access-logs/export", middleware.RequireRole("dpp_viewer"), dppH.Dpp.ExportAccessLogs)
		}
	}
}
