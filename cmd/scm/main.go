package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-scm/internal/config"
	"github.com/bitfantasy/nimo-scm/internal/middleware"
	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/bitfantasy/nimo-scm/internal/scm/handler"
	"github.com/bitfantasy/nimo-scm/internal/scm/repository"
	"github.com/bitfantasy/nimo-scm/internal/scm/service"
	"github.com/bitfantasy/nimo-scm/internal/shared/notify"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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

	zapLogger.Info("Starting nimo-scm service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// AutoMigrate SCM实体
	if err := db.AutoMigrate(
		&entity.CustomerOrder{},
		&entity.OrderItem{},
		&entity.Supplier{},
		&entity.SupplierCapability{},
		&entity.SupplierPerformanceMetrics{},
		&entity.PurchaseOrder{},
		&entity.PurchaseOrderItem{},
		&entity.ActivityLog{},
	); err != nil {
		zapLogger.Warn("AutoMigrate SCM tables warning", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 通知客户端（未配置webhook时不发送）
	notifier := notify.NewClient(cfg.Notify.WebhookURL)

	// 初始化依赖
	repos := repository.NewRepositories(db, zapLogger)

	eligibilitySvc := service.NewEligibilityService(repos.Supplier, rdb, zapLogger)
	engine := service.NewAllocationEngine()
	distributionSvc := service.NewDistributionService(repos.Order, repos.Supplier, eligibilitySvc, engine, zapLogger)
	orderSvc := service.NewOrderService(repos.Order, repos.ActivityLog)
	supplierSvc := service.NewSupplierService(repos.Supplier, eligibilitySvc)
	poSvc := service.NewPurchaseOrderService(repos.PO, repos.Order, supplierSvc, repos.ActivityLog, distributionSvc, zapLogger)
	poSvc.SetNotifier(notifier)
	dashboardSvc := service.NewDashboardService(db)

	handlers := handler.NewHandlers(orderSvc, supplierSvc, eligibilitySvc, distributionSvc, poSvc, dashboardSvc)

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
	registerRoutes(router, handlers, cfg)

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
		Logger: logger.Default.LogMode(logger.Info),
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

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
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

	api := r.Group("/api/v1/scm", middleware.JWTAuth(cfg.JWT.Secret))

	// 客户订单
	orders := api.Group("/orders")
	{
		orders.GET("", h.Order.ListOrders)
		orders.POST("", h.Order.CreateOrder)
		orders.GET("/:id", h.Order.GetOrder)
		orders.PUT("/:id", h.Order.UpdateOrder)
		orders.DELETE("/:id", middleware.RequireRole("scm_admin"), h.Order.DeleteOrder)
		orders.POST("/:id/status", h.Order.UpdateOrderStatus)
		orders.POST("/:id/cancel", h.Order.CancelOrder)

		// 分配与采购
		orders.GET("/:id/distribution-suggestion", h.Distribution.SuggestDistribution)
		orders.POST("/:id/distribution-validation", h.Distribution.ValidateDistribution)
		orders.GET("/:id/purchase-orders", h.PO.ListByCustomerOrder)
		orders.POST("/:id/purchase-orders", h.PO.CreatePurchaseOrders)
		orders.GET("/:id/fulfillment", h.Dashboard.GetFulfillmentProgress)
	}

	// 供应商
	suppliers := api.Group("/suppliers")
	{
		suppliers.GET("/eligible", h.Distribution.ListEligibleSuppliers)
		suppliers.GET("", h.Supplier.ListSuppliers)
		suppliers.POST("", h.Supplier.CreateSupplier)
		suppliers.GET("/:id", h.Supplier.GetSupplier)
		suppliers.PUT("/:id", h.Supplier.UpdateSupplier)
		suppliers.DELETE("/:id", middleware.RequireRole("scm_admin"), h.Supplier.DeleteSupplier)
		suppliers.PUT("/:id/capabilities", h.Supplier.UpsertCapability)
		suppliers.PUT("/:id/performance", h.Supplier.UpdatePerformance)
	}

	// 采购订单
	pos := api.Group("/purchase-orders")
	{
		pos.GET("", h.PO.ListPOs)
		pos.GET("/:id", h.PO.GetPO)
		pos.POST("/:id/confirm", h.PO.ConfirmPO)
		pos.POST("/:id/reject", h.PO.RejectPO)
		pos.POST("/:id/start-production", h.PO.StartProduction)
		pos.POST("/:id/ready", h.PO.ReadyForShipment)
		pos.POST("/:id/ship", h.PO.ShipPO)
		pos.POST("/:id/deliver", h.PO.DeliverPO)
		pos.POST("/:id/cancel", h.PO.CancelPO)
		pos.PUT("/:id/items/:itemId", h.PO.UpdatePOItem)
	}

	// 看板
	dashboard := api.Group("/dashboard")
	{
		dashboard.GET("/order-summary", h.Dashboard.GetOrderSummary)
		dashboard.GET("/supplier-loads", h.Dashboard.GetSupplierLoads)
	}
}
