package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/api"
	"github.com/Armour007/wellness-backend/internal/cache"
	"github.com/Armour007/wellness-backend/internal/config"
	"github.com/Armour007/wellness-backend/internal/logging"
	"github.com/Armour007/wellness-backend/internal/mesh"
)

const apiVersion = "2025-10-01"

func main() {
	cfg := config.MustLoad()
	logger, err := logging.Init(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Connect(ctx, cfg.Database.DSN()); err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer database.Close()

	api.SetAuth([]byte(cfg.JWT.Secret), time.Duration(cfg.JWT.ExpireMinutes)*time.Minute)
	eng, err := api.NewPolicyEngine(ctx, cfg.PolicyEngine)
	if err != nil {
		logger.Fatal("policy engine", zap.String("engine", cfg.PolicyEngine), zap.Error(err))
	}
	api.SetPolicyEngine(eng)
	logger.Info("policy engine ready", zap.String("engine", eng.Name()))

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		api.SetRedis(rdb)
		api.SetCache(cache.NewRedis(rdb))
		logger.Info("redis enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var bus mesh.Bus = mesh.NewLocalBus()
	if cfg.NATSURL != "" {
		nb, err := mesh.NewNatsBus(cfg.NATSURL)
		if err != nil {
			logger.Warn("nats unavailable, using local bus", zap.Error(err))
		} else {
			bus = nb
		}
	}
	defer bus.Close()
	api.SetBus(bus)
	unsubscribe, err := api.SubscribeDashboardInvalidation(bus)
	if err != nil {
		logger.Fatal("subscribe dashboard invalidation", zap.Error(err))
	}
	defer unsubscribe()

	api.ConfigureBreakers(cfg.BreakerThreshold, time.Duration(cfg.BreakerOpenSeconds)*time.Second)
	if err := api.StartReportScheduler(ctx); err != nil {
		logger.Error("report scheduler", zap.Error(err))
	}
	defer api.StopReportScheduler()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.OTel.Enable {
		if shutdown, ok := api.SetupOTel(cfg.OTel); ok {
			defer shutdown(context.Background())
			router.Use(otelgin.Middleware(api.ServiceName))
		}
	}
	router.Use(api.MetricsMiddleware())
	router.Use(api.RequestIDMiddleware())
	router.Use(logging.Middleware())
	router.Use(api.VersionMiddleware(apiVersion))

	corsCfg := cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key", "Wellness-Version"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if origins := cfg.Origins(); len(origins) > 0 {
		corsCfg.AllowAllOrigins = false
		corsCfg.AllowOrigins = origins
	}
	router.Use(cors.New(corsCfg))
	if proxies := cfg.Proxies(); len(proxies) > 0 {
		if err := router.SetTrustedProxies(proxies); err != nil {
			logger.Warn("failed to set trusted proxies", zap.Error(err))
		}
	}

	router.GET("/", api.Welcome)
	router.GET("/healthz", api.Healthz)
	router.GET("/readyz", api.Readyz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	api.RegisterRoutes(router.Group(cfg.APIPrefix), cfg.LoginRPM)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting wellness backend", zap.String("addr", srv.Addr), zap.String("prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", zap.Error(err))
		os.Exit(1)
	}
}
