package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wuchinator/visitor-dashboard/internal/config"
	"github.com/Wuchinator/visitor-dashboard/internal/dashboard"
	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
	"github.com/Wuchinator/visitor-dashboard/pkg/httpserver"
	"github.com/Wuchinator/visitor-dashboard/pkg/logger"
	"github.com/Wuchinator/visitor-dashboard/pkg/postgres"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const serviceName = "dashboard-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log = logger.WithService(log, serviceName)
	log.Info("Starting Dashboard Service",
		zap.String("environment", cfg.Environment),
		zap.String("http_port", cfg.DashboardPort),
		zap.String("grpc_health_port", cfg.GRPCHealthPort),
		zap.String("timezone", cfg.Dashboard.Timezone),
	)

	loc, err := cfg.Dashboard.Location()
	if err != nil {
		log.Fatal("Invalid dashboard timezone", zap.Error(err))
	}

	db, err := postgres.New(postgres.Config{
		DSN:             cfg.Postgres.PostgresDSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	visitorRepo := visitor.NewRepository(db, log)
	if err := visitorRepo.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to prepare schema", zap.Error(err))
	}
	visitorService := visitor.NewService(visitorRepo, nil, nil, log)

	aggregator := dashboard.NewAggregator(loc,
		dashboard.WithRecentLimit(cfg.Dashboard.RecentLimit),
		dashboard.WithMaxCustomDays(cfg.Dashboard.MaxCustomDays),
	)
	dashboardService := dashboard.NewService(visitorService, aggregator, cfg.Dashboard.FetchTimeout, logger.WithComponent(log, "dashboard"))
	dashboardHandler := dashboard.NewHandler(dashboardService, logger.WithComponent(log, "http"))

	router := httpserver.NewEngine(httpserver.Config{
		Production:     cfg.IsProduction(),
		AllowedOrigins: cfg.AllowedOrigins,
	}, log)
	dashboardHandler.RegisterRoutes(router.Group("/api/v1"))

	server := httpserver.NewServer(cfg.DashboardPort, router, log)
	server.Start()

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			loggingInterceptor(log),
			recoveryInterceptor(log),
		),
	)

	// Health check для оркестратора
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	// Reflection для grpcurl и подобных инструментов
	reflection.Register(grpcServer)

	listener, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
	if err != nil {
		log.Fatal("Failed to create listener", zap.Error(err))
	}

	go func() {
		log.Info("gRPC health server starting", zap.String("port", cfg.GRPCHealthPort))
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	go watchDatabase(ctx, db, healthServer, log)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")
	cancel()
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown timed out", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("gRPC server stopped gracefully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout, forcing stop")
		grpcServer.Stop()
	}

	log.Info("Dashboard Service stopped")
}

// watchDatabase flips the gRPC health status with PostgreSQL reachability.
func watchDatabase(ctx context.Context, db *postgres.DB, healthServer *health.Server, log *zap.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := db.HealthCheck(checkCtx)
			cancel()

			switch {
			case err != nil && serving:
				log.Warn("PostgreSQL unreachable, reporting NOT_SERVING", zap.Error(err))
				healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
				serving = false
			case err == nil && !serving:
				log.Info("PostgreSQL reachable again, reporting SERVING")
				healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
				serving = true
			}
		case <-ctx.Done():
			return
		}
	}
}

func loggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
			log.Error("gRPC call failed", fields...)
		} else {
			log.Debug("gRPC call", fields...)
		}

		return resp, err
	}
}

func recoveryInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Panic recovered",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
				)
				err = fmt.Errorf("internal server error")
			}
		}()
		return handler(ctx, req)
	}
}
