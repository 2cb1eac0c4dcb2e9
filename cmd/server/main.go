package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"barpos-backend/internal/config"
	"barpos-backend/internal/db"
	"barpos-backend/internal/handler"
	"barpos-backend/internal/repository"
	"barpos-backend/internal/server"
	"barpos-backend/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}

	// repositories
	categoryRepo := repository.CategoryRepository{DB: pg}
	productRepo := repository.ProductRepository{DB: pg}
	staffRepo := repository.StaffRepository{DB: pg}
	orderRepo := repository.OrderRepository{DB: pg}
	sessionRepo := repository.SessionRepository{DB: pg}

	// services
	authSvc := service.AuthService{Config: cfg, Staff: staffRepo, Logger: logger}
	orderSvc := service.NewOrderService(orderRepo, productRepo, sessionRepo, cfg.TableCount, logger)
	sessionSvc := service.NewSessionService(sessionRepo, orderRepo, logger)
	reportSvc := service.NewReportService(orderRepo, sessionRepo)

	// handlers
	healthHandler := handler.HealthHandler{DB: pg}
	authHandler := handler.AuthHandler{Service: authSvc}
	categoryHandler := handler.CategoryHandler{Repo: categoryRepo}
	productHandler := handler.ProductHandler{Repo: productRepo}
	staffHandler := handler.StaffHandler{Auth: authSvc}
	orderHandler := handler.OrderHandler{Service: orderSvc}
	sessionHandler := handler.SessionHandler{Service: sessionSvc}
	reportHandler := handler.ReportHandler{Reports: reportSvc, Sessions: sessionSvc}

	router := server.NewRouter(cfg, logger, healthHandler, authHandler, categoryHandler, productHandler, staffHandler, orderHandler, sessionHandler, reportHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
