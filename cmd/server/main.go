package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/saga-lims/saga-store/internal/config"
	"github.com/saga-lims/saga-store/internal/database"
	"github.com/saga-lims/saga-store/internal/handler"
	"github.com/saga-lims/saga-store/internal/queue"
	"github.com/saga-lims/saga-store/internal/repository"
	"github.com/saga-lims/saga-store/internal/router"
	"github.com/saga-lims/saga-store/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer logger.Sync()

	db, err := database.Open(cfg.DSN())
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	containerRepo := repository.NewContainerRepo(db)
	sampleRepo := repository.NewSampleRepo(db)
	auditRepo := repository.NewAuditRepo(db)
	userRepo := repository.NewUserRepo(db)
	typeRepo := repository.NewTypeRepo(db)
	storageRepo := repository.NewStorageRepo(db)
	backupRepo := repository.NewBackupRepo(db)

	placer := service.NewPlacer(sampleRepo)
	recorder := service.NewAuditRecorder(cfg.BrokerURL, auditRepo, containerRepo, logger)
	if cfg.BrokerURL != "" {
		go queue.StartAuditConsumer(cfg.BrokerURL, auditRepo, logger)
	}

	h := router.Handlers{
		Auth:       handler.NewAuthHandler(userRepo, logger),
		Containers: handler.NewContainerHandler(containerRepo, sampleRepo, recorder, logger),
		Samples:    handler.NewSampleHandler(sampleRepo, placer, recorder, logger),
		Imports:    handler.NewImportHandler(containerRepo, placer, recorder, logger),
		Users:      handler.NewUserHandler(userRepo, recorder, logger),
		Types:      handler.NewTypeHandler(typeRepo, logger),
		Storage:    handler.NewStorageHandler(storageRepo, logger),
		Audit:      handler.NewAuditHandler(auditRepo, logger),
		Backups:    handler.NewBackupHandler(backupRepo, containerRepo, sampleRepo, recorder, logger),
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, h, cfg.AdminSecret, userRepo, rdb)

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	if env == "production" {
		l, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return l
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return l
}
