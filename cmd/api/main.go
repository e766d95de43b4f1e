package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nutrient-resolver/internal/api"
	"nutrient-resolver/internal/api/handlers/health"
	"nutrient-resolver/internal/app"
	"nutrient-resolver/internal/infrastructure/config"
	"nutrient-resolver/internal/pkg/common"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		common.LogFatal("Failed to build services", zap.Error(err))
	}

	status := health.Status{
		Version:        cfg.App.Version,
		CatalogEntries: a.Catalog.Len(),
		ActiveSessions: a.Sessions.ActiveSessions,
	}
	if a.Store != nil {
		status.Store = a.Store
	}
	router := api.SetupRouter(cfg, api.Services{
		Recognizer: a.Recognizer,
		Sessions:   a.Sessions,
		Health:     status,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}
	// 進行中的查詢在這裡取消
	if err := a.Close(); err != nil {
		common.LogError("Failed to close services", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
