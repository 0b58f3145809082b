package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pmartineau/gestock/internal/adapter/handler"
	"github.com/pmartineau/gestock/internal/adapter/storage"
	"github.com/pmartineau/gestock/internal/config"
	"github.com/pmartineau/gestock/internal/core/service"
	"github.com/pmartineau/gestock/internal/port"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	// Initialize storage
	var store port.RecordStore
	switch cfg.StoreDriver {
	case "sqlite":
		if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
			logger.Error("failed to create data dir", "path", cfg.DataPath, "error", err)
			os.Exit(1)
		}
		s, err := storage.NewSQLiteStore(filepath.Join(cfg.DataPath, "gestock.db"))
		if err != nil {
			logger.Error("failed to open sqlite store", "error", err)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	case "file":
		s, err := storage.NewFileStore(cfg.DataPath)
		if err != nil {
			logger.Error("failed to open file store", "error", err)
			os.Exit(1)
		}
		store = s
	default:
		logger.Error("unknown store driver", "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	logger.Info("storage ready", "driver", cfg.StoreDriver, "path", cfg.DataPath)

	// Initialize services
	productService := service.NewProductService(store, logger)
	invoiceService := service.NewInvoiceService(store, productService, logger)
	reportService := service.NewReportService(store, cfg.LowStockThreshold)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(productService, invoiceService, reportService)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("http server stopped")
}
