package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"chat262/internal/chatlog"
	"chat262/internal/config"
	"chat262/internal/dispatch"
	"chat262/internal/store"
)

func main() {
	addr := flag.String("addr", "", "TCP address to listen on (overrides config)")
	configPath := flag.String("config", "", "path to a YAML config file")
	logLevel := flag.String("loglevel", "", "log level: debug, info, warn, error (overrides config)")
	logFile := flag.String("logfile", "", "log file path, rotated via lumberjack (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Server.LogLevel = *logLevel
	}
	if *logFile != "" {
		cfg.Server.LogFile = *logFile
	}

	logger, err := chatlog.New(cfg.Server.LogLevel, cfg.Server.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	srv := dispatch.New(store.New(), logger)

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
