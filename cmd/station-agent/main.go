package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ml4ch/CoSESWeather/internal/agent"
	"github.com/ml4ch/CoSESWeather/internal/config"
	"github.com/ml4ch/CoSESWeather/internal/logger"
)

func main() {
	cfg, err := config.LoadAgent()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "cosesweather-station-agent")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.StationToken == "" {
		log.Warn("STATION_TOKEN not set, polling without a token")
	}

	client := agent.NewClient(agent.ClientConfig{
		BaseURL: cfg.GatewayURL,
		Token:   cfg.StationToken,
		Timeout: cfg.RequestTimeout,
	}, log)
	executor := agent.NewShellExecutor(cfg.ResetCommand, cfg.RestartCommand, log)

	a := agent.New(client, executor, cfg.PollInterval, cfg.RequestTimeout, log)
	if err := a.Start(); err != nil {
		log.Fatal("Failed to schedule poller", zap.Error(err))
	}

	log.Info("Polling gateway for commands",
		zap.String("gateway", cfg.GatewayURL),
		zap.Duration("interval", cfg.PollInterval),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down station agent...")
	a.Stop()
}
