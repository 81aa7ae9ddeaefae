package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yegors/micscribe/internal/config"
	"github.com/yegors/micscribe/internal/server"
	"github.com/yegors/micscribe/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if cfg.Transcriber.OpenAIAPIKey == "" {
		fmt.Fprintln(os.Stderr, "An OpenAI API key is required: set OPENAI_API_KEY or [transcriber] openai_api_key")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Configuration loaded",
		logger.String("address", cfg.Server.Address),
		logger.Int("max_payload_mb", cfg.Server.MaxPayloadMB),
		logger.String("model", cfg.Transcriber.Model),
		logger.String("language", cfg.Transcriber.Language))

	transcriber := server.NewOpenAITranscriber(cfg.Transcriber, log)
	srv := server.New(cfg.Server, transcriber, log)

	if err := srv.Start(); err != nil {
		log.Error("Failed to start server", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received shutdown signal", logger.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Error("Error stopping server", logger.Error(err))
	}

	log.Info("Server stopped")
}
