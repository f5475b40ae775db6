// Package main is the entry point for the dobbie token exchange backend.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/sagarrai21802/Dobbie/internal/exchange"
	"github.com/sagarrai21802/Dobbie/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := exchange.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := exchange.NewServer(cfg, exchange.NewService(cfg), log)
	log.Info().Str("listen", cfg.Listen).Str("version", version.Version).Msg("starting exchange server")
	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
