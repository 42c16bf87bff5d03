package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"realtychat/app/server"
	"realtychat/config"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("error loading config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level")
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
	log.Logger = logger

	s, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("error building server")
	}

	go func() {
		if err := s.Run(); err != nil {
			logger.Fatal().Err(err).Msg("error starting server")
		}
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	logger.Info().Msg("received shutdown signal, shutting down server")
	s.Stop()
}
