// Command eventboard serves the event listing with its live forms.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/gabrielmiguelok/eventboard/internal/server"
	"github.com/gabrielmiguelok/eventboard/pkg/logging"
)

func main() {
	cfg, err := server.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewSlogLogger(
		logging.WithLevel(cfg.Level()),
		logging.WithJSON(cfg.LogJSON),
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		log.Fatalf("setup: %v", err)
	}

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("server stopped", logging.Err(err))
		os.Exit(1)
	}
}
