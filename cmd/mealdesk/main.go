package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mealdesk/mealdesk/internal/app/runtime"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to the configuration file")
		envFile    = flag.String("env", "", "Optional .env file to load before reading configuration")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("load env (%s): %v", *envFile, err)
		}
	} else {
		// Best effort: a local .env is convenient in development.
		_ = godotenv.Load()
	}

	application, err := runtime.NewApplication(*configPath)
	if err != nil {
		log.Fatalf("initialise application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("run application: %v", err)
	}

	if err := application.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
