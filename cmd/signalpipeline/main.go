package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"SignalPipeline/internal/app"
	"SignalPipeline/internal/config"
	"SignalPipeline/internal/logging"
)

func main() {
	cronExpr := flag.String("cron", "", "run on this cron expression instead of once (e.g. \"0 * * * *\")")
	recent := flag.Int("recent", 0, "print the N newest published articles and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)
	logger.Info("config loaded", "summary", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	switch {
	case *recent > 0:
		var out string
		if out, err = application.Recent(ctx, *recent); err == nil && out != "" {
			fmt.Println(out)
		}
	case *cronExpr != "":
		err = application.RunScheduled(ctx, *cronExpr)
	default:
		_, err = application.Run(ctx)
	}
	if err != nil {
		logger.Error("application stopped", "error", err)
		application.Close()
		os.Exit(1)
	}
}
