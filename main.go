package main

import (
	"context"
	"flag"
	"github.com/lefinal/ctf-server/app"
	"github.com/lefinal/ctf-server/errors"
	"go.uber.org/zap"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()
	logger, _ := zap.NewProduction()
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		errors.Log(logger, errors.Wrap(err, "load config", nil))
		os.Exit(1)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err = app.NewApp(config).Boot(ctx)
	if err != nil {
		cancel()
		os.Exit(1)
	}
}
