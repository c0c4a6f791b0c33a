package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/postdesk/internal/app"
	"github.com/samvad-hq/postdesk/internal/config"
	"github.com/samvad-hq/postdesk/internal/logger"
)

func main() {
	err := run(os.Args[1:])
	if err != nil && !isQuiet(err) {
		fmt.Fprintf(os.Stderr, "postctl: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func run(argv []string) error {
	inv, err := parse(argv, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sugar, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()
	log := logger.New(sugar)

	log.DebugObj("postctl starting", "command", map[string]any{
		"name":     inv.name,
		"base_url": cfg.BaseURL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.New(ctx, cfg, log, app.Options{
		In:          os.Stdin,
		Out:         os.Stdout,
		AssumeYes:   inv.assumeYes,
		RestyLogger: sugar,
	})
	if err != nil {
		log.ErrorObj("postctl init failed", "error", err.Error())
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			log.WarnObj("shutdown failed", "error", cerr.Error())
		}
	}()

	return inv.run(ctx, rt, inv.args)
}
