package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"studenthub/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Usage = func() { newRegistry().PrintHelp(os.Stderr) }
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.New()
	logger.SetOutput(os.Stderr)
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	a, err := newApp(cfg, os.Stdout, logger)
	if err != nil {
		log.Fatalf("session store: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, newRegistry(), a, flag.Args())
	stop()
	if cerr := a.Close(); cerr != nil {
		logger.WithError(cerr).Warn("close session store")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRegistry() *Registry {
	r := NewRegistry()
	registerCommands(r)
	return r
}
