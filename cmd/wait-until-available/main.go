package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/internal/config"
	"gitlab.com/dirk.krummacker/person-directory/internal/gateway"
	"gitlab.com/dirk.krummacker/person-directory/internal/logger"
)

// Polls the back end until the directory can be listed, e.g. before running the integration
// tests against a freshly started container.
func main() {
	intervalPtr := flag.Duration("interval", 5*time.Second, "the time between two attempts")
	maxWaitPtr := flag.Duration("max-wait", 0, "give up after this long; 0 waits forever")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = log.Sync() }()

	gw := gateway.New(gateway.Config{
		RESTBase:        cfg.Gateway.RESTBase,
		GraphQLEndpoint: cfg.Gateway.GraphQLEndpoint,
		Timeout:         cfg.Gateway.Timeout,
	}, zap.NewNop(), nil)

	start := time.Now()
	for {
		persons, err := gw.ListAll(context.Background())
		if err == nil {
			log.Info("backend is available", zap.Int("persons", len(persons)))
			return
		}
		waited := time.Since(start)
		if *maxWaitPtr > 0 && waited >= *maxWaitPtr {
			log.Error("backend did not become available", zap.Duration("waited", waited), zap.Error(err))
			os.Exit(1)
		}
		log.Info("waiting for backend", zap.Duration("waited", waited.Round(time.Second)), zap.Error(err))
		time.Sleep(*intervalPtr)
	}
}
