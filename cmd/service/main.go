package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/internal/backend"
	"gitlab.com/dirk.krummacker/person-directory/internal/config"
	"gitlab.com/dirk.krummacker/person-directory/internal/logger"
)

// Usage example on the command line:
// > DIRECTORY_BACKEND_PORT=8080 DIRECTORY_BACKEND_STORE=mysql GIN_MODE=release go run main.go
func main() {
	configPtr := flag.String("config", "", "path of the configuration file")
	flag.Parse()

	if err := run(*configPtr); err != nil {
		os.Exit(1)
	}
}

// run serves the back end until the server fails. Failures are logged before they are
// returned, after the store is closed and the logger flushed.
func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = log.Sync() }()

	store, closeStore, err := openStore(cfg.Backend)
	if err != nil {
		log.Error("could not open store", zap.String("store", cfg.Backend.Store), zap.Error(err))
		return err
	}
	defer closeStore()

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	service := backend.NewService(store, log.Named("service"))
	router := backend.SetupHttpRouter(service, backend.RouterOptions{Logger: log.Named("http")})

	addr := fmt.Sprintf(":%d", cfg.Backend.Port)
	log.Info("starting server", zap.String("addr", addr), zap.String("store", cfg.Backend.Store))
	if err := router.Run(addr); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

// openStore returns the store named by cfg and a function that releases it.
func openStore(cfg config.BackendConfig) (backend.Store, func(), error) {
	if cfg.Store != "mysql" {
		return backend.NewMemoryStore(), func() {}, nil
	}
	sqlDB, err := backend.OpenDatabase(cfg.MySQLDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("could not reach database: %w", err)
	}
	store, err := backend.NewMySQLStore(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}
