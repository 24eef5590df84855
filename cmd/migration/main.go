package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/internal/backend"
	"gitlab.com/dirk.krummacker/person-directory/internal/config"
	"gitlab.com/dirk.krummacker/person-directory/internal/logger"
)

// Usage example on the command line:
// > DIRECTORY_BACKEND_MYSQL_DSN='root:@tcp(localhost:3306)/' go run main.go -file=../../scripts/database.sql
func main() {
	filePtr := flag.String("file", "database.sql", "the sql file to execute")
	configPtr := flag.String("config", "", "path of the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = log.Sync() }()

	sqlDB, err := backend.OpenDatabase(cfg.Backend.MySQLDSN)
	if err != nil {
		log.Fatal("could not open database", zap.Error(err))
	}
	db := sqlx.NewDb(sqlDB, "mysql")
	defer db.Close()

	readFile, err := os.Open(*filePtr) // nosemgrep
	if err != nil {
		log.Fatal("could not open script", zap.String("file", *filePtr), zap.Error(err))
	}
	defer readFile.Close()

	count := 0
	fileScanner := bufio.NewScanner(readFile)
	fileScanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	for fileScanner.Scan() {
		line := fileScanner.Text()
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			db.MustExec(builder.String())
			builder = strings.Builder{}
			count++
		}
	}
	if err := fileScanner.Err(); err != nil {
		log.Fatal("could not read script", zap.Error(err))
	}
	log.Info("migration done", zap.String("file", *filePtr), zap.Int("statements", count))
}
