package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/yukikurage/recados-api/internal/config"
	"github.com/yukikurage/recados-api/internal/database"
	"github.com/yukikurage/recados-api/internal/logging"
)

const usage = `usage: migrate <command>

commands:
  up       apply all pending migrations
  down     roll back the latest migration
  status   print the state of every migration
  version  print the current schema version`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New(os.Stderr, cfg.Env, cfg.SlogLevel())

	db, err := database.Open(cfg, logger)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = database.Migrate(ctx, sqlDB, cfg.DBDriver)
	case "down":
		err = database.Rollback(ctx, sqlDB, cfg.DBDriver)
	case "status":
		err = database.Status(ctx, sqlDB, cfg.DBDriver)
	case "version":
		var v int64
		if v, err = database.Version(ctx, sqlDB, cfg.DBDriver); err == nil {
			fmt.Println(v)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
	logger.Info("migrate done", "command", flag.Arg(0))
}
