package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/samirrijal/geofencing/internal/adapters/postgres"
	"github.com/samirrijal/geofencing/internal/pkg/config"
	"github.com/samirrijal/geofencing/internal/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|list>")
	}

	cfg, err := config.Load("geofence-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	if os.Args[1] == "list" {
		ms, err := postgres.Migrations()
		if err != nil {
			log.Fatalf("migrations: %v", err)
		}
		for _, m := range ms {
			slog.Info("migration", "version", m.Version)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		err = db.MigrateUp(ctx)
	case "down":
		err = db.MigrateDown(ctx)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", os.Args[1], err)
	}
	slog.Info("migrations done", "command", os.Args[1])
}
