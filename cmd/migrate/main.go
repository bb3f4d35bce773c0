package main

// Run database migrations:
//   go run ./cmd/migrate [up|status|down]

import (
	"context"
	"fmt"
	"os"

	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/storage/db"
	"ats-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.LogLevel, cfg.Env); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer telemetry.Sync()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if err := run(context.Background(), cfg, command); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": command, "error": err.Error()})
		telemetry.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, command string) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()

	switch command {
	case "up":
		return db.RunMigrations(ctx, database)
	case "status":
		return db.MigrationStatus(ctx, database)
	case "down":
		return db.RollbackLast(ctx, database)
	default:
		return fmt.Errorf("unknown command %q (want up, status or down)", command)
	}
}
