package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/libnare/sermcs/common/config"
	"github.com/libnare/sermcs/common/db/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded schema migrations for the media
// metadata table. Goose works over database/sql, so this opens a short-lived
// stdlib connection separate from the pgx pool.
func RunMigrations(ctx context.Context, cfg *config.Config) error {
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
