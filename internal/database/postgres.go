package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"insure-crm/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PostgresDB is the read-only connection to the CRM's relational business tables.
type PostgresDB struct {
	DB *sql.DB
}

// NewPostgres opens the business database when BUSINESS_STORE=postgres.
func NewPostgres(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*PostgresDB, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required when BUSINESS_STORE=postgres")
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	logger.Info("connected to PostgreSQL business store")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	return &PostgresDB{DB: db}, nil
}
