package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"membership-service/internal/config"
	"membership-service/internal/util"
)

// ErrNotFound is returned by repositories when a referenced row is absent.
var ErrNotFound = errors.New("row not found")

// PostgresClient wraps the shared connection pool to the club row store.
type PostgresClient struct {
	DB     *sql.DB
	logger *zap.Logger
}

func NewPostgresClient(cfg *config.Config, logger *zap.Logger) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	util.Info("Postgres client initialized",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns))

	return &PostgresClient{DB: db, logger: logger}, nil
}

func (c *PostgresClient) HealthCheck(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			util.Error("failed to close postgres client", zap.Error(err))
			return err
		}
		util.Info("Postgres client closed")
	}
	return nil
}
