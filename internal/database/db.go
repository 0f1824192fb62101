package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/vaidashi/storefront-api/internal/config"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// Database represents a database connection
type Database struct {
	DB     *sqlx.DB
	logger logger.Logger
}

// New creates a new database connection
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDBConnString())

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return Wrap(db, logger), nil
}

// Wrap builds a Database around an existing connection pool
func Wrap(db *sqlx.DB, logger logger.Logger) *Database {
	return &Database{
		DB:     db,
		logger: logger,
	}
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (d *Database) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error("Failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS products (
		product_id SERIAL PRIMARY KEY,
		product_name VARCHAR(255) NOT NULL,
		description TEXT,
		price NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
		stock_quantity INT NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		image1_url TEXT,
		image2_url TEXT,
		image3_url TEXT
	);

	CREATE TABLE IF NOT EXISTS orders (
		order_id SERIAL PRIMARY KEY,
		product_id INT NOT NULL REFERENCES products(product_id),
		customer_name VARCHAR(255) NOT NULL DEFAULT '',
		customer_email VARCHAR(255) NOT NULL DEFAULT '',
		phone_number VARCHAR(50) NOT NULL DEFAULT '',
		quantity INT NOT NULL CHECK (quantity > 0),
		total_price NUMERIC(12, 2) NOT NULL,
		payment_method VARCHAR(50) NOT NULL DEFAULT '',
		state VARCHAR(100) NOT NULL DEFAULT '',
		district VARCHAR(100) NOT NULL DEFAULT '',
		status VARCHAR(50) NOT NULL DEFAULT 'Pending',
		order_date TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_product_id ON orders(product_id);
	CREATE INDEX IF NOT EXISTS idx_orders_order_date ON orders(order_date);

	-- Outbox table for message publishing
	CREATE TABLE IF NOT EXISTS outbox_messages (
		id SERIAL PRIMARY KEY,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMP,
		processing_attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_messages(status);
	CREATE INDEX IF NOT EXISTS idx_outbox_aggregate ON outbox_messages(aggregate_type, aggregate_id);
`

// RunMigrations creates the storefront tables when they do not exist yet
func (d *Database) RunMigrations(ctx context.Context) error {
	if _, err := d.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}
