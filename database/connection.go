// Package database provides access to the historical harvest records store.
//
// A single *sql.DB (lib/pq) is shared by two views:
//   - GORM for schema management and simple aggregate queries (Repository)
//   - sqlx for the opaque row lookups of the forecast pipeline (HistoryGateway)
//
// The store is owned by another system. Opening a connection never pings, so the
// service can start while the store is down and report it through the health check.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"summerberry-forecast/config"
)

// Database holds the shared connection pool and its GORM and sqlx views
type Database struct {
	conn *sql.DB
	db   *gorm.DB
	x    *sqlx.DB
	log  *zap.Logger
}

// Connect opens the pool described by cfg without contacting the server
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, WrapDBError("open", err)
	}

	// Request-scoped lookups only; a small pool is plenty
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(2 * time.Minute)

	return newDatabase(conn, log)
}

// NewFromConn wraps an existing *sql.DB, e.g. one created by sqlmock
func NewFromConn(conn *sql.DB, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}
	return newDatabase(conn, log)
}

func newDatabase(conn *sql.DB, log *zap.Logger) (*Database, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &Database{
		conn: conn,
		db:   db,
		x:    sqlx.NewDb(conn, "postgres"),
		log:  log,
	}, nil
}

// DB returns the GORM handle
func (d *Database) DB() *gorm.DB {
	return d.db
}

// X returns the sqlx handle
func (d *Database) X() *sqlx.DB {
	return d.x
}

// Ping checks whether the store is reachable right now
func (d *Database) Ping(ctx context.Context) error {
	if err := d.conn.PingContext(ctx); err != nil {
		return WrapDBError("ping", err)
	}
	return nil
}

// Close closes the pool
func (d *Database) Close() error {
	if d.conn == nil {
		return nil
	}
	d.log.Info("Closing database connection")
	return d.conn.Close()
}
