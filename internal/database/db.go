package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/skillswap/exchange-server-go/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// DB owns the PostgreSQL pool shared by every repository.
type DB struct {
	*sqlx.DB
}

func Connect(databaseURL string) (*DB, error) {
	conn, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	conn.SetMaxOpenConns(config.DBMaxOpenConns)
	conn.SetMaxIdleConns(config.DBMaxIdleConns)
	conn.SetConnMaxLifetime(config.DBConnMaxLifetime)

	return &DB{DB: conn}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// Migrate runs schema.sql. The statements use IF NOT EXISTS so reruns are safe.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

type TxFunc func(tx *sqlx.Tx) error

// WithTx commits when fn returns nil and rolls back otherwise, re-panicking after
// rollback if fn panics. The rating ledger relies on this for its atomic path.
func (db *DB) WithTx(ctx context.Context, fn TxFunc) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		committed = true
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
