// Package postgres resolves film search codes against a Postgres code table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/film-info-crawler/internal/film"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for lookups.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type queryCloser interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Lookup implements film.CodeLookup over a table with code, model and
// video_title columns.
type Lookup struct {
	pool  queryCloser
	query string
}

// New opens a pool for cfg.DSN.
func New(ctx context.Context, cfg Config) (*Lookup, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("lookup.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	lookup, err := NewWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return lookup, nil
}

// NewWithPool constructs a Lookup from an existing pool (primarily for testing).
func NewWithPool(pool queryCloser, table string) (*Lookup, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "code_info"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Lookup{
		pool:  pool,
		query: fmt.Sprintf(`SELECT model, video_title FROM %s WHERE code = $1 LIMIT 1`, table),
	}, nil
}

// Lookup returns the stored model and title for searchCode. An unknown code
// yields an empty CodeInfo.
func (l *Lookup) Lookup(ctx context.Context, searchCode string) (film.CodeInfo, error) {
	var info film.CodeInfo
	err := l.pool.QueryRow(ctx, l.query, searchCode).Scan(&info.Model, &info.Title)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return film.CodeInfo{}, nil
	case err != nil:
		return film.CodeInfo{}, fmt.Errorf("query code %s: %w", searchCode, err)
	}
	return info, nil
}

// Close releases the pool.
func (l *Lookup) Close() {
	l.pool.Close()
}
