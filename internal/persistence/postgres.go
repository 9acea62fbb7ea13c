// Package persistence writes dirty world state to PostgreSQL in a
// single transaction per save window and streams it back at startup.
// The tick thread never touches the database: it drains the dirty set
// into a Batch and hands the batch to the save thread by move.
package persistence

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres manages the PostgreSQL connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool. An empty connection string
// yields a disconnected handle (in-memory mode: saves become no-ops).
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	if connString == "" {
		return &Postgres{}, nil
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to PostgreSQL")
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}

// IsConnected reports whether a database is attached.
func (p *Postgres) IsConnected() bool {
	return p != nil && p.pool != nil
}

// EnsureSchema creates the tables of the persistence format if they do
// not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if !p.IsConnected() {
		return nil
	}
	const schema = `
CREATE TABLE IF NOT EXISTS worlds (
	id BIGSERIAL PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	seed BIGINT NOT NULL,
	subdivisions INT NOT NULL
);
CREATE TABLE IF NOT EXISTS tile_resources (
	world_id BIGINT NOT NULL REFERENCES worlds(id),
	face INT NOT NULL, row INT NOT NULL, col INT NOT NULL,
	resource_type TEXT, amount INT,
	PRIMARY KEY (world_id, face, row, col)
);
CREATE TABLE IF NOT EXISTS buildings (
	world_id BIGINT NOT NULL REFERENCES worlds(id),
	face INT NOT NULL, row INT NOT NULL, col INT NOT NULL,
	type TEXT NOT NULL, orientation INT NOT NULL,
	state_json TEXT NOT NULL, owner_id UUID,
	PRIMARY KEY (world_id, face, row, col)
);
CREATE TABLE IF NOT EXISTS players (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	color TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS research_progress (
	world_id BIGINT NOT NULL REFERENCES worlds(id),
	player_id UUID NOT NULL,
	item TEXT NOT NULL,
	submitted BIGINT NOT NULL,
	PRIMARY KEY (world_id, player_id, item)
);
CREATE TABLE IF NOT EXISTS trades (
	id UUID PRIMARY KEY,
	world_id BIGINT NOT NULL REFERENCES worlds(id),
	offerer_id UUID,
	offered_items TEXT NOT NULL DEFAULT '{}',
	requested_items TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'open'
);
CREATE TABLE IF NOT EXISTS board_contact (
	world_id BIGINT PRIMARY KEY REFERENCES worlds(id),
	requirements_json TEXT NOT NULL,
	submitted_json TEXT NOT NULL,
	active BOOLEAN NOT NULL,
	completed BOOLEAN NOT NULL,
	contributors_json TEXT NOT NULL
);`
	_, err := p.pool.Exec(ctx, schema)
	return err
}

// IsTransient classifies a database error: connection-class and
// serialization failures are retried by the save thread, everything
// else surfaces as fatal.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "08", "40", "57": // connection, tx rollback, operator intervention
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
