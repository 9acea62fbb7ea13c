package persistence

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sphericsim/worldcore/internal/entities"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

// WorldRow is the worlds-table record for one named world.
type WorldRow struct {
	ID           int64
	Name         string
	Seed         uint64
	Subdivisions int
}

// FindOrCreateWorld looks up a world row by name, creating it with the
// given seed on first boot.
func (p *Postgres) FindOrCreateWorld(ctx context.Context, name string, seed uint64, subdivisions int) (*WorldRow, error) {
	if !p.IsConnected() {
		return &WorldRow{ID: 0, Name: name, Seed: seed, Subdivisions: subdivisions}, nil
	}
	row := &WorldRow{Name: name}
	err := p.pool.QueryRow(ctx,
		`SELECT id, seed, subdivisions FROM worlds WHERE name = $1`, name).
		Scan(&row.ID, &row.Seed, &row.Subdivisions)
	if errors.Is(err, pgx.ErrNoRows) {
		row.Seed, row.Subdivisions = seed, subdivisions
		err = p.pool.QueryRow(ctx,
			`INSERT INTO worlds (name, seed, subdivisions) VALUES ($1, $2, $3) RETURNING id`,
			name, int64(seed), subdivisions).Scan(&row.ID)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// LoadTiles streams the saved tile-resource rows and overlays them on
// the generator's output. The generator must have run first; rows
// missing here keep the generated value (the documented fallback).
func (p *Postgres) LoadTiles(ctx context.Context, worldID int64, s *store.Store) error {
	if !p.IsConnected() {
		return nil
	}
	rows, err := p.pool.Query(ctx,
		`SELECT face, row, col, resource_type, amount FROM tile_resources WHERE world_id = $1`, worldID)
	if err != nil {
		return err
	}
	defer rows.Close()

	batch := make(map[store.Key]store.Tile)
	for rows.Next() {
		var k store.Key
		var resourceType *string
		var amount *int
		if err := rows.Scan(&k.Face, &k.Row, &k.Col, &resourceType, &amount); err != nil {
			return err
		}
		tile, err := s.GetTile(k)
		if err != nil {
			continue // row outside the generated world; skip
		}
		if resourceType == nil || amount == nil {
			tile.Resource = nil
		} else {
			tile.Resource = &store.ResourceStock{
				Kind:   items.ResourceKind(*resourceType),
				Amount: uint16(*amount),
			}
		}
		batch[k] = tile
	}
	if err := rows.Err(); err != nil {
		return err
	}
	s.PutTiles(batch) // overlay without dirty marking
	return nil
}

// LoadBuildings streams the saved building rows into the store without
// dirty marking. A row whose state fails to deserialize is logged and
// skipped; its tile stays empty.
func (p *Postgres) LoadBuildings(ctx context.Context, worldID int64, s *store.Store) error {
	if !p.IsConnected() {
		return nil
	}
	rows, err := p.pool.Query(ctx,
		`SELECT face, row, col, type, orientation, state_json, owner_id FROM buildings WHERE world_id = $1`, worldID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var k store.Key
		var kind string
		var orientation int
		var stateJSON string
		var owner uuid.UUID
		if err := rows.Scan(&k.Face, &k.Row, &k.Col, &kind, &orientation, &stateJSON, &owner); err != nil {
			return err
		}
		b := &store.Building{
			Kind:        store.BuildingKind(kind),
			Orientation: orientation,
			OwnerID:     owner,
		}
		if err := UnmarshalState(b, stateJSON); err != nil {
			slog.Error("building state failed to deserialize, skipping", "key", k.String(), "error", err)
			continue
		}
		s.PutBuildingNoDirty(k, b)
	}
	return rows.Err()
}

// LoadResearch restores per-owner research progress.
func (p *Postgres) LoadResearch(ctx context.Context, worldID int64, r *entities.Research) error {
	if !p.IsConnected() {
		return nil
	}
	rows, err := p.pool.Query(ctx,
		`SELECT player_id, item, submitted FROM research_progress WHERE world_id = $1`, worldID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var owner uuid.UUID
		var item string
		var submitted int64
		if err := rows.Scan(&owner, &item, &submitted); err != nil {
			return err
		}
		prog := r.Get(owner)
		prog.Submitted[items.Kind(item)] = uint32(submitted)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	r.Recalc()
	return nil
}
