package persistence

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/entities"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

// TileRow is a dirty tile's persisted value, captured at drain time.
type TileRow struct {
	Key          store.Key
	ResourceType *string
	Amount       *int
}

// BuildingRow is a dirty building's persisted value, captured (and
// state-serialized) at drain time on the tick thread so the save thread
// never reads live world state.
type BuildingRow struct {
	Key         store.Key
	Type        string
	Orientation int
	StateJSON   string
	OwnerID     uuid.UUID
}

// ResearchRow is one owner's per-item submission count.
type ResearchRow struct {
	PlayerID  uuid.UUID
	Item      string
	Submitted int64
}

// Batch is one save window's worth of work, handed to the save thread
// by move.
type Batch struct {
	Tiles     []TileRow
	Buildings []BuildingRow
	Removed   []store.Key
	Research  []ResearchRow
	Players   []uuid.UUID
	Trades    map[uuid.UUID]map[items.Kind]int
	Board     *entities.BoardContact
}

// Empty reports whether the batch carries no work.
func (b *Batch) Empty() bool {
	return len(b.Tiles) == 0 && len(b.Buildings) == 0 && len(b.Removed) == 0 &&
		len(b.Research) == 0 && len(b.Players) == 0 && len(b.Trades) == 0 && b.Board == nil
}

// Merge folds a newer batch into this one (newer rows win), used when
// the save thread is still busy when the next save window elapses.
func (b *Batch) Merge(next *Batch) {
	byKey := func(rows []TileRow) map[store.Key]int {
		m := make(map[store.Key]int, len(rows))
		for i, r := range rows {
			m[r.Key] = i
		}
		return m
	}
	tileIdx := byKey(b.Tiles)
	for _, r := range next.Tiles {
		if i, ok := tileIdx[r.Key]; ok {
			b.Tiles[i] = r
		} else {
			b.Tiles = append(b.Tiles, r)
		}
	}
	bIdx := make(map[store.Key]int, len(b.Buildings))
	for i, r := range b.Buildings {
		bIdx[r.Key] = i
	}
	removed := make(map[store.Key]bool, len(b.Removed))
	for _, k := range b.Removed {
		removed[k] = true
	}
	for _, r := range next.Buildings {
		delete(removed, r.Key)
		if i, ok := bIdx[r.Key]; ok {
			b.Buildings[i] = r
		} else {
			b.Buildings = append(b.Buildings, r)
		}
	}
	for _, k := range next.Removed {
		if i, ok := bIdx[k]; ok {
			b.Buildings = append(b.Buildings[:i], b.Buildings[i+1:]...)
			bIdx = make(map[store.Key]int, len(b.Buildings))
			for j, r := range b.Buildings {
				bIdx[r.Key] = j
			}
		}
		removed[k] = true
	}
	b.Removed = b.Removed[:0]
	for k := range removed {
		b.Removed = append(b.Removed, k)
	}
	b.Research = append(b.Research, next.Research...)
	b.Players = append(b.Players, next.Players...)
	if b.Trades == nil {
		b.Trades = next.Trades
	} else {
		for id, ledger := range next.Trades {
			dst, ok := b.Trades[id]
			if !ok {
				b.Trades[id] = ledger
				continue
			}
			for kind, n := range ledger {
				dst[kind] += n
			}
		}
	}
	if next.Board != nil {
		b.Board = next.Board
	}
}

// CollectBatch snapshots the drained dirty set into rows. Runs on the
// tick thread; everything the save thread touches afterwards is owned
// by the batch.
func CollectBatch(s *store.Store, dirty store.DirtySet, research *entities.Research, board *entities.BoardContact, trades map[uuid.UUID]map[items.Kind]int, newOwners []uuid.UUID) *Batch {
	batch := &Batch{Removed: dirty.Removed, Players: newOwners}
	for _, k := range dirty.Tiles {
		tile, err := s.GetTile(k)
		if err != nil {
			continue
		}
		row := TileRow{Key: k}
		if tile.Resource != nil {
			rt := string(tile.Resource.Kind)
			amt := int(tile.Resource.Amount)
			row.ResourceType, row.Amount = &rt, &amt
		}
		batch.Tiles = append(batch.Tiles, row)
	}
	for _, k := range dirty.Buildings {
		b, err := s.GetBuilding(k)
		if err != nil {
			continue
		}
		stateJSON, err := MarshalState(b)
		if err != nil {
			slog.Error("skipping unserializable building", "key", k.String(), "error", err)
			continue
		}
		batch.Buildings = append(batch.Buildings, BuildingRow{
			Key:         k,
			Type:        string(b.Kind),
			Orientation: b.Orientation,
			StateJSON:   stateJSON,
			OwnerID:     b.OwnerID,
		})
	}
	for owner, prog := range research.ByOwner {
		for item, n := range prog.Submitted {
			batch.Research = append(batch.Research, ResearchRow{PlayerID: owner, Item: string(item), Submitted: int64(n)})
		}
	}
	if len(trades) > 0 {
		batch.Trades = make(map[uuid.UUID]map[items.Kind]int, len(trades))
		for id, ledger := range trades {
			cp := make(map[items.Kind]int, len(ledger))
			for kind, n := range ledger {
				cp[kind] = n
			}
			batch.Trades[id] = cp
		}
	}
	if board != nil && board.Active {
		batch.Board = board
	}
	return batch
}

// Save writes one batch in a single transaction. On failure nothing is
// committed and the caller re-merges the batch for the next attempt.
func (p *Postgres) Save(ctx context.Context, worldID int64, batch *Batch) error {
	if !p.IsConnected() || batch.Empty() {
		return nil
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range batch.Tiles {
		if _, err := tx.Exec(ctx, `
INSERT INTO tile_resources (world_id, face, row, col, resource_type, amount)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (world_id, face, row, col)
DO UPDATE SET resource_type = EXCLUDED.resource_type, amount = EXCLUDED.amount`,
			worldID, r.Key.Face, r.Key.Row, r.Key.Col, r.ResourceType, r.Amount); err != nil {
			return err
		}
	}
	for _, id := range batch.Players {
		if _, err := tx.Exec(ctx, `
INSERT INTO players (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id); err != nil {
			return err
		}
	}
	for _, r := range batch.Buildings {
		if _, err := tx.Exec(ctx, `
INSERT INTO buildings (world_id, face, row, col, type, orientation, state_json, owner_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (world_id, face, row, col)
DO UPDATE SET type = EXCLUDED.type, orientation = EXCLUDED.orientation,
              state_json = EXCLUDED.state_json, owner_id = EXCLUDED.owner_id`,
			worldID, r.Key.Face, r.Key.Row, r.Key.Col, r.Type, r.Orientation, r.StateJSON, r.OwnerID); err != nil {
			return err
		}
	}
	for _, k := range batch.Removed {
		if _, err := tx.Exec(ctx, `
DELETE FROM buildings WHERE world_id = $1 AND face = $2 AND row = $3 AND col = $4`,
			worldID, k.Face, k.Row, k.Col); err != nil {
			return err
		}
	}
	for _, r := range batch.Research {
		if _, err := tx.Exec(ctx, `
INSERT INTO research_progress (world_id, player_id, item, submitted)
VALUES ($1, $2, $3, $4)
ON CONFLICT (world_id, player_id, item) DO UPDATE SET submitted = EXCLUDED.submitted`,
			worldID, r.PlayerID, r.Item, r.Submitted); err != nil {
			return err
		}
	}
	for id, ledger := range batch.Trades {
		offered, err := json.Marshal(ledger)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO trades (id, world_id, offered_items, status)
VALUES ($1, $2, $3, 'open')
ON CONFLICT (id) DO UPDATE SET offered_items = EXCLUDED.offered_items`,
			id, worldID, string(offered)); err != nil {
			return err
		}
	}
	if batch.Board != nil {
		req, _ := json.Marshal(batch.Board.Requirements)
		sub, _ := json.Marshal(batch.Board.SubmittedMap)
		contrib, _ := json.Marshal(batch.Board.Contributors)
		if _, err := tx.Exec(ctx, `
INSERT INTO board_contact (world_id, requirements_json, submitted_json, active, completed, contributors_json)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (world_id)
DO UPDATE SET requirements_json = EXCLUDED.requirements_json,
              submitted_json = EXCLUDED.submitted_json,
              active = EXCLUDED.active, completed = EXCLUDED.completed,
              contributors_json = EXCLUDED.contributors_json`,
			worldID, string(req), string(sub), batch.Board.Active, batch.Board.Completed, string(contrib)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// SaveWithRetry retries transient failures with exponential backoff
// capped at maxWait (one save interval). Fatal errors surface
// immediately; the caller stops saving but the simulation continues.
func (p *Postgres) SaveWithRetry(ctx context.Context, worldID int64, batch *Batch, maxWait time.Duration) error {
	backoff := 250 * time.Millisecond
	deadline := time.Now().Add(maxWait)
	for {
		err := p.Save(ctx, worldID, batch)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if time.Now().Add(backoff).After(deadline) {
			return err
		}
		slog.Warn("transient save failure, retrying", "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
