// Package worldserver supervises the simulation: it owns the tick
// clock, the command dispatch queue, the per-face subscriber fan-out,
// and the hand-off of dirty batches to the persistence thread.
package worldserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/command"
	"github.com/sphericsim/worldcore/internal/config"
	"github.com/sphericsim/worldcore/internal/intake"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/persistence"
	"github.com/sphericsim/worldcore/internal/store"
	"github.com/sphericsim/worldcore/internal/telemetry"
	"github.com/sphericsim/worldcore/internal/tick"
	"github.com/sphericsim/worldcore/internal/worldgen"
)

// Server runs one world.
type Server struct {
	Cfg       *config.Config
	Processor *tick.Processor
	Hub       *telemetry.Hub

	pg      *persistence.Postgres
	rd      *intake.Redis
	worldID int64

	mu        sync.Mutex
	queue     []command.Command
	newOwners []uuid.UUID

	saveCh    chan *persistence.Batch
	pending   *persistence.Batch
	saveFatal bool
	saveWG    sync.WaitGroup
}

// New boots a world: generator first with the saved seed, then the
// persisted overlay, then the processor over the result.
func New(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, rd *intake.Redis) (*Server, error) {
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	row, err := pg.FindOrCreateWorld(ctx, cfg.World.Name, cfg.World.WorldSeed, cfg.World.Subdivisions)
	if err != nil {
		return nil, err
	}
	cfg.World.WorldSeed = row.Seed
	cfg.World.Subdivisions = row.Subdivisions

	s := store.New()
	genCfg := worldgen.DefaultConfig(row.Seed)
	genCfg.Subdivisions = row.Subdivisions
	worldgen.New(genCfg).Generate(s)
	if err := pg.LoadTiles(ctx, row.ID, s); err != nil {
		return nil, err
	}

	proc := tick.New(cfg, s)
	if err := pg.LoadBuildings(ctx, row.ID, s); err != nil {
		return nil, err
	}
	if err := pg.LoadResearch(ctx, row.ID, proc.Research); err != nil {
		return nil, err
	}
	rebuildTerritory(proc)

	srv := &Server{
		Cfg:       cfg,
		Processor: proc,
		Hub:       telemetry.NewHub(),
		pg:        pg,
		rd:        rd,
		worldID:   row.ID,
		saveCh:    make(chan *persistence.Batch, 1),
	}
	proc.Cmd.OnNewOwner = func(owner uuid.UUID) {
		srv.newOwners = append(srv.newOwners, owner)
	}
	slog.Info("world loaded", "name", row.Name, "seed", row.Seed, "buildings", len(s.AllBuildingKeysSorted()))
	return srv, nil
}

// rebuildTerritory re-derives the claim registry from loaded
// jurisdiction beacons (claims are not persisted separately).
func rebuildTerritory(proc *tick.Processor) {
	for _, key := range proc.Store.AllBuildingKeysSorted() {
		b, err := proc.Store.GetBuilding(key)
		if err != nil || b.Kind != store.KindJurisdictionBeacon || b.Construction != nil {
			continue
		}
		if proc.Territory.CanClaim(key, b.OwnerID) {
			proc.Territory.Claim(key, b.OwnerID)
		}
	}
}

// Enqueue queues a command for the next tick without waiting for the
// result.
func (s *Server) Enqueue(cmd command.Command) {
	s.mu.Lock()
	s.queue = append(s.queue, cmd)
	s.mu.Unlock()
}

// Do queues a command and blocks until the tick processor applies it.
func (s *Server) Do(cmd command.Command) command.Result {
	reply := make(chan command.Result, 1)
	cmd.Reply = reply
	s.Enqueue(cmd)
	return <-reply
}

// Run drives the tick clock until the context ends, then performs a
// final save. Ticks are never skipped: when a tick overruns the period
// the next one starts immediately afterwards.
func (s *Server) Run(ctx context.Context) {
	go s.Hub.Run()
	s.saveWG.Add(1)
	go s.saveLoop(ctx)

	ticker := time.NewTicker(s.Cfg.World.TickPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finalSave()
			return
		case <-ticker.C:
			s.step(ctx)
		}
	}
}

// step runs exactly one tick: drain the command queue, advance the
// world, fan out change-sets, and hand off a save batch when the
// interval elapses.
func (s *Server) step(ctx context.Context) {
	s.mu.Lock()
	cmds := s.queue
	s.queue = nil
	s.mu.Unlock()
	if s.rd.IsConnected() {
		cmds = append(cmds, s.rd.PopCommands(ctx)...)
	}

	sets := s.Processor.Tick(cmds)

	s.Hub.Broadcast(sets)
	if s.rd.IsConnected() {
		for i := range sets {
			data, err := json.Marshal(&sets[i])
			if err != nil {
				continue
			}
			if err := s.rd.PublishChangeSet(ctx, sets[i].Face, data); err != nil {
				slog.Warn("change-set publish failed", "face", sets[i].Face, "error", err)
			}
		}
	}

	if s.Processor.TickCount%s.Cfg.World.SaveIntervalTicks == 0 {
		s.handOffSave()
	}
}

// handOffSave drains the dirty set into a batch and moves it to the
// save thread. If the save thread is still working, the batch merges
// into the pending one instead of starting a parallel save.
func (s *Server) handOffSave() {
	s.mu.Lock()
	fatal := s.saveFatal
	owners := s.newOwners
	s.newOwners = nil
	s.mu.Unlock()
	if fatal {
		return
	}
	proc := s.Processor
	dirty := proc.Store.DrainDirty()

	batch := persistence.CollectBatch(proc.Store, dirty, proc.Research, proc.Board, proc.TradeLedger, owners)
	proc.TradeLedger = make(map[uuid.UUID]map[items.Kind]int)
	if batch.Empty() {
		return
	}
	s.mu.Lock()
	if s.pending != nil {
		s.pending.Merge(batch)
		batch = s.pending
		s.pending = nil
	}
	s.mu.Unlock()
	select {
	case s.saveCh <- batch:
	default:
		s.mu.Lock()
		s.pending = batch
		s.mu.Unlock()
	}
}

// saveLoop is the persistence thread: it owns every database write.
func (s *Server) saveLoop(ctx context.Context) {
	defer s.saveWG.Done()
	maxWait := time.Duration(s.Cfg.World.SaveIntervalTicks) * s.Cfg.World.TickPeriod()
	for batch := range s.saveCh {
		if batch == nil {
			return
		}
		err := s.pg.SaveWithRetry(context.Background(), s.worldID, batch, maxWait)
		if err == nil {
			continue
		}
		if persistence.IsTransient(err) {
			// Re-merge so the next save window retries this work.
			slog.Warn("save window failed, re-merging for retry", "error", err)
			s.mu.Lock()
			if s.pending != nil {
				batch.Merge(s.pending)
			}
			s.pending = batch
			s.mu.Unlock()
			continue
		}
		slog.Error("fatal database error; persistence stopped, simulation continues", "error", err)
		s.mu.Lock()
		s.saveFatal = true
		s.mu.Unlock()
		return
	}
	_ = ctx
}

// finalSave flushes everything outstanding at shutdown.
func (s *Server) finalSave() {
	s.handOffSave()
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	fatal := s.saveFatal
	s.mu.Unlock()
	if pending != nil && !fatal {
		s.saveCh <- pending
	}
	close(s.saveCh)
	s.saveWG.Wait()
	slog.Info("world server stopped", "tick", s.Processor.TickCount)
}
