// Package tick implements the deterministic per-tick pipeline: command
// dispatch, behavior ticks, push resolution, consumption, power,
// creatures and hiss, world events, delivery drones, and end-of-tick
// consolidation. Each tick is a strict ordered pipeline; no phase reads
// state written by a later phase in the same tick.
package tick

import (
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/behaviors"
	"github.com/sphericsim/worldcore/internal/command"
	"github.com/sphericsim/worldcore/internal/config"
	"github.com/sphericsim/worldcore/internal/drones"
	"github.com/sphericsim/worldcore/internal/entities"
	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/power"
	"github.com/sphericsim/worldcore/internal/store"
)

// meteorDebris is what a meteor shower scatters on the ground.
var meteorDebris = []items.Kind{
	items.ItemIronOre, items.ItemCopperOre, items.ItemTitaniumOre, items.ItemSulfurOre,
}

const (
	hissSpawnHP      = 10
	hissAttackDamage = 2
	buildingMaxHP    = 10
)

// Processor owns every piece of mutable world state and advances it one
// tick at a time. All methods run on the tick thread.
type Processor struct {
	Cfg     *config.Config
	Store   *store.Store
	Geom    *geometry.Table
	Recipes *items.RecipeRegistry

	Shift      *entities.ShiftCycle
	Creatures  *entities.Creatures
	Hiss       *entities.HissSwarm
	Corruption *entities.Corruption
	Events     *entities.WorldEvents
	Territory  *entities.Territory
	Research   *entities.Research
	Board      *entities.BoardContact

	Power *power.Table
	Fleet *drones.Fleet
	Cmd   *command.Context

	// TradeLedger accumulates items drained by linked trade terminals,
	// keyed by trade id; persistence flushes it with the dirty set.
	TradeLedger map[uuid.UUID]map[items.Kind]int

	TickCount uint64
}

// New wires a processor over a fresh or freshly-loaded store.
func New(cfg *config.Config, s *store.Store) *Processor {
	geom := geometry.NewTable(cfg.World.Subdivisions)
	durations := make(map[entities.EventKind]uint64, len(cfg.Balance.WorldEvent.DurationTicks))
	for k, v := range cfg.Balance.WorldEvent.DurationTicks {
		durations[entities.EventKind(k)] = v
	}
	p := &Processor{
		Cfg:        cfg,
		Store:      s,
		Geom:       geom,
		Recipes:    items.DefaultRecipes(),
		Shift:      entities.NewShiftCycle(cfg.Balance.ShiftCycle.TicksPerAngleStep, cfg.World.Subdivisions),
		Creatures:  entities.NewCreatures(geom, cfg.World.CreaturesCapPerFace, cfg.Balance.Creature.TTLTicks),
		Hiss:       entities.NewHissSwarm(geom),
		Corruption: entities.NewCorruption(cfg.World.CorruptionMax),
		Events:     entities.NewWorldEvents(cfg.World.WorldEventCooldownTicks, durations),
		Territory:  entities.NewTerritory(cfg.Balance.Territory.BeaconRadius),
		Research:   entities.NewResearch(),
		Board:      entities.NewBoardContact(),
		Fleet:      drones.NewFleet(&cfg.Balance.Drone, cfg.World.TickPeriodMS),

		TradeLedger: make(map[uuid.UUID]map[items.Kind]int),
	}
	p.Cmd = &command.Context{
		Store:     s,
		Geom:      geom,
		Balance:   &cfg.Balance,
		Territory: p.Territory,
		Research:  p.Research,
		Board:     p.Board,
	}
	return p
}

// behaviorContext builds the read context behaviors run against.
func (p *Processor) behaviorContext() *behaviors.Context {
	return &behaviors.Context{
		Store:     p.Store,
		Geom:      p.Geom,
		Recipes:   p.Recipes,
		Balance:   &p.Cfg.Balance,
		Tick:      p.TickCount,
		Power:     p.Power,
		Shift:     p.Shift,
		Creatures: p.Creatures,
		Hiss:      p.Hiss,
		Events:    p.Events,
		Research:  p.Research,
	}
}

// Tick advances the world one step. Queued commands are applied first
// so their effects are visible to this tick's behavior pass. Returns
// the per-face change-sets for broadcast.
func (p *Processor) Tick(cmds []command.Command) []ChangeSet {
	col := &changeCollector{}

	// Phase 0: command dispatch in enqueue order.
	for i := range cmds {
		p.applyCommand(&cmds[i], col)
	}

	// Phase 1: pre-phase.
	p.TickCount++
	tick := p.TickCount
	if phase, changed := p.Shift.Step(tick); changed {
		col.phase = phase
	}
	p.tickEvents(tick, col)
	p.constructionAutoConsume(col)

	bctx := p.behaviorContext()

	// Phase 2: behavior tick, stable lexicographic order.
	for _, key := range p.Store.AllBuildingKeysSorted() {
		b, err := p.Store.GetBuilding(key)
		if err != nil {
			continue
		}
		res := behaviors.Tick(bctx, key, b)
		if res.Changed {
			p.Store.PutBuilding(key, b)
		}
		if res.CapturedCreature != nil {
			col.creatures = append(col.creatures, EntityDelta{
				ID: res.CapturedCreature.ID, Key: res.CapturedCreature.Pos, Gone: true,
			})
		}
	}

	// Phase 3: push resolution.
	col.flights = behaviors.ResolvePushes(bctx)

	// Phase 4: consumption.
	p.drainTerminals()

	// Phase 5: power resolution.
	if tick%p.Cfg.Balance.Power.ResolveEveryTicks == 0 {
		p.resolvePower()
	}

	// Phase 6: creatures and hiss.
	p.tickCreatures(tick, col)
	p.tickHiss(tick, col)

	// Phase 7: delivery drones.
	droneRNG := subStream(p.Cfg.World.WorldSeed, tick, "drone")
	p.Fleet.Step(bctx, func() uuid.UUID { return deterministicUUID(droneRNG) })

	// Phase 8: end-of-tick consolidation.
	for _, key := range p.Store.AllBuildingKeysSorted() {
		b, _ := p.Store.GetBuilding(key)
		if b != nil && b.State.Storage != nil && len(b.State.Storage.Inserted) > 0 {
			behaviors.ConsolidateStorage(b)
			p.Store.PutBuilding(key, b)
		}
	}

	return col.perFace(tick)
}

// applyCommand runs one queued command, records its world-visible
// effects, and replies if a channel was attached.
func (p *Processor) applyCommand(cmd *command.Command, col *changeCollector) {
	res := p.Cmd.Apply(*cmd)
	recordPlace := func(spec command.PlaceSpec, r command.Result) {
		if !r.OK() {
			return
		}
		b, err := p.Store.GetBuilding(spec.Key)
		if err != nil {
			return
		}
		col.placed = append(col.placed, BuildingChange{
			Key:         spec.Key,
			Kind:        spec.Kind,
			Orientation: spec.Orientation,
			OwnerID:     b.OwnerID,
			UnderBuild:  b.Construction != nil,
		})
		if spec.Kind == store.KindJurisdictionBeacon && b.Construction == nil {
			col.territory = append(col.territory, TerritoryDelta{Beacon: spec.Key, OwnerID: b.OwnerID})
		}
	}
	switch cmd.Type {
	case command.TypePlace:
		recordPlace(command.PlaceSpec{Key: cmd.Key, Kind: cmd.Kind, Orientation: cmd.Orientation}, res)
	case command.TypePlaceBatch:
		for i, spec := range cmd.Batch {
			if i < len(res.Batch) {
				recordPlace(spec, res.Batch[i])
			}
		}
	case command.TypeRemove:
		if res.OK() {
			col.removed = append(col.removed, cmd.Key)
			if cmd.Kind == store.KindJurisdictionBeacon {
				col.territory = append(col.territory, TerritoryDelta{Beacon: cmd.Key, OwnerID: cmd.Owner, Released: true})
			}
		}
	}
	if cmd.Reply != nil {
		cmd.Reply <- res
	}
}

// tickEvents expires the active world event, rolls for a new one every
// 100 ticks, and applies the meteor shower's debris drops.
func (p *Processor) tickEvents(tick uint64, col *changeCollector) {
	if ended := p.Events.Expire(tick); ended != nil {
		slog.Info("world event ended", "event", *ended, "tick", tick)
	}
	if tick%100 == 0 {
		if started := p.Events.Roll(tick, subStream(p.Cfg.World.WorldSeed, tick, "event")); started != nil {
			slog.Info("world event started", "event", *started, "tick", tick)
		}
	}
	if p.Events.Active != nil {
		col.event = string(*p.Events.Active)
	}
	if p.Events.IsActive(entities.EventMeteorShower) && tick%10 == 0 {
		rng := subStream(p.Cfg.World.WorldSeed, tick, "meteor")
		n := p.Cfg.World.Subdivisions
		key := store.Key{Face: rng.Intn(geometry.FaceCount), Row: rng.Intn(n), Col: rng.Intn(n)}
		p.Store.GroundAdd(key, meteorDebris[rng.Intn(len(meteorDebris))], 1)
	}
}

// constructionAutoConsume feeds every construction site from ground
// items within radius 3, completing sites whose requirements fill.
func (p *Processor) constructionAutoConsume(col *changeCollector) {
	bctx := p.behaviorContext()
	for _, key := range p.Store.AllBuildingKeysSorted() {
		b, err := p.Store.GetBuilding(key)
		if err != nil || b.Construction == nil {
			continue
		}
		c := b.Construction
		changed := false
		for _, groundKey := range p.Store.GroundItemsNear(key, 3) {
			for _, kind := range sortedItemKinds(p.Store.GroundGet(groundKey)) {
				need, wanted := c.Required[kind]
				if !wanted || c.Delivered[kind] >= need {
					continue
				}
				want := int(need - c.Delivered[kind])
				got := p.Store.GroundTake(groundKey, kind, want)
				if got > 0 {
					c.Delivered[kind] += uint16(got)
					changed = true
				}
			}
		}
		if c.Complete() {
			behaviors.FinishConstruction(bctx, b)
			changed = true
			col.placed = append(col.placed, BuildingChange{
				Key: key, Kind: b.Kind, Orientation: b.Orientation, OwnerID: b.OwnerID,
			})
			if b.Kind == store.KindJurisdictionBeacon && p.Territory.CanClaim(key, b.OwnerID) {
				p.Territory.Claim(key, b.OwnerID)
				col.territory = append(col.territory, TerritoryDelta{Beacon: key, OwnerID: b.OwnerID})
			}
		}
		if changed {
			p.Store.PutBuilding(key, b)
		}
	}
}

// drainTerminals empties terminal input buffers: submission terminals
// credit owner research (and the board contact when active), trade
// terminals credit their linked trade ledger.
func (p *Processor) drainTerminals() {
	for _, key := range p.Store.AllBuildingKeysSorted() {
		b, err := p.Store.GetBuilding(key)
		if err != nil || b.State.Terminal == nil || b.Construction != nil {
			continue
		}
		t := b.State.Terminal
		if len(t.Buffer) == 0 {
			continue
		}
		switch b.Kind {
		case store.KindSubmissionTerminal:
			for _, kind := range sortedItemKinds(t.Buffer) {
				n := t.Buffer[kind]
				p.Research.Submit(b.OwnerID, kind, n)
				if p.Board.Active && !p.Board.Completed {
					p.Board.Contribute(b.OwnerID, kind, n)
				}
				t.TotalSubmitted += n
				delete(t.Buffer, kind)
			}
		case store.KindTradeTerminal:
			if t.TradeID == nil {
				continue // unlinked terminals hold their buffer
			}
			ledger, ok := p.TradeLedger[*t.TradeID]
			if !ok {
				ledger = make(map[items.Kind]int)
				p.TradeLedger[*t.TradeID] = ledger
			}
			for _, kind := range sortedItemKinds(t.Buffer) {
				ledger[kind] += t.Buffer[kind]
				delete(t.Buffer, kind)
			}
		}
		p.Store.PutBuilding(key, b)
	}
}

// resolvePower rebuilds the networks and mirrors the verdict onto each
// building's powered flag (derived state; not dirty-marked).
func (p *Processor) resolvePower() {
	bal := p.Cfg.Balance
	const lampRadius = 4
	p.Power = power.Resolve(p.Store, bal.Power.SubstationRadius, bal.Power.TransferStationRadius, lampRadius, p.Shift, p.Power)
	for _, key := range p.Store.AllBuildingKeysSorted() {
		if b, err := p.Store.GetBuilding(key); err == nil {
			b.Powered = p.Power.IsPowered(key)
		}
	}
	for _, n := range p.Power.Networks {
		if !n.Powered() {
			slog.Warn("power network browned out", "load", n.Load, "capacity", n.Capacity, "nodes", len(n.Nodes))
		}
	}
}

// tickCreatures runs the spawn and movement cadences. An entity
// migration event accelerates movement to every tick.
func (p *Processor) tickCreatures(tick uint64, col *changeCollector) {
	bal := p.Cfg.Balance.Creature
	moveEvery := bal.MoveEveryTicks
	if p.Events.IsActive(entities.EventEntityMigration) {
		moveEvery = 1
	}
	if tick%bal.SpawnEveryTicks == 0 {
		rng := subStream(p.Cfg.World.WorldSeed, tick, "creature_spawn")
		for _, w := range p.Creatures.Spawn(tick, p.Cfg.World.Subdivisions, rng) {
			col.creatures = append(col.creatures, EntityDelta{ID: w.ID, Key: w.Pos})
		}
	}
	if tick%moveEvery == 0 {
		rng := subStream(p.Cfg.World.WorldSeed, tick, "creature_move")
		moved, despawned := p.Creatures.Move(tick, rng)
		for _, id := range moved {
			if w, ok := p.Creatures.Wild[id]; ok {
				col.creatures = append(col.creatures, EntityDelta{ID: id, Key: w.Pos})
			}
		}
		for _, id := range despawned {
			col.creatures = append(col.creatures, EntityDelta{ID: id, Gone: true})
		}
	}
}

// tickHiss runs corruption purification (every tick), spread and
// spawning (on the spread cadence), and entity movement and attacks (on
// the move cadence).
func (p *Processor) tickHiss(tick uint64, col *changeCollector) {
	bal := p.Cfg.Balance.Hiss

	fields := p.protectiveFields()
	for _, k := range p.Corruption.Purify(fields) {
		col.corrupt = append(col.corrupt, CorruptionDelta{Key: k, Intensity: p.Corruption.Intensity(k)})
	}

	if tick%bal.SpreadEveryTicks == 0 {
		rng := subStream(p.Cfg.World.WorldSeed, tick, "corruption")
		for _, k := range p.Corruption.Spread(p.Geom, rng, p.Events.IsActive(entities.EventHissSurge)) {
			col.corrupt = append(col.corrupt, CorruptionDelta{Key: k, Intensity: p.Corruption.Intensity(k)})
		}
		for _, e := range p.Hiss.SpawnFrom(p.Corruption, bal.SpawnIntensityMin, hissSpawnHP, rng) {
			col.hiss = append(col.hiss, EntityDelta{ID: e.ID, Key: e.Pos})
		}
	}

	if tick%bal.MoveEveryTicks == 0 {
		targets := p.ownedBuildingKeys()
		arrived := p.Hiss.Step(targets)
		for _, e := range p.Hiss.SortedEntities() {
			col.hiss = append(col.hiss, EntityDelta{ID: e.ID, Key: e.Pos})
		}
		for _, e := range arrived {
			p.hissAttack(e, col)
		}
	}
}

// hissAttack damages the building under an arrived hiss entity,
// removing it (and dropping residue) when its hit points run out.
func (p *Processor) hissAttack(e *entities.HissEntity, col *changeCollector) {
	key := e.Pos
	b, err := p.Store.GetBuilding(key)
	if err != nil {
		return
	}
	if b.HP == 0 {
		b.HP = buildingMaxHP
	}
	b.HP -= hissAttackDamage
	if b.HP > 0 {
		p.Store.PutBuilding(key, b)
		return
	}
	slog.Info("building destroyed by hiss", "key", key.String(), "kind", b.Kind)
	p.Store.GroundAdd(key, items.ItemHissResidue, 1)
	p.Store.RemoveBuilding(key)
	if b.Kind == store.KindJurisdictionBeacon {
		p.Territory.Release(key)
		col.territory = append(col.territory, TerritoryDelta{Beacon: key, OwnerID: b.OwnerID, Released: true})
	}
	col.removed = append(col.removed, key)
}

// protectiveFields collects every completed purification beacon and
// dimensional stabilizer footprint.
func (p *Processor) protectiveFields() []entities.ProtectiveField {
	var out []entities.ProtectiveField
	for _, key := range p.Store.AllBuildingKeysSorted() {
		b, err := p.Store.GetBuilding(key)
		if err != nil || b.Construction != nil || b.State.Beacon == nil {
			continue
		}
		if b.Kind != store.KindPurificationBeacon && b.Kind != store.KindDimensionalStab {
			continue
		}
		out = append(out, entities.ProtectiveField{Center: key, Radius: b.State.Beacon.Radius})
	}
	return out
}

// ownedBuildingKeys lists every completed player building, the hiss
// target set.
func (p *Processor) ownedBuildingKeys() []store.Key {
	var out []store.Key
	for _, key := range p.Store.AllBuildingKeysSorted() {
		b, err := p.Store.GetBuilding(key)
		if err != nil || b.Construction != nil || b.OwnerID == uuid.Nil {
			continue
		}
		out = append(out, key)
	}
	return out
}

// Fingerprint hashes the observable world state, for the determinism
// property: identical seeds and command streams must produce identical
// fingerprints.
func (p *Processor) Fingerprint() uint64 {
	h := fnv.New64a()
	enc := json.NewEncoder(h)
	for _, key := range p.Store.AllBuildingKeysSorted() {
		b, _ := p.Store.GetBuilding(key)
		enc.Encode(key)
		enc.Encode(b)
	}
	corrupted := make([]store.Key, 0, len(p.Corruption.Field))
	for k := range p.Corruption.Field {
		corrupted = append(corrupted, k)
	}
	sort.Slice(corrupted, func(i, j int) bool { return corrupted[i].Less(corrupted[j]) })
	for _, k := range corrupted {
		enc.Encode(k)
		enc.Encode(p.Corruption.Field[k])
	}
	enc.Encode(p.TickCount)
	return h.Sum64()
}

func sortedItemKinds(m map[items.Kind]int) []items.Kind {
	out := make([]items.Kind, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// deterministicUUID draws a reproducible v4-shaped UUID from a seeded
// stream.
func deterministicUUID(rng interface{ Intn(int) int }) uuid.UUID {
	var b [16]byte
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return uuid.UUID(b)
}
