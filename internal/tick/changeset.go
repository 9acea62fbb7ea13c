package tick

import (
	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/behaviors"
	"github.com/sphericsim/worldcore/internal/entities"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

// BuildingChange describes one placed building in a change-set.
type BuildingChange struct {
	Key         store.Key          `json:"key"`
	Kind        store.BuildingKind `json:"kind"`
	Orientation int                `json:"orientation"`
	OwnerID     uuid.UUID          `json:"owner_id"`
	UnderBuild  bool               `json:"under_build,omitempty"`
}

// ItemFlight is one item crossing tiles this tick.
type ItemFlight struct {
	From store.Key  `json:"from_key"`
	To   store.Key  `json:"to_key"`
	Item items.Kind `json:"item"`
}

// CorruptionDelta is one tile whose corruption intensity changed.
type CorruptionDelta struct {
	Key       store.Key `json:"key"`
	Intensity int       `json:"intensity"`
}

// EntityDelta is one creature or hiss entity position update; Gone
// marks despawn/death.
type EntityDelta struct {
	ID   uuid.UUID `json:"id"`
	Key  store.Key `json:"key"`
	Gone bool      `json:"gone,omitempty"`
}

// TerritoryDelta is one claim added or released this tick.
type TerritoryDelta struct {
	Beacon   store.Key `json:"beacon"`
	OwnerID  uuid.UUID `json:"owner_id"`
	Released bool      `json:"released,omitempty"`
}

// ChangeSet is the per-face per-tick broadcast payload (§6.2). It is
// structurally stable and safe to send over any ordered transport.
type ChangeSet struct {
	Tick             uint64            `json:"tick"`
	Face             int               `json:"face"`
	BuildingsPlaced  []BuildingChange  `json:"buildings_placed,omitempty"`
	BuildingsRemoved []store.Key       `json:"buildings_removed,omitempty"`
	ItemsInFlight    []ItemFlight      `json:"items_in_flight,omitempty"`
	CorruptionDelta  []CorruptionDelta `json:"corruption_delta,omitempty"`
	HissDelta        []EntityDelta     `json:"hiss_delta,omitempty"`
	CreatureDelta    []EntityDelta     `json:"creature_delta,omitempty"`
	TerritoryDelta   []TerritoryDelta  `json:"territory_delta,omitempty"`
	ShiftPhase       entities.Phase    `json:"shift_phase,omitempty"`
	WorldEvent       string            `json:"world_event,omitempty"`
}

// changeCollector accumulates deltas during a tick and slices them per
// face at emit time.
type changeCollector struct {
	placed    []BuildingChange
	removed   []store.Key
	flights   []behaviors.Flight
	corrupt   []CorruptionDelta
	hiss      []EntityDelta
	creatures []EntityDelta
	territory []TerritoryDelta
	phase     entities.Phase
	event     string
}

func (c *changeCollector) perFace(tick uint64) []ChangeSet {
	byFace := make(map[int]*ChangeSet)
	get := func(face int) *ChangeSet {
		cs, ok := byFace[face]
		if !ok {
			cs = &ChangeSet{Tick: tick, Face: face, ShiftPhase: c.phase, WorldEvent: c.event}
			byFace[face] = cs
		}
		return cs
	}
	for _, p := range c.placed {
		cs := get(p.Key.Face)
		cs.BuildingsPlaced = append(cs.BuildingsPlaced, p)
	}
	for _, k := range c.removed {
		cs := get(k.Face)
		cs.BuildingsRemoved = append(cs.BuildingsRemoved, k)
	}
	for _, f := range c.flights {
		cs := get(f.From.Face)
		cs.ItemsInFlight = append(cs.ItemsInFlight, ItemFlight{From: f.From, To: f.To, Item: f.Item})
	}
	for _, d := range c.corrupt {
		cs := get(d.Key.Face)
		cs.CorruptionDelta = append(cs.CorruptionDelta, d)
	}
	for _, d := range c.hiss {
		cs := get(d.Key.Face)
		cs.HissDelta = append(cs.HissDelta, d)
	}
	for _, d := range c.creatures {
		cs := get(d.Key.Face)
		cs.CreatureDelta = append(cs.CreatureDelta, d)
	}
	for _, d := range c.territory {
		cs := get(d.Beacon.Face)
		cs.TerritoryDelta = append(cs.TerritoryDelta, d)
	}
	out := make([]ChangeSet, 0, len(byFace))
	for face := 0; face < 30; face++ {
		if cs, ok := byFace[face]; ok {
			out = append(out, *cs)
		}
	}
	return out
}
