package entities

import "math/rand"

// EventKind is a timed world modifier rolled on the event cadence.
type EventKind string

const (
	EventHissSurge        EventKind = "hiss_surge"
	EventMeteorShower     EventKind = "meteor_shower"
	EventResonanceCascade EventKind = "resonance_cascade"
	EventEntityMigration  EventKind = "entity_migration"
)

// eventWeights drives the weighted roll; surges and showers are common,
// cascades rare.
var eventWeights = []struct {
	kind   EventKind
	weight int
}{
	{EventHissSurge, 4},
	{EventMeteorShower, 3},
	{EventEntityMigration, 2},
	{EventResonanceCascade, 1},
}

// WorldEvents tracks the active event and the roll history.
type WorldEvents struct {
	Active        *EventKind
	StartedAtTick uint64
	LastEventTick uint64
	History       []EventRecord

	cooldownTicks uint64
	durations     map[EventKind]uint64
}

// EventRecord is one entry in the event history.
type EventRecord struct {
	Kind EventKind
	Tick uint64
}

// NewWorldEvents returns an event tracker with the given cooldown and
// per-kind durations.
func NewWorldEvents(cooldownTicks uint64, durations map[EventKind]uint64) *WorldEvents {
	return &WorldEvents{cooldownTicks: cooldownTicks, durations: durations}
}

// Roll runs the every-100-ticks event check: if no event is active and
// the cooldown has elapsed, a weighted event starts. Returns the event
// that started, if any.
func (w *WorldEvents) Roll(tick uint64, rng *rand.Rand) *EventKind {
	if w.Active != nil {
		return nil
	}
	if w.LastEventTick != 0 && tick-w.LastEventTick < w.cooldownTicks {
		return nil
	}
	total := 0
	for _, e := range eventWeights {
		total += e.weight
	}
	roll := rng.Intn(total)
	for _, e := range eventWeights {
		roll -= e.weight
		if roll < 0 {
			kind := e.kind
			w.Active = &kind
			w.StartedAtTick = tick
			w.LastEventTick = tick
			w.History = append(w.History, EventRecord{Kind: kind, Tick: tick})
			return &kind
		}
	}
	return nil
}

// Expire clears the active event once its duration has elapsed. Returns
// the event that ended, if any.
func (w *WorldEvents) Expire(tick uint64) *EventKind {
	if w.Active == nil {
		return nil
	}
	dur, ok := w.durations[*w.Active]
	if !ok {
		dur = 150
	}
	if tick-w.StartedAtTick < dur {
		return nil
	}
	ended := w.Active
	w.Active = nil
	return ended
}

// IsActive reports whether the given event kind is currently running.
func (w *WorldEvents) IsActive(kind EventKind) bool {
	return w.Active != nil && *w.Active == kind
}

// RateMultiplier is the world-event term in the modifier stack: the
// active event's global effect on production rates.
func (w *WorldEvents) RateMultiplier() float64 {
	if w.Active == nil {
		return 1.0
	}
	switch *w.Active {
	case EventResonanceCascade:
		return 0.8 // machinery runs hot: faster effective rate
	case EventMeteorShower:
		return 1.1 // debris slows everything slightly
	default:
		return 1.0
	}
}
