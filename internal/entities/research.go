package entities

import (
	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/items"
)

// clearanceThresholds[i] is the cumulative submission count required to
// hold clearance i. Tier 0 is free.
var clearanceThresholds = [9]int{0, 10, 30, 75, 150, 300, 600, 1200, 2500}

// objectOfPowerBonus[i] is the permanent owner-wide rate multiplier
// granted on completing clearance tier i. The table is fixed; values do
// not compound: only the entry for the owner's current tier applies.
var objectOfPowerBonus = [9]float64{1.0, 1.0, 0.98, 0.96, 0.95, 0.93, 0.92, 0.91, 0.90}

// ResearchProgress is one owner's clearance track.
type ResearchProgress struct {
	Clearance int
	Submitted map[items.Kind]uint32
}

// Research holds every owner's progress.
type Research struct {
	ByOwner map[uuid.UUID]*ResearchProgress
}

// NewResearch returns an empty research registry.
func NewResearch() *Research {
	return &Research{ByOwner: make(map[uuid.UUID]*ResearchProgress)}
}

// Get returns (creating if needed) an owner's progress record.
func (r *Research) Get(owner uuid.UUID) *ResearchProgress {
	p, ok := r.ByOwner[owner]
	if !ok {
		p = &ResearchProgress{Submitted: make(map[items.Kind]uint32)}
		r.ByOwner[owner] = p
	}
	return p
}

// Submit credits submitted items to an owner and advances clearance when
// the cumulative total crosses a tier threshold.
func (r *Research) Submit(owner uuid.UUID, item items.Kind, n int) {
	p := r.Get(owner)
	p.Submitted[item] += uint32(n)
	total := 0
	for _, v := range p.Submitted {
		total += int(v)
	}
	for p.Clearance < len(clearanceThresholds)-1 && total >= clearanceThresholds[p.Clearance+1] {
		p.Clearance++
	}
}

// Recalc recomputes every owner's clearance from their submission
// totals, used after restoring persisted progress.
func (r *Research) Recalc() {
	for _, p := range r.ByOwner {
		total := 0
		for _, v := range p.Submitted {
			total += int(v)
		}
		p.Clearance = 0
		for p.Clearance < len(clearanceThresholds)-1 && total >= clearanceThresholds[p.Clearance+1] {
			p.Clearance++
		}
	}
}

// Clearance returns an owner's current tier (0 when unknown).
func (r *Research) Clearance(owner uuid.UUID) int {
	if p, ok := r.ByOwner[owner]; ok {
		return p.Clearance
	}
	return 0
}

// ObjectOfPowerMultiplier returns the owner-wide rate multiplier from
// unlocked objects of power. Lower is faster; tiers do not compound, the
// entry for the current clearance (the strongest unlocked bonus) applies.
func (r *Research) ObjectOfPowerMultiplier(owner uuid.UUID) float64 {
	return objectOfPowerBonus[r.Clearance(owner)]
}

// BoardContact is the endgame submission record (§6.3 board_contact).
type BoardContact struct {
	Requirements map[items.Kind]int
	SubmittedMap map[items.Kind]int
	Active       bool
	Completed    bool
	Contributors map[uuid.UUID]int
}

// NewBoardContact returns an inactive board-contact record with the
// standard requirements.
func NewBoardContact() *BoardContact {
	return &BoardContact{
		Requirements: map[items.Kind]int{
			items.ItemEnrichedCore:   10,
			items.ItemCircuitBoard:   50,
			items.ItemStructuralBeam: 25,
		},
		SubmittedMap: make(map[items.Kind]int),
		Contributors: make(map[uuid.UUID]int),
	}
}

// Contribute credits items toward the active contact and reports
// completion.
func (b *BoardContact) Contribute(owner uuid.UUID, item items.Kind, n int) bool {
	if !b.Active || b.Completed {
		return false
	}
	if _, wanted := b.Requirements[item]; !wanted {
		return false
	}
	b.SubmittedMap[item] += n
	b.Contributors[owner] += n
	for k, need := range b.Requirements {
		if b.SubmittedMap[k] < need {
			return false
		}
	}
	b.Completed = true
	return true
}
