package entities

import (
	"sort"

	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/geometry"
)

// Territory tracks jurisdiction-beacon claims. Each beacon claims the
// tiles within its radius on its face; claims from distinct owners may
// never overlap.
type Territory struct {
	Beacons map[geometry.Key]uuid.UUID
	radius  int
}

// NewTerritory returns an empty claim registry with the configured
// beacon radius.
func NewTerritory(radius int) *Territory {
	return &Territory{Beacons: make(map[geometry.Key]uuid.UUID), radius: radius}
}

// Radius returns the claim radius in tiles.
func (t *Territory) Radius() int {
	return t.radius
}

// OwnerAt returns the owner whose territory covers the tile, if any.
func (t *Territory) OwnerAt(k geometry.Key) (uuid.UUID, bool) {
	for beacon, owner := range t.Beacons {
		if beacon.Face == k.Face && geometry.ManhattanInFace(beacon, k) <= t.radius {
			return owner, true
		}
	}
	return uuid.Nil, false
}

// CanClaim reports whether placing a beacon for owner at k would keep
// all territories disjoint: no tile inside the new claim may already
// belong to a different owner.
func (t *Territory) CanClaim(k geometry.Key, owner uuid.UUID) bool {
	for beacon, other := range t.Beacons {
		if other == owner {
			continue
		}
		if beacon.Face == k.Face && geometry.ManhattanInFace(beacon, k) <= 2*t.radius {
			return false
		}
	}
	return true
}

// Claim registers a beacon's territory. Callers must check CanClaim
// first; Claim does not re-validate.
func (t *Territory) Claim(k geometry.Key, owner uuid.UUID) {
	t.Beacons[k] = owner
}

// Release drops the claim anchored at the beacon key (beacon removed or
// destroyed).
func (t *Territory) Release(k geometry.Key) {
	delete(t.Beacons, k)
}

// ClaimsSorted returns every (beacon, owner) pair in key order, for
// change-set emission and persistence.
func (t *Territory) ClaimsSorted() []TerritoryClaim {
	out := make([]TerritoryClaim, 0, len(t.Beacons))
	for k, owner := range t.Beacons {
		out = append(out, TerritoryClaim{Beacon: k, OwnerID: owner})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Beacon.Less(out[j].Beacon) })
	return out
}

// TerritoryClaim is one beacon's claim.
type TerritoryClaim struct {
	Beacon  geometry.Key
	OwnerID uuid.UUID
}
