// Package store is the World Store (§4.A): the in-memory tile/building/
// ground-item tables plus dirty tracking. It is single-writer (the tick
// thread) with the centralised dirty-marking the source re-architecture
// notes call for — raw maps stay unexported so every write goes through
// Put/Remove and is marked dirty exactly once, in exactly one place.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/items"
)

// Key re-exports geometry.Key so callers of this package don't need a
// second import for the thing they look everything up by.
type Key = geometry.Key

// ErrNotFound is returned by Get* for absent keys (§4.A contract: reads
// fail on absent keys, writes never fail).
var ErrNotFound = errors.New("store: not found")

// Store is the World Store. All exported methods are safe to call from
// the tick thread only. Each one holds the mutex for its own duration,
// but the store offers no snapshot helper for other readers, and
// GetBuilding returns the stored pointer rather than a copy.
type Store struct {
	mu sync.Mutex

	tiles     map[Key]Tile
	buildings map[Key]*Building
	ground    map[Key]map[items.Kind]int

	dirtyTiles       map[Key]struct{}
	dirtyBuildings   map[Key]struct{}
	removedBuildings map[Key]struct{}
}

// New returns an empty World Store.
func New() *Store {
	return &Store{
		tiles:            make(map[Key]Tile),
		buildings:        make(map[Key]*Building),
		ground:           make(map[Key]map[items.Kind]int),
		dirtyTiles:       make(map[Key]struct{}),
		dirtyBuildings:   make(map[Key]struct{}),
		removedBuildings: make(map[Key]struct{}),
	}
}

// GetTile returns the tile at key, or ErrNotFound.
func (s *Store) GetTile(k Key) (Tile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tiles[k]
	if !ok {
		return Tile{}, ErrNotFound
	}
	return t, nil
}

// PutTile writes a tile and marks it dirty.
func (s *Store) PutTile(k Key, t Tile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles[k] = t
	s.dirtyTiles[k] = struct{}{}
}

// PutTiles bulk-loads tiles without marking them dirty — used by the
// world generator and by the persistence loader overlaying saved rows
// onto freshly generated terrain.
func (s *Store) PutTiles(batch map[Key]Tile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range batch {
		s.tiles[k] = t
	}
}

// GetBuilding returns the building at key, or ErrNotFound.
func (s *Store) GetBuilding(k Key) (*Building, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buildings[k]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// HasBuilding reports whether a building occupies key.
func (s *Store) HasBuilding(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buildings[k]
	return ok
}

// PutBuilding writes a building, marks it dirty, and clears any pending
// removal for that key (§4.A contract).
func (s *Store) PutBuilding(k Key, b *Building) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildings[k] = b
	s.dirtyBuildings[k] = struct{}{}
	delete(s.removedBuildings, k)
}

// PutBuildingNoDirty is PutBuilding without marking dirty, used by the
// persistence loader to replay saved rows on startup.
func (s *Store) PutBuildingNoDirty(k Key, b *Building) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildings[k] = b
}

// RemoveBuilding deletes the building at key, marks the key removed, and
// clears its building-dirty bit (§3.3 invariant 8).
func (s *Store) RemoveBuilding(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buildings, k)
	delete(s.dirtyBuildings, k)
	s.removedBuildings[k] = struct{}{}
}

// AllBuildingKeysSorted returns every occupied key in lexicographic
// order — the stable iteration order every deterministic phase uses
// (§4.E.1 step 2, §5).
func (s *Store) AllBuildingKeysSorted() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]Key, 0, len(s.buildings))
	for k := range s.buildings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// DirtySet is the atomic drain-and-clear result (§4.A, §5).
type DirtySet struct {
	Tiles     []Key
	Buildings []Key
	Removed   []Key
}

// DrainDirty atomically reads and clears the dirty partitions.
func (s *Store) DrainDirty() DirtySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := DirtySet{
		Tiles:     keysOf(s.dirtyTiles),
		Buildings: keysOf(s.dirtyBuildings),
		Removed:   keysOf(s.removedBuildings),
	}
	s.dirtyTiles = make(map[Key]struct{})
	s.dirtyBuildings = make(map[Key]struct{})
	s.removedBuildings = make(map[Key]struct{})
	return out
}

func keysOf(m map[Key]struct{}) []Key {
	out := make([]Key, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// GroundGet returns the item stacks sitting on the ground at key.
func (s *Store) GroundGet(k Key) map[items.Kind]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[items.Kind]int)
	for item, n := range s.ground[k] {
		out[item] = n
	}
	return out
}

// GroundAdd drops n units of item on the ground at key.
func (s *Store) GroundAdd(k Key, item items.Kind, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stack, ok := s.ground[k]
	if !ok {
		stack = make(map[items.Kind]int)
		s.ground[k] = stack
	}
	stack[item] += n
}

// GroundTake removes up to n units of item from the ground at key,
// returning how many were actually taken.
func (s *Store) GroundTake(k Key, item items.Kind, n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	stack, ok := s.ground[k]
	if !ok {
		return 0
	}
	have := stack[item]
	if n > have {
		n = have
	}
	if n <= 0 {
		return 0
	}
	stack[item] -= n
	if stack[item] == 0 {
		delete(stack, item)
	}
	if len(stack) == 0 {
		delete(s.ground, k)
	}
	return n
}

// GroundItemsNear returns every ground-item key within Manhattan radius r
// of center on the same face (used by construction-site auto-consume,
// §4.E.1 step 1).
func (s *Store) GroundItemsNear(center Key, r int) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Key
	for k, stack := range s.ground {
		if k.Face != center.Face || len(stack) == 0 {
			continue
		}
		if geometry.ManhattanInFace(center, k) <= r {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
