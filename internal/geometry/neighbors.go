package geometry

// Subdivisions is the default edge length of each face's tile grid (64,
// per §1/§4.C); Table can be built for any size via NewTable.
const Subdivisions = 64

// Table is the neighbour function for a grid of a given subdivision
// size. It stores only the size; each neighbour is computed on demand
// from the static face adjacency graph, which is built once at package
// init (see faces.go).
type Table struct {
	size int
}

// NewTable returns a neighbour table for an N x N tile grid per face.
func NewTable(size int) *Table {
	return &Table{size: size}
}

// Size returns the per-face grid edge length the table was built for.
func (t *Table) Size() int {
	return t.size
}

// Neighbor returns the tile reached by stepping from key in direction d,
// along with the direction you would now be facing if you kept walking
// straight (used to step further, and to satisfy the closure invariant:
// Neighbor(Neighbor(k,d).Key, Neighbor(k,d).Dir.Opposite()) == k).
type NeighborResult struct {
	Key Key
	Dir Direction
}

func (t *Table) Neighbor(k Key, d Direction) NeighborResult {
	n := t.size
	switch d {
	case West:
		if k.Col > 0 {
			return NeighborResult{Key: Key{Face: k.Face, Row: k.Row, Col: k.Col - 1}, Dir: West}
		}
	case East:
		if k.Col < n-1 {
			return NeighborResult{Key: Key{Face: k.Face, Row: k.Row, Col: k.Col + 1}, Dir: East}
		}
	case South:
		if k.Row < n-1 {
			return NeighborResult{Key: Key{Face: k.Face, Row: k.Row + 1, Col: k.Col}, Dir: South}
		}
	case North:
		if k.Row > 0 {
			return NeighborResult{Key: Key{Face: k.Face, Row: k.Row - 1, Col: k.Col}, Dir: North}
		}
	}
	// Crossing a face seam: look up the adjacent face and the direction
	// we now face, then place the tile on the entry edge (the edge whose
	// outward direction points back at the face we came from) at the same
	// perpendicular coordinate we exited at.
	edge := faceTable[k.Face][int(d)]
	perp := k.Row
	if d == South || d == North {
		perp = k.Col
	}
	var nk Key
	switch edge.dirIn {
	case West: // entered through the East edge, now walking west
		nk = Key{Face: edge.face, Row: perp, Col: n - 1}
	case East: // entered through the West edge
		nk = Key{Face: edge.face, Row: perp, Col: 0}
	case South: // entered through the North edge
		nk = Key{Face: edge.face, Row: 0, Col: perp}
	case North: // entered through the South edge
		nk = Key{Face: edge.face, Row: n - 1, Col: perp}
	}
	return NeighborResult{Key: nk, Dir: edge.dirIn}
}

// AllNeighbors returns the four neighbours of a tile, indexed by
// Direction.
func (t *Table) AllNeighbors(k Key) [4]NeighborResult {
	var out [4]NeighborResult
	for d := 0; d < 4; d++ {
		out[d] = t.Neighbor(k, Direction(d))
	}
	return out
}
