package geometry

import "math"

// FaceCount is the number of rhombic faces on the triacontahedron.
const FaceCount = 30

// faceEdge describes one of a face's four neighbours: the face you land
// on, and the direction (in that face's own basis) the shared boundary
// corresponds to. Crossing the seam in direction d from this face always
// arrives facing dirIn at the neighbour; stepping back out in
// opposite(dirIn) always returns here (§8 invariant 10).
type faceEdge struct {
	face  int
	dirIn Direction
}

// faceTable[f][d] is face f's neighbour in direction d.
var faceTable [FaceCount][4]faceEdge

// faceCentroidDir[f] is the unit vector from the polyhedron's centre
// through face f's centre (the midpoint of its defining icosahedron
// edge) — used by FaceNormal and by the world generator's latitude
// based biome assignment (§4.C step 1).
var faceCentroidDir [FaceCount]vec3

// The rhombic triacontahedron's 30 faces correspond 1:1 to the 30 edges
// of an icosahedron; two faces share a boundary iff their icosahedron
// edges share a vertex and bound a common triangle. That makes the whole
// adjacency graph (32 vertices, 60 edges, per spec §4.B) derivable from
// icosahedron incidence alone, computed once at package init.
func init() {
	verts := icosahedronVertices()
	edges, edgeIndex := icosahedronEdges(verts)
	apexes := edgeApexes(edges, edgeIndex)

	// canonical direction assignment per RT-face, going around the
	// rhombus boundary: West/South share the edge's first apex, East/
	// North share its second.
	canonical := func(e int) [4]int {
		a, b := edges[e][0], edges[e][1]
		c1, c2 := apexes[e][0], apexes[e][1]
		return [4]int{
			edgeIndex[key2(a, c1)], // West
			edgeIndex[key2(b, c1)], // South
			edgeIndex[key2(b, c2)], // East
			edgeIndex[key2(a, c2)], // North
		}
	}

	neigh := make([][4]int, len(edges))
	for e := range edges {
		neigh[e] = canonical(e)
	}

	for e, pair := range edges {
		a, b := verts[pair[0]], verts[pair[1]]
		mid := vec3{(a.x + b.x) / 2, (a.y + b.y) / 2, (a.z + b.z) / 2}
		faceCentroidDir[e] = normalize(mid)
	}

	for f := 0; f < FaceCount; f++ {
		for d := 0; d < 4; d++ {
			g := neigh[f][d]
			// Find the direction at g that canonically points back at f.
			var dBack int = -1
			for gd := 0; gd < 4; gd++ {
				if neigh[g][gd] == f {
					dBack = gd
					break
				}
			}
			if dBack == -1 {
				panic("geometry: non-reciprocal face adjacency")
			}
			faceTable[f][d] = faceEdge{face: g, dirIn: Direction(dBack).Opposite()}
		}
	}
}

func key2(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

type vec3 struct{ x, y, z float64 }

func icosahedronVertices() [12]vec3 {
	phi := (1 + math.Sqrt(5)) / 2
	return [12]vec3{
		{0, 1, phi}, {0, 1, -phi}, {0, -1, phi}, {0, -1, -phi},
		{1, phi, 0}, {1, -phi, 0}, {-1, phi, 0}, {-1, -phi, 0},
		{phi, 0, 1}, {phi, 0, -1}, {-phi, 0, 1}, {-phi, 0, -1},
	}
}

func dist2(a, b vec3) float64 {
	dx, dy, dz := a.x-b.x, a.y-b.y, a.z-b.z
	return dx*dx + dy*dy + dz*dz
}

// icosahedronEdges returns the 30 shortest-distance vertex pairs (each
// vertex has degree 5) and an index from sorted vertex pair to edge id.
func icosahedronEdges(verts [12]vec3) ([][2]int, map[[2]int]int) {
	min := math.MaxFloat64
	for i := 0; i < 12; i++ {
		for j := i + 1; j < 12; j++ {
			if d := dist2(verts[i], verts[j]); d < min {
				min = d
			}
		}
	}
	var edges [][2]int
	index := make(map[[2]int]int)
	for i := 0; i < 12; i++ {
		for j := i + 1; j < 12; j++ {
			if math.Abs(dist2(verts[i], verts[j])-min) < 1e-6 {
				k := key2(i, j)
				index[k] = len(edges)
				edges = append(edges, [2]int{k[0], k[1]})
			}
		}
	}
	return edges, index
}

// edgeApexes returns, for each edge, the two "apex" vertices that
// complete its two adjacent icosahedron triangles (sorted ascending).
func edgeApexes(edges [][2]int, index map[[2]int]int) [][2]int {
	// adjacency list from the edge set itself
	adj := make(map[int][]int)
	for _, e := range edges {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}
	isEdge := func(a, b int) bool {
		_, ok := index[key2(a, b)]
		return ok
	}
	out := make([][2]int, len(edges))
	for ei, e := range edges {
		a, b := e[0], e[1]
		var apexes []int
		for _, c := range adj[a] {
			if c != b && isEdge(c, b) {
				apexes = append(apexes, c)
			}
		}
		if len(apexes) != 2 {
			panic("geometry: icosahedron edge did not have exactly two apexes")
		}
		if apexes[0] > apexes[1] {
			apexes[0], apexes[1] = apexes[1], apexes[0]
		}
		out[ei] = [2]int{apexes[0], apexes[1]}
	}
	return out
}
