package geometry

import "math"

// Vec3 is a point or direction in the polyhedron's model space. The
// polyhedron is centred on the origin with unit-ish scale; callers only
// ever take dot products against unit vectors, so absolute scale is
// irrelevant.
type Vec3 struct {
	X, Y, Z float64
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Normalized returns the unit vector in v's direction.
func (v Vec3) Normalized() Vec3 {
	l := math.Sqrt(v.Dot(v))
	if l == 0 {
		return v
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

func normalize(v vec3) vec3 {
	l := math.Sqrt(v.x*v.x + v.y*v.y + v.z*v.z)
	return vec3{v.x / l, v.y / l, v.z / l}
}

// FaceNormal returns the unit vector from the polyhedron's centre
// through face f's centre. Used by the world generator's latitude-based
// biome assignment and by shift-cycle illumination.
func FaceNormal(f int) Vec3 {
	c := faceCentroidDir[f]
	return Vec3{c.x, c.y, c.z}
}

// faceTangents[f] is an orthonormal tangent basis for face f: the first
// vector points along increasing column, the second along increasing
// row. Derived once from the face normal; any consistent choice works
// because only relative in-face offsets matter.
var faceTangents [FaceCount][2]Vec3

func init() {
	for f := 0; f < FaceCount; f++ {
		n := FaceNormal(f)
		// Seed the tangent frame with whichever of the X and Y axes is
		// less aligned with the normal.
		ref := Vec3{1, 0, 0}
		if math.Abs(n.X) > math.Abs(n.Y) {
			ref = Vec3{0, 1, 0}
		}
		u := cross(ref, n).Normalized()
		v := cross(n, u)
		faceTangents[f] = [2]Vec3{u, v}
	}
}

func cross(a, b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// TileWorldPosition returns the unit vector through the centre of a
// tile on an n x n face grid. Tiles near the face centre sit on the
// face normal; tiles toward the rim lean toward the face's edges. The
// shift cycle dots this against the sun direction for per-tile
// illumination.
func TileWorldPosition(k Key, n int) Vec3 {
	normal := FaceNormal(k.Face)
	u, v := faceTangents[k.Face][0], faceTangents[k.Face][1]
	// Offsets in [-0.5, 0.5) across the face, scaled so the rim of the
	// face deflects the direction but never dominates it.
	du := (float64(k.Col)+0.5)/float64(n) - 0.5
	dv := (float64(k.Row)+0.5)/float64(n) - 0.5
	const rim = 0.45
	p := Vec3{
		normal.X + rim*(du*u.X+dv*v.X),
		normal.Y + rim*(du*u.Y+dv*v.Y),
		normal.Z + rim*(du*u.Z+dv*v.Z),
	}
	return p.Normalized()
}
