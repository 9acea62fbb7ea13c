// Package entities holds the mobile and ambient world state that lives
// alongside buildings: the shift cycle, wild and captured creatures,
// hiss corruption and its entities, world events, territory claims, and
// per-owner research progress. Everything here is mutated only by the
// tick thread.
package entities

import (
	"math"

	"github.com/sphericsim/worldcore/internal/geometry"
)

// Phase is the quadrant of the shift cycle the sun angle is in.
type Phase string

const (
	PhaseDawn   Phase = "dawn"
	PhaseZenith Phase = "zenith"
	PhaseDusk   Phase = "dusk"
	PhaseNadir  Phase = "nadir"
)

// ShiftCycle tracks the sun's angle around the world and the resulting
// day phase. The angle advances one step every TicksPerStep ticks; a
// full revolution takes 2400 ticks.
type ShiftCycle struct {
	SunAngle     float64
	Phase        Phase
	PhaseTick    int
	TicksPerStep int
	Subdivisions int
}

// NewShiftCycle returns a cycle at dawn with the sun at angle zero.
func NewShiftCycle(ticksPerStep, subdivisions int) *ShiftCycle {
	return &ShiftCycle{
		Phase:        PhaseDawn,
		TicksPerStep: ticksPerStep,
		Subdivisions: subdivisions,
	}
}

// Step advances the cycle by one tick. It returns the new phase and
// true when the phase changed this tick, so the tick processor can emit
// a phase-change event.
func (s *ShiftCycle) Step(tick uint64) (Phase, bool) {
	s.PhaseTick++
	if s.TicksPerStep > 0 && tick%uint64(s.TicksPerStep) == 0 {
		s.SunAngle += 2 * math.Pi * float64(s.TicksPerStep) / 2400
		if s.SunAngle >= 2*math.Pi {
			s.SunAngle -= 2 * math.Pi
		}
	}
	next := phaseOf(s.SunAngle)
	if next != s.Phase {
		s.Phase = next
		s.PhaseTick = 0
		return next, true
	}
	return next, false
}

func phaseOf(angle float64) Phase {
	switch {
	case angle < math.Pi/2:
		return PhaseDawn
	case angle < math.Pi:
		return PhaseZenith
	case angle < 3*math.Pi/2:
		return PhaseDusk
	default:
		return PhaseNadir
	}
}

// SunDirection is the unit vector pointing from the world centre toward
// the sun. The sun orbits in the XZ plane.
func (s *ShiftCycle) SunDirection() geometry.Vec3 {
	return geometry.Vec3{X: math.Cos(s.SunAngle), Y: 0, Z: math.Sin(s.SunAngle)}
}

// Illumination returns the light level on a tile in [0, 1]: the dot of
// the tile's outward direction against the sun direction, tilted
// slightly toward the equator so the poles never fully saturate.
func (s *ShiftCycle) Illumination(k geometry.Key) float64 {
	pos := geometry.TileWorldPosition(k, s.Subdivisions)
	tilt := 0.1 * (1 - math.Abs(pos.Y))
	v := pos.Dot(s.SunDirection()) + tilt
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FaceIllumination returns the average light level on a face, sampled
// at the face centre (the rim deflection averages out).
func (s *ShiftCycle) FaceIllumination(face int) float64 {
	n := geometry.FaceNormal(face)
	tilt := 0.1 * (1 - math.Abs(n.Y))
	v := n.Dot(s.SunDirection()) + tilt
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FaceDark reports whether a face's average illumination is below the
// given threshold.
func (s *ShiftCycle) FaceDark(face int, threshold float64) bool {
	return s.FaceIllumination(face) < threshold
}
