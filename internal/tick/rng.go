package tick

import (
	"hash/fnv"
	"math/rand"
)

// subStream returns a deterministic RNG for one subsystem on one tick,
// derived from (world seed, tick, subsystem name). Each subsystem draws
// from its own stream so adding or removing a draw in one never
// perturbs another (§4.E.3).
func subStream(worldSeed, tick uint64, subsystem string) *rand.Rand {
	h := fnv.New64a()
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(worldSeed >> (8 * i))
		buf[8+i] = byte(tick >> (8 * i))
	}
	h.Write(buf[:])
	h.Write([]byte(subsystem))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
