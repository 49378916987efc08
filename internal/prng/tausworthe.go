// Package prng implements the engine's own seedable pseudo-random source,
// used by the Random replacement strategy (spec §4.C) rather than reaching
// for math/rand's global generator, which the concurrency model (§5)
// requires to be per-thread or externally synchronized.
//
// No example in the retrieved corpus implements a combined Tausworthe
// generator, so this is hand-rolled against the well-known combined-LFSR
// construction (seven component shift registers, XOR-combined) rather
// than adopting a
// third-party dependency — see DESIGN.md.
package prng

// Source is a combined seven-register Tausworthe-style generator.
// Each register is advanced by a simple LFSR recurrence and the engine's
// output is the XOR of all seven registers. It is not cryptographically
// secure; it exists to give the Random replacement strategy deterministic,
// seedable, per-thread behavior.
type Source struct {
	regs [7]uint32
}

// taps holds, for each register r, the parameters of its step in Next:
// b = ((r << shiftA) ^ r) >> shiftB, then r = ((r & mask) << shiftC) ^ b.
var taps = [7]struct {
	shiftA, shiftB, shiftC uint32
	mask                   uint32
}{
	{13, 19, 12, 4294967294},
	{2, 25, 4, 4294967288},
	{3, 11, 17, 4294967280},
	{5, 9, 16, 4294967168},
	{7, 13, 10, 4294966784},
	{11, 17, 4, 4294965248},
	{17, 23, 7, 4294901760},
}

// New constructs a Source seeded from a single uint64. A zero seed is
// remapped to a fixed nonzero constant since an all-zero register never
// leaves the zero state under XOR-shift recurrence.
func New(seed uint64) *Source {
	s := &Source{}
	s.Seed(seed)
	return s
}

// Seed reinitializes every register from seed, spreading the bits across
// all seven registers so that related seeds diverge quickly.
func (s *Source) Seed(seed uint64) {
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	mix := seed
	for i := range s.regs {
		mix = mix*6364136223846793005 + 1442695040888963407
		v := uint32(mix ^ (mix >> 32))
		if v < 128 {
			v += 128
		}
		s.regs[i] = v
	}
}

// Next returns the next pseudo-random uint32 in the sequence.
func (s *Source) Next() uint32 {
	var out uint32
	for i, t := range taps {
		b := ((s.regs[i] << t.shiftA) ^ s.regs[i]) >> t.shiftB
		s.regs[i] = ((s.regs[i] & t.mask) << t.shiftC) ^ b
		out ^= s.regs[i]
	}
	return out
}

// Intn returns a pseudo-random integer in [0, n). Panics if n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("prng: Intn called with n <= 0")
	}
	return int(s.Next() % uint32(n))
}
