/*
Package rng provides a deterministic pseudo-random stream keyed by a string seed.

Bytes are drawn from successive HMAC-SHA256 rounds keyed by the seed, so an
identical seed yields an identical sequence on every platform. Floats are built
from four bytes each, giving values in [0, 1).
*/
package rng

import (
	"crypto/hmac"
	"crypto/sha256"
	"strconv"
)

const roundSize = sha256.Size

// Source is a seeded random stream. It is not safe for concurrent use.
type Source struct {
	seed   string
	round  uint64
	pos    int
	buffer [roundSize]byte
}

// New creates a Source for the given seed.
func New(seed string) *Source {
	s := &Source{seed: seed}
	s.generateRound()
	return s
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() string {
	return s.seed
}

// Float64 returns the next float in [0, 1).
func (s *Source) Float64() float64 {
	result := 0.0
	divider := 1.0
	for i := 0; i < 4; i++ {
		divider *= 256
		result += float64(s.next()) / divider
	}
	return result
}

// Intn returns a uniformly drawn int in [0, n). It panics if n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("rng: invalid argument to Intn")
	}
	v := int(s.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// next returns the next byte, advancing to a fresh round when the buffer is spent.
func (s *Source) next() byte {
	if s.pos >= roundSize {
		s.round++
		s.pos = 0
		s.generateRound()
	}
	b := s.buffer[s.pos]
	s.pos++
	return b
}

func (s *Source) generateRound() {
	h := hmac.New(sha256.New, []byte(s.seed))
	h.Write([]byte(strconv.FormatUint(s.round, 10)))
	copy(s.buffer[:], h.Sum(nil))
}

// Float64er is the minimal random source consumed by the generators.
type Float64er interface {
	Float64() float64
}

// Intn draws an int in [0, n) from any Float64er.
func Intn(r Float64er, n int) int {
	v := int(r.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// Shuffle performs a Fisher-Yates shuffle of n elements using r.
func Shuffle(r Float64er, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := Intn(r, i+1)
		swap(i, j)
	}
}

// Perm returns a random permutation of [0, n).
func Perm(r Float64er, n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	Shuffle(r, n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}
