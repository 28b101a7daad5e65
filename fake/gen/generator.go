// Package gen produces repeatable random values in skewed distributions, for
// building synthetic song catalogs and listening logs.
package gen

import (
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"hash"
	"math/rand"
	"time"
)

// Generator holds state for generating random data in certain distributions.
// It is not safe for concurrent use.
type Generator struct {
	r     *rand.Rand
	zs    map[int]*rand.Zipf
	times map[time.Time]time.Duration
	hsh   hash.Hash
}

// NewGenerator gets a new Generator. The same seed gives the same series of
// values on a given version of Go.
func NewGenerator(seed int64) *Generator {
	r := rand.New(rand.NewSource(seed))
	return &Generator{
		r:     r,
		zs:    make(map[int]*rand.Zipf),
		times: make(map[time.Time]time.Duration),
		hsh:   sha1.New(),
	}
}

// String gets a zipfian random string from a set with the given cardinality.
// The strings are upper case base32, which suits song and artist ids.
func (g *Generator) String(length, cardinality int) string {
	return g.ID(length, g.Uint64(cardinality))
}

// ID deterministically maps n to a base32 string of the given length (<=32).
func (g *Generator) ID(length int, n uint64) string {
	if length > 32 {
		length = 32
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	_, _ = g.hsh.Write(b) // no need to check err
	hashed := g.hsh.Sum(nil)
	g.hsh.Reset()
	return base32.StdEncoding.EncodeToString(hashed)[:length]
}

// Uint64 gets a zipfian random uint64 with the given cardinality.
func (g *Generator) Uint64(cardinality int) uint64 {
	if cardinality <= 1 {
		return 0
	}
	z, ok := g.zs[cardinality]
	if !ok {
		// rand.Zipf generates values in [0, imax], so subtract one to get
		// [0, cardinality) like rand.Intn.
		imax := uint64(cardinality) - 1
		v := 0.05 * float64(imax)
		if v < 1.0 {
			v = 1.0
		}
		z = rand.NewZipf(g.r, 1.1, v, imax)
		g.zs[cardinality] = z
	}
	return z.Uint64()
}

// Intn returns a uniform random int in [0, n).
func (g *Generator) Intn(n int) int { return g.r.Intn(n) }

// Float64 returns a uniform random float in [min, max).
func (g *Generator) Float64(min, max float64) float64 {
	return min + g.r.Float64()*(max-min)
}

// Chance returns true with probability p.
func (g *Generator) Chance(p float64) bool { return g.r.Float64() < p }

// Pick returns a uniformly chosen element of list.
func (g *Generator) Pick(list []string) string { return list[g.r.Intn(len(list))] }

// Time returns a time increasing from the "from" time with a random delta.
func (g *Generator) Time(from time.Time, maxDelta time.Duration) time.Time {
	delta := g.times[from] + time.Duration(g.r.Uint64()%uint64(maxDelta))
	g.times[from] = delta
	return from.Add(delta)
}
