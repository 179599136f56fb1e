package id

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"hash"
	"sync"
)

// Generator produces ring identifiers from arbitrary strings, used to place
// both nodes (hashing their broadcast address) and keys (hashing their
// external name) on the identifier space.
type Generator interface {
	Get(s string) ID
}

// NewGenerator returns an ID generator that derives IDs from an MD5 hash of
// the input, folding the 128-bit digest down into a 64-bit ring identifier.
func NewGenerator() Generator {
	var g generator
	g.pool.New = func() interface{} { return md5.New() }
	return &g
}

type generator struct {
	pool sync.Pool
}

func (g *generator) Get(s string) ID {
	h := g.pool.Get().(hash.Hash)
	defer g.pool.Put(h)

	h.Reset()
	fmt.Fprint(h, s)

	sum := h.Sum(nil)
	var (
		low  = binary.BigEndian.Uint64(sum[8:])
		high = binary.BigEndian.Uint64(sum[:8])
	)
	return ID(high ^ low)
}
