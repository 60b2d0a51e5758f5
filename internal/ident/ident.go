// Package ident allocates identifiers and palette colors for new entities.
package ident

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// IDLength is the length of generated identifiers. Ten base-36 characters
// hold about 51 bits, enough for a local ledger of a few thousand entities.
const IDLength = 10

// Generator hands out opaque identifiers.
type Generator interface {
	NewID() string
}

// Random draws identifiers from random UUIDs rendered in base 36.
type Random struct{}

func (Random) NewID() string {
	u := uuid.New()
	// Byte 8 carries the variant bits: shift it out and fill with byte 0.
	n := binary.BigEndian.Uint64(u[8:16])<<8 | uint64(u[0])
	s := strconv.FormatUint(n, 36)
	for len(s) < IDLength {
		s = "0" + s
	}
	return s[len(s)-IDLength:]
}

// Sequence returns prefix1, prefix2, ... and is meant for tests.
type Sequence struct {
	mu     sync.Mutex
	Prefix string
	n      int
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{Prefix: prefix}
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%d", s.Prefix, s.n)
}

// ColorFor returns the palette color of the index-th wallet.
func ColorFor(index int) core.Color {
	return core.ColorAt(index)
}
