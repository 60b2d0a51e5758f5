package ident

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

var base36 = regexp.MustCompile(`^[0-9a-z]+$`)

func TestRandomIDShape(t *testing.T) {
	var g Random
	for i := 0; i < 100; i++ {
		id := g.NewID()
		require.Len(t, id, IDLength)
		require.Truef(t, base36.MatchString(id), "id %q is not base 36", id)
	}
}

func TestRandomIDsAreDistinct(t *testing.T) {
	var g Random
	seen := make(map[string]struct{}, 5000)
	for i := 0; i < 5000; i++ {
		id := g.NewID()
		_, dup := seen[id]
		require.Falsef(t, dup, "duplicate id %q after %d draws", id, i)
		seen[id] = struct{}{}
	}
}

func TestSequence(t *testing.T) {
	s := NewSequence("w")
	assert.Equal(t, "w1", s.NewID())
	assert.Equal(t, "w2", s.NewID())
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, core.Palette[0], ColorFor(0))
	assert.Equal(t, core.Palette[1], ColorFor(1))
	assert.Equal(t, core.Palette[0], ColorFor(len(core.Palette)))
}
