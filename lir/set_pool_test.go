package lir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPoolInterning(t *testing.T) {
	p := NewSetPool()

	a := p.Intern([]ValueID{3, 1, 2})
	b := p.Intern([]ValueID{2, 3, 1, 1})
	c := p.Intern([]ValueID{1, 2})

	assert.Equal(t, a, b, "same content must share one identity")
	assert.NotEqual(t, a, c)

	assert.Equal(t, []ValueID{1, 2, 3}, p.Values(a))
	assert.Equal(t, 3, p.Len(a))
	assert.True(t, p.Contains(a, 2))
	assert.False(t, p.Contains(c, 3))
}

func TestSetPoolEmptySet(t *testing.T) {
	p := NewSetPool()
	a := p.Intern(nil)
	b := p.Intern([]ValueID{})
	assert.Equal(t, a, b)
	assert.Equal(t, 0, p.Len(a))
}

func TestSetPoolIterationOrderStable(t *testing.T) {
	p := NewSetPool()
	id := p.Intern([]ValueID{9, 4, 7})
	first := append([]ValueID(nil), p.Values(id)...)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, p.Values(id))
	}
}
