package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_Basics(t *testing.T) {
	s := NewState()
	assert.Equal(t, 0, s.Len())

	_, ok := s.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, s.Value("missing"))

	s.Set("k", 42)
	v, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.True(t, s.Has("k"))

	s.Set("k", "replaced")
	assert.Equal(t, "replaced", s.Value("k"))

	s.Delete("k")
	assert.False(t, s.Has("k"))
}

func TestState_ValuesIsACopy(t *testing.T) {
	s := NewStateFrom(map[string]any{"a": 1})

	values := s.Values()
	values["a"] = 99
	values["b"] = 2

	assert.Equal(t, 1, s.Value("a"))
	assert.False(t, s.Has("b"))
}
