package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewValueVector(t *testing.T) {
	v := NewValueVector(4)
	assert.Equal(t, 4, v.Len())
	for i := 0; i < 4; i++ {
		assert.False(t, v.IsNull(i))
	}
}

func TestSetAndGet(t *testing.T) {
	v := NewValueVector(3)
	v.Set(0, int64(42))
	v.Set(1, "hello")

	assert.Equal(t, int64(42), v.Get(0))
	assert.Equal(t, "hello", v.Get(1))
	assert.Nil(t, v.Get(2))
}

func TestSetNull(t *testing.T) {
	v := NewValueVector(2)
	v.Set(0, int64(1))
	v.SetNull(0)

	assert.True(t, v.IsNull(0))
	assert.Nil(t, v.Get(0))
}

func TestFlatStatePos(t *testing.T) {
	s := NewFlatState(10)
	assert.Equal(t, 10, s.OriginalSize)
	assert.Equal(t, 10, s.SelectedSize)
	assert.Equal(t, 5, s.Pos(5))
}

func TestFilteredStatePos(t *testing.T) {
	s := &State{OriginalSize: 10, SelectedSize: 3, SelectedPositions: []int{1, 4, 7}}
	assert.Equal(t, 4, s.Pos(1))
}
