// Package vector provides the minimal columnar ValueVector substrate the
// storage packages read from and write to. The full vectorized expression
// evaluator and kernels are out of scope (spec.md §1); this is only the
// contract listsupdate needs: a fixed-capacity column of values
// with a selection state and a null mask, addressable by the same "original
// size"/"current size" split the original's DataChunkState uses to let a
// read-merge bound itself against however much of the vector is in play.
package vector

// State describes how many of a vector's slots are currently selected and
// how many existed before any filtering was applied, mirroring the
// original's DataChunkState distinction between selectedSize and the
// vector's full backing size.
type State struct {
	// OriginalSize is the vector's full backing capacity before selection.
	OriginalSize int
	// SelectedSize is how many of those slots are currently in play.
	SelectedSize int
	// SelectedPositions holds the selected indices when the vector is
	// filtered; nil means "the first SelectedSize positions, unfiltered".
	SelectedPositions []int
}

// NewFlatState returns a State describing an unfiltered vector of the given
// size.
func NewFlatState(size int) *State {
	return &State{OriginalSize: size, SelectedSize: size}
}

// Pos returns the backing index for the i-th selected position.
func (s *State) Pos(i int) int {
	if s.SelectedPositions == nil {
		return i
	}
	return s.SelectedPositions[i]
}

// ValueVector is a single column of values of a fixed Go type, with a
// parallel null-bit mask and a State describing the current selection.
type ValueVector struct {
	Values   []interface{}
	Nulls    []bool
	State    *State
}

// NewValueVector allocates a ValueVector with capacity, all slots non-null
// and an unfiltered flat state.
func NewValueVector(capacity int) *ValueVector {
	return &ValueVector{
		Values: make([]interface{}, capacity),
		Nulls:  make([]bool, capacity),
		State:  NewFlatState(capacity),
	}
}

// Get returns the value at the given backing (not selected) index.
func (v *ValueVector) Get(idx int) interface{} {
	if v.Nulls[idx] {
		return nil
	}
	return v.Values[idx]
}

// Set assigns the value at the given backing index, clearing its null bit.
func (v *ValueVector) Set(idx int, value interface{}) {
	v.Values[idx] = value
	v.Nulls[idx] = false
}

// SetNull marks the given backing index as null.
func (v *ValueVector) SetNull(idx int) {
	v.Nulls[idx] = true
	v.Values[idx] = nil
}

// IsNull reports whether the given backing index is null.
func (v *ValueVector) IsNull(idx int) bool {
	return v.Nulls[idx]
}

// Len returns the vector's backing capacity.
func (v *ValueVector) Len() int {
	return len(v.Values)
}
