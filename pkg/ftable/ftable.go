// Package ftable implements the Factorized Tuple Buffer: a row-oriented,
// columnar-schema buffer used to stage transaction-local data (inserted
// relationships and per-property update values) before it is merged into
// query results or discarded on rollback.
package ftable

import (
	"github.com/kasuganosora/kuzugraph/pkg/kerr"
)

// Table is an append-only, row-oriented buffer with a fixed number of
// columns. Rows are addressed by their insertion-order index (tuple_idx).
type Table struct {
	numCols int
	rows    [][]interface{}
}

// New allocates an empty Table with the given number of columns.
func New(numCols int) *Table {
	return &Table{numCols: numCols}
}

// NumCols returns the table's column count.
func (t *Table) NumCols() int {
	return t.numCols
}

// NumRows returns the number of rows currently staged.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// Append adds a new row and returns its tuple index.
func (t *Table) Append(values []interface{}) (int, error) {
	if len(values) != t.numCols {
		return 0, kerr.Logic("ftable.Append: expected %d columns, got %d", t.numCols, len(values))
	}
	row := make([]interface{}, t.numCols)
	copy(row, values)
	t.rows = append(t.rows, row)
	return len(t.rows) - 1, nil
}

// Lookup returns the full row at tupleIdx.
func (t *Table) Lookup(tupleIdx int) ([]interface{}, error) {
	if tupleIdx < 0 || tupleIdx >= len(t.rows) {
		return nil, kerr.Logic("ftable.Lookup: tuple index %d out of range [0, %d)", tupleIdx, len(t.rows))
	}
	return t.rows[tupleIdx], nil
}

// GetCell returns a single column's value for a row.
func (t *Table) GetCell(tupleIdx, colIdx int) (interface{}, error) {
	row, err := t.Lookup(tupleIdx)
	if err != nil {
		return nil, err
	}
	if colIdx < 0 || colIdx >= t.numCols {
		return nil, kerr.Logic("ftable.GetCell: column index %d out of range [0, %d)", colIdx, t.numCols)
	}
	return row[colIdx], nil
}

// UpdateFlatCell overwrites a single column's value for an existing row, the
// path used to edit a staged insert in place when the same transaction later
// updates one of its properties.
func (t *Table) UpdateFlatCell(tupleIdx, colIdx int, value interface{}) error {
	if tupleIdx < 0 || tupleIdx >= len(t.rows) {
		return kerr.Logic("ftable.UpdateFlatCell: tuple index %d out of range [0, %d)", tupleIdx, len(t.rows))
	}
	if colIdx < 0 || colIdx >= t.numCols {
		return kerr.Logic("ftable.UpdateFlatCell: column index %d out of range [0, %d)", colIdx, t.numCols)
	}
	t.rows[tupleIdx][colIdx] = value
	return nil
}

// FindValueInFlatColumn does a linear scan of colIdx for value, returning
// the first matching row index, or -1 if none match. Used to locate a
// staged rel by rel_id; the rel_id column is guaranteed unique within the
// staging set.
func (t *Table) FindValueInFlatColumn(colIdx int, value interface{}) (int, error) {
	if colIdx < 0 || colIdx >= t.numCols {
		return -1, kerr.Logic("ftable.FindValueInFlatColumn: column index %d out of range [0, %d)", colIdx, t.numCols)
	}
	for idx, row := range t.rows {
		if row[colIdx] == value {
			return idx, nil
		}
	}
	return -1, nil
}

// DeleteRow removes the row at tupleIdx, shifting later rows down by one
// (erase-remove idiom). The Lists Update Store does not call it: deleting a
// staged insert leaves its row in place. Callers holding tuple indices into rows after tupleIdx
// must recompute them after a delete.
func (t *Table) DeleteRow(tupleIdx int) error {
	if tupleIdx < 0 || tupleIdx >= len(t.rows) {
		return kerr.Logic("ftable.DeleteRow: tuple index %d out of range [0, %d)", tupleIdx, len(t.rows))
	}
	t.rows = append(t.rows[:tupleIdx], t.rows[tupleIdx+1:]...)
	return nil
}
