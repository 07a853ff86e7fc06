// Package relstats implements the Relationship Statistics Catalog: a
// persisted, transactionally double-buffered map of per-table tuple counts
// and the monotonically increasing next relationship offset, consumed by
// the updater and the checkpointer.
package relstats

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/kasuganosora/kuzugraph/pkg/graphid"
	"github.com/kasuganosora/kuzugraph/pkg/kerr"
)

// PropertyStatistics holds per-property min/max/null-count statistics,
// supplementing spec.md's "per-property statistics" prose with the concrete
// shape the original's unordered_map<property_id_t, PropertyStatistics>
// carries.
type PropertyStatistics struct {
	Min      int64
	Max      int64
	NumNulls uint64
}

// RelTableStats is one table's entry in the catalog: its tuple count, the
// next offset to assign a new relationship, and per-property statistics.
type RelTableStats struct {
	NumRels        uint64
	NextRelOffset  graphid.Offset
	PropertyStats  map[graphid.PropertyID]*PropertyStatistics
}

func newRelTableStats() *RelTableStats {
	return &RelTableStats{PropertyStats: make(map[graphid.PropertyID]*PropertyStatistics)}
}

// snapshot is one of the two double-buffered views (read-only or write).
type snapshot struct {
	tables map[graphid.TableID]*RelTableStats
}

func newSnapshot() *snapshot {
	return &snapshot{tables: make(map[graphid.TableID]*RelTableStats)}
}

func (s *snapshot) clone() *snapshot {
	c := newSnapshot()
	for id, stats := range s.tables {
		copyStats := *stats
		copyStats.PropertyStats = make(map[graphid.PropertyID]*PropertyStatistics, len(stats.PropertyStats))
		for pid, ps := range stats.PropertyStats {
			psCopy := *ps
			copyStats.PropertyStats[pid] = &psCopy
		}
		c.tables[id] = &copyStats
	}
	return c
}

// TxnType selects which snapshot a caller's view is bound to.
type TxnType int

const (
	ReadOnly TxnType = iota
	Write
)

// Catalog is the double-buffered Rels Statistics Catalog for one database
// directory.
type Catalog struct {
	mu       sync.RWMutex
	readOnly *snapshot
	write    *snapshot
}

// New returns an empty catalog, used when starting from an empty directory.
func New() *Catalog {
	return &Catalog{readOnly: newSnapshot(), write: newSnapshot()}
}

// GetRelStatistics reads from the read-only snapshot. Returns nil if the
// table has no recorded statistics.
func (c *Catalog) GetRelStatistics(tableID graphid.TableID) *RelTableStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readOnly.tables[tableID]
}

// ensureWriteEntry returns (creating if necessary) the write snapshot's
// entry for tableID. Must be called with mu held.
func (c *Catalog) ensureWriteEntry(tableID graphid.TableID) *RelTableStats {
	stats, ok := c.write.tables[tableID]
	if !ok {
		stats = newRelTableStats()
		c.write.tables[tableID] = stats
	}
	return stats
}

// SetNumTuplesForTable overwrites the write snapshot's tuple count for a
// table.
func (c *Catalog) SetNumTuplesForTable(tableID graphid.TableID, numRels uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureWriteEntry(tableID).NumRels = numRels
}

// UpdateNumRelsByValue applies a signed delta to a table's tuple count in
// the write snapshot. The count must never underflow below zero.
func (c *Catalog) UpdateNumRelsByValue(tableID graphid.TableID, delta int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.ensureWriteEntry(tableID)
	newCount := int64(stats.NumRels) + delta
	if newCount < 0 {
		return kerr.InvariantViolation("num_rels for table %d would underflow below zero (current=%d, delta=%d)", tableID, stats.NumRels, delta)
	}
	stats.NumRels = uint64(newCount)
	return nil
}

// GetNextRelOffset returns the current next-offset from the snapshot bound
// to txnType.
func (c *Catalog) GetNextRelOffset(txnType TxnType, tableID graphid.TableID) graphid.Offset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := c.readOnly
	if txnType == Write {
		snap = c.write
	}
	stats, ok := snap.tables[tableID]
	if !ok {
		return 0
	}
	return stats.NextRelOffset
}

// IncreaseNextRelOffset bumps the write snapshot's next-offset by n. The
// caller is responsible for assigning the n reserved offsets.
func (c *Catalog) IncreaseNextRelOffset(tableID graphid.TableID, n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.ensureWriteEntry(tableID)
	stats.NextRelOffset += graphid.Offset(n)
}

// CommitSwap atomically replaces the read-only snapshot with a structural
// copy of the write snapshot, the pointer-exchange step of the commit
// protocol (spec.md §4.5 step 3).
func (c *Catalog) CommitSwap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readOnly = c.write.clone()
}

// Rollback discards the write snapshot's changes, reverting it to a copy of
// the current read-only snapshot.
func (c *Catalog) Rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.write = c.readOnly.clone()
}

// SaveToFile serializes the write snapshot: for each table,
// {table_id:u64, num_rels:u64, next_rel_offset:u64, num_properties:u32,
// property_stats[]}, each property_stats entry {property_id:u32, min:i64,
// max:i64, num_nulls:u64}.
func (c *Catalog) SaveToFile(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return kerr.IO(err, "failed to create stats file %s", path)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(len(c.write.tables))); err != nil {
		return kerr.IO(err, "failed to write table count")
	}

	for tableID, stats := range c.write.tables {
		if err := writeTableStats(f, tableID, stats); err != nil {
			return err
		}
	}
	return f.Sync()
}

func writeTableStats(f io.Writer, tableID graphid.TableID, stats *RelTableStats) error {
	fields := []interface{}{
		uint64(tableID),
		stats.NumRels,
		uint64(stats.NextRelOffset),
		uint32(len(stats.PropertyStats)),
	}
	for _, v := range fields {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return kerr.IO(err, "failed to write table %d stats", tableID)
		}
	}
	for propID, ps := range stats.PropertyStats {
		propFields := []interface{}{uint32(propID), ps.Min, ps.Max, ps.NumNulls}
		for _, v := range propFields {
			if err := binary.Write(f, binary.LittleEndian, v); err != nil {
				return kerr.IO(err, "failed to write property %d stats for table %d", propID, tableID)
			}
		}
	}
	return nil
}

// LoadFromFile reads a Catalog previously written by SaveToFile, populating
// both snapshots identically (the state a freshly opened database starts
// with before any writer diverges the write snapshot).
func LoadFromFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, kerr.IO(err, "failed to open stats file %s", path)
	}
	defer f.Close()

	var tableCount uint32
	if err := binary.Read(f, binary.LittleEndian, &tableCount); err != nil {
		return nil, kerr.IO(err, "failed to read table count")
	}

	snap := newSnapshot()
	for i := uint32(0); i < tableCount; i++ {
		tableID, stats, err := readTableStats(f)
		if err != nil {
			return nil, err
		}
		snap.tables[tableID] = stats
	}

	return &Catalog{readOnly: snap, write: snap.clone()}, nil
}

func readTableStats(f io.Reader) (graphid.TableID, *RelTableStats, error) {
	var tableID, numRels, nextRelOffset uint64
	var numProps uint32

	for _, dst := range []interface{}{&tableID, &numRels, &nextRelOffset, &numProps} {
		if err := binary.Read(f, binary.LittleEndian, dst); err != nil {
			return 0, nil, kerr.IO(err, "failed to read table stats header")
		}
	}

	stats := newRelTableStats()
	stats.NumRels = numRels
	stats.NextRelOffset = graphid.Offset(nextRelOffset)

	for i := uint32(0); i < numProps; i++ {
		var propID uint32
		ps := &PropertyStatistics{}
		if err := binary.Read(f, binary.LittleEndian, &propID); err != nil {
			return 0, nil, kerr.IO(err, "failed to read property id")
		}
		if err := binary.Read(f, binary.LittleEndian, &ps.Min); err != nil {
			return 0, nil, kerr.IO(err, "failed to read property min")
		}
		if err := binary.Read(f, binary.LittleEndian, &ps.Max); err != nil {
			return 0, nil, kerr.IO(err, "failed to read property max")
		}
		if err := binary.Read(f, binary.LittleEndian, &ps.NumNulls); err != nil {
			return 0, nil, kerr.IO(err, "failed to read property num_nulls")
		}
		stats.PropertyStats[graphid.PropertyID(propID)] = ps
	}

	return graphid.TableID(tableID), stats, nil
}
