// Package listsupdate implements the Lists Update Store: a transaction-local
// staging buffer that captures inserts, deletes, and in-place updates
// targeting the per-node adjacency/property lists of relationship tables,
// indexed by relationship direction, bound-node table, chunk, and node
// offset. Grounded directly on lists_update_store.cpp.
package listsupdate

import (
	"github.com/kasuganosora/kuzugraph/pkg/ftable"
	"github.com/kasuganosora/kuzugraph/pkg/graphid"
	"github.com/kasuganosora/kuzugraph/pkg/kerr"
	"github.com/kasuganosora/kuzugraph/pkg/vector"
)

// Column indices within ftOfInsertedRels: src/dst node id, then the rel's
// own id (needed to relocate a staged insert by rel_id), then properties.
const (
	SrcNodeIDColIdx = 0
	DstNodeIDColIdx = 1
	RelIDColIdx     = 2
	firstPropColIdx = 3
)

// UpdatedPersistentListOffsets maps a persistent list's offsets to the
// ft_tuple_idx in a per-property factorized table holding the staged value
// that overrides it.
type UpdatedPersistentListOffsets struct {
	ListOffsetFTIdxMap map[uint64]int
}

func newUpdatedPersistentListOffsets() *UpdatedPersistentListOffsets {
	return &UpdatedPersistentListOffsets{ListOffsetFTIdxMap: make(map[uint64]int)}
}

// HasUpdates reports whether any offset has a staged override.
func (u *UpdatedPersistentListOffsets) HasUpdates() bool {
	return len(u.ListOffsetFTIdxMap) > 0
}

// InsertOffset records that listOffset's current value is overridden by
// ftTupleIdx's row in the owning property's update table.
func (u *UpdatedPersistentListOffsets) InsertOffset(listOffset uint64, ftTupleIdx int) {
	u.ListOffsetFTIdxMap[listOffset] = ftTupleIdx
}

// ForNodeOffset is the staged state for one bound node within one
// (direction, table): its newly-added flag, staged inserts, staged
// deletions, and per-property offset overrides.
type ForNodeOffset struct {
	IsNewlyAddedNode             bool
	InsertedRelsTupleIdxInFT     []int
	DeletedRelIDs                map[graphid.RelID]struct{}
	UpdatedPersistentListOffsets map[graphid.PropertyID]*UpdatedPersistentListOffsets
}

func newForNodeOffset(properties []graphid.PropertyID) *ForNodeOffset {
	f := &ForNodeOffset{
		DeletedRelIDs:                make(map[graphid.RelID]struct{}),
		UpdatedPersistentListOffsets: make(map[graphid.PropertyID]*UpdatedPersistentListOffsets, len(properties)),
	}
	for _, p := range properties {
		f.UpdatedPersistentListOffsets[p] = newUpdatedPersistentListOffsets()
	}
	return f
}

// HasUpdates reports whether this node carries any staged change at all.
func (f *ForNodeOffset) HasUpdates() bool {
	for _, u := range f.UpdatedPersistentListOffsets {
		if u.HasUpdates() {
			return true
		}
	}
	return f.IsNewlyAddedNode || len(f.InsertedRelsTupleIdxInFT) > 0 || len(f.DeletedRelIDs) > 0
}

// TableSchema describes the shape of one relationship table this store
// stages updates for: its properties, and which bound tables/directions
// store lists (as opposed to columns) for this table.
type TableSchema struct {
	Properties []graphid.PropertyID
	// BoundTableIDs[dir] lists the node tables bound in direction dir that
	// are stored as lists (and therefore need staging here).
	BoundTableIDs map[graphid.Direction][]graphid.TableID
}

type chunkMap = map[uint64]map[graphid.Offset]*ForNodeOffset

// Store is the Lists Update Store for a single relationship table.
type Store struct {
	schema TableSchema

	// perTablePerDirection[dir][tableID] -> chunkIdx -> nodeOffset -> record.
	perTablePerDirection [2]map[graphid.TableID]chunkMap

	ftOfInsertedRels   *ftable.Table
	listsUpdates       map[graphid.PropertyID]*ftable.Table
	propertyIDToColIdx map[graphid.PropertyID]int
}

// New builds a Store for a relationship table with the given schema.
func New(schema TableSchema) *Store {
	s := &Store{
		schema:             schema,
		listsUpdates:       make(map[graphid.PropertyID]*ftable.Table, len(schema.Properties)),
		propertyIDToColIdx: make(map[graphid.PropertyID]int, len(schema.Properties)),
	}

	colIdx := firstPropColIdx
	for _, p := range schema.Properties {
		s.propertyIDToColIdx[p] = colIdx
		colIdx++
		s.listsUpdates[p] = ftable.New(1)
	}
	s.ftOfInsertedRels = ftable.New(colIdx)

	for _, dir := range []graphid.Direction{graphid.FWD, graphid.BWD} {
		s.perTablePerDirection[dir] = make(map[graphid.TableID]chunkMap)
		for _, tableID := range schema.BoundTableIDs[dir] {
			s.perTablePerDirection[dir][tableID] = make(chunkMap)
		}
	}
	return s
}

// qualifies reports whether direction dir stores lists for boundTableID.
func (s *Store) qualifies(dir graphid.Direction, boundTableID graphid.TableID) bool {
	_, ok := s.perTablePerDirection[dir][boundTableID]
	return ok
}

func (s *Store) boundNodeID(dir graphid.Direction, src, dst graphid.NodeID) graphid.NodeID {
	if dir == graphid.FWD {
		return src
	}
	return dst
}

// getOrCreate returns (creating if necessary) the staged record for a bound
// node, returning an InvariantViolation error if the direction/table doesn't
// qualify (callers must check qualifies first).
func (s *Store) getOrCreate(dir graphid.Direction, nodeID graphid.NodeID) (*ForNodeOffset, error) {
	perChunk, ok := s.perTablePerDirection[dir][nodeID.TableID]
	if !ok {
		return nil, kerr.InvariantViolation("table %d is not registered as list-stored for direction %s", nodeID.TableID, dir)
	}
	chunkIdx, _ := graphid.ChunkIndex(nodeID.Offset)
	perNode, ok := perChunk[chunkIdx]
	if !ok {
		perNode = make(map[graphid.Offset]*ForNodeOffset)
		perChunk[chunkIdx] = perNode
	}
	rec, ok := perNode[nodeID.Offset]
	if !ok {
		rec = newForNodeOffset(s.schema.Properties)
		perNode[nodeID.Offset] = rec
	}
	return rec, nil
}

// getIfExists returns the staged record for (dir, tableID, offset) or nil if
// absent, without creating one.
func (s *Store) getIfExists(dir graphid.Direction, tableID graphid.TableID, offset graphid.Offset) *ForNodeOffset {
	perChunk, ok := s.perTablePerDirection[dir][tableID]
	if !ok {
		return nil
	}
	chunkIdx, _ := graphid.ChunkIndex(offset)
	perNode, ok := perChunk[chunkIdx]
	if !ok {
		return nil
	}
	return perNode[offset]
}

// InsertRel stages the insertion of a new relationship. propertyValues must
// align 1:1 with schema.Properties.
func (s *Store) InsertRel(src, dst graphid.NodeID, relID graphid.RelID, propertyValues []interface{}) error {
	if len(propertyValues) != len(s.schema.Properties) {
		return kerr.Logic("InsertRel: expected %d property values, got %d", len(s.schema.Properties), len(propertyValues))
	}

	row := make([]interface{}, 0, firstPropColIdx+len(propertyValues))
	row = append(row, src, dst, relID)
	row = append(row, propertyValues...)

	hasInserted := false
	tupleIdx := -1
	for _, dir := range []graphid.Direction{graphid.FWD, graphid.BWD} {
		bound := s.boundNodeID(dir, src, dst)
		if !s.qualifies(dir, bound.TableID) {
			continue
		}
		if !hasInserted {
			idx, err := s.ftOfInsertedRels.Append(row)
			if err != nil {
				return err
			}
			tupleIdx = idx
			hasInserted = true
		}
		rec, err := s.getOrCreate(dir, bound)
		if err != nil {
			return err
		}
		rec.InsertedRelsTupleIdxInFT = append(rec.InsertedRelsTupleIdxInFT, tupleIdx)
	}
	return nil
}

// DeleteRel stages the deletion of relID. If relID was itself a staged
// insert in this transaction, its insert is undone (no reuse of its FT
// row); otherwise relID is added to the node's deletion set for the
// persistent store.
func (s *Store) DeleteRel(src, dst graphid.NodeID, relID graphid.RelID) error {
	tupleIdx, err := s.ftOfInsertedRels.FindValueInFlatColumn(RelIDColIdx, relID)
	if err != nil {
		return err
	}

	for _, dir := range []graphid.Direction{graphid.FWD, graphid.BWD} {
		bound := s.boundNodeID(dir, src, dst)
		if !s.qualifies(dir, bound.TableID) {
			continue
		}

		if tupleIdx != -1 {
			rec, err := s.getOrCreate(dir, bound)
			if err != nil {
				return err
			}
			removed := false
			filtered := rec.InsertedRelsTupleIdxInFT[:0]
			for _, idx := range rec.InsertedRelsTupleIdxInFT {
				if idx == tupleIdx {
					removed = true
					continue
				}
				filtered = append(filtered, idx)
			}
			if !removed {
				return kerr.InvariantViolation("rel_id %d resolved to a staged insert but was not recorded for bound node %s direction %s", relID, bound, dir)
			}
			rec.InsertedRelsTupleIdxInFT = filtered
		} else {
			rec, err := s.getOrCreate(dir, bound)
			if err != nil {
				return err
			}
			rec.DeletedRelIDs[relID] = struct{}{}
		}
	}
	return nil
}

// UpdateInfo carries the parameters of a single property update, mirroring
// the original's ListsUpdateInfo.
type UpdateInfo struct {
	PropertyID                graphid.PropertyID
	RelID                     graphid.RelID
	IsStoredInPersistentStore bool
	FwdListOffset             uint64
	BwdListOffset             uint64
	PropertyValue             interface{}
}

// UpdateRel stages a property update. If the target rel is itself a staged
// insert, its FT cell is overwritten in place; otherwise the new value is
// appended to the property's update table and indexed by list offset.
func (s *Store) UpdateRel(src, dst graphid.NodeID, info UpdateInfo) error {
	colIdx, ok := s.propertyIDToColIdx[info.PropertyID]
	if !ok {
		return kerr.Logic("UpdateRel: unknown property id %d", info.PropertyID)
	}

	insertUpdatedRel := true
	ftIdx := -1
	for _, dir := range []graphid.Direction{graphid.FWD, graphid.BWD} {
		bound := s.boundNodeID(dir, src, dst)
		if !s.qualifies(dir, bound.TableID) {
			continue
		}

		if info.IsStoredInPersistentStore {
			if insertUpdatedRel {
				idx, err := s.listsUpdates[info.PropertyID].Append([]interface{}{info.PropertyValue})
				if err != nil {
					return err
				}
				ftIdx = idx
				insertUpdatedRel = false
			}
			rec, err := s.getOrCreate(dir, bound)
			if err != nil {
				return err
			}
			listOffset := info.BwdListOffset
			if dir == graphid.FWD {
				listOffset = info.FwdListOffset
			}
			rec.UpdatedPersistentListOffsets[info.PropertyID].InsertOffset(listOffset, ftIdx)
		} else {
			ftTupleIdx, err := s.ftOfInsertedRels.FindValueInFlatColumn(RelIDColIdx, info.RelID)
			if err != nil {
				return err
			}
			if ftTupleIdx == -1 {
				return kerr.Logic("UpdateRel: rel_id %d not found among staged inserts", info.RelID)
			}
			if err := s.ftOfInsertedRels.UpdateFlatCell(ftTupleIdx, colIdx, info.PropertyValue); err != nil {
				return err
			}
		}
	}
	return nil
}

// InitNewlyAddedNode ensures a staged record exists for nodeID in every
// direction whose bound table matches, and marks it newly added.
func (s *Store) InitNewlyAddedNode(nodeID graphid.NodeID) error {
	for _, dir := range []graphid.Direction{graphid.FWD, graphid.BWD} {
		if !s.qualifies(dir, nodeID.TableID) {
			continue
		}
		rec, err := s.getOrCreate(dir, nodeID)
		if err != nil {
			return err
		}
		rec.IsNewlyAddedNode = true
	}
	return nil
}

// ColIdxInFT returns which column of ftOfInsertedRels (or, for a property
// list, of its own update table) a list_file_id's reads should pull from.
func (s *Store) ColIdxInFT(listFileID graphid.ListFileID) (int, error) {
	if listFileID.Kind == graphid.KindAdjList {
		if listFileID.Direction == graphid.FWD {
			return DstNodeIDColIdx, nil
		}
		return SrcNodeIDColIdx, nil
	}
	colIdx, ok := s.propertyIDToColIdx[listFileID.PropertyID]
	if !ok {
		return 0, kerr.Logic("ColIdxInFT: unknown property id %d", listFileID.PropertyID)
	}
	return colIdx, nil
}

// ReadValues merges the staged inserts for (listFileID, tableID, nodeOffset)
// into outVector, starting at startElemOffset and reading numToRead values.
func (s *Store) ReadValues(listFileID graphid.ListFileID, tableID graphid.TableID, nodeOffset graphid.Offset, startElemOffset, numToRead int, outVector *vector.ValueVector) error {
	if numToRead == 0 {
		outVector.State = vector.NewFlatState(0)
		return nil
	}

	rec := s.getIfExists(listFileID.Direction, tableID, nodeOffset)
	if rec == nil {
		return kerr.Logic("ReadValues: no staged record for table %d offset %d direction %s", tableID, nodeOffset, listFileID.Direction)
	}

	colIdx, err := s.ColIdxInFT(listFileID)
	if err != nil {
		return err
	}

	end := startElemOffset + numToRead
	if end > len(rec.InsertedRelsTupleIdxInFT) {
		return kerr.Logic("ReadValues: requested range [%d,%d) exceeds %d staged inserts", startElemOffset, end, len(rec.InsertedRelsTupleIdxInFT))
	}

	for i := 0; i < numToRead; i++ {
		tupleIdx := rec.InsertedRelsTupleIdxInFT[startElemOffset+i]
		val, err := s.ftOfInsertedRels.GetCell(tupleIdx, colIdx)
		if err != nil {
			return err
		}
		outVector.Set(i, val)
	}
	outVector.State = vector.NewFlatState(numToRead)
	return nil
}

// ReadUpdatesToPropertyVector overwrites positions of outVector that fall
// within this node's staged property updates. Only rel property lists carry
// updates. Unlike the original's map-ordered early return, this iterates a
// Go map (unordered) and so must check every entry rather than break early.
func (s *Store) ReadUpdatesToPropertyVector(listFileID graphid.ListFileID, tableID graphid.TableID, nodeOffset graphid.Offset, outVector *vector.ValueVector, startListOffset uint64) error {
	if listFileID.Kind != graphid.KindRelPropertyList {
		return kerr.Logic("ReadUpdatesToPropertyVector: listFileID must be a rel property list")
	}

	rec := s.getIfExists(listFileID.Direction, tableID, nodeOffset)
	if rec == nil {
		return nil
	}

	offsets, ok := rec.UpdatedPersistentListOffsets[listFileID.PropertyID]
	if !ok {
		return nil
	}

	for listOffset, ftTupleIdx := range offsets.ListOffsetFTIdxMap {
		if startListOffset > listOffset {
			continue
		}
		if startListOffset+uint64(outVector.State.OriginalSize) <= listOffset {
			continue
		}
		elemPos := int(listOffset - startListOffset)
		val, err := s.listsUpdates[listFileID.PropertyID].GetCell(ftTupleIdx, 0)
		if err != nil {
			return err
		}
		outVector.Set(elemPos, val)
	}
	return nil
}

// HasUpdates reports whether any staged change exists anywhere in the
// store.
func (s *Store) HasUpdates() bool {
	for _, dir := range []graphid.Direction{graphid.FWD, graphid.BWD} {
		for _, perChunk := range s.perTablePerDirection[dir] {
			for _, perNode := range perChunk {
				for _, rec := range perNode {
					if rec.HasUpdates() {
						return true
					}
				}
			}
		}
	}
	return false
}

// NumInsertedRelsForNode returns how many rels are staged as inserts for
// (listFileID, tableID, nodeOffset), 0 if none.
func (s *Store) NumInsertedRelsForNode(listFileID graphid.ListFileID, tableID graphid.TableID, nodeOffset graphid.Offset) int {
	rec := s.getIfExists(listFileID.Direction, tableID, nodeOffset)
	if rec == nil {
		return 0
	}
	return len(rec.InsertedRelsTupleIdxInFT)
}

// NumDeletedRels returns the size of the deletion set for
// (listFileID, tableID, nodeOffset), 0 if none.
func (s *Store) NumDeletedRels(listFileID graphid.ListFileID, tableID graphid.TableID, nodeOffset graphid.Offset) int {
	rec := s.getIfExists(listFileID.Direction, tableID, nodeOffset)
	if rec == nil {
		return 0
	}
	return len(rec.DeletedRelIDs)
}

// IsRelDeletedInPersistentStore reports whether relID is in the deletion
// set for (listFileID, tableID, nodeOffset).
func (s *Store) IsRelDeletedInPersistentStore(listFileID graphid.ListFileID, tableID graphid.TableID, nodeOffset graphid.Offset, relID graphid.RelID) bool {
	rec := s.getIfExists(listFileID.Direction, tableID, nodeOffset)
	if rec == nil {
		return false
	}
	_, ok := rec.DeletedRelIDs[relID]
	return ok
}

// IsNewlyAddedNode reports whether (listFileID, tableID, nodeOffset) was
// created within this transaction.
func (s *Store) IsNewlyAddedNode(listFileID graphid.ListFileID, tableID graphid.TableID, nodeOffset graphid.Offset) bool {
	rec := s.getIfExists(listFileID.Direction, tableID, nodeOffset)
	if rec == nil {
		return false
	}
	return rec.IsNewlyAddedNode
}

// HasAnyDeletedRelsInPersistentStore reports whether the deletion set for
// (listFileID, tableID, nodeOffset) is non-empty.
func (s *Store) HasAnyDeletedRelsInPersistentStore(listFileID graphid.ListFileID, tableID graphid.TableID, nodeOffset graphid.Offset) bool {
	return s.NumDeletedRels(listFileID, tableID, nodeOffset) > 0
}

// Reset discards all staged state, returning the store to the condition it
// was in right after New. Called by the Transaction Coordinator on both
// commit (the staging job is done) and rollback (the staging is discarded).
func (s *Store) Reset() {
	*s = *New(s.schema)
}
