package listsupdate

import (
	"testing"

	"github.com/kasuganosora/kuzugraph/pkg/graphid"
	"github.com/kasuganosora/kuzugraph/pkg/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	srcTable graphid.TableID = 1
	dstTable graphid.TableID = 2
	relTable graphid.TableID = 3
	propAge  graphid.PropertyID = 1
)

func newTestStore() *Store {
	schema := TableSchema{
		Properties: []graphid.PropertyID{propAge},
		BoundTableIDs: map[graphid.Direction][]graphid.TableID{
			graphid.FWD: {srcTable},
			graphid.BWD: {dstTable},
		},
	}
	return New(schema)
}

func TestInsertRelStagesBothDirections(t *testing.T) {
	s := newTestStore()
	src := graphid.NodeID{TableID: srcTable, Offset: 5}
	dst := graphid.NodeID{TableID: dstTable, Offset: 9}

	require.NoError(t, s.InsertRel(src, dst, graphid.RelID(100), []interface{}{int64(30)}))

	fwdList := graphid.NewAdjListFileID(relTable, graphid.FWD)
	bwdList := graphid.NewAdjListFileID(relTable, graphid.BWD)

	assert.Equal(t, 1, s.NumInsertedRelsForNode(fwdList, srcTable, 5))
	assert.Equal(t, 1, s.NumInsertedRelsForNode(bwdList, dstTable, 9))
	assert.Equal(t, 1, s.ftOfInsertedRels.NumRows())
	assert.True(t, s.HasUpdates())
}

func TestInsertRelOnlyStagesQualifyingDirections(t *testing.T) {
	s := newTestStore()
	src := graphid.NodeID{TableID: 999, Offset: 1} // not registered for FWD
	dst := graphid.NodeID{TableID: dstTable, Offset: 2}

	require.NoError(t, s.InsertRel(src, dst, graphid.RelID(1), []interface{}{int64(1)}))

	bwdList := graphid.NewAdjListFileID(relTable, graphid.BWD)
	assert.Equal(t, 1, s.NumInsertedRelsForNode(bwdList, dstTable, 2))
	assert.Equal(t, 1, s.ftOfInsertedRels.NumRows())
}

func TestDeleteRelUndoesStagedInsert(t *testing.T) {
	s := newTestStore()
	src := graphid.NodeID{TableID: srcTable, Offset: 5}
	dst := graphid.NodeID{TableID: dstTable, Offset: 9}

	require.NoError(t, s.InsertRel(src, dst, graphid.RelID(100), []interface{}{int64(30)}))
	require.NoError(t, s.DeleteRel(src, dst, graphid.RelID(100)))

	fwdList := graphid.NewAdjListFileID(relTable, graphid.FWD)
	assert.Equal(t, 0, s.NumInsertedRelsForNode(fwdList, srcTable, 5))
}

func TestDeleteRelOfPersistentRelMarksDeletionSet(t *testing.T) {
	s := newTestStore()
	src := graphid.NodeID{TableID: srcTable, Offset: 5}
	dst := graphid.NodeID{TableID: dstTable, Offset: 9}

	require.NoError(t, s.DeleteRel(src, dst, graphid.RelID(777)))

	fwdList := graphid.NewAdjListFileID(relTable, graphid.FWD)
	assert.True(t, s.IsRelDeletedInPersistentStore(fwdList, srcTable, 5, graphid.RelID(777)))
	assert.Equal(t, 1, s.NumDeletedRels(fwdList, srcTable, 5))
	assert.True(t, s.HasAnyDeletedRelsInPersistentStore(fwdList, srcTable, 5))
}

func TestUpdateRelOnStagedInsertRewritesFTCell(t *testing.T) {
	s := newTestStore()
	src := graphid.NodeID{TableID: srcTable, Offset: 5}
	dst := graphid.NodeID{TableID: dstTable, Offset: 9}

	require.NoError(t, s.InsertRel(src, dst, graphid.RelID(100), []interface{}{int64(30)}))
	require.NoError(t, s.UpdateRel(src, dst, UpdateInfo{
		PropertyID:                propAge,
		RelID:                     graphid.RelID(100),
		IsStoredInPersistentStore: false,
		PropertyValue:             int64(31),
	}))

	colIdx, err := s.ColIdxInFT(graphid.NewRelPropertyListFileID(relTable, graphid.FWD, propAge))
	require.NoError(t, err)

	tupleIdx, err := s.ftOfInsertedRels.FindValueInFlatColumn(RelIDColIdx, graphid.RelID(100))
	require.NoError(t, err)
	val, err := s.ftOfInsertedRels.GetCell(tupleIdx, colIdx)
	require.NoError(t, err)
	assert.Equal(t, int64(31), val)
}

func TestUpdateRelOnPersistentRelStagesOffsetOverride(t *testing.T) {
	s := newTestStore()
	src := graphid.NodeID{TableID: srcTable, Offset: 5}
	dst := graphid.NodeID{TableID: dstTable, Offset: 9}

	require.NoError(t, s.UpdateRel(src, dst, UpdateInfo{
		PropertyID:                propAge,
		RelID:                     graphid.RelID(777),
		IsStoredInPersistentStore: true,
		FwdListOffset:             3,
		BwdListOffset:             4,
		PropertyValue:             int64(42),
	}))

	propList := graphid.NewRelPropertyListFileID(relTable, graphid.FWD, propAge)
	outVec := vector.NewValueVector(10)
	outVec.State = vector.NewFlatState(10)
	require.NoError(t, s.ReadUpdatesToPropertyVector(propList, srcTable, 5, outVec, 0))
	assert.Equal(t, int64(42), outVec.Get(3))
}

func TestInitNewlyAddedNode(t *testing.T) {
	s := newTestStore()
	node := graphid.NodeID{TableID: srcTable, Offset: 11}

	require.NoError(t, s.InitNewlyAddedNode(node))

	fwdList := graphid.NewAdjListFileID(relTable, graphid.FWD)
	assert.True(t, s.IsNewlyAddedNode(fwdList, srcTable, 11))
}

func TestColIdxInFT(t *testing.T) {
	s := newTestStore()

	idx, err := s.ColIdxInFT(graphid.NewAdjListFileID(relTable, graphid.FWD))
	require.NoError(t, err)
	assert.Equal(t, DstNodeIDColIdx, idx)

	idx, err = s.ColIdxInFT(graphid.NewAdjListFileID(relTable, graphid.BWD))
	require.NoError(t, err)
	assert.Equal(t, SrcNodeIDColIdx, idx)

	idx, err = s.ColIdxInFT(graphid.NewRelPropertyListFileID(relTable, graphid.FWD, propAge))
	require.NoError(t, err)
	assert.Equal(t, firstPropColIdx, idx)
}

func TestReadValuesMergesStagedInserts(t *testing.T) {
	s := newTestStore()
	src := graphid.NodeID{TableID: srcTable, Offset: 5}

	for i := 0; i < 3; i++ {
		dst := graphid.NodeID{TableID: dstTable, Offset: graphid.Offset(100 + i)}
		require.NoError(t, s.InsertRel(src, dst, graphid.RelID(i), []interface{}{int64(i)}))
	}

	fwdList := graphid.NewAdjListFileID(relTable, graphid.FWD)
	outVec := vector.NewValueVector(3)
	require.NoError(t, s.ReadValues(fwdList, srcTable, 5, 0, 3, outVec))

	assert.Equal(t, graphid.NodeID{TableID: dstTable, Offset: 100}, outVec.Get(0))
	assert.Equal(t, graphid.NodeID{TableID: dstTable, Offset: 101}, outVec.Get(1))
	assert.Equal(t, graphid.NodeID{TableID: dstTable, Offset: 102}, outVec.Get(2))
}

func TestHasUpdatesFalseOnEmptyStore(t *testing.T) {
	s := newTestStore()
	assert.False(t, s.HasUpdates())
}

func TestReadUpdatesToPropertyVectorSkipsOutOfWindowOffsets(t *testing.T) {
	s := newTestStore()
	src := graphid.NodeID{TableID: srcTable, Offset: 5}
	dst := graphid.NodeID{TableID: dstTable, Offset: 9}

	require.NoError(t, s.UpdateRel(src, dst, UpdateInfo{
		PropertyID:                propAge,
		RelID:                     graphid.RelID(1),
		IsStoredInPersistentStore: true,
		FwdListOffset:             1000,
		PropertyValue:             int64(1),
	}))

	propList := graphid.NewRelPropertyListFileID(relTable, graphid.FWD, propAge)
	outVec := vector.NewValueVector(10)
	outVec.State = vector.NewFlatState(10)
	require.NoError(t, s.ReadUpdatesToPropertyVector(propList, srcTable, 5, outVec, 0))

	for i := 0; i < 10; i++ {
		assert.Nil(t, outVec.Get(i), "position %d should remain untouched", i)
	}
}
