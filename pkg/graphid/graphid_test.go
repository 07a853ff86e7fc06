package graphid

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkIndex(t *testing.T) {
	tests := []struct {
		offset        Offset
		wantChunk     uint64
		wantIntraIdx  uint64
	}{
		{0, 0, 0},
		{511, 0, 511},
		{512, 1, 0},
		{1025, 2, 1},
	}

	for _, tt := range tests {
		chunk, intra := ChunkIndex(tt.offset)
		assert.Equal(t, tt.wantChunk, chunk)
		assert.Equal(t, tt.wantIntraIdx, intra)
	}
}

func TestDirectionOther(t *testing.T) {
	assert.Equal(t, BWD, FWD.Other())
	assert.Equal(t, FWD, BWD.Other())
}

func TestListFileIDVariants(t *testing.T) {
	adj := NewAdjListFileID(3, FWD)
	assert.Equal(t, KindAdjList, adj.Kind)
	assert.Equal(t, TableID(3), adj.RelTableID)

	prop := NewRelPropertyListFileID(3, BWD, 7)
	assert.Equal(t, KindRelPropertyList, prop.Kind)
	assert.Equal(t, PropertyID(7), prop.PropertyID)

	assert.Contains(t, adj.String(), "AdjList")
	assert.Contains(t, prop.String(), "RelPropertyList")
}

func TestChunkHeadersRoundTrip(t *testing.T) {
	headers := NewChunkHeaders(4)
	headers.Set(0, 10)
	headers.Set(1, 20)
	headers.Set(2, 30)
	headers.Set(3, 40)

	dir := t.TempDir()
	fname := filepath.Join(dir, "adj_FWD")

	require.NoError(t, headers.SaveToDisk(fname))
	assert.FileExists(t, fname+".headers")

	loaded, err := ReadChunkHeadersFromDisk(fname)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Size())
	assert.Equal(t, uint32(10), loaded.Get(0))
	assert.Equal(t, uint32(40), loaded.Get(3))
}

func TestReadChunkHeadersFromDisk_MissingFile(t *testing.T) {
	_, err := ReadChunkHeadersFromDisk(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open chunk headers file")
}
