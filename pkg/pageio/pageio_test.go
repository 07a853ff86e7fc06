package pageio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPageSize = 64

func TestWriteReadPageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.pages")

	pf, err := Open(path, testPageSize)
	require.NoError(t, err)
	defer pf.Close()

	buf := make([]byte, testPageSize)
	for i := range buf {
		buf[i] = byte(i)
	}
	require.NoError(t, pf.WritePage(2, buf))

	out := make([]byte, testPageSize)
	require.NoError(t, pf.ReadPage(2, out))
	assert.Equal(t, buf, out)

	n, err := pf.NumPages()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestReadPageBeyondEOFReturnsZeroed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.pages")

	pf, err := Open(path, testPageSize)
	require.NoError(t, err)
	defer pf.Close()

	out := make([]byte, testPageSize)
	for i := range out {
		out[i] = 0xFF
	}
	require.NoError(t, pf.ReadPage(0, out))
	for _, b := range out {
		assert.Equal(t, byte(0), b)
	}
}

func TestWritePageWrongSizeFails(t *testing.T) {
	dir := t.TempDir()
	pf, err := Open(filepath.Join(dir, "data.pages"), testPageSize)
	require.NoError(t, err)
	defer pf.Close()

	err = pf.WritePage(0, make([]byte, 10))
	require.Error(t, err)
}

func TestCommitShadow(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "nodes.statistics.original")
	shadow := filepath.Join(dir, "nodes.statistics.wal_shadow")

	require.NoError(t, os.WriteFile(original, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(shadow, []byte("new"), 0o644))

	require.NoError(t, CommitShadow(shadow, original))

	data, err := os.ReadFile(original)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assert.NoFileExists(t, shadow)
}

func TestCommitShadowMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CommitShadow(filepath.Join(dir, "missing"), filepath.Join(dir, "original"))
	require.Error(t, err)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestPathVariant(t *testing.T) {
	assert.Equal(t, "nodes.statistics.original", PathVariant("nodes.statistics", "original"))
}
