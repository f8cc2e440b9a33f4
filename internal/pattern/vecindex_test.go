package pattern

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupVecIndex(t *testing.T, dimensions int) (*sql.DB, *vecIndex) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "driftlog-vec-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	db, err := sql.Open("sqlite3", filepath.Join(tmpDir, "vec.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	idx := newVecIndex(db, dimensions)
	if !idx.available {
		t.Skip("sqlite-vec extension not available")
	}
	return db, idx
}

func TestVecIndex_InsertAndSearch(t *testing.T) {
	_, idx := setupVecIndex(t, 4)

	require.NoError(t, idx.Insert("p1", "p1", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Insert("p2", "p2", []float32{0, 1, 0, 0}))

	results, err := idx.Search([]float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "p1", results[0].PatternID)
	require.InDelta(t, 0, results[0].Distance, 1e-4)
}

func TestVecIndex_AliasResolvesToPattern(t *testing.T) {
	_, idx := setupVecIndex(t, 4)

	require.NoError(t, idx.Insert("p1", "p1", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Insert("alias:a1", "p1", []float32{0, 0, 1, 0}))

	results, err := idx.Search([]float32{0, 0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "p1", results[0].PatternID, "alias hit should resolve to its parent pattern")
}

func TestVecIndex_ReplaceOnReinsert(t *testing.T) {
	_, idx := setupVecIndex(t, 4)

	require.NoError(t, idx.Insert("p1", "p1", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Insert("p1", "p1", []float32{0, 1, 0, 0}))

	results, err := idx.Search([]float32{0, 1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1, "re-insert should replace, not duplicate")
	require.InDelta(t, 0, results[0].Distance, 1e-4)
}

func TestVecIndex_Delete(t *testing.T) {
	_, idx := setupVecIndex(t, 4)

	require.NoError(t, idx.Insert("p1", "p1", []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Delete("p1"))

	results, err := idx.Search([]float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Empty(t, results)

	// Deleting an unindexed ref is a no-op.
	require.NoError(t, idx.Delete("never-indexed"))
}

func TestVecIndex_SkipsMismatchedDimensions(t *testing.T) {
	_, idx := setupVecIndex(t, 4)

	require.NoError(t, idx.Insert("p1", "p1", []float32{1, 0}))

	results, err := idx.Search([]float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}
