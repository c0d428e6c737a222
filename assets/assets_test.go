package assets

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gifBytes is a 1x1 transparent GIF.
var gifBytes = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Test helper: create a store in a temp dir
func setupTestStore(t *testing.T, opts ...Option) *Store {
	store, err := NewStore(filepath.Join(t.TempDir(), "gifs"), opts...)
	require.NoError(t, err)
	return store
}

// Test helper: open a new batch
func beginBatch(t *testing.T, store *Store) *Batch {
	batch, err := store.Begin()
	require.NoError(t, err)
	return batch
}

// TestNewStore_CreatesDirectory verifies the directory is created
func TestNewStore_CreatesDirectory(t *testing.T) {
	store := setupTestStore(t)

	info, err := os.Stat(store.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Empty(t, store.Latest())
}

// TestSave_WritesPositionNamedFile verifies the <position>.gif naming
func TestSave_WritesPositionNamedFile(t *testing.T) {
	store := setupTestStore(t)
	batch := beginBatch(t, store)

	file, err := batch.Save(0, gifBytes)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(store.Dir(), batch.ID(), "0.gif"), file.Path)
	assert.Equal(t, 0, file.Position)
	assert.Equal(t, int64(len(gifBytes)), file.Size)
	assert.Equal(t, "image/gif", file.MIME)

	data, err := os.ReadFile(file.Path)
	require.NoError(t, err)
	assert.Equal(t, gifBytes, data, "bytes should be stored as received")
}

// TestSave_NonGIFStoredAnyway verifies payloads are not rejected by type
func TestSave_NonGIFStoredAnyway(t *testing.T) {
	store := setupTestStore(t)
	batch := beginBatch(t, store)

	file, err := batch.Save(3, []byte("<html>not found</html>"))
	require.NoError(t, err)
	assert.NotEqual(t, "image/gif", file.MIME)
	assert.FileExists(t, batch.Path(3))
}

// TestSave_Overwrites verifies a second save replaces the file
func TestSave_Overwrites(t *testing.T) {
	store := setupTestStore(t)
	batch := beginBatch(t, store)

	_, err := batch.Save(1, []byte("first, longer payload"))
	require.NoError(t, err)
	_, err = batch.Save(1, []byte("second"))
	require.NoError(t, err)

	data, err := store.Open(batch.ID(), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

// TestSave_NegativePosition verifies invalid positions are rejected
func TestSave_NegativePosition(t *testing.T) {
	store := setupTestStore(t)
	batch := beginBatch(t, store)

	_, err := batch.Save(-1, gifBytes)
	assert.Error(t, err)
}

// TestBatches_DoNotShareFiles verifies two batches keep separate files per position
func TestBatches_DoNotShareFiles(t *testing.T) {
	store := setupTestStore(t)
	first := beginBatch(t, store)
	second := beginBatch(t, store)

	_, err := first.Save(0, []byte("first"))
	require.NoError(t, err)
	_, err = second.Save(0, []byte("second"))
	require.NoError(t, err)
	require.NoError(t, second.Commit())
	require.NoError(t, first.Commit())

	data, err := store.Open(first.ID(), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	data, err = store.Open(second.ID(), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	assert.Equal(t, first.ID(), store.Latest(), "latest is the last committed")
	assert.Equal(t, []string{first.ID(), second.ID()}, store.Batches())
}

// TestCommit_PrunesBeyondRetain verifies old batches are removed
func TestCommit_PrunesBeyondRetain(t *testing.T) {
	store := setupTestStore(t, WithRetain(2))

	var ids []string
	for i := 0; i < 3; i++ {
		batch := beginBatch(t, store)
		_, err := batch.Save(0, gifBytes)
		require.NoError(t, err)
		require.NoError(t, batch.Commit())
		ids = append(ids, batch.ID())
	}

	assert.NoDirExists(t, filepath.Join(store.Dir(), ids[0]))
	assert.DirExists(t, filepath.Join(store.Dir(), ids[1]))
	assert.DirExists(t, filepath.Join(store.Dir(), ids[2]))
	assert.Equal(t, []string{ids[2], ids[1]}, store.Batches())
}

// TestCommit_KeepsActiveBatches verifies pruning never touches a batch being written
func TestCommit_KeepsActiveBatches(t *testing.T) {
	store := setupTestStore(t, WithRetain(1))

	pending := beginBatch(t, store)
	_, err := pending.Save(0, gifBytes)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, beginBatch(t, store).Commit())
	}

	assert.FileExists(t, pending.Path(0))
	require.NoError(t, pending.Commit())
	assert.Equal(t, pending.ID(), store.Latest())
}

// TestCommit_Twice verifies a finished batch cannot be reused
func TestCommit_Twice(t *testing.T) {
	store := setupTestStore(t)
	batch := beginBatch(t, store)

	require.NoError(t, batch.Commit())
	assert.ErrorIs(t, batch.Commit(), ErrBatchClosed)
	assert.ErrorIs(t, batch.Discard(), ErrBatchClosed)
}

// TestDiscard_RemovesBatch verifies discarded batches leave nothing behind
func TestDiscard_RemovesBatch(t *testing.T) {
	store := setupTestStore(t)
	batch := beginBatch(t, store)
	_, err := batch.Save(0, gifBytes)
	require.NoError(t, err)

	require.NoError(t, batch.Discard())
	assert.NoDirExists(t, batch.Dir())
	assert.Empty(t, store.Latest())
}

// TestConcurrentBatches verifies parallel writers keep their own bytes
func TestConcurrentBatches(t *testing.T) {
	store := setupTestStore(t, WithRetain(32))

	var wg sync.WaitGroup
	batches := make([]*Batch, 16)
	for i := range batches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch, err := store.Begin()
			if !assert.NoError(t, err) {
				return
			}
			_, err = batch.Save(0, []byte{byte(i)})
			assert.NoError(t, err)
			assert.NoError(t, batch.Commit())
			batches[i] = batch
		}()
	}
	wg.Wait()

	for i, batch := range batches {
		require.NotNil(t, batch)
		data, err := store.Open(batch.ID(), 0)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, data)
	}
	assert.Len(t, store.Batches(), 16)
}

// TestNewStore_ReloadsBatches verifies batches from an earlier run are found
func TestNewStore_ReloadsBatches(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gifs")
	store, err := NewStore(dir)
	require.NoError(t, err)
	batch := beginBatch(t, store)
	require.NoError(t, batch.Commit())
	require.NoError(t, os.Mkdir(filepath.Join(dir, "not-a-batch"), 0o700))

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{batch.ID()}, reopened.Batches())
}

// TestOpen_Missing verifies a missing asset is not an error
func TestOpen_Missing(t *testing.T) {
	store := setupTestStore(t)
	batch := beginBatch(t, store)

	data, err := store.Open(batch.ID(), 7)
	require.NoError(t, err)
	assert.Nil(t, data)
}

// TestOpen_InvalidBatch verifies batch names cannot escape the store
func TestOpen_InvalidBatch(t *testing.T) {
	store := setupTestStore(t)

	for _, batch := range []string{"", "..", "../etc", "latest"} {
		_, err := store.Open(batch, 0)
		assert.ErrorIs(t, err, ErrBatchNotFound, batch)
	}
}

// TestList_OrdersByPosition verifies numeric ordering
func TestList_OrdersByPosition(t *testing.T) {
	store := setupTestStore(t)
	batch := beginBatch(t, store)

	for _, pos := range []int{10, 2, 0} {
		_, err := batch.Save(pos, gifBytes)
		require.NoError(t, err)
	}
	other := filepath.Join(batch.Dir(), "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o600))

	result, err := store.List(batch.ID())
	require.NoError(t, err)
	assert.Equal(t, batch.ID(), result.Batch)
	require.Len(t, result.Files, 3)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 0, result.Files[0].Position)
	assert.Equal(t, 2, result.Files[1].Position)
	assert.Equal(t, 10, result.Files[2].Position)
	assert.Equal(t, "image/gif", result.Files[2].MIME)
}

// TestList_UnknownBatch verifies listing a batch that was never created
func TestList_UnknownBatch(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.List("6f1c1a4e-8a1b-4c55-9a9e-0c4b8f6d2a11")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}
