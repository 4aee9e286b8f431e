package store

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
)

// newTestBlobStore создаёт хранилище артефактов поверх файловой системы в памяти.
func newTestBlobStore(t *testing.T) (BlobStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewBlobStore(fs, config.Files{BlobDataDir: "blobs"}, logger.Nop())
	require.NoError(t, err)
	return s, fs
}

func TestBlobStore_SaveAndLoadRoundTrip(t *testing.T) {
	s, _ := newTestBlobStore(t)
	ctx := testContext()

	blob := []byte("sealed task payload")
	artifact := "tasks/" + testTaskID + ".json"

	meta, err := s.Save(ctx, artifact, blob, "hash-task")
	require.NoError(t, err)
	assert.Equal(t, artifact, meta.Path)
	assert.Equal(t, int64(len(blob)), meta.Size)
	assert.Equal(t, "hash-task", meta.Hash)
	assert.False(t, meta.Modified.IsZero())
	assert.False(t, meta.IsDir)

	got, err := s.Load(ctx, artifact)
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestBlobStore_SaveOverwritesPreviousBlob(t *testing.T) {
	s, _ := newTestBlobStore(t)
	ctx := testContext()
	artifact := "tasks/" + testTaskID + ".json"

	_, err := s.Save(ctx, artifact, []byte("first version"), "hash-1")
	require.NoError(t, err)
	meta, err := s.Save(ctx, artifact, []byte("v2"), "hash-2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.Size)

	got, err := s.Load(ctx, artifact)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "hash-2", items[0].Hash)
}

func TestBlobStore_LoadMissingBlob(t *testing.T) {
	s, _ := newTestBlobStore(t)

	_, err := s.Load(testContext(), "tasks/"+testTaskID+".json")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestBlobStore_DeleteRemovesArtifactAndSidecar(t *testing.T) {
	s, _ := newTestBlobStore(t)
	ctx := testContext()
	artifact := "tasks/" + testTaskID + ".json"

	_, err := s.Save(ctx, artifact, []byte("doomed"), "hash-task")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, artifact))

	_, err = s.Load(ctx, artifact)
	assert.ErrorIs(t, err, ErrBlobNotFound)

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Повторное удаление того же пути должно быть различимо для клиента.
	err = s.Delete(ctx, artifact)
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestBlobStore_ListReturnsSortedDescriptors(t *testing.T) {
	s, _ := newTestBlobStore(t)
	ctx := testContext()

	_, err := s.Save(ctx, "tasks/"+testTaskID+".json", []byte("task blob"), "hash-task")
	require.NoError(t, err)
	_, err = s.Save(ctx, "categories/"+testCategoryID+".json", []byte("category blob"), "hash-cat")
	require.NoError(t, err)
	_, err = s.Save(ctx, "snapshot.json", []byte("snapshot blob"), "")
	require.NoError(t, err)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "categories/"+testCategoryID+".json", items[0].Path)
	assert.Equal(t, "hash-cat", items[0].Hash)
	assert.Equal(t, "snapshot.json", items[1].Path)
	assert.Empty(t, items[1].Hash)
	assert.Equal(t, "tasks/"+testTaskID+".json", items[2].Path)
	assert.Equal(t, int64(len("task blob")), items[2].Size)
}

func TestBlobStore_ListWithoutSidecarServesEmptyHash(t *testing.T) {
	s, fs := newTestBlobStore(t)
	ctx := testContext()
	artifact := "tasks/" + testTaskID + ".json"

	_, err := s.Save(ctx, artifact, []byte("task blob"), "hash-task")
	require.NoError(t, err)

	// Потерянный sidecar деградирует до пустого хэша, а не до ошибки.
	require.NoError(t, fs.Remove("blobs/"+artifact+metaSuffix))

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Hash)
}

func TestBlobStore_RejectsInvalidPaths(t *testing.T) {
	s, _ := newTestBlobStore(t)
	ctx := testContext()

	cases := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"absolute", "/etc/passwd"},
		{"parent escape", "../outside.json"},
		{"nested escape", "tasks/../../outside.json"},
		{"not clean", "tasks//" + testTaskID + ".json"},
		{"reserved suffix", "tasks/" + testTaskID + ".json" + metaSuffix},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Save(ctx, tc.path, []byte("x"), "h")
			assert.ErrorIs(t, err, ErrBlobPathInvalid)

			_, err = s.Load(ctx, tc.path)
			assert.ErrorIs(t, err, ErrBlobPathInvalid)

			err = s.Delete(ctx, tc.path)
			assert.ErrorIs(t, err, ErrBlobPathInvalid)
		})
	}
}

func TestBlobStore_DefaultDirWhenUnconfigured(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := NewBlobStore(fs, config.Files{}, logger.Nop())
	require.NoError(t, err)

	_, err = s.Save(testContext(), "snapshot.json", []byte("x"), "")
	require.NoError(t, err)

	ok, err := afero.Exists(fs, defaultBlobDataDir+"/snapshot.json")
	require.NoError(t, err)
	assert.True(t, ok)
}
