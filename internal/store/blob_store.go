package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/models"
)

// defaultBlobDataDir is used when no blob data directory is configured.
const defaultBlobDataDir = "blob-data"

// metaSuffix marks the sidecar files recording per-artifact entity
// hashes. Sidecar files never appear in listings and their suffix is
// rejected in artifact paths.
const metaSuffix = ".meta"

const (
	blobDirPerm  = 0o750
	blobFilePerm = 0o640
)

// BlobStore is the artifact storage behind the blob server: opaque blob
// bodies addressed by their canonical entity paths, plus the entity
// content hash recorded at upload time so listings can serve it back
// without the server ever decoding a blob.
type BlobStore interface {
	// Save stores the blob under the given path together with its entity
	// hash and returns the stored artifact's metadata.
	Save(ctx context.Context, path string, blob []byte, entityHash string) (models.SyncMetadata, error)

	// Load reads the blob stored under the given path. Returns
	// ErrBlobNotFound when no artifact exists there.
	Load(ctx context.Context, path string) ([]byte, error)

	// Delete removes the blob and its recorded hash. Returns
	// ErrBlobNotFound when no artifact exists under the path.
	Delete(ctx context.Context, path string) error

	// List returns the metadata of every stored artifact, ordered by path.
	List(ctx context.Context) ([]models.SyncMetadata, error)
}

// blobMeta is the JSON sidecar persisted next to each artifact.
type blobMeta struct {
	Hash string `json:"hash"`
}

// blobStore is the file-system implementation of [BlobStore].
//
// Every artifact is two files: the opaque blob body and a small JSON
// sidecar holding the entity hash the uploader declared. Size and
// modification time are always read back from the blob file itself, so
// the sidecar can only ever lie about the hash, never about what is
// actually stored.
type blobStore struct {
	fs   afero.Fs
	root string

	mu sync.RWMutex

	logger *logger.Logger
}

// NewBlobStore constructs a [BlobStore] rooted at cfg.BlobDataDir,
// creating the directory if needed. A nil fs defaults to the operating
// system's file system; tests pass an in-memory one.
func NewBlobStore(fs afero.Fs, cfg config.Files, logger *logger.Logger) (BlobStore, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	root := cfg.BlobDataDir
	if root == "" {
		root = defaultBlobDataDir
	}
	if err := fs.MkdirAll(root, blobDirPerm); err != nil {
		return nil, fmt.Errorf("create blob data dir: %w", err)
	}

	logger.Info().Str("dir", root).Msg("blob store ready")

	return &blobStore{
		fs:     fs,
		root:   root,
		logger: logger,
	}, nil
}

// Save writes the blob and its hash sidecar, then reads the stored
// artifact back for its authoritative size and modification time.
func (b *blobStore) Save(ctx context.Context, p string, blob []byte, entityHash string) (models.SyncMetadata, error) {
	log := logger.FromContext(ctx)

	if err := validateBlobPath(p); err != nil {
		return models.SyncMetadata{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	full := path.Join(b.root, p)
	if err := b.fs.MkdirAll(path.Dir(full), blobDirPerm); err != nil {
		log.Err(err).
			Str("func", "blobStore.Save").
			Str("path", p).
			Msg("failed to create artifact dir")
		return models.SyncMetadata{}, fmt.Errorf("create artifact dir: %w", err)
	}

	if err := afero.WriteFile(b.fs, full, blob, blobFilePerm); err != nil {
		log.Err(err).
			Str("func", "blobStore.Save").
			Str("path", p).
			Msg("failed to write artifact")
		return models.SyncMetadata{}, fmt.Errorf("write artifact %s: %w", p, err)
	}

	sidecar, err := json.Marshal(blobMeta{Hash: entityHash})
	if err != nil {
		return models.SyncMetadata{}, fmt.Errorf("encode artifact meta: %w", err)
	}
	if err = afero.WriteFile(b.fs, full+metaSuffix, sidecar, blobFilePerm); err != nil {
		log.Err(err).
			Str("func", "blobStore.Save").
			Str("path", p).
			Msg("failed to write artifact meta")
		return models.SyncMetadata{}, fmt.Errorf("write artifact meta %s: %w", p, err)
	}

	info, err := b.fs.Stat(full)
	if err != nil {
		return models.SyncMetadata{}, fmt.Errorf("stat artifact %s: %w", p, err)
	}

	log.Debug().
		Str("func", "blobStore.Save").
		Str("path", p).
		Int("size", len(blob)).
		Msg("artifact stored")

	return models.SyncMetadata{
		Path:     p,
		Size:     info.Size(),
		Modified: info.ModTime().UTC(),
		Hash:     entityHash,
	}, nil
}

// Load reads the blob stored under the given path.
func (b *blobStore) Load(ctx context.Context, p string) ([]byte, error) {
	log := logger.FromContext(ctx)

	if err := validateBlobPath(p); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	blob, err := afero.ReadFile(b.fs, path.Join(b.root, p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, p)
		}
		log.Err(err).
			Str("func", "blobStore.Load").
			Str("path", p).
			Msg("failed to read artifact")
		return nil, fmt.Errorf("read artifact %s: %w", p, err)
	}

	return blob, nil
}

// Delete removes the blob and its sidecar. A missing sidecar is not an
// error; older uploads may never have written one.
func (b *blobStore) Delete(ctx context.Context, p string) error {
	log := logger.FromContext(ctx)

	if err := validateBlobPath(p); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	full := path.Join(b.root, p)
	if _, err := b.fs.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrBlobNotFound, p)
		}
		return fmt.Errorf("stat artifact %s: %w", p, err)
	}

	if err := b.fs.Remove(full); err != nil {
		log.Err(err).
			Str("func", "blobStore.Delete").
			Str("path", p).
			Msg("failed to remove artifact")
		return fmt.Errorf("remove artifact %s: %w", p, err)
	}
	if err := b.fs.Remove(full + metaSuffix); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact meta %s: %w", p, err)
	}

	log.Debug().
		Str("func", "blobStore.Delete").
		Str("path", p).
		Msg("artifact removed")

	return nil
}

// List walks the storage root and returns one descriptor per stored
// artifact, ordered by path. Size and modification time come from the
// blob file; the hash comes from the sidecar when one exists.
func (b *blobStore) List(ctx context.Context) ([]models.SyncMetadata, error) {
	log := logger.FromContext(ctx)

	b.mu.RLock()
	defer b.mu.RUnlock()

	var items []models.SyncMetadata
	err := afero.Walk(b.fs, b.root, func(walkPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(walkPath, metaSuffix) {
			return nil
		}

		rel, err := filepath.Rel(b.root, walkPath)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", walkPath, err)
		}
		rel = filepath.ToSlash(rel)

		items = append(items, models.SyncMetadata{
			Path:     rel,
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
			Hash:     b.readSidecarHash(log, walkPath),
		})
		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "blobStore.List").
			Msg("failed to walk blob data dir")
		return nil, fmt.Errorf("walk blob data dir: %w", err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })

	return items, nil
}

// readSidecarHash reads the recorded entity hash of one artifact. An
// absent or unreadable sidecar degrades to an empty hash: the client
// falls back to downloading the blob, so a lost sidecar costs a fetch,
// not an error.
func (b *blobStore) readSidecarHash(log *logger.Logger, blobPath string) string {
	payload, err := afero.ReadFile(b.fs, blobPath+metaSuffix)
	if err != nil {
		return ""
	}

	var meta blobMeta
	if err = json.Unmarshal(payload, &meta); err != nil {
		log.Warn().
			Err(err).
			Str("func", "blobStore.readSidecarHash").
			Str("path", blobPath).
			Msg("corrupt artifact meta, serving empty hash")
		return ""
	}
	return meta.Hash
}

// validateBlobPath accepts only clean, relative, slash-separated paths
// that stay inside the storage root and do not collide with sidecars.
func validateBlobPath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: %q", ErrBlobPathInvalid, p)
	}
	if clean := path.Clean(p); clean != p || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrBlobPathInvalid, p)
	}
	if strings.HasSuffix(p, metaSuffix) {
		return fmt.Errorf("%w: %q uses a reserved suffix", ErrBlobPathInvalid, p)
	}
	return nil
}
