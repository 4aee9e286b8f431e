package models

import (
	"fmt"
	"strings"
	"time"
)

// SyncMetadata describes one remote or local artifact: enough to decide
// cheaply whether a full comparison is needed at all.
type SyncMetadata struct {
	// Path is the artifact location relative to the remote root,
	// e.g. "tasks/0198c5b2-....json".
	Path string `json:"path"`

	// Size is the artifact size in bytes.
	Size int64 `json:"size"`

	// Modified is the artifact's last modification time, UTC.
	Modified time.Time `json:"modified"`

	// Hash is the content hash of the entity held by the artifact.
	Hash string `json:"hash"`

	// IsDir marks directory placeholders in listings. Directory entries
	// carry no entity and are skipped during comparison.
	IsDir bool `json:"is_dir"`
}

// EntityState converts remote metadata into the comparator-facing
// descriptor. Returns false for directory entries and unknown paths.
func (m SyncMetadata) EntityState() (EntityState, bool) {
	if m.IsDir {
		return EntityState{}, false
	}
	kind, id, err := SplitRemotePath(m.Path)
	if err != nil {
		return EntityState{}, false
	}
	return EntityState{
		ID:       id,
		Kind:     kind,
		Hash:     m.Hash,
		Modified: m.Modified,
		Origin:   OriginUnknown,
		Size:     m.Size,
	}, true
}

// RemotePath builds the canonical artifact path for an entity.
func RemotePath(kind EntityKind, id string) string {
	return kind.RemoteDir() + "/" + id + ".json"
}

// SplitRemotePath parses a canonical artifact path back into kind and id.
func SplitRemotePath(path string) (EntityKind, string, error) {
	dir, file, ok := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if !ok {
		return 0, "", fmt.Errorf("remote path %q: missing collection directory", path)
	}
	kind, ok := KindFromRemoteDir(dir)
	if !ok {
		return 0, "", fmt.Errorf("remote path %q: unknown collection %q", path, dir)
	}
	id := strings.TrimSuffix(file, ".json")
	if id == "" || id == file {
		return 0, "", fmt.Errorf("remote path %q: malformed entity file name", path)
	}
	return kind, id, nil
}
