package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/appmigrate/internal/fsops"
)

// FileStore implements Client over a site snapshot file.
// The whole file is loaded into memory; Commit writes it back atomically.
type FileStore struct {
	*MemoryStore
	fs   fsops.FS
	path string
}

// IsSnapshotPath reports whether path names a snapshot file by extension.
func IsSnapshotPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// OpenFileStore loads the snapshot at path.
func OpenFileStore(fs fsops.FS, path string) (*FileStore, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: snapshot %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: read snapshot: %w", ErrStore, err)
	}

	snap, err := DecodeSnapshot(path, data)
	if err != nil {
		return nil, err
	}

	return &FileStore{
		MemoryStore: NewMemoryStoreFromSnapshot(snap),
		fs:          fs,
		path:        path,
	}, nil
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string {
	return s.path
}

// Commit promotes staged writes and rewrites the snapshot file.
func (s *FileStore) Commit(ctx context.Context) error {
	if !s.Dirty() {
		return s.MemoryStore.Commit(ctx)
	}

	data, err := EncodeSnapshot(s.path, s.Snapshot())
	if err != nil {
		return err
	}
	if err := s.fs.AtomicWrite(s.path, data, 0644); err != nil {
		return fmt.Errorf("%w: write snapshot: %w", ErrStore, err)
	}
	return s.MemoryStore.Commit(ctx)
}

// Backup copies the snapshot file to <path>.bak.
func (s *FileStore) Backup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := s.path + ".bak"
	if err := s.fs.Copy(s.path, dst); err != nil {
		return "", fmt.Errorf("%w: backup snapshot: %w", ErrStore, err)
	}
	return dst, nil
}

// DecodeSnapshot parses snapshot data; the format follows the file extension.
func DecodeSnapshot(path string, data []byte) (*Snapshot, error) {
	var snap Snapshot
	var err error
	if isYAML(path) {
		err = yaml.Unmarshal(data, &snap)
	} else {
		err = json.Unmarshal(data, &snap)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode snapshot %s: %w", ErrStore, path, err)
	}
	if snap.Records == nil {
		snap.Records = make(map[string][]Record)
	}
	if snap.Counts == nil {
		snap.Counts = make(map[string]int)
	}
	return &snap, nil
}

// EncodeSnapshot serializes snap; the format follows the file extension.
func EncodeSnapshot(path string, snap *Snapshot) ([]byte, error) {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(snap)
	} else {
		data, err = json.MarshalIndent(snap, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: encode snapshot: %w", ErrStore, err)
	}
	return data, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
