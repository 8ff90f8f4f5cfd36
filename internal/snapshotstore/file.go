package snapshotstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/framegraph/internal/fsutil"
	"github.com/vk/framegraph/internal/snapshot"
)

const fileExt = ".json"

// FileStore keeps one JSON document per snapshot in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshotstore: creating %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

func (s *FileStore) Save(_ context.Context, name string, snap *snapshot.Snapshot) (Info, error) {
	if err := ValidateName(name); err != nil {
		return Info{}, err
	}
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return Info{}, fmt.Errorf("snapshotstore: encoding %s: %w", name, err)
	}
	if err := fsutil.WriteFileAtomic(s.path(name), data, 0o644); err != nil {
		return Info{}, fmt.Errorf("snapshotstore: writing %s: %w", name, err)
	}
	return s.info(s.path(name), len(snap.Nodes))
}

func (s *FileStore) Load(_ context.Context, name string) (*snapshot.Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: opening %s: %w", name, err)
	}
	defer f.Close()
	return snapshot.Read(f)
}

// List returns every stored snapshot, sorted by name. Files that are not
// valid snapshots are skipped.
func (s *FileStore) List(_ context.Context) ([]Info, error) {
	files, err := fsutil.FindFilesByExtension(s.dir, fileExt)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: listing %s: %w", s.dir, err)
	}
	infos := []Info{}
	for _, file := range files {
		if filepath.Dir(file) != filepath.Clean(s.dir) {
			continue
		}
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		snap, err := snapshot.Unmarshal(data)
		if err != nil {
			continue
		}
		info, err := s.info(file, len(snap.Nodes))
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

func (s *FileStore) info(path string, nodes int) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Name:      strings.TrimSuffix(filepath.Base(path), fileExt),
		Nodes:     nodes,
		UpdatedAt: st.ModTime().UTC(),
	}, nil
}
