// Package fsutil provides file system utility functions shared by the
// pipeline loader and the snapshot file store.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FindFilesByExtension walks root and returns every regular file whose name
// ends in one of the extensions, sorted by path. Matching is case
// insensitive.
func FindFilesByExtension(root string, extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		panic("at least one extension is required")
	}
	lowered := make([]string, len(extensions))
	for i, ext := range extensions {
		lowered[i] = strings.ToLower(ext)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		for _, ext := range lowered {
			if strings.HasSuffix(name, ext) {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
