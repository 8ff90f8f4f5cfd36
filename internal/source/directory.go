package source

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// imageExtensions lists the file types a directory sequence picks up.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

const defaultCacheSize = 64

type cacheKey struct {
	path string
	gray bool
}

// Directory is an image sequence read from the files of one directory,
// sorted by name. Decoded frames are kept in an LRU cache.
type Directory struct {
	cursor

	dir       string
	cacheSize int
	logger    *slog.Logger

	filesMu sync.RWMutex
	files   []string
	cache   *lru.Cache
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithLoop enables wrap-around past the last frame. It is on by default.
func WithLoop(loop bool) DirectoryOption {
	return func(d *Directory) { d.loop = loop }
}

// WithCacheSize sets how many decoded frames are kept.
func WithCacheSize(n int) DirectoryOption {
	return func(d *Directory) {
		if n > 0 {
			d.cacheSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) DirectoryOption {
	return func(d *Directory) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// OpenDirectory scans dir for image files. A directory without any is an
// error.
func OpenDirectory(dir string, opts ...DirectoryOption) (*Directory, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid path %s: not a directory", dir)
	}

	d := &Directory{
		dir:       dir,
		cacheSize: defaultCacheSize,
		logger:    slog.Default(),
	}
	d.loop = true
	for _, opt := range opts {
		opt(d)
	}
	cache, err := lru.New(d.cacheSize)
	if err != nil {
		return nil, err
	}
	d.cache = cache

	if err := d.Rescan(); err != nil {
		return nil, err
	}
	if d.Len() == 0 {
		return nil, fmt.Errorf("%w: no image files in %s", ErrNoFrames, dir)
	}
	return d, nil
}

// Path returns the directory being read.
func (d *Directory) Path() string { return d.dir }

// Rescan re-lists the directory, drops cached frames and clamps the cursor
// to the new length.
func (d *Directory) Rescan() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", d.dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(d.dir, e.Name()))
	}
	sort.Strings(files)

	d.filesMu.Lock()
	d.files = files
	d.filesMu.Unlock()
	d.cache.Purge()

	d.mu.Lock()
	if d.current >= len(files) {
		d.current = 0
	}
	d.mu.Unlock()

	d.logger.Debug("Frame directory scanned.", "path", d.dir, "frames", len(files))
	return nil
}

// Len returns the number of frames.
func (d *Directory) Len() int {
	d.filesMu.RLock()
	defer d.filesMu.RUnlock()
	return len(d.files)
}

// Current returns the cursor position.
func (d *Directory) Current() int { return d.position() }

// Seek moves the cursor to an absolute index.
func (d *Directory) Seek(idx int) error { return d.seek(idx, d.Len()) }

// Step moves the cursor by delta, wrapping in loop mode, and returns the
// new index.
func (d *Directory) Step(delta int) (int, error) { return d.step(delta, d.Len()) }

// NextFrames decodes n frames starting at the cursor plus offset.
func (d *Directory) NextFrames(n, offset int, gray bool) ([]image.Image, error) {
	d.filesMu.RLock()
	files := d.files
	d.filesMu.RUnlock()

	idx, err := d.indices(n, offset, len(files))
	if err != nil {
		return nil, err
	}
	frames := make([]image.Image, len(idx))
	for i, fi := range idx {
		img, err := d.load(files[fi], gray)
		if err != nil {
			return nil, err
		}
		frames[i] = img
	}
	return frames, nil
}

func (d *Directory) load(path string, gray bool) (image.Image, error) {
	key := cacheKey{path: path, gray: gray}
	if cached, ok := d.cache.Get(key); ok {
		return cached.(image.Image), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	var img image.Image
	if gray {
		img = ToGray(decoded)
	} else {
		img = normalize(decoded)
	}
	d.cache.Add(key, img)
	return img, nil
}

// normalize keeps gray images single-channel and turns everything else into
// RGBA, the two layouts node bodies work on.
func normalize(img image.Image) image.Image {
	switch img.(type) {
	case *image.Gray, *image.RGBA:
		return img
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
