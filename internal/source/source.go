// Package source provides the frames that source nodes pull from: image
// sequences on disk or in memory, with a shared playback cursor.
package source

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
)

var (
	// ErrNoFrames is returned by a sequence with nothing loaded.
	ErrNoFrames = errors.New("no frames loaded")
	// ErrOutOfBounds is returned for negative indices, and for indices past
	// the end when loop mode is off.
	ErrOutOfBounds = errors.New("frame index out of bounds")
)

// FrameService is what source nodes call once per compute.
type FrameService interface {
	// NextFrames returns n consecutive frames starting at the current index
	// plus offset. gray requests single-channel images.
	NextFrames(n, offset int, gray bool) ([]image.Image, error)
}

// Seeker is a FrameService with a movable cursor.
type Seeker interface {
	FrameService
	Len() int
	Current() int
	Seek(idx int) error
	Step(delta int) (int, error)
}

// cursor holds the playback position shared by all sequence types.
type cursor struct {
	mu      sync.RWMutex
	current int
	loop    bool
}

// resolve maps a relative index onto [0, count). In loop mode indices past
// the end wrap around; negative indices never wrap.
func (c *cursor) resolve(idx, count int) (int, error) {
	if count == 0 {
		return 0, ErrNoFrames
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: %d", ErrOutOfBounds, idx)
	}
	if idx >= count {
		if !c.loop {
			return 0, fmt.Errorf("%w: %d of %d", ErrOutOfBounds, idx, count)
		}
		idx %= count
	}
	return idx, nil
}

func (c *cursor) indices(n, offset, count int) ([]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid frame count %d", n)
	}
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()

	out := make([]int, n)
	for i := range out {
		idx, err := c.resolve(current+i+offset, count)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

func (c *cursor) seek(idx, count int) error {
	if count == 0 {
		return ErrNoFrames
	}
	if idx < 0 || idx >= count {
		return fmt.Errorf("%w: %d of %d", ErrOutOfBounds, idx, count)
	}
	c.mu.Lock()
	c.current = idx
	c.mu.Unlock()
	return nil
}

func (c *cursor) step(delta, count int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, err := c.resolve(c.current+delta, count)
	if err != nil {
		return c.current, err
	}
	c.current = idx
	return idx, nil
}

func (c *cursor) position() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// ToGray converts any image to a single channel using the standard
// luminance model.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return gray
}
