package source

import (
	"image"
	"sync"
)

// Memory is an in-memory sequence, used by tests and generated inputs.
type Memory struct {
	cursor

	framesMu sync.RWMutex
	frames   []image.Image
}

// NewMemory wraps frames. Loop mode is on.
func NewMemory(frames ...image.Image) *Memory {
	m := &Memory{frames: frames}
	m.loop = true
	return m
}

// SetLoop toggles wrap-around past the last frame.
func (m *Memory) SetLoop(loop bool) {
	m.mu.Lock()
	m.loop = loop
	m.mu.Unlock()
}

// Append adds frames to the end of the sequence.
func (m *Memory) Append(frames ...image.Image) {
	m.framesMu.Lock()
	m.frames = append(m.frames, frames...)
	m.framesMu.Unlock()
}

func (m *Memory) Len() int {
	m.framesMu.RLock()
	defer m.framesMu.RUnlock()
	return len(m.frames)
}

func (m *Memory) Current() int                { return m.position() }
func (m *Memory) Seek(idx int) error          { return m.seek(idx, m.Len()) }
func (m *Memory) Step(delta int) (int, error) { return m.step(delta, m.Len()) }

func (m *Memory) NextFrames(n, offset int, gray bool) ([]image.Image, error) {
	m.framesMu.RLock()
	frames := m.frames
	m.framesMu.RUnlock()

	idx, err := m.indices(n, offset, len(frames))
	if err != nil {
		return nil, err
	}
	out := make([]image.Image, len(idx))
	for i, fi := range idx {
		if gray {
			out[i] = ToGray(frames[fi])
		} else {
			out[i] = normalize(frames[fi])
		}
	}
	return out, nil
}
