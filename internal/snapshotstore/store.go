// Package snapshotstore persists named graph snapshots.
package snapshotstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/vk/framegraph/internal/snapshot"
)

var (
	ErrNotFound    = errors.New("snapshot not found")
	ErrInvalidName = errors.New("invalid snapshot name")
)

// Info describes one stored snapshot.
type Info struct {
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the contract for persisting and retrieving snapshots.
type Store interface {
	Save(ctx context.Context, name string, snap *snapshot.Snapshot) (Info, error)
	Load(ctx context.Context, name string) (*snapshot.Snapshot, error)
	List(ctx context.Context) ([]Info, error)
	Delete(ctx context.Context, name string) error
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateName accepts names that are safe as file names and URL segments.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
