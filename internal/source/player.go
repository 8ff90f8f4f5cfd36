package source

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Player advances a sequence on a fixed interval and reports every new
// position. It is how live playback turns into push invalidation.
type Player struct {
	seq      Seeker
	interval time.Duration
	onFrame  func(idx int)
	logger   *slog.Logger
}

// NewPlayer creates a player. A nil logger means slog.Default().
func NewPlayer(seq Seeker, interval time.Duration, onFrame func(idx int), logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Millisecond
	}
	return &Player{seq: seq, interval: interval, onFrame: onFrame, logger: logger}
}

// Run blocks until ctx is done or the sequence ends (loop mode off).
func (p *Player) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.logger.Debug("Playback started.", "interval", p.interval, "frames", p.seq.Len())

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Playback stopped.", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			idx, err := p.seq.Step(1)
			if errors.Is(err, ErrOutOfBounds) {
				p.logger.Info("Playback reached the end of the sequence.", "frame", idx)
				return nil
			}
			if err != nil {
				return err
			}
			if p.onFrame != nil {
				p.onFrame(idx)
			}
		}
	}
}
