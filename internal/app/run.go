package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/session"
	"github.com/vk/framegraph/internal/source"
	"github.com/vk/framegraph/modules/frames"
	"golang.org/x/sync/errgroup"
)

// Run executes the main application logic based on the provided configuration.
//
// Without a listen address and without playback the graph's sink outputs
// are evaluated once and Run returns. Otherwise Run serves until ctx ends,
// or until playback reaches the end of a non-looping sequence when there is
// no API to serve.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.Close()

	if a.config.HealthcheckPort > 0 {
		a.healthCheckServer(ctx)
		defer a.closeHealthCheckServer(ctx)
	}

	if a.api == nil && a.config.PlayInterval == 0 {
		return a.session.Do(ctx, func(env *session.Env) error {
			return a.evaluateSinks(env.Graph)
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if a.publisher != nil {
		g.Go(func() error {
			a.publisher.Run(gctx)
			return nil
		})
	}

	if a.config.Watch {
		w, err := source.NewWatcher(a.dir, 0, func() { a.framesChanged(gctx) }, a.logger)
		if err != nil {
			return fmt.Errorf("failed to watch frames directory: %w", err)
		}
		defer w.Close()
		g.Go(func() error { return w.Run(gctx) })
	}

	if a.config.PlayInterval > 0 {
		player := source.NewPlayer(a.dir, a.config.PlayInterval, func(int) { a.framesChanged(gctx) }, a.logger)
		g.Go(func() error {
			err := player.Run(gctx)
			if a.api == nil {
				cancel()
			}
			return err
		})
	}

	if a.api != nil {
		g.Go(func() error { return a.api.Listen(a.config.ListenAddr) })
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			return a.api.Shutdown(shutdownCtx)
		})
	}

	a.logger.Info("Framegraph running.", "listen", a.config.ListenAddr, "play_interval", a.config.PlayInterval, "watch", a.config.Watch)
	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// framesChanged turns a new playback position or a rescanned directory into
// invalidation of the source nodes. Without an API nobody pulls, so the
// sinks are evaluated here.
func (a *App) framesChanged(ctx context.Context) {
	err := a.session.Do(ctx, func(env *session.Env) error {
		frames.InvalidateSources(env.Graph)
		if a.api != nil {
			return nil
		}
		return a.evaluateSinks(env.Graph)
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, session.ErrClosed) {
		a.logger.Error("Frame update failed.", "error", err)
	}
}

// evaluateSinks pulls every output of every node that feeds nothing.
func (a *App) evaluateSinks(g *graph.Graph) error {
	evaluated := 0
	for _, n := range g.Nodes() {
		dependents, err := g.Dependents(n.ID())
		if err != nil {
			return err
		}
		if len(dependents) > 0 {
			continue
		}
		for _, out := range n.Outputs() {
			v, err := g.EvaluateOutput(n.ID(), out.Index())
			if err != nil {
				return fmt.Errorf("evaluating %s output %d: %w", n.Label(), out.Index(), err)
			}
			a.logger.Info("Output evaluated.", "node", n.ID(), "label", n.Label(), "output", out.Name(), "value", v.String(), "state", n.State().String())
		}
		evaluated++
	}
	if evaluated == 0 {
		a.logger.Warn("No nodes found in graph, evaluation not required.")
	}
	return nil
}
