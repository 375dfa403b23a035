package scratchpad

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/runnerr0/scratchpad/internal/config"
	"github.com/runnerr0/scratchpad/internal/stash"
	"github.com/runnerr0/scratchpad/internal/storage"
)

// Open loads the stash store from blobs, seeds the drawing from a legacy
// blob when one is migrated, and restores the saved drawing. A drawing
// that fails to load leaves the board blank.
func Open(ctx context.Context, blobs storage.Adapter, settings *config.Settings, opts ...Option) (*Session, error) {
	configured := &Session{}
	for _, o := range opts {
		o(configured)
	}
	log := configured.log
	if log == nil {
		log = slog.Default()
	}

	store, err := stash.Open(ctx, blobs, settings.Storage.DataFile, stash.LimitsFrom(settings),
		stash.WithLogger(log),
		stash.WithLegacyCanvas(saveLegacyCanvas(blobs, settings.Storage.DrawingFile)),
	)
	if err != nil {
		return nil, fmt.Errorf("open stash store: %w", err)
	}

	s := New(ctx, store, blobs, settings, append(opts, WithLogger(log))...)
	if err := s.LoadDrawing(ctx); err != nil {
		log.Warn("scratchpad: starting with a blank drawing", "error", err)
	}
	return s, nil
}
