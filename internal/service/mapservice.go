package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/waymark/internal/mapview"
	"github.com/UnknownOlympus/waymark/internal/pointstore"
)

// ChangeListener delivers changes made by other instances.
type ChangeListener interface {
	Listen(ctx context.Context, handler func(pointstore.Change)) error
}

// ExternalNotifier republishes foreign changes to local subscribers.
type ExternalNotifier interface {
	NotifyExternal()
}

// MapService keeps the server-side map view attached for the lifetime of the
// process, wires in changes from other instances and periodically resyncs.
type MapService struct {
	log            *slog.Logger
	controller     *mapview.Controller
	surface        mapview.Surface
	notifier       ExternalNotifier
	listener       ChangeListener // nil when running standalone
	resyncInterval time.Duration  // zero disables periodic resync
}

func NewMapService(
	log *slog.Logger,
	controller *mapview.Controller,
	surface mapview.Surface,
	notifier ExternalNotifier,
	listener ChangeListener,
	resyncInterval time.Duration,
) *MapService {
	return &MapService{
		log:            log,
		controller:     controller,
		surface:        surface,
		notifier:       notifier,
		listener:       listener,
		resyncInterval: resyncInterval,
	}
}

// Run attaches the map view and blocks until ctx is cancelled, then detaches.
func (ms *MapService) Run(ctx context.Context) {
	if err := ms.controller.Attach(ctx, ms.surface); err != nil {
		ms.log.ErrorContext(ctx, "Initial marker load failed", "error", err)
	}
	defer ms.controller.Detach()

	if ms.listener != nil {
		go ms.listen(ctx)
	}

	var tick <-chan time.Time
	if ms.resyncInterval > 0 {
		ticker := time.NewTicker(ms.resyncInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	ms.log.InfoContext(ctx, "Map service started", "resync_interval", ms.resyncInterval)

	for {
		select {
		case <-ctx.Done():
			ms.log.InfoContext(ctx, "Map service stopped")
			return
		case <-tick:
			ms.resync(ctx)
		}
	}
}

func (ms *MapService) listen(ctx context.Context) {
	err := ms.listener.Listen(ctx, func(change pointstore.Change) {
		ms.log.DebugContext(ctx, "Point changed on another instance", "op", change.Op, "id", change.PointID)
		ms.notifier.NotifyExternal()
	})
	if err != nil {
		ms.log.ErrorContext(ctx, "Change listener stopped", "error", err)
	}
}

func (ms *MapService) resync(ctx context.Context) {
	ms.log.DebugContext(ctx, "Resyncing markers")
	err := ms.controller.Reload(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		ms.log.ErrorContext(ctx, "Failed to resync markers", "error", err)
	}
}
