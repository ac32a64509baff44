package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/UnknownOlympus/waymark/internal/interaction"
	"github.com/UnknownOlympus/waymark/internal/metrics"
	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/UnknownOlympus/waymark/internal/pointstore"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotAttached is returned by every operation except Attach while no surface is bound.
	ErrNotAttached = errors.New("map view is not attached")
	// ErrUnknownAction is returned by HandleAction for an unrecognised affordance.
	ErrUnknownAction = errors.New("unknown popup action")
)

// Store is the part of the point store the controller depends on.
type Store interface {
	ReadAll(ctx context.Context) (map[string]models.Point, error)
	Update(ctx context.Context, id string, input models.PointInput) error
	Delete(ctx context.Context, id string) error
	Subscribe(listener func()) *pointstore.Subscription
}

// Controller keeps the markers on a surface consistent with the point store.
type Controller struct {
	store     Store
	prompter  interaction.Prompter
	navigator interaction.Navigator
	log       *slog.Logger
	metrics   *metrics.Metrics

	flight    singleflight.Group
	requested atomic.Uint64

	mu       sync.Mutex
	surface  Surface
	sub      *pointstore.Subscription
	bgCtx    context.Context //nolint:containedctx // lives exactly as long as one attachment
	cancel   context.CancelFunc
	epoch    uint64
	loaded   uint64
	rendered map[string]Marker
}

func NewController(
	store Store,
	prompter interaction.Prompter,
	navigator interaction.Navigator,
	log *slog.Logger,
	m *metrics.Metrics,
) *Controller {
	return &Controller{
		store:     store,
		prompter:  prompter,
		navigator: navigator,
		log:       log,
		metrics:   m,
		rendered:  make(map[string]Marker),
	}
}

// Attach binds the controller to surface, subscribes to store changes and
// performs the initial load. Attaching while already attached does nothing.
func (c *Controller) Attach(ctx context.Context, surface Surface) error {
	c.mu.Lock()
	if c.surface != nil {
		c.mu.Unlock()
		return nil
	}
	c.surface = surface
	c.epoch++
	c.bgCtx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	bgCtx := c.bgCtx
	c.sub = c.store.Subscribe(func() {
		go c.refresh(bgCtx)
	})
	c.mu.Unlock()

	c.log.InfoContext(ctx, "Map view attached")
	return c.Reload(ctx)
}

// Reload replaces every rendered marker with one marker per stored point.
// Concurrent calls share one in-flight load, but a call never settles for a
// load that started before the call did.
func (c *Controller) Reload(ctx context.Context) error {
	if !c.Attached() {
		return ErrNotAttached
	}

	ticket := c.requested.Add(1)
	for {
		select {
		case res := <-c.flight.DoChan("reload", c.load):
			// A load discarded by an earlier detach says nothing about this attachment.
			if errors.Is(res.Err, ErrNotAttached) && c.Attached() {
				continue
			}
			if res.Err != nil {
				return res.Err
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		fresh := c.loaded >= ticket
		c.mu.Unlock()
		if fresh {
			return nil
		}
	}
}

// Detach removes every marker, releases the surface and stops listening for
// changes. A load still in flight is discarded. Detaching twice is a no-op.
func (c *Controller) Detach() {
	c.mu.Lock()
	if c.surface == nil {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.clearMarkers()
	c.flush()
	sub := c.sub
	c.surface, c.sub, c.bgCtx, c.cancel = nil, nil, nil, nil
	c.epoch++
	c.mu.Unlock()

	sub.Unsubscribe()
	c.metrics.Markers.Set(0)
	c.log.Info("Map view detached")
}

// Attached reports whether a surface is bound.
func (c *Controller) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface != nil
}

// Markers returns the rendered markers ordered by point id.
func (c *Controller) Markers() []Marker {
	c.mu.Lock()
	defer c.mu.Unlock()

	markers := make([]Marker, 0, len(c.rendered))
	for _, id := range slices.Sorted(maps.Keys(c.rendered)) {
		markers = append(markers, c.rendered[id])
	}
	return markers
}

// Update applies an edit gesture. The view follows through the store notification.
func (c *Controller) Update(ctx context.Context, id string, input models.PointInput) error {
	if !c.Attached() {
		return ErrNotAttached
	}
	return c.store.Update(ctx, id, input)
}

// Delete applies a delete gesture and raises an alert when the store rejects it.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if !c.Attached() {
		return ErrNotAttached
	}

	err := c.store.Delete(ctx, id)
	if err != nil {
		alert := interaction.Alert{Header: "Delete Failed", Message: err.Error()}
		if errAlert := c.prompter.Alert(ctx, alert); errAlert != nil {
			c.log.ErrorContext(ctx, "Failed to show alert", "error", errAlert)
		}
		return err
	}
	return nil
}

// Edit opens the point form for id.
func (c *Controller) Edit(ctx context.Context, id string) error {
	if !c.Attached() {
		return ErrNotAttached
	}
	if err := c.navigator.Push(ctx, interaction.RouteCreate, id); err != nil {
		return fmt.Errorf("failed to open point form: %w", err)
	}
	return nil
}

// ConfirmDelete asks before deleting id and reports whether the point was deleted.
func (c *Controller) ConfirmDelete(ctx context.Context, id string) (bool, error) {
	if !c.Attached() {
		return false, ErrNotAttached
	}

	confirmed, err := c.prompter.Confirm(ctx, interaction.Confirmation{
		Header:      "Confirm Delete",
		Message:     "Are you sure you want to delete this point?",
		CancelText:  "Cancel",
		ConfirmText: "Delete",
	})
	if err != nil {
		return false, fmt.Errorf("failed to confirm delete: %w", err)
	}
	if !confirmed {
		return false, nil
	}

	if err = c.Delete(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// HandleAction dispatches a popup affordance.
func (c *Controller) HandleAction(ctx context.Context, action PopupAction) error {
	switch action.Kind {
	case ActionEdit:
		return c.Edit(ctx, action.Key)
	case ActionDelete:
		_, err := c.ConfirmDelete(ctx, action.Key)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action.Kind)
	}
}

func (c *Controller) refresh(ctx context.Context) {
	err := c.Reload(ctx)
	if err != nil && !errors.Is(err, ErrNotAttached) && !errors.Is(err, context.Canceled) {
		c.log.WarnContext(ctx, "Failed to reload markers after change", "error", err)
	}
}

func (c *Controller) load() (any, error) {
	c.mu.Lock()
	if c.surface == nil {
		c.mu.Unlock()
		return nil, ErrNotAttached
	}
	epoch, ctx := c.epoch, c.bgCtx
	covers := c.requested.Load()
	c.mu.Unlock()

	points, err := c.store.ReadAll(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.surface == nil || c.epoch != epoch {
		c.metrics.Reloads.WithLabelValues("discarded").Inc()
		return nil, ErrNotAttached
	}
	if err != nil {
		c.metrics.Reloads.WithLabelValues("failure").Inc()
		c.log.ErrorContext(ctx, "Failed to load points", "error", err)
		return nil, fmt.Errorf("failed to load points: %w", err)
	}

	c.render(ctx, points)
	c.loaded = max(c.loaded, covers)
	c.metrics.Reloads.WithLabelValues("success").Inc()
	return nil, nil
}

func (c *Controller) render(ctx context.Context, points map[string]models.Point) {
	c.clearMarkers()

	for _, id := range slices.Sorted(maps.Keys(points)) {
		point := points[id]
		position, err := models.ParseCoordinates(point.Coordinates)
		if err != nil {
			c.log.WarnContext(ctx, "Skipping point with malformed coordinates",
				"id", id, "coordinates", point.Coordinates, "error", err)
			continue
		}

		marker := newMarker(point, position)
		c.surface.AddMarker(marker)
		c.rendered[id] = marker
	}

	c.flush()
	c.metrics.Markers.Set(float64(len(c.rendered)))
	c.log.DebugContext(ctx, "Markers rendered", "count", len(c.rendered))
}

func (c *Controller) clearMarkers() {
	for id := range c.rendered {
		c.surface.RemoveMarker(id)
	}
	clear(c.rendered)
}

func (c *Controller) flush() {
	if flusher, ok := c.surface.(Flusher); ok {
		flusher.Flush()
	}
}
