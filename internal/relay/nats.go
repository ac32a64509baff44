// Package relay carries point change announcements between waymark instances over NATS.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/waymark/internal/pointstore"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Conn is the part of *nats.Conn the relay uses.
type Conn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// envelope is the wire form of one announcement.
type envelope struct {
	Origin  string    `json:"origin"`
	Op      string    `json:"op"`
	PointID string    `json:"point_id"`
	At      time.Time `json:"at"`
}

// NATS announces local changes and delivers foreign ones.
type NATS struct {
	conn    Conn
	subject string
	origin  string
	log     *slog.Logger
	now     func() time.Time
}

// Connect dials the NATS server, retrying in the background until it is reachable.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("waymark"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return conn, nil
}

func New(conn Conn, subject string, log *slog.Logger) *NATS {
	return &NATS{
		conn:    conn,
		subject: subject,
		origin:  uuid.NewString(),
		log:     log,
		now:     time.Now,
	}
}

// Origin identifies this instance in announcements.
func (r *NATS) Origin() string { return r.origin }

// Announce publishes change for other instances.
func (r *NATS) Announce(_ context.Context, change pointstore.Change) error {
	data, err := json.Marshal(envelope{
		Origin:  r.origin,
		Op:      change.Op,
		PointID: change.PointID,
		At:      r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}

	if err = r.conn.Publish(r.subject, data); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Listen calls handler for every change announced by another instance until
// ctx is done.
func (r *NATS) Listen(ctx context.Context, handler func(pointstore.Change)) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		r.handle(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.subject, err)
	}
	r.log.InfoContext(ctx, "Listening for point changes", "subject", r.subject, "origin", r.origin)

	<-ctx.Done()
	if err = sub.Unsubscribe(); err != nil {
		r.log.Debug("Failed to unsubscribe from point changes", "error", err)
	}
	return nil
}

func (r *NATS) handle(ctx context.Context, msg *nats.Msg, handler func(pointstore.Change)) {
	if ctx.Err() != nil {
		return
	}

	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		r.log.WarnContext(ctx, "Dropping malformed change announcement", "subject", msg.Subject, "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}

	r.log.DebugContext(ctx, "Received point change", "origin", env.Origin, "op", env.Op, "id", env.PointID)
	handler(pointstore.Change{Op: env.Op, PointID: env.PointID})
}
