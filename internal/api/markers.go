package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/UnknownOlympus/waymark/internal/mapview"
	"github.com/UnknownOlympus/waymark/internal/surface"
	"github.com/gorilla/websocket"
)

// Stream message types sent to clients.
const (
	MessageMarkers = "markers"
	MessageAck     = "ack"
	MessageError   = "error"
)

// StreamMessage is one frame sent on the marker stream.
type StreamMessage struct {
	Type    string                     `json:"type"`
	Markers *surface.FeatureCollection `json:"markers,omitempty"`
	Key     string                     `json:"key,omitempty"`
	Message string                     `json:"message,omitempty"`
}

func (s *Server) markers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/geo+json")
	sendJSON(w, r, s.layer.Collection(), http.StatusOK)
}

// stream pushes the marker collection on connect and after every change, and
// accepts popup actions from the client.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WarnContext(r.Context(), "Connection upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	// The server's read and write timeouts must not end a long-lived stream.
	if err = conn.NetConn().SetDeadline(time.Time{}); err != nil {
		s.log.WarnContext(r.Context(), "Failed to clear stream deadlines", "error", err)
		return
	}

	s.metrics.StreamConnections.Inc()
	defer s.metrics.StreamConnections.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	changes, stopWatch := s.layer.Watch()
	defer stopWatch()

	replies := make(chan StreamMessage, 8)
	go s.readActions(ctx, cancel, conn, replies)

	if err = s.sendMarkers(conn); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			err = s.sendMarkers(conn)
		case reply := <-replies:
			err = conn.WriteJSON(reply)
		}
		if err != nil {
			s.log.DebugContext(ctx, "Marker stream write failed", "error", err)
			return
		}
	}
}

func (s *Server) sendMarkers(conn *websocket.Conn) error {
	collection := s.layer.Collection()
	return conn.WriteJSON(StreamMessage{Type: MessageMarkers, Markers: &collection})
}

func (s *Server) readActions(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, replies chan<- StreamMessage) {
	defer cancel()

	for {
		var action mapview.PopupAction
		if err := conn.ReadJSON(&action); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.DebugContext(ctx, "Marker stream read failed", "error", err)
			}
			return
		}

		reply := StreamMessage{Type: MessageAck, Key: action.Key}
		if err := s.applyAction(ctx, action); err != nil {
			reply = StreamMessage{Type: MessageError, Key: action.Key, Message: err.Error()}
		}

		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

var errUnsupportedAction = errors.New("only delete can be sent on the marker stream")

func (s *Server) applyAction(ctx context.Context, action mapview.PopupAction) error {
	if action.Key == "" {
		return errors.New("action key is required")
	}
	switch action.Kind {
	case mapview.ActionDelete:
		return s.controller.Delete(ctx, action.Key)
	case mapview.ActionEdit:
		return errUnsupportedAction
	default:
		return fmt.Errorf("%w: %q", mapview.ErrUnknownAction, action.Kind)
	}
}
