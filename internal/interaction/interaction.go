package interaction

import (
	"context"
	"log/slog"
	"sync"
)

// Route names the navigator understands.
const (
	RouteMaps   = "maps"
	RouteCreate = "create"
)

// Alert is a message the user acknowledges.
type Alert struct {
	Header  string
	Message string
}

// Confirmation asks the user to pick between cancelling and confirming.
type Confirmation struct {
	Header      string
	Message     string
	CancelText  string
	ConfirmText string
}

// Prompter shows alerts and confirmations.
type Prompter interface {
	Alert(ctx context.Context, alert Alert) error
	Confirm(ctx context.Context, confirmation Confirmation) (bool, error)
}

// Navigator moves between routes.
type Navigator interface {
	Push(ctx context.Context, route, param string) error
	Back(ctx context.Context) error
}

// RecentAlerts is how many alerts a HeadlessPrompter keeps for Alerts.
const RecentAlerts = 64

// HeadlessPrompter logs alerts and answers every confirmation with a fixed decision.
type HeadlessPrompter struct {
	log     *slog.Logger
	confirm bool

	mu     sync.Mutex
	alerts []Alert
}

func NewHeadlessPrompter(log *slog.Logger, confirm bool) *HeadlessPrompter {
	return &HeadlessPrompter{log: log, confirm: confirm}
}

func (p *HeadlessPrompter) Alert(ctx context.Context, alert Alert) error {
	p.mu.Lock()
	if len(p.alerts) == RecentAlerts {
		p.alerts = append(p.alerts[:0], p.alerts[1:]...)
	}
	p.alerts = append(p.alerts, alert)
	p.mu.Unlock()

	p.log.WarnContext(ctx, alert.Header, "message", alert.Message)
	return nil
}

func (p *HeadlessPrompter) Confirm(ctx context.Context, confirmation Confirmation) (bool, error) {
	p.log.DebugContext(ctx, "Confirmation answered", "header", confirmation.Header, "confirmed", p.confirm)
	return p.confirm, nil
}

// Alerts returns the most recent alerts, oldest first.
func (p *HeadlessPrompter) Alerts() []Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Alert(nil), p.alerts...)
}

// Visit is one navigation step recorded by HeadlessNavigator.
type Visit struct {
	Route string
	Param string
}

// HeadlessNavigator keeps a route stack instead of driving real pages.
type HeadlessNavigator struct {
	log *slog.Logger

	mu    sync.Mutex
	stack []Visit
}

func NewHeadlessNavigator(log *slog.Logger) *HeadlessNavigator {
	return &HeadlessNavigator{log: log, stack: []Visit{{Route: RouteMaps}}}
}

func (n *HeadlessNavigator) Push(ctx context.Context, route, param string) error {
	n.mu.Lock()
	n.stack = append(n.stack, Visit{Route: route, Param: param})
	n.mu.Unlock()

	n.log.DebugContext(ctx, "Navigated", "route", route, "param", param)
	return nil
}

// Back pops the current route. The root route is never popped.
func (n *HeadlessNavigator) Back(ctx context.Context) error {
	n.mu.Lock()
	if len(n.stack) > 1 {
		n.stack = n.stack[:len(n.stack)-1]
	}
	current := n.stack[len(n.stack)-1]
	n.mu.Unlock()

	n.log.DebugContext(ctx, "Navigated back", "route", current.Route)
	return nil
}

// Current returns the route on top of the stack.
func (n *HeadlessNavigator) Current() Visit {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stack[len(n.stack)-1]
}
