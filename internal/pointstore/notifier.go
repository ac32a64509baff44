package pointstore

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Subscription is a handle on one registered listener.
type Subscription struct {
	n        *notifier
	listener func()
	active   atomic.Bool
}

// Unsubscribe permanently removes the listener. It is safe to call more than
// once and from inside the listener itself. A delivery already running when
// Unsubscribe is called from another goroutine may still complete.
func (s *Subscription) Unsubscribe() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.n.remove(s)
}

// notifier fans payload-free change signals out to listeners.
// Deliveries are serialized so every listener sees them in publication order.
type notifier struct {
	mu        sync.Mutex
	deliverMu sync.Mutex
	subs      []*Subscription
	onChange  func(subscribers int)
}

func newNotifier(onChange func(int)) *notifier {
	return &notifier{onChange: onChange}
}

func (n *notifier) add(listener func()) *Subscription {
	sub := &Subscription{n: n, listener: listener}
	sub.active.Store(true)

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	count := len(n.subs)
	n.mu.Unlock()

	n.onChange(count)
	return sub
}

func (n *notifier) remove(sub *Subscription) {
	n.mu.Lock()
	n.subs = slices.DeleteFunc(n.subs, func(s *Subscription) bool { return s == sub })
	count := len(n.subs)
	n.mu.Unlock()

	n.onChange(count)
}

// publish calls every active listener once, in registration order, and
// returns how many were called. Listeners run on the caller's goroutine and
// must not publish again synchronously.
func (n *notifier) publish() int {
	n.deliverMu.Lock()
	defer n.deliverMu.Unlock()

	n.mu.Lock()
	subs := slices.Clone(n.subs)
	n.mu.Unlock()

	delivered := 0
	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		sub.listener()
		delivered++
	}
	return delivered
}
