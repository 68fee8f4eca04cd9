// Package events implements delegated event dispatch over page records.
//
// Listeners are registered once on a Delegator (the stable ancestor) with a
// predicate over the event target. Dispatch runs every matching listener in
// registration order and then the event's default action, unless a listener
// prevented it.
package events

import (
	"context"
	"sync"
)

// Click is the only event type the client dispatches today.
const Click = "click"

// Target classifies the element an event fired on and carries the record
// the handler operates on.
type Target struct {
	Classes []string
	Item    string
	Ref     any
}

// HasClass reports whether the target carries class.
func (t Target) HasClass(class string) bool {
	for _, c := range t.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Event is a single dispatched event.
type Event struct {
	Type    string
	Target  Target
	Default func(ctx context.Context) error

	defaultPrevented   bool
	propagationStopped bool
}

func (e *Event) PreventDefault()          { e.defaultPrevented = true }
func (e *Event) DefaultPrevented() bool   { return e.defaultPrevented }
func (e *Event) StopPropagation()         { e.propagationStopped = true }
func (e *Event) PropagationStopped() bool { return e.propagationStopped }

// Predicate selects the targets a listener handles.
type Predicate func(Target) bool

// HandlerFunc handles a matched event.
type HandlerFunc func(ctx context.Context, e *Event) error

// HasClass matches targets carrying every one of classes.
func HasClass(classes ...string) Predicate {
	return func(t Target) bool {
		for _, c := range classes {
			if !t.HasClass(c) {
				return false
			}
		}
		return true
	}
}

// AnyOf matches targets accepted by at least one predicate.
func AnyOf(preds ...Predicate) Predicate {
	return func(t Target) bool {
		for _, p := range preds {
			if p(t) {
				return true
			}
		}
		return false
	}
}

type listener struct {
	eventType string
	match     Predicate
	handle    HandlerFunc
}

// Delegator holds listeners for one page.
type Delegator struct {
	mu        sync.RWMutex
	listeners []listener
}

func NewDelegator() *Delegator {
	return &Delegator{}
}

// On registers handle for events of eventType whose target satisfies match.
func (d *Delegator) On(eventType string, match Predicate, handle HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, listener{eventType: eventType, match: match, handle: handle})
}

// Dispatch delivers e to matching listeners, then runs e.Default unless it
// was prevented. The first listener error aborts dispatch.
func (d *Delegator) Dispatch(ctx context.Context, e *Event) error {
	d.mu.RLock()
	listeners := make([]listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for _, l := range listeners {
		if e.propagationStopped {
			break
		}
		if l.eventType != e.Type || !l.match(e.Target) {
			continue
		}
		if err := l.handle(ctx, e); err != nil {
			return err
		}
	}

	if e.Default != nil && !e.defaultPrevented {
		return e.Default(ctx)
	}
	return nil
}
