package vote

import (
	"context"

	"github.com/pjuu/client/internal/events"
)

// Bind registers the vote listener on d. It handles clicks on upvote and
// downvote buttons of items in pairs; the form's own submission is always
// prevented.
func Bind(d *events.Delegator, c *Controller, pairs Pairs) {
	match := events.AnyOf(events.HasClass("upvote"), events.HasClass("downvote"))

	d.On(events.Click, match, func(ctx context.Context, e *events.Event) error {
		pair, ok := pairs[e.Target.Item]
		if !ok {
			return nil
		}
		e.PreventDefault()

		b := Up
		if e.Target.HasClass("downvote") {
			b = Down
		}
		return c.Click(ctx, pair, b)
	})
}

// ClickEvent builds the click event for button b of pair.
func ClickEvent(pair *Pair, b Button) *events.Event {
	classes := []string{b.String()}
	s := pair.State()
	c := s.Up
	if b == Down {
		c = s.Down
	}
	if c.Mode == Active {
		classes = append(classes, "active")
	}
	return &events.Event{
		Type:   events.Click,
		Target: events.Target{Classes: classes, Item: pair.ID, Ref: pair},
	}
}
