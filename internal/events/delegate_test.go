package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelegator_DispatchesToMatchingListeners(t *testing.T) {
	d := NewDelegator()
	var calls []string

	d.On(Click, HasClass("upvote"), func(_ context.Context, e *Event) error {
		calls = append(calls, "up:"+e.Target.Item)
		return nil
	})
	d.On(Click, HasClass("downvote"), func(_ context.Context, e *Event) error {
		calls = append(calls, "down:"+e.Target.Item)
		return nil
	})
	d.On("submit", HasClass("upvote"), func(_ context.Context, _ *Event) error {
		calls = append(calls, "wrong-type")
		return nil
	})

	err := d.Dispatch(context.Background(), &Event{Type: Click, Target: Target{Classes: []string{"upvote", "active"}, Item: "p1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"up:p1"}, calls)
}

func TestDelegator_DefaultRunsUnlessPrevented(t *testing.T) {
	d := NewDelegator()
	d.On(Click, HasClass("delete"), func(_ context.Context, e *Event) error {
		if e.Target.Item == "keep" {
			e.PreventDefault()
		}
		return nil
	})

	ran := 0
	def := func(context.Context) error { ran++; return nil }

	require.NoError(t, d.Dispatch(context.Background(), &Event{Type: Click, Target: Target{Classes: []string{"delete"}, Item: "drop"}, Default: def}))
	assert.Equal(t, 1, ran)

	e := &Event{Type: Click, Target: Target{Classes: []string{"delete"}, Item: "keep"}, Default: def}
	require.NoError(t, d.Dispatch(context.Background(), e))
	assert.Equal(t, 1, ran)
	assert.True(t, e.DefaultPrevented())
}

func TestDelegator_StopPropagation(t *testing.T) {
	d := NewDelegator()
	second := false
	d.On(Click, HasClass("hide"), func(_ context.Context, e *Event) error {
		e.StopPropagation()
		return nil
	})
	d.On(Click, HasClass("hide"), func(_ context.Context, _ *Event) error {
		second = true
		return nil
	})

	e := &Event{Type: Click, Target: Target{Classes: []string{"hide"}}}
	require.NoError(t, d.Dispatch(context.Background(), e))
	assert.False(t, second)
	assert.True(t, e.PropagationStopped())
}

func TestDelegator_ListenerErrorAbortsDefault(t *testing.T) {
	d := NewDelegator()
	boom := errors.New("boom")
	d.On(Click, AnyOf(HasClass("a"), HasClass("b")), func(context.Context, *Event) error { return boom })

	ran := false
	err := d.Dispatch(context.Background(), &Event{
		Type:    Click,
		Target:  Target{Classes: []string{"b"}},
		Default: func(context.Context) error { ran = true; return nil },
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
}
