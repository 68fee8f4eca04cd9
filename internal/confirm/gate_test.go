package confirm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjuu/client/internal/events"
	"github.com/pjuu/client/internal/page"
)

func answer(ok bool) (Prompter, *[]string) {
	var asked []string
	return PrompterFunc(func(_ context.Context, q string) (bool, error) {
		asked = append(asked, q)
		return ok, nil
	}), &asked
}

func TestQuestion(t *testing.T) {
	tests := []struct {
		kind   page.ActionKind
		target string
		want   string
	}{
		{page.ActionDelete, "p1", "Do you want to delete this post?"},
		{page.ActionHidePost, "p1", "Do you want to hide this post?"},
		{page.ActionHideAlert, "a1", "Do you want to hide this alert?"},
		{page.ActionUnfollow, "carol", "Do you want to unfollow carol?"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Question(tt.kind, tt.target))
	}
}

func TestGate_DeclinedPreventsDefault(t *testing.T) {
	kinds := []page.ActionKind{page.ActionDelete, page.ActionHidePost, page.ActionHideAlert, page.ActionUnfollow}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			prompter, asked := answer(false)
			d := events.NewDelegator()
			NewGate(prompter).Bind(d)

			laterListener := false
			d.On(events.Click, func(events.Target) bool { return true }, func(context.Context, *events.Event) error {
				laterListener = true
				return nil
			})

			ran := false
			e := ActionEvent(&page.Action{Kind: kind, Target: "x"}, func(context.Context) error {
				ran = true
				return nil
			})
			require.NoError(t, d.Dispatch(context.Background(), e))

			assert.False(t, ran)
			assert.False(t, laterListener)
			assert.True(t, e.DefaultPrevented())
			assert.True(t, e.PropagationStopped())
			assert.Equal(t, []string{Question(kind, "x")}, *asked)
		})
	}
}

func TestGate_ConfirmedRunsDefault(t *testing.T) {
	prompter, asked := answer(true)
	d := events.NewDelegator()
	NewGate(prompter).Bind(d)

	ran := false
	e := ActionEvent(&page.Action{Kind: page.ActionUnfollow, Target: "carol"}, func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, d.Dispatch(context.Background(), e))

	assert.True(t, ran)
	assert.False(t, e.DefaultPrevented())
	assert.Equal(t, []string{"Do you want to unfollow carol?"}, *asked)
}

func TestGate_IgnoresNonDestructiveTargets(t *testing.T) {
	prompter, asked := answer(false)
	d := events.NewDelegator()
	NewGate(prompter).Bind(d)

	e := &events.Event{Type: events.Click, Target: events.Target{Classes: []string{"upvote"}, Item: "p1"}}
	require.NoError(t, d.Dispatch(context.Background(), e))
	assert.False(t, e.DefaultPrevented())
	assert.Empty(t, *asked)
}

func TestGate_PrompterError(t *testing.T) {
	boom := errors.New("terminal closed")
	g := NewGate(PrompterFunc(func(context.Context, string) (bool, error) { return false, boom }))

	err := g.Allow(context.Background(), page.ActionDelete, "p1")
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrDeclined))
}

func TestGate_AutoConfirm(t *testing.T) {
	assert.NoError(t, NewGate(AutoConfirm).Allow(context.Background(), page.ActionDelete, "p1"))
}

func TestStdPrompter(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			p := NewStdPrompter(strings.NewReader(tt.input), &out)

			got, err := p.Confirm(context.Background(), "Do you want to delete this post?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Do you want to delete this post? [y/N] ", out.String())
		})
	}
}

func TestStdPrompter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStdPrompter(strings.NewReader("y\n"), &bytes.Buffer{}).Confirm(ctx, "?")
	assert.ErrorIs(t, err, context.Canceled)
}
