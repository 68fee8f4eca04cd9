// Package confirm asks the user before destructive actions run.
package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pjuu/client/internal/events"
	"github.com/pjuu/client/internal/metrics"
	"github.com/pjuu/client/internal/page"
)

// ErrDeclined is returned when the user did not confirm an action.
var ErrDeclined = errors.New("action not confirmed")

// Prompter asks a yes/no question.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, question string) (bool, error)

func (f PrompterFunc) Confirm(ctx context.Context, question string) (bool, error) {
	return f(ctx, question)
}

// AutoConfirm accepts every question, for --yes.
var AutoConfirm Prompter = PrompterFunc(func(context.Context, string) (bool, error) {
	return true, nil
})

// StdPrompter writes questions to a terminal and reads one answer line per
// question. Only "y" and "yes" (any case) confirm; EOF declines.
type StdPrompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewStdPrompter(in io.Reader, out io.Writer) *StdPrompter {
	return &StdPrompter{in: bufio.NewReader(in), out: out}
}

func (p *StdPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := fmt.Fprintf(p.out, "%s [y/N] ", question); err != nil {
		return false, err
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Question returns the prompt shown before an action of kind on target.
func Question(kind page.ActionKind, target string) string {
	switch kind {
	case page.ActionDelete:
		return "Do you want to delete this post?"
	case page.ActionHidePost:
		return "Do you want to hide this post?"
	case page.ActionHideAlert:
		return "Do you want to hide this alert?"
	case page.ActionUnfollow:
		return fmt.Sprintf("Do you want to unfollow %s?", target)
	}
	return fmt.Sprintf("Do you want to %s %s?", kind, target)
}

// destructive maps the classes of a clicked target to the action it performs.
var destructive = []struct {
	kind    page.ActionKind
	classes []string
}{
	{page.ActionDelete, []string{"delete"}},
	{page.ActionHidePost, []string{"post", "hide"}},
	{page.ActionHideAlert, []string{"alert", "hide"}},
	{page.ActionUnfollow, []string{"action", "unfollow"}},
}

func kindOf(t events.Target) (page.ActionKind, bool) {
	for _, d := range destructive {
		if events.HasClass(d.classes...)(t) {
			return d.kind, true
		}
	}
	return "", false
}

// Gate intercepts destructive actions and lets them through only when the
// prompter confirms.
type Gate struct {
	prompter Prompter
}

func NewGate(p Prompter) *Gate {
	return &Gate{prompter: p}
}

// Allow asks about kind on target. A declined action returns ErrDeclined.
func (g *Gate) Allow(ctx context.Context, kind page.ActionKind, target string) error {
	ok, err := g.prompter.Confirm(ctx, Question(kind, target))
	if err != nil {
		metrics.ConfirmationsTotal.WithLabelValues(string(kind), "error").Inc()
		return fmt.Errorf("confirmation for %s failed: %w", kind, err)
	}
	if !ok {
		metrics.ConfirmationsTotal.WithLabelValues(string(kind), "declined").Inc()
		log.Debug().Str("action", string(kind)).Str("target", target).Msg("Action declined")
		return fmt.Errorf("%s %s: %w", kind, target, ErrDeclined)
	}
	metrics.ConfirmationsTotal.WithLabelValues(string(kind), "confirmed").Inc()
	return nil
}

// Bind registers the gate on d. A declined action has its default
// prevented and its propagation stopped; the event is otherwise untouched.
func (g *Gate) Bind(d *events.Delegator) {
	match := func(t events.Target) bool {
		_, ok := kindOf(t)
		return ok
	}

	d.On(events.Click, match, func(ctx context.Context, e *events.Event) error {
		kind, _ := kindOf(e.Target)
		err := g.Allow(ctx, kind, e.Target.Item)
		if errors.Is(err, ErrDeclined) {
			e.PreventDefault()
			e.StopPropagation()
			return nil
		}
		return err
	})
}

// ActionEvent builds the click event for action a whose default submits
// the action's form.
func ActionEvent(a *page.Action, run func(ctx context.Context) error) *events.Event {
	var classes []string
	switch a.Kind {
	case page.ActionDelete:
		classes = []string{"post", "delete"}
	case page.ActionHidePost:
		classes = []string{"post", "hide"}
	case page.ActionHideAlert:
		classes = []string{"alert", "hide"}
	case page.ActionUnfollow:
		classes = []string{"action", "unfollow"}
	}
	return &events.Event{
		Type:    events.Click,
		Target:  events.Target{Classes: classes, Item: a.Target, Ref: a},
		Default: run,
	}
}
