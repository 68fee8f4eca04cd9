package vote

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/pjuu/client/internal/page"
)

var (
	// ErrRequestInFlight is returned for a click on a pair whose previous
	// vote has not completed. Nothing is dispatched.
	ErrRequestInFlight = errors.New("vote request already in flight")

	// ErrStaleTransition is returned when the requested transition no
	// longer matches the pair's button modes.
	ErrStaleTransition = errors.New("transition does not match current vote state")

	// ErrNoControl is returned when the page rendered no form for a button.
	ErrNoControl = errors.New("vote button not present")
)

// Mode is the visual state of a vote button.
type Mode int

const (
	Inactive Mode = iota
	Active
)

func (m Mode) String() string {
	if m == Active {
		return "active"
	}
	return "inactive"
}

// Button identifies one side of a pair.
type Button int

const (
	Up Button = iota
	Down
)

func (b Button) String() string {
	if b == Up {
		return "upvote"
	}
	return "downvote"
}

// Control is one vote button.
type Control struct {
	Form     page.Form
	Present  bool
	Mode     Mode
	Disabled bool
	Focused  bool
}

// State is a point-in-time copy of a pair.
type State struct {
	Up       Control
	Down     Control
	Score    string
	InFlight bool
}

// Pair is the upvote/downvote pair of one votable item. All access goes
// through its mutex; inFlight is the per-pair request lock.
type Pair struct {
	ID string

	mu       sync.Mutex
	up       Control
	down     Control
	score    string
	inFlight bool
}

// NewPair builds a pair from a parsed votable item. A page that marks both
// buttons active keeps the upvote.
func NewPair(v *page.Votable) *Pair {
	p := &Pair{ID: v.ID, score: v.Score}
	if v.Up != nil {
		p.up = Control{Form: v.Up.Form, Present: true, Mode: modeOf(v.Up.Active)}
	}
	if v.Down != nil {
		p.down = Control{Form: v.Down.Form, Present: true, Mode: modeOf(v.Down.Active)}
	}
	if p.up.Mode == Active && p.down.Mode == Active {
		p.down.Mode = Inactive
	}
	return p
}

func modeOf(active bool) Mode {
	if active {
		return Active
	}
	return Inactive
}

// Pairs indexes the pairs of one page by item id.
type Pairs map[string]*Pair

// PairsFromDocument builds a pair for every votable item on doc.
func PairsFromDocument(doc *page.Document) Pairs {
	pairs := make(Pairs, len(doc.Votables))
	for _, v := range doc.Votables {
		pairs[v.ID] = NewPair(v)
	}
	return pairs
}

// Get returns the pair for id.
func (ps Pairs) Get(id string) (*Pair, error) {
	p, ok := ps[id]
	if !ok {
		return nil, fmt.Errorf("vote pair %q: %w", id, page.ErrNotFound)
	}
	return p, nil
}

// State returns a copy of the pair's current state.
func (p *Pair) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{Up: p.up, Down: p.down, Score: p.score, InFlight: p.inFlight}
}

// TransitionFor derives the transition a click on b would cause now.
func TransitionFor(p *Pair, b Button) Transition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return transitionFor(b, p.up.Mode, p.down.Mode)
}

func (p *Pair) control(b Button) *Control {
	if b == Up {
		return &p.up
	}
	return &p.down
}

// acquire takes the request lock for t, disables both buttons and returns
// the form to submit.
func (p *Pair) acquire(t Transition) (page.Form, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inFlight {
		return page.Form{}, ErrRequestInFlight
	}
	c := p.control(t.Button())
	if !c.Present {
		return page.Form{}, fmt.Errorf("%s on %s: %w", t.Button(), p.ID, ErrNoControl)
	}
	if transitionFor(t.Button(), p.up.Mode, p.down.Mode) != t {
		return page.Form{}, fmt.Errorf("%s on %s: %w", t, p.ID, ErrStaleTransition)
	}

	p.inFlight = true
	p.up.Disabled = true
	p.down.Disabled = true
	c.Focused = true
	return c.Form, nil
}

// release re-enables the pair. On a confirmed success it first applies t:
// modes change and the score moves by the delta. A score that is not an
// integer is left as it is.
func (p *Pair) release(t Transition, confirmed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if confirmed {
		other := p.down.Mode
		if t.Button() == Down {
			other = p.up.Mode
		}
		if n, err := strconv.Atoi(strings.TrimSpace(p.score)); err == nil {
			if d := Delta(t, other); !overflows(n, d) {
				p.score = strconv.Itoa(n + d)
			}
		}
		p.up.Mode, p.down.Mode = apply(t, p.up.Mode, p.down.Mode)
		p.up.Focused = false
		p.down.Focused = false
	}

	p.up.Disabled = false
	p.down.Disabled = false
	p.inFlight = false
}

func overflows(n, d int) bool {
	return (d > 0 && n > math.MaxInt-d) || (d < 0 && n < math.MinInt-d)
}
