// Package vote implements vote clicks on a page's upvote/downvote pairs.
//
// A click locks its pair, disables both buttons and submits the clicked
// button's form. Button modes and the score change only once the server
// has confirmed the vote; a failed vote leaves the pair as it was and
// flashes the reason.
package vote

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/pjuu/client/internal/flash"
	"github.com/pjuu/client/internal/logging"
	"github.com/pjuu/client/internal/metrics"
	"github.com/pjuu/client/internal/page"
	"github.com/pjuu/client/internal/site"
)

const (
	// SignInMessage is flashed when the server rejects a vote because the
	// session is not signed in.
	SignInMessage = "You need to be signed in to vote"

	// FallbackMessage is flashed when a failed vote carried no message,
	// e.g. on a timeout or transport error.
	FallbackMessage = "Something went wrong, please try again"
)

// Submitter sends a form to the server.
type Submitter interface {
	Submit(ctx context.Context, form page.Form, values url.Values) (*site.Response, error)
}

// Controller handles vote clicks.
type Controller struct {
	submitter Submitter
	flashes   *flash.Bus
}

func NewController(submitter Submitter, flashes *flash.Bus) *Controller {
	return &Controller{submitter: submitter, flashes: flashes}
}

// Click handles a click on button b of pair.
func (c *Controller) Click(ctx context.Context, pair *Pair, b Button) error {
	return c.HandleClick(ctx, pair, TransitionFor(pair, b))
}

// HandleClick submits t for pair. It returns ErrRequestInFlight without
// dispatching anything while a previous vote on the same pair is pending,
// and ErrStaleTransition if t does not match the pair's current modes.
func (c *Controller) HandleClick(ctx context.Context, pair *Pair, t Transition) error {
	form, err := pair.acquire(t)
	if err != nil {
		outcome := "rejected"
		if errors.Is(err, ErrRequestInFlight) {
			outcome = "in_flight"
		}
		metrics.VoteClicksTotal.WithLabelValues(t.String(), outcome).Inc()
		return err
	}

	ctx = logging.WithRequestID(ctx, uuid.NewString())
	logger := logging.Ctx(ctx)
	logger.Debug().
		Str("item", pair.ID).
		Str("transition", t.String()).
		Str("action", form.Action).
		Msg("Submitting vote")

	resp, err := c.submitter.Submit(ctx, form, nil)

	c.flashes.Clear()
	if err != nil {
		outcome := "failure"
		message := site.ServerMessage(err)
		if errors.Is(err, site.ErrUnauthorized) {
			outcome = "unauthorized"
			message = SignInMessage
		}
		if message == "" {
			message = FallbackMessage
		}
		c.flashes.Flash(flash.Error, message)
		pair.release(t, false)

		metrics.VoteClicksTotal.WithLabelValues(t.String(), outcome).Inc()
		logger.Warn().Err(err).
			Str("item", pair.ID).
			Str("transition", t.String()).
			Msg("Vote failed")
		return fmt.Errorf("%s on %s failed: %w", t, pair.ID, err)
	}

	c.flashes.Flash(flash.Success, resp.Message)
	pair.release(t, true)

	metrics.VoteClicksTotal.WithLabelValues(t.String(), "success").Inc()
	logger.Info().
		Str("item", pair.ID).
		Str("transition", t.String()).
		Str("score", pair.State().Score).
		Msg("Vote recorded")
	return nil
}
