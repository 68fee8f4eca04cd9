package vote

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjuu/client/internal/events"
	"github.com/pjuu/client/internal/flash"
	"github.com/pjuu/client/internal/pjuutest"
	"github.com/pjuu/client/internal/retry"
	"github.com/pjuu/client/internal/site"
)

func loadFeed(t *testing.T, srv *pjuutest.Server, session string) (*site.Client, Pairs) {
	t.Helper()
	client, err := site.New(site.Config{
		BaseURL:      srv.URL,
		SessionValue: session,
		Retry:        &retry.RetryConfig{},
	})
	require.NoError(t, err)

	doc, err := client.FetchPage(context.Background(), "/feed")
	require.NoError(t, err)
	return client, PairsFromDocument(doc)
}

func TestBind_VoteThroughDelegator(t *testing.T) {
	srv := pjuutest.New(t)
	client, pairs := loadFeed(t, srv, pjuutest.SessionValue)

	bus := flash.NewBus()
	d := events.NewDelegator()
	Bind(d, NewController(client, bus), pairs)

	pair, err := pairs.Get("p1")
	require.NoError(t, err)

	e := ClickEvent(pair, Down)
	require.NoError(t, d.Dispatch(context.Background(), e))
	assert.True(t, e.DefaultPrevented())

	s := pair.State()
	assert.Equal(t, "10", s.Score)
	assert.Equal(t, Active, s.Down.Mode)
	assert.Equal(t, "10", srv.Post("p1").Score)
	assert.Equal(t, []flash.Message{{Category: flash.Success, Text: "You downvoted the post"}}, bus.Messages())

	// Upvoting now cancels the downvote as well.
	require.NoError(t, d.Dispatch(context.Background(), ClickEvent(pair, Up)))
	s = pair.State()
	assert.Equal(t, "12", s.Score)
	assert.Equal(t, Active, s.Up.Mode)
	assert.Equal(t, Inactive, s.Down.Mode)
	assert.Equal(t, srv.Post("p1").Score, s.Score)

	posts := srv.Requests(http.MethodPost)
	require.Len(t, posts, 2)
	for _, r := range posts {
		assert.NotEmpty(t, r.CSRFToken)
		assert.NotEmpty(t, r.RequestID)
	}
}

func TestBind_NotSignedIn(t *testing.T) {
	srv := pjuutest.New(t)
	client, pairs := loadFeed(t, srv, "")

	bus := flash.NewBus()
	d := events.NewDelegator()
	Bind(d, NewController(client, bus), pairs)

	pair, err := pairs.Get("p1")
	require.NoError(t, err)

	err = d.Dispatch(context.Background(), ClickEvent(pair, Up))
	require.Error(t, err)
	assert.ErrorIs(t, err, site.ErrUnauthorized)

	assert.Equal(t, "11", pair.State().Score)
	assert.Equal(t, []flash.Message{{Category: flash.Error, Text: SignInMessage}}, bus.Messages())
}

func TestBind_SecondClickWhileServerIsSlow(t *testing.T) {
	srv := pjuutest.New(t)
	gate := srv.GateVotes()
	client, pairs := loadFeed(t, srv, pjuutest.SessionValue)

	d := events.NewDelegator()
	Bind(d, NewController(client, flash.NewBus()), pairs)
	pair, err := pairs.Get("p1")
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		first <- d.Dispatch(context.Background(), ClickEvent(pair, Up))
	}()
	require.Eventually(t, func() bool { return pair.State().InFlight }, time.Second, time.Millisecond)

	err = d.Dispatch(context.Background(), ClickEvent(pair, Up))
	assert.ErrorIs(t, err, ErrRequestInFlight)

	gate <- struct{}{}
	require.NoError(t, <-first)

	assert.Len(t, srv.Requests(http.MethodPost), 1)
	assert.Equal(t, "12", pair.State().Score)
	assert.Equal(t, "12", srv.Post("p1").Score)
}

func TestBind_IgnoresUnknownItems(t *testing.T) {
	d := events.NewDelegator()
	sub := ok("")
	Bind(d, NewController(sub, flash.NewBus()), Pairs{})

	ran := false
	e := &events.Event{
		Type:   events.Click,
		Target: events.Target{Classes: []string{"upvote"}, Item: "ghost"},
		Default: func(context.Context) error {
			ran = true
			return nil
		},
	}
	require.NoError(t, d.Dispatch(context.Background(), e))
	assert.True(t, ran)
	assert.Equal(t, 0, sub.calls())
}

func TestClickEvent(t *testing.T) {
	pair := newTestPair("1", true, false)

	e := ClickEvent(pair, Up)
	assert.Equal(t, events.Click, e.Type)
	assert.Equal(t, []string{"upvote", "active"}, e.Target.Classes)
	assert.Equal(t, "p1", e.Target.Item)
	assert.Same(t, pair, e.Target.Ref)

	assert.Equal(t, []string{"downvote"}, ClickEvent(pair, Down).Target.Classes)
}
