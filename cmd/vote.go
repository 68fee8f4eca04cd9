package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pjuu/client/internal/vote"
)

// VoteCommand returns the vote command
func VoteCommand() *cli.Command {
	return &cli.Command{
		Name:      "vote",
		Usage:     "Click the upvote or downvote button of a post; clicking an active button undoes the vote",
		ArgsUsage: "up|down POST_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "page",
				Usage: "Page the post is shown on",
				Value: "/feed",
			},
		},
		Action: runVote,
	}
}

func runVote(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("missing required arguments: up|down POST_ID")
	}

	var button vote.Button
	switch strings.ToLower(c.Args().Get(0)) {
	case "up", "upvote":
		button = vote.Up
	case "down", "downvote":
		button = vote.Down
	default:
		return fmt.Errorf("unknown vote direction %q, want up or down", c.Args().Get(0))
	}
	postID := c.Args().Get(1)

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	doc, err := s.client.FetchPage(c.Context, c.String("page"))
	if err != nil {
		return err
	}

	pairs := vote.PairsFromDocument(doc)
	pair, err := pairs.Get(postID)
	if err != nil {
		return err
	}

	vote.Bind(s.events, vote.NewController(s.client, s.flashes), pairs)
	if err := s.events.Dispatch(c.Context, vote.ClickEvent(pair, button)); err != nil {
		if errors.Is(err, vote.ErrRequestInFlight) {
			return fmt.Errorf("a vote on %s is already pending", postID)
		}
		return err
	}

	state := pair.State()
	fmt.Fprintf(s.out, "%s: score %s (upvote %s, downvote %s)\n", postID, state.Score, state.Up.Mode, state.Down.Mode)
	return nil
}
