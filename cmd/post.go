package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pjuu/client/internal/author"
	"github.com/pjuu/client/internal/flash"
)

// PostCommand returns the post command
func PostCommand() *cli.Command {
	return &cli.Command{
		Name:      "post",
		Usage:     "Create a post, or a reply when --page is a post's page",
		ArgsUsage: "BODY... (or - to read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "page",
				Usage: "Page whose author form is used",
				Value: "/feed",
			},
		},
		Action: runPost,
	}
}

func runPost(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: BODY")
	}

	body := strings.Join(c.Args().Slice(), " ")
	if body == "-" {
		data, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return fmt.Errorf("failed to read body from stdin: %w", err)
		}
		body = strings.TrimRight(string(data), "\n")
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	doc, err := s.client.FetchPage(c.Context, c.String("page"))
	if err != nil {
		return err
	}
	if doc.Author != nil {
		fmt.Fprintln(s.out, author.Counter(body, doc.Author.MaxLength))
	}

	msg, err := author.Submit(c.Context, s.client, doc.Author, body)
	s.flashes.Clear()
	if err != nil {
		var ve *author.ValidationError
		if errors.As(err, &ve) {
			s.flashes.Flash(flash.Error, ve.Message)
		} else {
			s.failureMessage(err)
		}
		return err
	}
	s.flashes.Flash(flash.Success, msg)
	return nil
}
