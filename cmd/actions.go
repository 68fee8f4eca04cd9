package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pjuu/client/internal/confirm"
	"github.com/pjuu/client/internal/flash"
	"github.com/pjuu/client/internal/page"
)

// DeleteCommand returns the delete command
func DeleteCommand() *cli.Command {
	return actionCommand("delete", "Delete one of your posts", "POST_ID", page.ActionDelete)
}

// HideCommand returns the hide command
func HideCommand() *cli.Command {
	return actionCommand("hide", "Hide a post from your feed", "POST_ID", page.ActionHidePost)
}

// HideAlertCommand returns the hide-alert command
func HideAlertCommand() *cli.Command {
	return actionCommand("hide-alert", "Hide an alert", "ALERT_ID", page.ActionHideAlert)
}

// UnfollowCommand returns the unfollow command
func UnfollowCommand() *cli.Command {
	return actionCommand("unfollow", "Stop following a user", "USERNAME", page.ActionUnfollow)
}

func actionCommand(name, usage, argsUsage string, kind page.ActionKind) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: argsUsage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "page",
				Usage: "Page the action is shown on (default depends on the action)",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Do not ask for confirmation",
			},
		},
		Action: func(c *cli.Context) error {
			return runAction(c, kind, argsUsage)
		},
	}
}

func defaultPage(kind page.ActionKind, target string) string {
	switch kind {
	case page.ActionHideAlert:
		return "/alerts"
	case page.ActionUnfollow:
		return "/" + target
	}
	return "/feed"
}

func runAction(c *cli.Context, kind page.ActionKind, argsUsage string) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: %s", argsUsage)
	}
	target := c.Args().Get(0)

	pagePath := c.String("page")
	if pagePath == "" {
		pagePath = defaultPage(kind, target)
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	doc, err := s.client.FetchPage(c.Context, pagePath)
	if err != nil {
		return err
	}
	action, err := doc.Action(kind, target)
	if err != nil {
		return err
	}

	var prompter confirm.Prompter = confirm.NewStdPrompter(c.App.Reader, s.out)
	if c.Bool("yes") {
		prompter = confirm.AutoConfirm
	}
	confirm.NewGate(prompter).Bind(s.events)

	e := confirm.ActionEvent(action, func(ctx context.Context) error {
		resp, err := s.client.Submit(ctx, action.Form, nil)
		s.flashes.Clear()
		if err != nil {
			s.failureMessage(err)
			return fmt.Errorf("%s %s failed: %w", kind, target, err)
		}
		s.flashes.Flash(flash.Success, resp.Message)
		return nil
	})

	if err := s.events.Dispatch(c.Context, e); err != nil {
		return err
	}
	if e.DefaultPrevented() {
		fmt.Fprintln(s.out, "Cancelled")
	}
	return nil
}
