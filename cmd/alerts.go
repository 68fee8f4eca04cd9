package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/pjuu/client/internal/alerts"
)

// AlertsCommand returns the alerts command
func AlertsCommand() *cli.Command {
	return &cli.Command{
		Name:  "alerts",
		Usage: "Wait until new alerts arrive",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Override alerts.interval",
			},
			&cli.StringFlag{
				Name:  "page",
				Usage: "Page loaded first to read the current alert state",
				Value: "/feed",
			},
		},
		Action: runAlerts,
	}
}

func runAlerts(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := s.client.FetchPage(ctx, c.String("page"))
	if err != nil {
		return err
	}
	if doc.HasAlerts {
		fmt.Fprintln(s.out, "You have new alerts")
		return nil
	}

	interval := s.cfg.Alerts.Interval
	if c.IsSet("interval") {
		interval = c.Duration("interval")
	}

	poller := alerts.NewPoller(s.client, alerts.WithInterval(interval), alerts.OnFound(func(n int) {
		fmt.Fprintf(s.out, "You have %d new alerts\n", n)
	}))
	log.Info().Dur("interval", poller.Interval()).Msg("Waiting for new alerts")

	if _, err := poller.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}
