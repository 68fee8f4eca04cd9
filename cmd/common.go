package cmd

import (
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/pjuu/client/internal/config"
	"github.com/pjuu/client/internal/events"
	"github.com/pjuu/client/internal/flash"
	"github.com/pjuu/client/internal/logging"
	"github.com/pjuu/client/internal/metrics"
	"github.com/pjuu/client/internal/site"
	"github.com/pjuu/client/internal/vote"
)

// GlobalFlags returns the flags shared by every command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Load configuration from `FILE` (default: ./pjuu.toml, then ~/.pjuu.toml)",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Load environment variables from `FILE` before reading configuration",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Override log.level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Override log.format (console, json)",
		},
	}
}

// Commands returns every top-level command.
func Commands() []*cli.Command {
	return []*cli.Command{
		VoteCommand(),
		DeleteCommand(),
		HideCommand(),
		HideAlertCommand(),
		UnfollowCommand(),
		PostCommand(),
		AlertsCommand(),
		ConfigCommand(),
	}
}

// LoadEnv loads --env-file, overriding variables already set.
func LoadEnv(c *cli.Context) error {
	path := c.String("env-file")
	if path == "" {
		return nil
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// session is everything one command invocation needs to act on the site.
type session struct {
	cfg     *config.Config
	client  *site.Client
	flashes *flash.Bus
	events  *events.Delegator
	out     io.Writer
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format, c.App.ErrWriter)

	client, err := site.New(site.Config{
		BaseURL:       cfg.Site.BaseURL,
		SessionCookie: cfg.Site.SessionCookie,
		SessionValue:  cfg.Site.SessionValue,
		Timeout:       cfg.Site.Timeout,
		RateLimit:     cfg.Site.RateLimit,
		RateBurst:     cfg.Site.RateBurst,
		AlertsPath:    cfg.Alerts.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	out := c.App.Writer
	bus := flash.NewBus()
	bus.Subscribe(func(m flash.Message) {
		fmt.Fprintf(out, "[%s] %s\n", m.Category, m.Text)
	})

	log.Debug().Str("site", cfg.Site.BaseURL).Bool("signed_in", cfg.Site.SessionValue != "").Msg("Session ready")

	return &session{
		cfg:     cfg,
		client:  client,
		flashes: bus,
		events:  events.NewDelegator(),
		out:     out,
	}, nil
}

// close writes the metrics textfile when one is configured.
func (s *session) close() {
	if s.cfg.Metrics.File == "" {
		return
	}
	if err := metrics.WriteFile(s.cfg.Metrics.File); err != nil {
		log.Warn().Err(err).Str("file", s.cfg.Metrics.File).Msg("Failed to write metrics")
	}
}

// failureMessage flashes err the way the site scripts reported a failed
// request: the server's message, or a generic one.
func (s *session) failureMessage(err error) {
	msg := site.ServerMessage(err)
	if msg == "" {
		msg = vote.FallbackMessage
	}
	s.flashes.Flash(flash.Error, msg)
}
