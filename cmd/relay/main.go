// Command relay is a terminal chat client for the run-agent streaming
// endpoint.
//
// Usage:
//
//	relay [--config relay.toml] [--endpoint URL] [--model NAME]
//
// Settings come from built-in defaults, the optional TOML file, RELAY_*
// environment variables and finally the flags below.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fwojciec/relay"
	bt "github.com/fwojciec/relay/bubbletea"
	"github.com/fwojciec/relay/config"
	"github.com/fwojciec/relay/session"
	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "relay",
		Usage:   "chat with a streaming run-agent backend",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "Run-agent endpoint `URL`",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model selector sent with each query",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write JSON logs to `FILE` (disabled when empty)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: trace, debug, info, warn, error",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	tp, shutdown, err := newTracerProvider(ctx, cfg.Tracing.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithTracerProvider(tp),
		session.WithModel(cfg.Model),
	}
	if cfg.UserID != "" {
		opts = append(opts, session.WithUserID(cfg.UserID))
	}
	if cfg.TenantID != "" {
		opts = append(opts, session.WithTenantID(cfg.TenantID))
	}
	ctl := session.New(newTransport(cfg), opts...)
	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("model", cfg.Model).
		Str("session_id", ctl.SessionID()).
		Msg("relay started")

	m := bt.New(ctl, relay.DefaultTheme(), bt.WithModels(cfg.Models))
	if err := bt.Run(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

// loadConfig layers command-line flags over the loaded configuration.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("endpoint") {
		cfg.Endpoint = c.String("endpoint")
	}
	if c.IsSet("model") {
		cfg.Model = c.String("model")
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
