package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pwshd/pwshd/agent"
	"github.com/pwshd/pwshd/internal/config"
	"github.com/pwshd/pwshd/shell"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	app := &cli.App{
		Name:  "pwshd",
		Usage: "an agent that runs PowerShell scripts for remote callers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML configuration file.",
			},
			&cli.StringFlag{
				Name:  "listen-addr",
				Usage: "The address for the HTTP server to listen on. Overrides the configured value.",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level. One of [debug,info,warn,error].",
				Value: "info",
			},
			&cli.IntFlag{
				Name:  "default-timeout",
				Usage: "Timeout in seconds applied to calls that omit one. Overrides the configured value.",
			},
			&cli.IntFlag{
				Name:  "max-command-length",
				Usage: "Maximum accepted command length in characters. Overrides the configured value.",
			},
			&cli.DurationFlag{
				Name:  "term-grace-period",
				Usage: "How long a timed-out process may take to exit before being force-killed. Overrides the configured value.",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if ctx.IsSet("listen-addr") {
		cfg.ListenAddr = ctx.String("listen-addr")
	}
	if ctx.IsSet("default-timeout") {
		cfg.DefaultTimeoutSeconds = ctx.Int("default-timeout")
	}
	if ctx.IsSet("max-command-length") {
		cfg.MaxCommandLength = ctx.Int("max-command-length")
	}
	if ctx.IsSet("term-grace-period") {
		cfg.TermGracePeriod = ctx.Duration("term-grace-period")
	}

	level, err := zapcore.ParseLevel(ctx.String("log-level"))
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := logCfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	// Resolved once; the executable identity is immutable for the process's
	// lifetime. The agent still serves when no shell is found, reporting the
	// absence on every call.
	exe := shell.Resolve(logger.Sugar())

	executor := shell.NewExecutor(logger.Sugar(), exe,
		shell.WithMaxCommandLength(cfg.MaxCommandLength),
		shell.WithTermGracePeriod(cfg.TermGracePeriod),
	)

	variant := ""
	if exe != nil {
		variant = string(exe.Variant)
	}

	a, err := agent.New(executor,
		agent.WithLogger(logger),
		agent.WithListenAddr(cfg.ListenAddr),
		agent.WithDefaultTimeout(cfg.DefaultTimeoutSeconds),
		agent.WithShellVariant(variant),
	)
	if err != nil {
		return fmt.Errorf("building agent: %w", err)
	}

	return a.Run()
}
