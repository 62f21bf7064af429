package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	gir "github.com/ml-infra/guide-acceptor"
	"github.com/ml-infra/guide-acceptor/flags"
	"github.com/ml-infra/guide-acceptor/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "guide-acceptor"
	app.Usage = "ML Framework Guide Acceptance Tester"
	app.Description = "guide-acceptor runs documentation guides against a framework checkout"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Check for typed runtime errors
			if gir.IsRuntimeError(err) {
				// Environment or install problems exit with code 2
				cli.HandleExitCoder(cli.Exit(err.Error(), 2))
			} else if gir.IsGuideFailureError(err) {
				// Guide failures exit with code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			} else {
				// For other unspecified errors, default to exit code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			}
		}
	}

	// Start telemetry
	shutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup open telemetry: %v\n", err)
		os.Exit(2)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server
	svc := service.New()
	svc.Start(ctx)
	defer svc.Shutdown()

	// Start CLI
	if err := app.RunContext(ctx, os.Args); err != nil {
		// ExitErrHandler already mapped the exit code; anything left is fatal
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(2)
	}
}

func run(ctx *cli.Context) error {
	log, err := newLogger(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return gir.NewRuntimeError(fmt.Errorf("failed to create logger: %w", err))
	}
	defer log.Sync() //nolint:errcheck
	zap.ReplaceGlobals(log)

	sugar := log.Sugar()

	cfg, err := gir.NewConfig(
		ctx,
		sugar,
		ctx.String(flags.Manifest.Name),
		ctx.String(flags.WorkDir.Name),
	)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return gir.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debugw("Config", "manifest", cfg.ManifestPath, "workDir", cfg.WorkDir)

	acceptor, err := gir.New(ctx.Context, cfg, Version)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return gir.NewRuntimeError(fmt.Errorf("failed to create guide-acceptor: %w", err))
	}

	return acceptor.Start(ctx.Context)
}

// newLogger builds a console logger at the requested level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg.Build()
}
