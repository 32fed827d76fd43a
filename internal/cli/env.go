package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rotki/localdb/internal/config"
	"github.com/rotki/localdb/internal/registry"
)

// loadConfig resolves the configuration for one command run: the --config
// file or the first file found on the search path, then flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, _, err = config.LoadFromPath(opts.ConfigPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	return cfg, nil
}

// setupLogging installs a text handler on w as the default slog logger.
// Verbose forces debug level.
func setupLogging(opts *RootOptions, cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// newFormatter builds the output formatter for cmd.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// commandEnv is what every store-backed command needs.
type commandEnv struct {
	cfg       *config.Config
	logger    *slog.Logger
	formatter *OutputFormatter
	registry  *registry.Registry
}

func newCommandEnv(opts *RootOptions, cmd *cobra.Command) (*commandEnv, error) {
	formatter := newFormatter(opts, cmd)
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, outputError(formatter, ErrCodeConfig, "failed to load config", err)
	}
	logger := setupLogging(opts, cfg, cmd.ErrOrStderr())

	return &commandEnv{
		cfg:       cfg,
		logger:    logger,
		formatter: formatter,
		registry: registry.New(registry.Options{
			Dir:    cfg.DataDir,
			Suffix: cfg.Suffix,
			Logger: logger,
		}),
	}, nil
}

// withUser runs fn with user's store attached and detaches it afterwards.
func (e *commandEnv) withUser(ctx context.Context, user string, fn func() error) error {
	if err := e.registry.Activate(ctx, user); err != nil {
		return reportError(e.formatter, err)
	}
	defer func() {
		if err := e.registry.Deactivate(); err != nil {
			e.logger.Error("error closing store", "user", user, "error", err)
		}
	}()
	return fn()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
