package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rotki/localdb/internal/session"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	SessionFile string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Attach the store of whoever is logged in, following a session file",
		Long: `Follow the login state recorded in a session file and keep the matching
user store attached.

The session file holds the logged in user id; an empty or missing file
means nobody is logged in. Logging in attaches the user's store, switching
users replaces it, and logging out detaches it while keeping its data.

Example:
  localdb watch --session-file ~/.local/state/localdb/session`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SessionFile, "session-file", "", "session file to follow (default: session_file from config)")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	env, err := newCommandEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	path := opts.SessionFile
	if path == "" {
		path = env.cfg.SessionFile
	}
	if path == "" {
		return outputError(env.formatter, ErrCodeInvalidInput, "no session file: pass --session-file or set session_file in config", nil)
	}

	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	signalUser := session.NewActiveUser()
	changes, unsubscribe := signalUser.Subscribe(8)
	source := session.NewFileSource(path, signalUser, env.logger)

	watchErr := make(chan error, 1)
	go func() {
		err := env.registry.Watch(ctx, changes)
		unsubscribe() // Unblocks the file source if it is mid-publish
		watchErr <- err
	}()

	env.logger.Info("watching session", "session_file", path, "data_dir", env.cfg.DataDir)
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s. Press Ctrl-C to stop.\n", path)

	runErr := source.Run(ctx)
	cancel()
	if err := <-watchErr; err != nil && !errors.Is(err, context.Canceled) {
		env.logger.Error("registry watch", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "session watch failed", runErr)
	}

	slog.Info("watch stopped")
	return nil
}
