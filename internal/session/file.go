package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// FileSource drives an ActiveUser from a session file.
//
// The trimmed file content is the active user id. An empty or missing file
// means nobody is logged in. The directory is watched rather than the file
// so that editors replacing the file, and its removal, are both seen.
type FileSource struct {
	path   string
	signal *ActiveUser
	logger *slog.Logger
}

// NewFileSource returns a source publishing the content of path into signal.
// A nil logger uses slog.Default().
func NewFileSource(path string, signal *ActiveUser, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{path: path, signal: signal, logger: logger}
}

// Path returns the watched session file.
func (f *FileSource) Path() string {
	return f.path
}

// Sync reads the session file once and publishes its state.
func (f *FileSource) Sync() error {
	user, err := ReadSessionFile(f.path)
	if err != nil {
		return err
	}
	if user == "" {
		f.signal.Logout()
	} else {
		f.signal.Login(user)
	}
	return nil
}

// Run publishes the current file state, then every change to it, until ctx
// is done. It returns ctx.Err() on cancellation.
func (f *FileSource) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("session watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	name := filepath.Base(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("session watcher: watch %s: %w", dir, err)
	}

	// Read after Add so no write between the two is missed.
	if err := f.Sync(); err != nil {
		return err
	}
	f.logger.Debug("watching session file", "path", f.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
				!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if err := f.Sync(); err != nil {
				f.logger.Error("read session file", "path", f.path, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Error("session watcher", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ReadSessionFile returns the user id stored at path, or "" when the file is
// missing or blank.
func ReadSessionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteSessionFile records user as the active identity at path. An empty user
// logs out. The file is replaced by rename so a watcher never reads a
// half-written id.
func WriteSessionFile(path, user string) error {
	content := ""
	if user != "" {
		content = user + "\n"
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*")
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	defer os.Remove(tmp.Name()) // No-op after rename

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
