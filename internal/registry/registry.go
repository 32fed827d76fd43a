// Package registry owns the one store handle of the active session.
//
// A Registry is either Uninitialized or Active(user). Logging in opens the
// user's store, switching users closes the old handle before opening the
// new one, and logging out drops the handle while leaving the database file
// in place for the next login. Only the Registry creates or discards
// handles; everyone else borrows the current one through Store.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/rotki/localdb/internal/schema"
	"github.com/rotki/localdb/internal/session"
	"github.com/rotki/localdb/internal/store"
)

// Options configures a Registry.
type Options struct {
	// Dir holds one database file per user. Created on first activation.
	Dir string

	// Suffix is appended to the user id to form the store name.
	// Defaults to DefaultSuffix.
	Suffix string

	// Schema is applied to every opened store. Defaults to schema.MustLoad().
	Schema *schema.Schema

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// SessionIDs mints activation ids. Defaults to UUIDv7Generator.
	SessionIDs SessionIDGenerator
}

// Registry maps the active user to an open store.
type Registry struct {
	dir    string
	suffix string
	schema *schema.Schema
	logger *slog.Logger
	ids    SessionIDGenerator

	mu        sync.RWMutex
	user      string
	store     *store.Store
	sessionID string
}

// New returns an Uninitialized registry.
func New(opts Options) *Registry {
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	if opts.Schema == nil {
		opts.Schema = schema.MustLoad()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SessionIDs == nil {
		opts.SessionIDs = UUIDv7Generator{}
	}
	return &Registry{
		dir:    opts.Dir,
		suffix: opts.Suffix,
		schema: opts.Schema,
		logger: opts.Logger,
		ids:    opts.SessionIDs,
	}
}

// Store returns the handle of the active user, or ErrNoActiveUser.
func (r *Registry) Store() (*store.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.store == nil {
		return nil, ErrNoActiveUser
	}
	return r.store, nil
}

// Mappings returns the missing_mappings collection of the active store.
func (r *Registry) Mappings() (*store.Collection[schema.MissingMapping], error) {
	s, err := r.Store()
	if err != nil {
		return nil, err
	}
	return store.MissingMappings(s)
}

// User returns the active user, if any.
func (r *Registry) User() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.user, r.store != nil
}

// SessionID identifies the current activation. It changes on every login
// and is empty while Uninitialized.
func (r *Registry) SessionID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessionID
}

// Path returns the database file user would be attached to.
func (r *Registry) Path(user string) string {
	return StorePath(r.dir, user, r.suffix)
}

// Activate attaches the store of user.
//
// Activating the active user keeps the current handle. Switching users
// closes the old handle first; if the new store cannot be opened the
// registry is left Uninitialized and the open error is returned as is.
func (r *Registry) Activate(ctx context.Context, user string) error {
	if user == "" {
		return ErrInvalidUser
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil && r.user == user {
		return nil
	}
	if r.store != nil {
		r.detachLocked()
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	path := r.Path(user)
	s, err := store.Open(path, r.schema)
	if err != nil {
		r.logger.Error("open store failed", "user", user, "path", path, "error", err)
		return err
	}

	r.user = user
	r.store = s
	r.sessionID = r.ids.Generate()
	r.logger.Info("store attached", "user", user, "path", path, "session_id", r.sessionID)
	return nil
}

// Deactivate drops the active handle. The database file is kept.
// It is a no-op while Uninitialized.
func (r *Registry) Deactivate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil {
		return nil
	}
	return r.detachLocked()
}

// detachLocked closes the handle and returns to Uninitialized even when
// closing fails. r.mu must be held.
func (r *Registry) detachLocked() error {
	s, user, id := r.store, r.user, r.sessionID
	r.store, r.user, r.sessionID = nil, "", ""

	if err := s.Close(); err != nil {
		r.logger.Error("close store failed", "user", user, "session_id", id, "error", err)
		return fmt.Errorf("close store %s: %w", s.Path(), err)
	}
	r.logger.Info("store detached", "user", user, "session_id", id)
	return nil
}

// Apply moves the registry to the state described by c.
func (r *Registry) Apply(ctx context.Context, c session.Change) error {
	if !c.Active {
		return r.Deactivate()
	}
	return r.Activate(ctx, c.User)
}

// Watch applies every change received on changes, in order, until the
// channel closes or ctx is done. Apply failures are logged; a failed login
// leaves the registry Uninitialized. The registry is deactivated before
// Watch returns.
//
// Watch returns nil when changes is closed and ctx.Err() on cancellation.
func (r *Registry) Watch(ctx context.Context, changes <-chan session.Change) error {
	defer func() {
		if err := r.Deactivate(); err != nil {
			r.logger.Error("deactivate on watch exit", "error", err)
		}
	}()

	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			r.logger.Debug("session change", "user", c.User, "active", c.Active)
			if err := r.Apply(ctx, c); err != nil {
				r.logger.Error("apply session change", "user", c.User, "active", c.Active, "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
