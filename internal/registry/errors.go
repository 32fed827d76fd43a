package registry

import "errors"

var (
	// ErrNoActiveUser reports store access while no user is logged in.
	// It is a sequencing error in the caller, not a transient failure, and
	// must not be retried.
	ErrNoActiveUser = errors.New("no active user: store accessed before login or after logout")

	// ErrInvalidUser reports an empty user id.
	ErrInvalidUser = errors.New("invalid user id")
)

// IsPrecondition reports whether err is a caller sequencing error rather
// than a storage failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoActiveUser) || errors.Is(err, ErrInvalidUser)
}
