package cli

import (
	"errors"
	"fmt"

	"github.com/rotki/localdb/internal/paginate"
	"github.com/rotki/localdb/internal/registry"
	"github.com/rotki/localdb/internal/store"
)

// classify maps a domain error to its error code and exit code.
func classify(err error) (code string, exit int) {
	switch {
	case registry.IsPrecondition(err):
		return ErrCodeInvalidUser, ExitCommandError
	case errors.Is(err, paginate.ErrInvalidSpec), errors.Is(err, paginate.ErrUnknownIndex):
		return ErrCodeInvalidPage, ExitCommandError
	case errors.Is(err, store.ErrSchemaVersion):
		return ErrCodeSchemaVersion, ExitCommandError
	case store.IsUniqueViolation(err):
		return ErrCodeDuplicate, ExitFailure
	case errors.Is(err, store.ErrNotFound):
		return ErrCodeNotFound, ExitFailure
	default:
		return ErrCodeGeneric, ExitFailure
	}
}

// reportError writes err in the configured format and returns it as an
// ExitError carrying the matching exit code.
func reportError(formatter *OutputFormatter, err error) error {
	code, exit := classify(err)
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(exit, code, err)
}

// outputError reports a command-level failure (exit code 2).
func outputError(formatter *OutputFormatter, code, message string, err error) error {
	full := message
	if err != nil {
		full = fmt.Sprintf("%s: %v", message, err)
	}
	_ = formatter.Error(code, full, nil)
	return WrapExitError(ExitCommandError, code+": "+message, err)
}
