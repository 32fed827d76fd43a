package registry

import (
	"net/url"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// DefaultSuffix is appended to every user id to form its store name.
const DefaultSuffix = ".rotki"

// StoreName derives the store name of user. Canonically equivalent
// spellings of the same id map to one name, and the id is escaped so it
// can never reach outside the data directory.
func StoreName(user, suffix string) string {
	return url.PathEscape(norm.NFC.String(user)) + suffix
}

// StorePath returns the database file of user inside dir.
func StorePath(dir, user, suffix string) string {
	return filepath.Join(dir, StoreName(user, suffix)+".db")
}
