package testutil

import (
	"io"
	"log/slog"

	"github.com/rotki/localdb/internal/schema"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Mapping returns a record with every field set from identifier and location.
func Mapping(identifier, location string) schema.MissingMapping {
	return schema.MissingMapping{
		Identifier: identifier,
		Name:       "name of " + identifier,
		Location:   location,
		Details:    "{}",
	}
}

// ScenarioMappings is the three record collection paging examples use:
// A and B at L1, C at L2.
func ScenarioMappings() []schema.MissingMapping {
	return []schema.MissingMapping{
		Mapping("A", "L1"),
		Mapping("B", "L1"),
		Mapping("C", "L2"),
	}
}
