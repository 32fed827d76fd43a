package schema

// MissingMappings is the collection holding MissingMapping records.
const MissingMappings = "missing_mappings"

// Sort keys of the missing_mappings collection.
const (
	FieldID         = "id"
	FieldIdentifier = "identifier"
	FieldName       = "name"
	FieldLocation   = "location"
	FieldDetails    = "details"
)

// MissingMapping records an identifier seen at a location that could not be
// mapped to a known entity. (Identifier, Location) is unique.
type MissingMapping struct {
	ID         int64  `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	Details    string `json:"details"`
}
