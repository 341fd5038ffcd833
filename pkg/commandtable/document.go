package commandtable

// HeaderVersion is the command table format version synthesized when a
// bare entry list is normalized into a full document.
const HeaderVersion = "0.2"

// Entry is a single instrument-defined command table row. Its fields are
// dictated by the instrument schema, not by this package.
type Entry = map[string]interface{}

// Header carries the format metadata of a command table document.
type Header struct {
	// Version is the command table format version, e.g. "0.2".
	Version string `json:"version"`

	// Partial marks the document as a partial update of an already
	// uploaded table instead of a full replacement.
	Partial bool `json:"partial"`
}

// Document is the canonical command table representation that is
// validated and uploaded. The zero value is not useful; obtain documents
// through [Loader.Normalize] or build them explicitly.
type Document struct {
	// Schema is the URI of the JSON Schema the table claims to conform to.
	Schema string `json:"$schema"`

	// Header holds the format version and the partial flag.
	Header Header `json:"header"`

	// Table is the ordered list of command entries.
	Table []Entry `json:"table"`
}
