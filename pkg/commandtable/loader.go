package commandtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/qbench-io/shftk/internal/domain"
	"github.com/qbench-io/shftk/pkg/log"
)

// SchemaFetcher retrieves the JSON Schema document the loader validates
// against. The HTTP adapter in internal/adapters/schemahttp implements it.
type SchemaFetcher interface {
	// Fetch returns the raw schema bytes from the given URL.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// VectorWriter transmits a serialized document to the instrument. The
// data server adapter implements it; a generator binds it to its own
// channel so the loader only deals in relative node paths.
type VectorWriter interface {
	// SetVector writes a string payload to a vector node.
	SetVector(ctx context.Context, path string, payload string) error
}

// Config holds the collaborators and target of a Loader.
type Config struct {
	// SchemaURL is where the Draft-4 JSON Schema is fetched from.
	SchemaURL string

	// Index is the generator unit the table belongs to. It selects the
	// upload node "awgs/{index}/commandtable/data".
	Index int

	// Fetcher retrieves the schema. Required.
	Fetcher SchemaFetcher

	// Writer transmits the validated document. Required.
	Writer VectorWriter

	// Logger receives structured progress messages. Defaults to a
	// no-op logger when nil.
	Logger log.Logger
}

// Loader normalizes, validates and uploads command tables for a single
// generator unit. A Loader is stateless between calls; it keeps no copy
// of uploaded documents and no cache of the fetched schema.
type Loader struct {
	schemaURL string
	target    string
	fetcher   SchemaFetcher
	writer    VectorWriter
	logger    log.Logger
}

// New creates a Loader from the given configuration.
func New(cfg Config) (*Loader, error) {
	if cfg.SchemaURL == "" {
		return nil, fmt.Errorf("%w: schema URL is required", domain.ErrInvalidConfig)
	}
	if cfg.Index < 0 {
		return nil, fmt.Errorf("%w: generator index must not be negative", domain.ErrInvalidConfig)
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("%w: schema fetcher is required", domain.ErrInvalidConfig)
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("%w: vector writer is required", domain.ErrInvalidConfig)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Loader{
		schemaURL: cfg.SchemaURL,
		target:    fmt.Sprintf("awgs/%d/commandtable/data", cfg.Index),
		fetcher:   cfg.Fetcher,
		writer:    cfg.Writer,
		logger:    logger,
	}, nil
}

// SchemaURL returns the configured schema location.
func (l *Loader) SchemaURL() string {
	return l.schemaURL
}

// Target returns the node path the loader uploads to.
func (l *Loader) Target() string {
	return l.target
}

// Load normalizes the input, validates it against the schema and uploads
// the serialized document to the generator's commandtable node. The
// sequence is strict: nothing is transmitted unless validation passed.
//
// The schema is fetched anew on every call; freshness is deliberately
// preferred over performance. Load performs exactly one network fetch
// and, on success, exactly one device write. Concurrent calls for the
// same generator must be serialized by the caller.
func (l *Loader) Load(ctx context.Context, input Input) error {
	doc, err := l.Normalize(input)
	if err != nil {
		return err
	}
	if err := l.Validate(ctx, doc); err != nil {
		return err
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}
	if err := l.writer.SetVector(ctx, l.target, string(payload)); err != nil {
		return err
	}
	l.logger.Info("command table uploaded",
		log.String("node", l.target),
		log.Int("bytes", len(payload)))
	return nil
}

// LoadAny classifies an untyped value with [From] and loads it.
func (l *Loader) LoadAny(ctx context.Context, v interface{}) error {
	input, err := From(v)
	if err != nil {
		return err
	}
	return l.Load(ctx, input)
}

// Normalize converts the input into its canonical document form without
// touching the network or the device. Entry lists come back as a typed
// [Document]; encoded or decoded JSON supplied by the caller passes
// through as its raw decoded value, unknown keys included, so the exact
// document the caller provided is what gets validated and uploaded.
func (l *Loader) Normalize(input Input) (interface{}, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input must not be nil", domain.ErrFormat)
	}
	return input.document(l.schemaURL)
}

// Validate fetches the schema and checks the document against it using
// Draft-4 semantics. Shape errors, including a document that is no JSON
// object at all, surface here as validation errors. The first violation
// is reported as a domain.ValidationError carrying the failed
// constraint, the offending location and the invalid value.
func (l *Loader) Validate(ctx context.Context, doc interface{}) error {
	raw, err := l.fetcher.Fetch(ctx, l.schemaURL)
	if err != nil {
		if errors.Is(err, domain.ErrNetwork) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("%w: fetched schema is not valid JSON", domain.ErrFormat)
	}

	sl := gojsonschema.NewSchemaLoader()
	sl.Draft = gojsonschema.Draft4
	sl.AutoDetect = false
	schema, err := sl.Compile(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: compile schema: %v", domain.ErrFormat, err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return &domain.ValidationError{
			Constraint: first.Type(),
			Field:      first.Field(),
			Value:      first.Value(),
			Detail:     first.Description(),
		}
	}
	return nil
}
