package commandtable

import (
	"encoding/json"
	"fmt"

	"github.com/qbench-io/shftk/internal/domain"
)

// Input is one of the accepted command table shapes. The concrete
// variants are [StringInput], [EntriesInput], [MapInput] and
// [DocumentInput]; no other shape is accepted.
type Input interface {
	// document normalizes the input into its canonical document form.
	// Encoded or decoded JSON supplied by the caller comes back as its
	// raw decoded value so no key is lost; entry lists are wrapped into
	// a typed Document. The schema URL is used when a header has to be
	// synthesized.
	document(schemaURL string) (interface{}, error)
}

// StringInput is a JSON-encoded command table document. It is decoded
// as-is; documents of the wrong shape are left for schema validation
// to report.
type StringInput string

func (s StringInput) document(string) (interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("%w: input is not valid JSON: %v", domain.ErrFormat, err)
	}
	return doc, nil
}

// EntriesInput is an ordered list of command entries without header or
// schema reference; both are synthesized during normalization.
type EntriesInput []Entry

func (e EntriesInput) document(schemaURL string) (interface{}, error) {
	return Document{
		Schema: schemaURL,
		Header: Header{Version: HeaderVersion, Partial: false},
		Table:  e,
	}, nil
}

// MapInput is an already decoded document mapping. It passes through
// normalization unchanged, unknown keys included.
type MapInput map[string]interface{}

func (m MapInput) document(string) (interface{}, error) {
	return map[string]interface{}(m), nil
}

// DocumentInput is an already complete document; it passes through
// normalization unchanged.
type DocumentInput Document

func (d DocumentInput) document(string) (interface{}, error) {
	return Document(d), nil
}

// From classifies an untyped value into one of the Input variants. It
// exists as a bridge for callers that hold dynamically decoded data;
// typed callers should construct the variant directly. Unsupported
// types fail with the format sentinel.
func From(v interface{}) (Input, error) {
	switch t := v.(type) {
	case Input:
		return t, nil
	case string:
		return StringInput(t), nil
	case []byte:
		return StringInput(t), nil
	case []Entry:
		return EntriesInput(t), nil
	case []interface{}:
		entries := make([]Entry, len(t))
		for i, e := range t {
			m, ok := e.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: table entry %d is not an object", domain.ErrFormat, i)
			}
			entries[i] = m
		}
		return EntriesInput(entries), nil
	case Document:
		return DocumentInput(t), nil
	case map[string]interface{}:
		return MapInput(t), nil
	default:
		return nil, fmt.Errorf("%w: must be a string, a list of entries without header, or a complete document, got %T",
			domain.ErrFormat, v)
	}
}
