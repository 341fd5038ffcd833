package commandtable

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/qbench-io/shftk/internal/domain"
)

const testSchemaURL = "https://schema.example.com/commandtable/v2/schema"

func testLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := New(Config{
		SchemaURL: testSchemaURL,
		Index:     0,
		Fetcher:   &fakeFetcher{},
		Writer:    &recordWriter{},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return l
}

func TestNormalizeEntriesSynthesizesHeader(t *testing.T) {
	l := testLoader(t)

	entries := []Entry{
		{"index": float64(0)},
		{"index": float64(1), "waveform": map[string]interface{}{"index": float64(2)}},
	}

	got, err := l.Normalize(EntriesInput(entries))
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	doc, ok := got.(Document)
	if !ok {
		t.Fatalf("expected a typed Document, got %T", got)
	}
	if doc.Schema != testSchemaURL {
		t.Errorf("expected schema %q, got %q", testSchemaURL, doc.Schema)
	}
	if doc.Header.Version != HeaderVersion || doc.Header.Partial {
		t.Errorf("expected header {%s false}, got %+v", HeaderVersion, doc.Header)
	}
	if !reflect.DeepEqual(doc.Table, entries) {
		t.Errorf("table was not preserved: %+v", doc.Table)
	}
}

func TestNormalizeDocumentPassesThrough(t *testing.T) {
	l := testLoader(t)

	in := Document{
		Schema: "https://elsewhere.example.com/schema",
		Header: Header{Version: "0.1", Partial: true},
		Table:  []Entry{{"index": float64(7)}},
	}

	got, err := l.Normalize(DocumentInput(in))
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("document was mutated: %+v", got)
	}
}

func TestNormalizeMapPassesThroughUnchanged(t *testing.T) {
	l := testLoader(t)

	in := map[string]interface{}{
		"header": map[string]interface{}{"version": "0.2", "partial": false},
		"table":  []interface{}{map[string]interface{}{"index": float64(0)}},
		"extra":  "kept",
	}

	input, err := From(in)
	if err != nil {
		t.Fatalf("From returned error: %v", err)
	}
	got, err := l.Normalize(input)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("mapping was mutated: %+v", got)
	}

	payload, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"extra":"kept"`) {
		t.Errorf("caller-supplied key was dropped: %s", payload)
	}
	if strings.Contains(string(payload), `"$schema"`) {
		t.Errorf("a $schema key was fabricated: %s", payload)
	}
}

func TestNormalizeStringParsesJSON(t *testing.T) {
	l := testLoader(t)

	raw := `{"$schema":"` + testSchemaURL + `","header":{"version":"0.2","partial":false},"table":[{"index":3}]}`
	got, err := l.Normalize(StringInput(raw))
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	doc, ok := got.(map[string]interface{})
	if !ok {
		t.Fatalf("expected decoded mapping, got %T", got)
	}
	table, ok := doc["table"].([]interface{})
	if !ok || len(table) != 1 {
		t.Fatalf("unexpected table: %v", doc["table"])
	}
	if entry := table[0].(map[string]interface{}); entry["index"] != float64(3) {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNormalizeStringKeepsUnknownShape(t *testing.T) {
	l := testLoader(t)

	// Valid JSON of the wrong shape normalizes fine; schema validation
	// is what rejects it.
	got, err := l.Normalize(StringInput("[1,2]"))
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if _, ok := got.([]interface{}); !ok {
		t.Errorf("expected decoded array, got %T", got)
	}
}

func TestNormalizeStringRejectsMalformedJSON(t *testing.T) {
	l := testLoader(t)

	_, err := l.Normalize(StringInput("{not json"))
	if !errors.Is(err, domain.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestFromClassifiesInputs(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  interface{}
	}{
		{"string", `{"table":[]}`, StringInput("")},
		{"bytes", []byte(`{"table":[]}`), StringInput("")},
		{"entries", []Entry{{"index": 0}}, EntriesInput(nil)},
		{"untyped entries", []interface{}{map[string]interface{}{"index": 0}}, EntriesInput(nil)},
		{"document", Document{}, DocumentInput{}},
		{"map", map[string]interface{}{"table": []interface{}{}}, MapInput{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := From(tt.value)
			if err != nil {
				t.Fatalf("From returned error: %v", err)
			}
			if reflect.TypeOf(got) != reflect.TypeOf(tt.want) {
				t.Errorf("expected %T, got %T", tt.want, got)
			}
		})
	}
}

func TestFromRejectsUnsupportedType(t *testing.T) {
	_, err := From(42)
	if !errors.Is(err, domain.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestFromRejectsNonObjectEntry(t *testing.T) {
	_, err := From([]interface{}{"not an object"})
	if !errors.Is(err, domain.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}
