package schemahttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qbench-io/shftk/internal/domain"
)

func TestFetchReturnsSchemaBody(t *testing.T) {
	const schema = `{"$schema": "http://json-schema.org/draft-04/schema#"}`
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(schema))
	}))
	defer srv.Close()

	f := New(srv.Client(), nil)
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(body) != schema {
		t.Errorf("unexpected body %q", body)
	}
	if gotAccept != "application/json" {
		t.Errorf("expected JSON accept header, got %q", gotAccept)
	}
}

func TestFetchMapsServerErrorToNetworkSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(srv.Client(), nil)
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestFetchMapsTransportFailureToNetworkSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connections now refused

	f := New(http.DefaultClient, nil)
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestFetchRejectsMalformedURL(t *testing.T) {
	f := New(http.DefaultClient, nil)
	if _, err := f.Fetch(context.Background(), "http://bad url\x7f"); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}
