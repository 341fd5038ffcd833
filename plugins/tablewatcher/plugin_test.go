package tablewatcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	shftk "github.com/qbench-io/shftk"
	"github.com/qbench-io/shftk/pkg/nodetree"
	"github.com/qbench-io/shftk/plugins/tablewatcher"
)

const schemaBody = `{
	"$schema": "http://json-schema.org/draft-04/schema#",
	"type": "object",
	"required": ["header", "table"],
	"properties": {
		"table": {"type": "array", "items": {"type": "object", "required": ["index"]}}
	}
}`

type fakeNodeClient struct {
	mu      sync.Mutex
	values  map[string]string
	vectors []string
}

func newFakeNodeClient() *fakeNodeClient {
	return &fakeNodeClient{values: map[string]string{}}
}

func (f *fakeNodeClient) Get(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[path]; ok {
		return v, nil
	}
	return "0", nil
}

func (f *fakeNodeClient) Set(ctx context.Context, path, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[path] = value
	return nil
}

func (f *fakeNodeClient) SetVector(ctx context.Context, path, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = append(f.vectors, payload)
	return nil
}

func (f *fakeNodeClient) uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.vectors...)
}

func (f *fakeNodeClient) ListNodes(ctx context.Context, prefix string) ([]string, error) {
	return []string{prefix + "0/input/on"}, nil
}

func (f *fakeNodeClient) NodeInfo(ctx context.Context, path string) (nodetree.Node, error) {
	node := nodetree.Node{Path: path, Type: "Double", Properties: "Read, Write, Setting"}
	if strings.Contains(path, "referenceclock") || strings.HasSuffix(path, "/mode") ||
		strings.Contains(path, "auxtriggers/") || strings.Contains(path, "trigger/channel") ||
		strings.Contains(path, "inputselect") || strings.HasSuffix(path, "scopes/0/time") {
		node.Options = map[int64]string{0: "a", 1: "b"}
	}
	return node, nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startSession(t *testing.T, fake *fakeNodeClient, cfg tablewatcher.Config, schema http.HandlerFunc) *shftk.Session {
	t.Helper()
	if schema == nil {
		schema = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(schemaBody))
		}
	}
	srv := httptest.NewServer(schema)
	t.Cleanup(srv.Close)

	sessionCfg := shftk.DefaultConfig()
	sessionCfg.Serial = "dev12044"
	sessionCfg.SchemaURL = srv.URL

	s, err := shftk.New(sessionCfg,
		shftk.WithNodeClient(fake),
		shftk.WithHTTPClient(srv.Client()),
		shftk.WithPlugin(tablewatcher.New(cfg)))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeTable(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write table file: %v", err)
	}
}

const tableV1 = `{"header":{"version":"0.2","partial":false},"table":[{"index":0}]}`
const tableV2 = `{"header":{"version":"0.2","partial":false},"table":[{"index":0},{"index":1}]}`

func TestInitializeUploadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.json")
	writeTable(t, path, tableV1)

	fake := newFakeNodeClient()
	cfg := tablewatcher.DefaultConfig(path, 0)
	cfg.DebounceDelay = 10 * time.Millisecond
	startSession(t, fake, cfg, nil)

	waitFor(t, 2*time.Second, func() bool {
		return len(fake.uploads()) >= 1
	})
	if got := fake.uploads()[0]; !strings.Contains(got, `"index":0`) {
		t.Errorf("unexpected initial upload %q", got)
	}
}

func TestFileChangeTriggersUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.json")
	writeTable(t, path, tableV1)

	fake := newFakeNodeClient()
	cfg := tablewatcher.DefaultConfig(path, 0)
	cfg.DebounceDelay = 10 * time.Millisecond
	startSession(t, fake, cfg, nil)

	waitFor(t, 2*time.Second, func() bool {
		return len(fake.uploads()) >= 1
	})

	writeTable(t, path, tableV2)
	waitFor(t, 5*time.Second, func() bool {
		ups := fake.uploads()
		return len(ups) >= 2 && strings.Contains(ups[len(ups)-1], `"index":1`)
	})
}

func TestMissingFileIsToleratedUntilCreated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.json")

	fake := newFakeNodeClient()
	cfg := tablewatcher.DefaultConfig(path, 0)
	cfg.DebounceDelay = 10 * time.Millisecond
	startSession(t, fake, cfg, nil)

	if len(fake.uploads()) != 0 {
		t.Fatalf("upload recorded for missing file: %v", fake.uploads())
	}

	writeTable(t, path, tableV1)
	waitFor(t, 5*time.Second, func() bool {
		return len(fake.uploads()) >= 1
	})
}

func TestValidationFailureWaitsForNextChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.json")
	// Entry lacks the required "index" field, so every upload of this
	// content fails validation.
	writeTable(t, path, `{"header":{"version":"0.2"},"table":[{"foo":1}]}`)

	var fetches atomic.Int64
	schema := func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Write([]byte(schemaBody))
	}

	fake := newFakeNodeClient()
	cfg := tablewatcher.DefaultConfig(path, 0)
	cfg.DebounceDelay = 10 * time.Millisecond
	cfg.RetryInterval = 50 * time.Millisecond
	startSession(t, fake, cfg, schema)

	waitFor(t, 2*time.Second, func() bool {
		return fetches.Load() >= 1
	})

	// A rejected document must not be retried on the interval; fetch
	// activity stays flat until the file changes.
	time.Sleep(6 * cfg.RetryInterval)
	if n := fetches.Load(); n != 1 {
		t.Fatalf("rejected document was retried: %d schema fetches", n)
	}
	if len(fake.uploads()) != 0 {
		t.Fatalf("rejected document reached the device: %v", fake.uploads())
	}

	writeTable(t, path, tableV1)
	waitFor(t, 5*time.Second, func() bool {
		return len(fake.uploads()) >= 1
	})
}

func TestTransientFailureRetriesAfterInterval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.json")
	writeTable(t, path, tableV1)

	var fetches atomic.Int64
	schema := func(w http.ResponseWriter, r *http.Request) {
		if fetches.Add(1) <= 2 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(schemaBody))
	}

	fake := newFakeNodeClient()
	cfg := tablewatcher.DefaultConfig(path, 0)
	cfg.DebounceDelay = 10 * time.Millisecond
	cfg.RetryInterval = 50 * time.Millisecond
	startSession(t, fake, cfg, schema)

	// The first two fetches fail; the interval retry keeps going until
	// the schema host recovers.
	waitFor(t, 5*time.Second, func() bool {
		return len(fake.uploads()) >= 1
	})
	if n := fetches.Load(); n < 3 {
		t.Errorf("expected at least 3 schema fetches across retries, got %d", n)
	}
	if got := fake.uploads()[0]; !strings.Contains(got, `"index":0`) {
		t.Errorf("unexpected upload after recovery %q", got)
	}
}

func TestInitializeRequiresPath(t *testing.T) {
	fake := newFakeNodeClient()
	sessionCfg := shftk.DefaultConfig()
	sessionCfg.Serial = "dev12044"

	s, err := shftk.New(sessionCfg,
		shftk.WithNodeClient(fake),
		shftk.WithPlugin(tablewatcher.New(tablewatcher.Config{})))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := s.Connect(context.Background()); err == nil {
		s.Close()
		t.Fatal("expected Connect to fail without a path")
	}
}

func TestInitializeRejectsUnknownChannel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.json")
	writeTable(t, path, tableV1)

	fake := newFakeNodeClient()
	sessionCfg := shftk.DefaultConfig()
	sessionCfg.Serial = "dev12044"

	s, err := shftk.New(sessionCfg,
		shftk.WithNodeClient(fake),
		shftk.WithPlugin(tablewatcher.New(tablewatcher.DefaultConfig(path, 5))))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := s.Connect(context.Background()); err == nil {
		s.Close()
		t.Fatal("expected Connect to fail for a channel the device lacks")
	}
}
