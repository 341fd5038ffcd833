// Package schemahttp fetches command table schemas over HTTP(S).
package schemahttp

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/qbench-io/shftk/internal/domain"
	"github.com/qbench-io/shftk/internal/ports"
	"github.com/qbench-io/shftk/pkg/log"
)

// Fetcher implements commandtable.SchemaFetcher over an injected HTTP
// client. Transport failures and non-success responses map to the
// network sentinel so the loader's error taxonomy stays intact.
type Fetcher struct {
	client ports.HTTPClient
	logger log.Logger
}

// New creates a schema fetcher. A nil logger falls back to a no-op logger.
func New(client ports.HTTPClient, logger log.Logger) *Fetcher {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Fetcher{client: client, logger: logger}
}

// Fetch retrieves the schema document from the given URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: %s returned %d", domain.ErrNetwork, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrNetwork, err)
	}
	f.logger.Debug("schema fetched", log.String("url", url), log.Int("bytes", len(body)))
	return body, nil
}
