package tracksource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samirrijal/racemap/internal/core/domain"
)

// maxTrackSize caps the body read for one track file.
const maxTrackSize = 16 << 20

// HTTPSource fetches track files relative to a base URL. It does not retry.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates an HTTPSource. timeout bounds every fetch; it is
// applied to a copy of client when the client sets none, and a nil client
// gets a new one.
func NewHTTPSource(baseURL string, client *http.Client, timeout time.Duration) *HTTPSource {
	if client == nil {
		client = &http.Client{}
	}
	if client.Timeout == 0 && timeout > 0 {
		c := *client
		c.Timeout = timeout
		client = &c
	}
	return &HTTPSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Fetch downloads baseURL/path. Any transport failure or status of 400 or
// above is an *domain.IOError.
func (s *HTTPSource) Fetch(ctx context.Context, path string) (string, error) {
	url := s.baseURL + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &domain.IOError{Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/gpx+xml, application/xml, text/xml, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &domain.IOError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", &domain.IOError{Path: path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTrackSize))
	if err != nil {
		return "", &domain.IOError{Path: path, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(data), nil
}
