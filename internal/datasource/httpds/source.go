package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: GET %s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Source is a datasource.Source over one URL.
type Source struct {
	client  *Client
	url     string
	headers http.Header
}

// NewSource binds c to url. headers are sent with every Open.
func NewSource(c *Client, url string, headers http.Header) *Source {
	return &Source{client: c, url: url, headers: headers}
}

// Open performs the GET and returns the body of a 2xx response. Any other
// status is drained, closed and returned as *StatusError.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url, s.headers)
	if err != nil {
		return nil, fmt.Errorf("httpds: GET %s: %w", s.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		return nil, &StatusError{URL: s.url, Code: resp.StatusCode}
	}
	return resp.Body, nil
}
