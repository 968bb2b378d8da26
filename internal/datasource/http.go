package datasource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/santinoo1919/medtrixmap/internal/geojson"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// maxErrorBody bounds how much of a failed response is kept as the message.
const maxErrorBody = 4096

// HTTPSource fetches a GeoJSON FeatureCollection from a remote endpoint such as
// a WFS GetFeature URL. No request timeout is imposed; failure is signaled by
// the transport or by a non-success status.
type HTTPSource struct {
	client    *http.Client
	logger    *slog.Logger
	id        string
	url       string
	userAgent string
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header. Some WFS servers reject requests without one.
func WithUserAgent(ua string) HTTPOption {
	return func(s *HTTPSource) { s.userAgent = ua }
}

// WithLogger sets the logger receiving skipped-feature diagnostics.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(s *HTTPSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewHTTPSource creates a source for the given endpoint.
func NewHTTPSource(id, url string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		id:     id,
		url:    url,
		client: http.DefaultClient,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the source identifier.
func (s *HTTPSource) ID() string { return s.id }

// URL returns the upstream endpoint.
func (s *HTTPSource) URL() string { return s.url }

// Fetch returns the raw upstream document. Transport errors and non-2xx
// responses are returned as *UnavailableError.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UnavailableError{Source: s.id, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &UnavailableError{Source: s.id, Status: resp.StatusCode, Message: msg}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{
			Source:  s.id,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("reading response: %v", err),
			Err:     err,
		}
	}
	return body, nil
}

// Load fetches and decodes the collection. Individually malformed features are
// logged and skipped; an undecodable document is reported as unavailable.
func (s *HTTPSource) Load(ctx context.Context) (*types.FeatureCollection, error) {
	body, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	res, err := geojson.DecodeFeatureCollection(body)
	if err != nil {
		return nil, &UnavailableError{Source: s.id, Status: http.StatusOK, Message: err.Error(), Err: err}
	}

	if len(res.Skipped) > 0 {
		s.logger.Warn("skipped malformed features", "source", s.id, "count", len(res.Skipped))
		for _, skipped := range res.Skipped {
			s.logger.Debug("malformed feature", "source", s.id, "index", skipped.Index, "reason", skipped.Reason)
		}
	}

	return &types.FeatureCollection{
		Source:    s.id,
		Features:  res.Features,
		Skipped:   len(res.Skipped),
		FetchedAt: time.Now(),
	}, nil
}
