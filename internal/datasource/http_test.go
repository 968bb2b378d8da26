package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threePoints = `{"type":"FeatureCollection","features":[
 {"type":"Feature","id":"a","geometry":{"type":"Point","coordinates":[5.30,43.20]},"properties":{"category":1}},
 {"type":"Feature","id":"b","geometry":{"type":"Point","coordinates":[5.40,43.25]},"properties":{"category":2}},
 {"type":"Feature","geometry":{"type":"LineString","coordinates":[[5.0,43.0],[5.1,43.1]]},"properties":{}},
 {"type":"Feature","id":"c","geometry":{"type":"Point","coordinates":[5.50,43.30]},"properties":{}}
]}`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSourceLoad(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(threePoints))
	}))
	defer srv.Close()

	src := NewHTTPSource("amp", srv.URL, WithUserAgent("Mozilla/5.0"))
	fc, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Mozilla/5.0", gotUA)
	assert.Equal(t, "amp", fc.Source)
	assert.Equal(t, 3, fc.Count())
	assert.Equal(t, 1, fc.Skipped)
	assert.Equal(t, "a", fc.Features[0].ID.String())
	assert.Equal(t, "c", fc.Features[2].ID.String())
	assert.False(t, fc.FetchedAt.IsZero())
}

func TestHTTPSourceEmptyFeatures(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"type":"FeatureCollection"}`)

	fc, err := NewHTTPSource("empty", srv.URL).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, fc.Count())
}

func TestHTTPSourceNonSuccess(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, "geoserver overloaded")

	_, err := NewHTTPSource("protected-areas", srv.URL).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))

	var ue *UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "protected-areas", ue.Source)
	assert.Equal(t, http.StatusServiceUnavailable, ue.Status)
	assert.Equal(t, "geoserver overloaded", ue.Message)
}

func TestHTTPSourceTransportFailure(t *testing.T) {
	srv := serve(t, http.StatusOK, threePoints)
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource("wrecks", url).Load(context.Background())
	require.Error(t, err)

	var ue *UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 0, ue.Status)
	assert.NotEmpty(t, ue.Message)
}

func TestHTTPSourceInvalidDocument(t *testing.T) {
	srv := serve(t, http.StatusOK, "<html>maintenance</html>")

	_, err := NewHTTPSource("amp", srv.URL).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(Definition{ID: "amp", Kind: KindHTTP, URL: "http://example.invalid"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "amp", src.ID())

	_, err = NewSource(Definition{ID: "amp", Kind: KindHTTP}, nil)
	assert.Error(t, err)

	_, err = NewSource(Definition{ID: "x", Kind: "ftp", URL: "ftp://x"}, nil)
	assert.Error(t, err)

	_, err = NewSource(Definition{ID: "wrecks", Kind: KindOverpass}, nil)
	assert.Error(t, err, "overpass source needs filters")
}
