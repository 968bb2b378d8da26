package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/santinoo1919/medtrixmap/internal/datasource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ampDocument = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "p1", "geometry": {"type": "Point", "coordinates": [5.3, 43.2]}, "properties": {"title": "Calanque de Sormiou", "category": 2}},
    {"type": "Feature", "id": "p2", "geometry": {"type": "Point", "coordinates": [9.1, 42.1]}, "properties": {"title": "Scandola", "category": 1}}
  ]
}`

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/amp", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ampDocument))
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})
	up := httptest.NewServer(mux)
	t.Cleanup(up.Close)
	return up
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	up := newUpstream(t)
	srv, err := New(Config{
		Sources: []datasource.Definition{
			{ID: "amp", Label: "AMP", URL: up.URL + "/amp", CategoryField: "category", Popup: "poi", Enabled: true},
			{ID: "protected-areas", Label: "protected areas", URL: up.URL + "/down", RegionField: "subloc_name"},
		},
		Debounce: 20 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Wait()
	})
	return ts
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp
}

func TestHTTPEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("status", func(t *testing.T) {
		var st Status
		resp := getJSON(t, ts.URL+"/api/status", &st)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 0, st.ActiveSessions)
		require.Len(t, st.Sources, 2)
		assert.Equal(t, "http", st.Sources[0].Kind)
		assert.True(t, st.Sources[0].Categorized)
		assert.True(t, st.Sources[1].Regions)
		assert.False(t, st.Sources[1].Enabled)
	})

	t.Run("sources", func(t *testing.T) {
		var infos []SourceInfo
		getJSON(t, ts.URL+"/api/sources", &infos)
		require.Len(t, infos, 2)
		assert.Equal(t, "amp", infos[0].ID)
		assert.Equal(t, "protected-areas", infos[1].ID)
	})

	t.Run("proxy passes the document through", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/sources/amp")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

		var doc map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
		assert.Equal(t, "FeatureCollection", doc["type"])
		assert.Len(t, doc["features"], 2)
	})

	t.Run("proxy reports upstream failure", func(t *testing.T) {
		var pe proxyError
		resp := getJSON(t, ts.URL+"/api/sources/protected-areas", &pe)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Failed to fetch protected areas", pe.Error)
		assert.Equal(t, http.StatusServiceUnavailable, pe.Status)
		assert.Equal(t, "overloaded", pe.Details)
	})

	t.Run("unknown source", func(t *testing.T) {
		var pe proxyError
		resp := getJSON(t, ts.URL+"/api/sources/nope", &pe)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, pe.Error, "nope")
	})
}

type inMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, ts *httptest.Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	conn.SetReadLimit(1 << 22)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

// readUntil reads messages until one of type msgType satisfies pred.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, pred func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg inMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == msgType && (pred == nil || pred(msg.Payload)) {
			return msg.Payload
		}
	}
}

type layersPayload struct {
	Loading bool `json:"loading"`
	Layers  []struct {
		Source    string `json:"source"`
		Drawables []struct {
			Key   string `json:"key"`
			Style struct {
				Marker string `json:"marker"`
			} `json:"style"`
		} `json:"drawables"`
	} `json:"layers"`
	Styles map[string]struct {
		IconURL string `json:"iconUrl"`
	} `json:"styles"`
}

func TestWebsocketSession(t *testing.T) {
	ts := newTestServer(t)
	conn, ctx := dial(t, ts)

	send(t, ctx, conn, "ready", map[string]any{
		"bounds": map[string]float64{"west": 5.0, "south": 43.0, "east": 5.6, "north": 43.4},
	})

	var comp layersPayload
	readUntil(t, ctx, conn, "layers", func(raw json.RawMessage) bool {
		comp = layersPayload{}
		require.NoError(t, json.Unmarshal(raw, &comp))
		return !comp.Loading && len(comp.Layers) == 1 && len(comp.Layers[0].Drawables) == 1
	})
	assert.Equal(t, "amp", comp.Layers[0].Source)
	d := comp.Layers[0].Drawables[0]
	assert.Equal(t, "id:p1", d.Key)
	assert.Equal(t, "2", d.Style.Marker)
	require.Contains(t, comp.Styles, "2")
	assert.True(t, strings.HasPrefix(comp.Styles["2"].IconURL, "data:image/png;base64,"))

	t.Run("ping", func(t *testing.T) {
		send(t, ctx, conn, "ping", nil)
		readUntil(t, ctx, conn, "pong", nil)
	})

	t.Run("unknown type", func(t *testing.T) {
		send(t, ctx, conn, "zoom", nil)
		raw := readUntil(t, ctx, conn, "error", nil)
		assert.Contains(t, string(raw), "zoom")
	})

	t.Run("unknown category", func(t *testing.T) {
		send(t, ctx, conn, "toggle_category", map[string]any{"category": 9})
		raw := readUntil(t, ctx, conn, "error", nil)
		assert.Contains(t, string(raw), "unknown category 9")
	})

	t.Run("invalid bounds", func(t *testing.T) {
		send(t, ctx, conn, "move", map[string]any{
			"bounds": map[string]float64{"west": 5, "south": 44, "east": 6, "north": 43},
		})
		readUntil(t, ctx, conn, "error", nil)
	})
}
