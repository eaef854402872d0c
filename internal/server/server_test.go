package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"yashubustudio/newscat/inference"
	"yashubustudio/newscat/internal/config"
	"yashubustudio/newscat/internal/logger"
)

type fakePredictor struct {
	ready atomic.Bool
	err   error
	stats inference.CacheStats
}

func newFakePredictor() *fakePredictor {
	p := &fakePredictor{}
	p.ready.Store(true)
	return p
}

func (f *fakePredictor) Ready() bool { return f.ready.Load() }

func (f *fakePredictor) CacheStats() inference.CacheStats { return f.stats }

func (f *fakePredictor) Predict(_ context.Context, docs []string) ([]inference.Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]inference.Prediction, len(docs))
	for i, d := range docs {
		label := "SPORTS"
		if strings.Contains(strings.ToLower(d), "senate") {
			label = "POLITICS"
		}
		out[i] = inference.Prediction{Text: d, Label: label, Score: 0.9, Scores: []float32{0.9, 0.1}}
	}
	return out, nil
}

func testServer(p Predictor, mutate ...func(*config.ServerConfig)) *Server {
	cfg := config.Default().Server
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg, p, logger.Nop())
}

func do(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	t.Run("Should report ready when the model is loaded", func(t *testing.T) {
		rec := do(testServer(newFakePredictor()), http.MethodGet, "/ping", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Should report unavailable when the model is not ready", func(t *testing.T) {
		p := newFakePredictor()
		p.ready.Store(false)
		rec := do(testServer(p), http.MethodGet, "/ping", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestInvocations(t *testing.T) {
	t.Run("Should classify a JSON list", func(t *testing.T) {
		rec := do(testServer(newFakePredictor()), http.MethodPost, "/invocations",
			`["Senate passes bill", "Late goal wins final"]`,
			map[string]string{"Content-Type": "application/json"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		body := rec.Body.String()
		assert.Equal(t, "POLITICS", gjson.Get(body, "predictions.0.label").String())
		assert.Equal(t, "SPORTS", gjson.Get(body, "predictions.1.label").String())
	})

	t.Run("Should honour a CSV accept header", func(t *testing.T) {
		rec := do(testServer(newFakePredictor()), http.MethodPost, "/invocations",
			"Senate passes bill\n", map[string]string{"Content-Type": "text/plain", "Accept": "text/csv"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Equal(t, "label,index,score\nPOLITICS,0,0.900000\n", rec.Body.String())
	})

	t.Run("Should map request errors to status codes", func(t *testing.T) {
		cases := []struct {
			name        string
			body        string
			contentType string
			accept      string
			want        int
		}{
			{"unsupported content type", "x", "application/x-npy", "", http.StatusUnsupportedMediaType},
			{"empty list", "[]", "application/json", "", http.StatusBadRequest},
			{"malformed json", `{"inputs":`, "application/json", "", http.StatusBadRequest},
			{"unsupported accept", `"a"`, "application/json", "application/xml", http.StatusNotAcceptable},
		}
		s := testServer(newFakePredictor())
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				headers := map[string]string{"Content-Type": tc.contentType}
				if tc.accept != "" {
					headers["Accept"] = tc.accept
				}
				rec := do(s, http.MethodPost, "/invocations", tc.body, headers)
				assert.Equal(t, tc.want, rec.Code)
				assert.NotEmpty(t, gjson.Get(rec.Body.String(), "error").String())
			})
		}
	})

	t.Run("Should reject oversized bodies", func(t *testing.T) {
		s := testServer(newFakePredictor(), func(c *config.ServerConfig) { c.MaxBodyBytes = 8 })
		rec := do(s, http.MethodPost, "/invocations", `"a much longer document"`, nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("Should cap the number of documents", func(t *testing.T) {
		s := testServer(newFakePredictor(), func(c *config.ServerConfig) { c.MaxDocuments = 1 })
		rec := do(s, http.MethodPost, "/invocations", `["a", "b"]`, nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("Should surface predictor failures", func(t *testing.T) {
		p := newFakePredictor()
		p.err = errors.New("runner exploded")
		rec := do(testServer(p), http.MethodPost, "/invocations", `"a"`, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "runner exploded")
	})

	t.Run("Should refuse work when the model is not ready", func(t *testing.T) {
		p := newFakePredictor()
		p.ready.Store(false)
		rec := do(testServer(p), http.MethodPost, "/invocations", `"a"`, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	s := testServer(newFakePredictor())

	t.Run("Should echo a caller supplied id", func(t *testing.T) {
		rec := do(s, http.MethodGet, "/ping", "", map[string]string{"X-Request-ID": "abc-123"})
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("Should generate an id when absent", func(t *testing.T) {
		rec := do(s, http.MethodGet, "/ping", "", nil)
		assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
	})

	t.Run("Should include the id in error bodies", func(t *testing.T) {
		rec := do(s, http.MethodPost, "/invocations", "[]", map[string]string{"X-Request-ID": "req-9"})
		assert.Equal(t, "req-9", gjson.Get(rec.Body.String(), "request_id").String())
	})
}

func TestMetrics(t *testing.T) {
	p := newFakePredictor()
	p.stats = inference.CacheStats{Hits: 3, Misses: 2}
	s := testServer(p)
	do(s, http.MethodPost, "/invocations", `["a", "b"]`, nil)

	rec := do(s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `newscat_http_requests_total{code="200",route="/invocations"} 1`)
	assert.Contains(t, body, "newscat_documents_classified_total 2")
	assert.Contains(t, body, "newscat_score_cache_hits_total 3")
	assert.Contains(t, body, "newscat_score_cache_misses_total 2")
}

func TestServe(t *testing.T) {
	t.Run("Should serve until the context is cancelled", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		s := testServer(newFakePredictor(), func(c *config.ServerConfig) { c.ShutdownTimeout = time.Second })

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() { done <- s.Serve(ctx, ln) }()

		resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})
}
