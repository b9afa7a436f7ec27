package manifestapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/depotctl/depotctl/internal/cache"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sc, err := cache.New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(srv.URL, "smm-test", sc, zap.NewNop()), srv
}

func TestGetManifest(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/manifest/10" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "smm-test" {
			t.Error("api key not sent")
		}
		_, _ = w.Write([]byte(`{"app_id":"10","name":"Counter-Strike","download_url":"https://cdn.example/10.zip","size_bytes":42}`))
	})

	m, err := c.GetManifest(context.Background(), "10")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "Counter-Strike" || m.DownloadURL == "" {
		t.Errorf("manifest = %+v", m)
	}
}

func TestGetManifestErrorIncludesBodyPreview(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not in library"}`))
	})

	_, err := c.GetManifest(context.Background(), "10")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGetGameStatusUsesCache(t *testing.T) {
	var hits atomic.Int64
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"app_id":"10","update_in_progress":true}`))
	})

	s := c.GetGameStatus(context.Background(), "10")
	if s == nil || !s.UpdateInProgress {
		t.Fatalf("status = %+v", s)
	}
	// Second call within the TTL must be served from cache.
	_ = c.GetGameStatus(context.Background(), "10")
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestGetGameStatusFailureReturnsNil(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if s := c.GetGameStatus(context.Background(), "10"); s != nil {
		t.Errorf("expected nil, got %+v", s)
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"smm1234", true},
		{"SMM1234", true},
		{"  smm-abc  ", true},
		{"", false},
		{"key-123", false},
	}
	for _, tt := range tests {
		if got := ValidateAPIKey(tt.key); got != tt.want {
			t.Errorf("ValidateAPIKey(%q) = %v", tt.key, got)
		}
	}
}

func TestSearch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "silent" {
			t.Errorf("q = %q", r.URL.Query().Get("q"))
		}
		_, _ = w.Write([]byte(`[{"app_id":"2305270","name":"Silent Valley"}]`))
	})

	results, err := c.Search(context.Background(), "silent")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].AppID != "2305270" {
		t.Errorf("results = %+v", results)
	}
}
