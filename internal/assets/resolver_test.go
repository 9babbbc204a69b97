package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newResolver(t *testing.T, srv *httptest.Server, retries int) *HTTPResolver {
	t.Helper()
	r, err := NewHTTPResolver(srv.URL, time.Second, retries, nil)
	if err != nil {
		t.Fatalf("NewHTTPResolver: %v", err)
	}
	return r
}

func TestResolve_ReturnsHeldAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/balances/1FBuCHMw5e5yTNKbf1eJq1bXZjoGaXeqwV" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"asset":"A1234","asset_longname":"LLAMAS.test1","quantity":"1"},
			{"asset":"PEPECASH","asset_longname":null,"quantity":"42"},
			{"asset":"","asset_longname":""},
			{"asset":"A1234","asset_longname":"LLAMAS.test1"}
		]}`))
	}))
	defer srv.Close()

	held, err := newResolver(t, srv, 0).Resolve(context.Background(), "1FBuCHMw5e5yTNKbf1eJq1bXZjoGaXeqwV")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// Empty identifiers are dropped, duplicates are preserved as received.
	want := []string{"LLAMAS.test1", "PEPECASH", "LLAMAS.test1"}
	if len(held) != len(want) {
		t.Fatalf("held = %v, want %v", held, want)
	}
	for i := range want {
		if held[i] != want[i] {
			t.Fatalf("held[%d] = %q, want %q", i, held[i], want[i])
		}
	}
}

func TestResolve_EmptyWalletIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	held, err := newResolver(t, srv, 0).Resolve(context.Background(), "addr")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(held) != 0 {
		t.Fatalf("held = %v, want empty", held)
	}
}

func TestResolve_UpstreamFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": [`))
		}},
		{"missing data array", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":"ok"}`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			if _, err := newResolver(t, srv, 0).Resolve(context.Background(), "addr"); err == nil {
				t.Fatal("expected upstream error")
			}
		})
	}
}

func TestResolve_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":[{"asset":"PEPECASH"}]}`))
	}))
	defer srv.Close()

	held, err := newResolver(t, srv, 2).Resolve(context.Background(), "addr")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(held) != 1 || held[0] != "PEPECASH" {
		t.Fatalf("held = %v", held)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestResolve_CancelledContextStopsRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newResolver(t, srv, 5).Resolve(ctx, "addr"); err == nil {
		t.Fatal("expected error")
	}
	if attempts > 1 {
		t.Fatalf("attempts = %d, want at most 1", attempts)
	}
}
