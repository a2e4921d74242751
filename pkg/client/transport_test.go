package client

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

// deadAddr returns a base URL with nothing listening on it
func deadAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return "http://" + addr
}

func TestFailoverSkipsDeadServers(t *testing.T) {
	var gotRetryIndex string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRetryIndex = r.Header.Get(RetryIndexHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewTransport([]string{deadAddr(t), deadAddr(t), server.URL}, nil, 5*time.Second)

	body := []byte(`{"subject":"Physics"}`)
	resp, err := tr.Do(context.Background(), http.MethodPost, "/api/v1/attendance/start", body, nil)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	resp.Body.Close()

	if gotRetryIndex != "2" {
		t.Errorf("expected retry index 2 on the third candidate, got %q", gotRetryIndex)
	}
	if string(gotBody) != string(body) {
		t.Errorf("replayed body differs: %q", gotBody)
	}
}

func TestHTTPErrorEndsFailover(t *testing.T) {
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer first.Close()

	secondHit := false
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHit = true
		w.WriteHeader(http.StatusOK)
	}))
	defer second.Close()

	tr := NewTransport([]string{first.URL, second.URL}, nil, 5*time.Second)

	resp, err := tr.Do(context.Background(), http.MethodGet, "/anything", nil, nil)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected the 404 back, got %d", resp.StatusCode)
	}
	if secondHit {
		t.Error("an HTTP error status must not trigger failover")
	}
}

func TestAllCandidatesDownSurfacesFirstError(t *testing.T) {
	tr := NewTransport([]string{deadAddr(t), deadAddr(t)}, nil, 2*time.Second)

	_, err := tr.Do(context.Background(), http.MethodGet, "/ping", nil, nil)
	if err == nil {
		t.Fatal("expected an error with every candidate down")
	}
}

func TestRetryIndexStartsAtZero(t *testing.T) {
	var indexes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		indexes = append(indexes, r.Header.Get(RetryIndexHeader))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewTransport([]string{server.URL}, nil, 5*time.Second)
	resp, err := tr.Do(context.Background(), http.MethodGet, "/ping", nil, nil)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	resp.Body.Close()

	if len(indexes) != 1 || indexes[0] != "0" {
		t.Errorf("expected a single attempt with index 0, got %v", indexes)
	}
}

func TestManualOverrideWinsOverCandidates(t *testing.T) {
	candidate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("candidate hit despite manual override")
	}))
	defer candidate.Close()

	override := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer override.Close()

	store := NewServerURLStore(filepath.Join(t.TempDir(), "server_url"))
	if err := store.Set(override.URL); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	tr := NewTransport([]string{candidate.URL}, store, 5*time.Second)
	resp, err := tr.Do(context.Background(), http.MethodGet, "/ping", nil, nil)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	resp.Body.Close()

	// Clearing the override restores the candidate list, re-read on
	// the next request without rebuilding the transport.
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	done := make(chan struct{})
	candidate2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(done)
		w.WriteHeader(http.StatusOK)
	}))
	defer candidate2.Close()

	tr2 := NewTransport([]string{candidate2.URL}, store, 5*time.Second)
	resp, err = tr2.Do(context.Background(), http.MethodGet, "/ping", nil, nil)
	if err != nil {
		t.Fatalf("Do after Clear failed: %v", err)
	}
	resp.Body.Close()
	select {
	case <-done:
	default:
		t.Error("candidate not used after override cleared")
	}
}

func TestParseCandidates(t *testing.T) {
	got := ParseCandidates(" http://a:8080 , http://b:8080,, http://c ")
	want := []string{"http://a:8080", "http://b:8080", "http://c"}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNoCandidates(t *testing.T) {
	tr := NewTransport(nil, nil, time.Second)
	if _, err := tr.Do(context.Background(), http.MethodGet, "/", nil, nil); err == nil {
		t.Fatal("expected error with no addresses configured")
	}
}
