package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func screenerTestProvider(url string) *AlpacaProvider {
	return &AlpacaProvider{
		http:        &http.Client{Timeout: 5 * time.Second},
		screenerURL: url,
		apiKey:      "key",
		apiSecret:   "secret",
	}
}

func TestDiscoverCandidatesParsesMostActives(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("APCA-API-KEY-ID")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"most_actives":[
			{"symbol":"TSLA","volume":120000000,"trade_count":900000},
			{"symbol":"NVDA","volume":95000000,"trade_count":700000},
			{"symbol":"","volume":1,"trade_count":1}
		],"last_updated":"2026-08-31T15:00:00Z"}`))
	}))
	defer server.Close()

	p := screenerTestProvider(server.URL)
	refs, err := p.DiscoverCandidates(context.Background(), 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/stocks/most-actives" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotQuery != "by=volume&top=25" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if gotKey != "key" {
		t.Errorf("expected key header, got %q", gotKey)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].Symbol != "TSLA" || refs[0].Name != "TSLA" {
		t.Errorf("unexpected first ref %+v", refs[0])
	}
	if refs[1].Symbol != "NVDA" {
		t.Errorf("unexpected second ref %+v", refs[1])
	}
}

func TestDiscoverCandidatesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p := screenerTestProvider(server.URL)
	if _, err := p.DiscoverCandidates(context.Background(), 10); err == nil {
		t.Fatal("expected error on HTTP 403")
	}
}

func TestDiscoverCandidatesBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	p := screenerTestProvider(server.URL)
	if _, err := p.DiscoverCandidates(context.Background(), 10); err == nil {
		t.Fatal("expected error on malformed body")
	}
}
