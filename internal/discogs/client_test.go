package discogs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Credentials{}, "https://api.discogs.com", "ua"); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := New(Credentials{Key: "k"}, "https://api.discogs.com", "ua"); err == nil {
		t.Fatal("expected error for key without secret")
	}
	if _, err := New(Credentials{Token: "t"}, "", "ua"); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestSearchSendsStrategyParams(t *testing.T) {
	cases := []struct {
		name   string
		params SearchParams
		want   map[string]string
		absent []string
	}{
		{
			name:   "barcode",
			params: SearchParams{Barcode: "5099902161724"},
			want:   map[string]string{"type": "release", "barcode": "5099902161724"},
			absent: []string{"format", "catno", "q"},
		},
		{
			name:   "catno",
			params: SearchParams{CatNo: "7243 8 55559 2 3"},
			want:   map[string]string{"type": "release", "catno": "7243 8 55559 2 3"},
			absent: []string{"format", "barcode"},
		},
		{
			name:   "fallback",
			params: SearchParams{Query: "Radiohead OK Computer", Format: FormatCD, PerPage: 10},
			want:   map[string]string{"q": "Radiohead OK Computer", "format": "CD", "per_page": "10"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/database/search" {
					t.Fatalf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Discogs token=secret-token" {
					t.Fatalf("unexpected auth header %q", got)
				}
				if r.Header.Get("User-Agent") != "MusicScanTest/1.0" {
					t.Fatalf("unexpected user agent %q", r.Header.Get("User-Agent"))
				}
				query := r.URL.Query()
				for key, value := range tc.want {
					if query.Get(key) != value {
						t.Fatalf("param %s: got %q want %q", key, query.Get(key), value)
					}
				}
				for _, key := range tc.absent {
					if query.Has(key) {
						t.Fatalf("param %s must not be sent", key)
					}
				}
				_ = json.NewEncoder(w).Encode(SearchResponse{Results: []SearchResult{{ID: 1, Title: "Radiohead - OK Computer", Year: "1997"}}})
			}))
			defer server.Close()

			client, err := New(Credentials{Token: "secret-token"}, server.URL, "MusicScanTest/1.0")
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			resp, err := client.Search(context.Background(), tc.params)
			if err != nil {
				t.Fatalf("Search returned error: %v", err)
			}
			if len(resp.Results) != 1 || resp.Results[0].YearValue() != 1997 {
				t.Fatalf("unexpected results: %#v", resp.Results)
			}
		})
	}
}

func TestSearchTruncatesToPerPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := make([]SearchResult, 15)
		for i := range results {
			results[i] = SearchResult{ID: int64(i + 1)}
		}
		_ = json.NewEncoder(w).Encode(SearchResponse{Results: results})
	}))
	defer server.Close()

	client, _ := New(Credentials{Token: "t"}, server.URL, "ua")
	resp, err := client.Search(context.Background(), SearchParams{Query: "x", PerPage: 10})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(resp.Results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(resp.Results))
	}
}

func TestSearchRequiresStrategy(t *testing.T) {
	client, _ := New(Credentials{Token: "t"}, "http://127.0.0.1:1", "ua")
	if _, err := client.Search(context.Background(), SearchParams{Format: FormatCD}); err == nil {
		t.Fatal("expected error for empty search")
	}
}

func TestKeySecretAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Discogs key=abc, secret=xyz" {
			t.Fatalf("unexpected auth header %q", got)
		}
		_ = json.NewEncoder(w).Encode(Release{ID: 7})
	}))
	defer server.Close()

	client, err := New(Credentials{Key: "abc", Secret: "xyz"}, server.URL, "ua")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.GetRelease(context.Background(), 7); err != nil {
		t.Fatalf("GetRelease returned error: %v", err)
	}
}

func TestGetReleaseDecodesDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/releases/1234" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"id": 1234,
			"title": "Blue Lines",
			"year": 1991,
			"country": "UK",
			"artists": [{"name": "Massive Attack (2)", "join": "&"}, {"name": "Shara Nelson", "join": ""}],
			"labels": [{"name": "Wild Bunch Records", "catno": "WBRCD 1"}],
			"identifiers": [{"type": "Barcode", "value": "5 012980 201025"}]
		}`))
	}))
	defer server.Close()

	client, _ := New(Credentials{Token: "t"}, server.URL, "ua")
	release, err := client.GetRelease(context.Background(), 1234)
	if err != nil {
		t.Fatalf("GetRelease returned error: %v", err)
	}
	if got := release.ArtistName(); got != "Massive Attack & Shara Nelson" {
		t.Fatalf("unexpected artist name %q", got)
	}
	label, ok := release.PrimaryLabel()
	if !ok || label.CatNo != "WBRCD 1" {
		t.Fatalf("unexpected label %#v", label)
	}
	if release.Year != 1991 || release.Country != "UK" {
		t.Fatalf("unexpected release %#v", release)
	}
}

func TestStatusErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Release not found."}`, http.StatusNotFound)
	}))
	defer server.Close()

	client, _ := New(Credentials{Token: "t"}, server.URL, "ua")
	_, err := client.GetRelease(context.Background(), 99)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !statusErr.NotFound() || statusErr.RateLimited() {
		t.Fatalf("unexpected classification for %v", statusErr)
	}
}
