package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckLatest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tag_name":"v1.2.0","body":"security fix"}`))
	}))
	defer ts.Close()

	rel, err := checkURL(context.Background(), "1.0.0", ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rel.Newer {
		t.Fatal("expected update available")
	}
	if rel.Latest != "1.2.0" {
		t.Fatalf("unexpected latest version: %s", rel.Latest)
	}
	if rel.Notes != "security fix" {
		t.Fatalf("unexpected release notes: %s", rel.Notes)
	}
}

func TestCheckLatestNoUpdate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"v1.2.0","body":"notes"}`))
	}))
	defer ts.Close()

	for _, current := range []string{"1.2.0", "v1.3.0"} {
		rel, err := checkURL(context.Background(), current, ts.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rel.Newer || rel.Notes != "" {
			t.Fatalf("did not expect update from %s: %+v", current, rel)
		}
	}
}

func TestCheckLatestBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer ts.Close()

	if _, err := checkURL(context.Background(), "1.0.0", ts.URL); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.2.0", "1.2.0", 0},
		{"1.10.0", "1.9.9", 1},
		{"1.2", "1.2.1", -1},
		{"dev", "0.0.1", -1},
		{"2.0.0-rc1", "2.0.0", 0},
	}
	for _, tc := range cases {
		if got := Compare(tc.a, tc.b); got != tc.want {
			t.Fatalf("Compare(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
