package server

import (
	"net/http/httptest"
	"testing"
)

func TestIntParam(t *testing.T) {
	cases := []struct {
		url      string
		fallback int
		want     int
	}{
		{"/api/v1/search/logs", 20, 20},
		{"/api/v1/search/logs?per_page=50", 20, 50},
		{"/api/v1/search/logs?per_page=0", 20, 0},
		{"/api/v1/search/logs?per_page=-3", 20, -3},
	}
	for _, c := range cases {
		r := httptest.NewRequest("GET", c.url, nil)
		got, err := intParam(r, "per_page", c.fallback)
		if err != nil {
			t.Fatalf("intParam(%q) returned error: %v", c.url, err)
		}
		if got != c.want {
			t.Fatalf("intParam(%q) = %d, want %d", c.url, got, c.want)
		}
	}
}

func TestIntParamRejectsNonNumeric(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/search/logs?page=lots", nil)
	if _, err := intParam(r, "page", 1); err == nil {
		t.Fatalf("expected error for non-numeric page")
	}
}
