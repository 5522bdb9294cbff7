//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestLivez(t *testing.T) {
	resp := doGet(t, "/livez")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[healthResponse](t, resp)
	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %q", body.Status)
	}
	if body.Checks["goroutines"] != "ok" {
		t.Errorf("goroutines check: %q", body.Checks["goroutines"])
	}
	if _, ok := body.Checks["postgres"]; ok {
		t.Error("readiness checks must not be listed on /livez")
	}
}

func TestReadyz_ListsDependencies(t *testing.T) {
	resp := doGet(t, "/readyz")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[healthResponse](t, resp)
	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %q", body.Status)
	}
	// Redis is configured by the compose file, so the ledger is checked too.
	for _, name := range []string{"postgres", "db_pool", "workers", "redis"} {
		if got := body.Checks[name]; got != "ok" {
			t.Errorf("check %s: got %q, want ok", name, got)
		}
	}
}
