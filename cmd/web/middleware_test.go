package main

import (
	"net/http"
	"strings"
	"testing"
)

func Test_crossOriginProtection(t *testing.T) {
	ctx := t.Context()
	server := startTestServer(t)

	// Simulate a form submission from a malicious third-party site.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL()+"/api/logout",
		strings.NewReader(""))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Sec-Fetch-Site", "cross-site")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to do request: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected cross-origin request to be blocked with 403, got %d", resp.StatusCode)
	}
}

func Test_secureHeaders(t *testing.T) {
	ctx := t.Context()
	server := startTestServer(t)

	resp, err := server.Client().Get(ctx, "/")
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if csp := resp.Header.Get("Content-Security-Policy"); !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("Expected restrictive CSP, got %q", csp)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("Expected nosniff, got %q", got)
	}
}
