package cmd

import "testing"

func TestAppConfigAddrAndCleanupURL(t *testing.T) {
	t.Parallel()

	cfg := AppConfig{Host: "0.0.0.0", Port: 8000}
	if got := cfg.Addr(); got != "0.0.0.0:8000" {
		t.Fatalf("Addr() = %q", got)
	}
	if got := cfg.cleanupURL(); got != "" {
		t.Fatalf("cleanupURL() = %q, want empty without public url", got)
	}

	cfg.PublicURL = " https://support.example.com/ "
	if got := cfg.cleanupURL(); got != "https://support.example.com/sessions/cleanup" {
		t.Fatalf("cleanupURL() = %q", got)
	}
}
