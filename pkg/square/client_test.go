package square

import (
	"net/http"
	"testing"

	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
)

func TestNormalizeEnv(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"sandbox", sandboxEnv, false},
		{"production", productionEnv, false},
		{"test", sandboxEnv, false},
		{"dev", sandboxEnv, false},
		{" Production ", productionEnv, false},
		{"staging", "", true},
	}
	for _, tt := range tests {
		got, err := normalizeEnv(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("normalizeEnv(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalizeEnv(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("normalizeEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedact(t *testing.T) {
	c := &Client{}
	if out := c.redact("payment_token", "abc123"); out != "[REDACTED]" {
		t.Fatalf("expected redacted value, got %v", out)
	}
	// Non-sensitive keys should be preserved.
	if v := c.redact("status", "ok"); v != "ok" {
		t.Fatalf("unexpected redaction for safe key")
	}
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusTeapot, pkgerrors.CodeValidation},
		{http.StatusBadGateway, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		if got := domainCodeForStatus(tt.status); got != tt.want {
			t.Fatalf("status %d: expected %s got %s", tt.status, tt.want, got)
		}
	}
}
