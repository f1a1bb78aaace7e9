package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Extraction.Client().Mode != "disabled" {
		t.Errorf("extraction mode = %q", cfg.Extraction.Client().Mode)
	}
}

func TestExtractionConfig_RemoteNeedsBaseURL(t *testing.T) {
	cfg := ExtractionConfig{Mode: "gateway"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("gateway mode without base_url should fail")
	}
	cfg.BaseURL = "https://gateway.example/v1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("gateway mode with base_url should pass: %v", err)
	}
}

func TestExtractionConfig_UnknownMode(t *testing.T) {
	cfg := ExtractionConfig{Mode: "oracle", BaseURL: "http://x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown mode should fail")
	}
}

func TestSessionsConfig_Bounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Sessions.IdleTimeout = time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("idle timeout under a minute should fail")
	}
}

func TestUploadsConfig_Required(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Uploads.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty uploads path should fail")
	}
}
