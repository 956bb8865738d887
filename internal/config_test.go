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
	if cfg.Scenes.Path != "./scenes" || cfg.SQLite.Path != "./forcegraph.db" {
		t.Errorf("paths = %q, %q", cfg.Scenes.Path, cfg.SQLite.Path)
	}
}

func TestStreamConfig_Validate(t *testing.T) {
	cases := map[string]struct {
		cfg     StreamConfig
		wantErr bool
	}{
		"defaults":          {StreamConfig{TickRate: 60, FrameThrottle: 50 * time.Millisecond}, false},
		"no throttle":       {StreamConfig{TickRate: 30}, false},
		"zero tick rate":    {StreamConfig{TickRate: 0}, true},
		"too fast":          {StreamConfig{TickRate: 5000}, true},
		"negative throttle": {StreamConfig{TickRate: 60, FrameThrottle: -time.Second}, true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFullConfig_SimulationValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Simulation.Width = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "simulation") {
		t.Fatalf("expected simulation error, got %v", err)
	}
}

func TestFullConfig_ScenesPathRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Scenes.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty scenes path should fail")
	}
}
