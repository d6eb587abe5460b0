package config

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an unknown logging level")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Device.AppName != "flowvk" {
		t.Errorf("app name: %q, want flowvk", cfg.Device.AppName)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging level: %q, want info", cfg.Logging.Level)
	}
}
