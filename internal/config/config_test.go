package config

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("stagegate")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Project.Kind != "workpackage-tracker" {
		t.Fatalf("kind = %q", cfg.Project.Kind)
	}
	if cfg.Mail.PollInterval != "10s" {
		t.Fatalf("poll_interval = %q, want 10s", cfg.Mail.PollInterval)
	}
	if _, ok := cfg.TemplateFor("workpackage.created"); !ok {
		t.Fatal("default template map is missing workpackage.created")
	}
}

func TestValidateRejectsBadPollInterval(t *testing.T) {
	cfg := Default("stagegate")
	cfg.Mail.PollInterval = "soon"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "poll_interval") {
		t.Fatalf("err = %v, want poll_interval parse failure", err)
	}

	// absent interval falls back to the worker default
	cfg.Mail.PollInterval = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty poll_interval must validate: %v", err)
	}
}
