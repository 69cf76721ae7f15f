package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes a temporary config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "testrail.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		path := writeConfig(t, `
server_url: https://example.testrail.io
username: qa@example.com
api_key: secret
project_id: 3
suite_id: 2
run_id: 5
dont_publish_blocked: true
close_on_complete: true
custom_comment: "build 1.2.3"
log_level: debug
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.ServerURL != "https://example.testrail.io" {
			t.Errorf("got server_url %q", cfg.ServerURL)
		}
		if cfg.RunID != 5 || cfg.ProjectID != 3 || cfg.SuiteID != 2 {
			t.Errorf("unexpected ids: %+v", cfg)
		}
		if !cfg.DontPublishBlocked || !cfg.CloseOnComplete {
			t.Error("expected boolean options set")
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("got log_level %q", cfg.LogLevel)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		path := writeConfig(t, `
server_url: https://example.testrail.io
username: qa@example.com
api_key: secret
run_id: 5
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("got log_level %q, want default info", cfg.LogLevel)
		}
		if cfg.CaseMap != "testrail-cases.yaml" {
			t.Errorf("got case_map %q, want default", cfg.CaseMap)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "missing server url",
			content: "username: u\napi_key: k\nrun_id: 5\n",
			wantErr: ErrServerURLRequired,
		},
		{
			name:    "missing credentials",
			content: "server_url: https://x\nrun_id: 5\n",
			wantErr: ErrCredentialsRequired,
		},
		{
			name:    "run and plan both set",
			content: "server_url: https://x\nusername: u\napi_key: k\nrun_id: 5\nplan_id: 9\n",
			wantErr: ErrRunAndPlan,
		},
		{
			name:    "no target and no project",
			content: "server_url: https://x\nusername: u\napi_key: k\n",
			wantErr: ErrProjectRequired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got err %v, want %v", err, tt.wantErr)
			}
		})
	}
}
