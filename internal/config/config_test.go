package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir moves the test into dir and restores the original working
// directory when the test ends (testing.T.Chdir needs go1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Errorf("failed to restore working directory: %v", err)
		}
	})
}

// isolate points config discovery at empty directories so an ambient
// couchctl.yaml cannot leak into a test.
func isolate(t *testing.T) {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

// TestLoadDefaults tests the settings with no file and no
// environment.
func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.ServerURL != "http://localhost:5984" {
		t.Errorf("unexpected server url %q", cfg.ServerURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("unexpected timeout %v", cfg.Timeout)
	}
	if cfg.Username != "" || cfg.Password != "" {
		t.Errorf("expected empty credentials, got %q/%q", cfg.Username, cfg.Password)
	}
	if cfg.Verbose {
		t.Error("expected verbose to default to false")
	}
}

// TestLoadExplicitFile tests loading a named config file.
func TestLoadExplicitFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "couchctl.yaml")
	data := []byte("server_url: http://db.example.com:5984\nusername: admin\ntimeout: 45s\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.ServerURL != "http://db.example.com:5984" {
		t.Errorf("unexpected server url %q", cfg.ServerURL)
	}
	if cfg.Username != "admin" {
		t.Errorf("unexpected username %q", cfg.Username)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("unexpected timeout %v", cfg.Timeout)
	}
	if cfg.Password != "" {
		t.Errorf("expected the password to stay at its default, got %q", cfg.Password)
	}
}

// TestLoadMissingExplicitFile tests that a named file that does not
// exist is an error, unlike a failed discovery.
func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

// TestLoadDiscovery tests that couchctl.yaml is picked up from the
// working directory.
func TestLoadDiscovery(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())

	data := []byte("server_url: http://discovered:5984\n")
	if err := os.WriteFile(filepath.Join(dir, "couchctl.yaml"), data, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.ServerURL != "http://discovered:5984" {
		t.Errorf("unexpected server url %q", cfg.ServerURL)
	}
}

// TestEnvOverride tests that COUCHCTL_* variables beat the file and
// the defaults.
func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())

	data := []byte("server_url: http://file:5984\nusername: fileuser\n")
	if err := os.WriteFile(filepath.Join(dir, "couchctl.yaml"), data, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("COUCHCTL_SERVER_URL", "http://env:5984")
	t.Setenv("COUCHCTL_PASSWORD", "hunter2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.ServerURL != "http://env:5984" {
		t.Errorf("expected the environment to win, got %q", cfg.ServerURL)
	}
	if cfg.Username != "fileuser" {
		t.Errorf("expected the file value to survive, got %q", cfg.Username)
	}
	if cfg.Password != "hunter2" {
		t.Errorf("unexpected password %q", cfg.Password)
	}
}
