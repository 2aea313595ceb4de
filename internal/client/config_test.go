package client

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	got, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got.ServerURL != "http://localhost:8080" {
		t.Errorf("Expected default server URL, got %q", got.ServerURL)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	want := &Config{
		ServerURL: "https://chat.example.com",
		Cookie:    "signed-cookie",
		UserID:    "user-1",
		Username:  "jane",
		UniqueID:  "AB12CD34",
	}
	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if *got != *want {
		t.Errorf("Round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestSaveConfigPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Expected 0600 permissions, got %o", perm)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{not json"), 0600)

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed config")
	}
}
