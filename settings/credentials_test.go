package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathsUseXDGDataHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	wantPath := filepath.Join(tmp, "clokit", "auth.json")
	if got := FilePath(); got != wantPath {
		t.Fatalf("FilePath() = %q, want %q", got, wantPath)
	}

	mp, err := MemoryPath()
	if err != nil {
		t.Fatalf("MemoryPath() error: %v", err)
	}
	if want := filepath.Join(tmp, "clokit", "tm.db"); mp != want {
		t.Fatalf("MemoryPath() = %q, want %q", mp, want)
	}
	// MemoryPath creates the data directory.
	if _, err := os.Stat(filepath.Join(tmp, "clokit")); err != nil {
		t.Fatalf("data dir not created: %v", err)
	}
}

func TestSaveLoadRemoveLifecycle(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	store := Store{
		"google-light": {Key: "apikey123456"},
		"openai":       {Key: "sk-test", BaseURL: "http://localhost:8080/v1", Model: "gpt-4o"},
	}
	if err := Save(store); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	path := filepath.Join(tmp, "clokit", "auth.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat auth.json: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("auth.json mode = %o, want 600", info.Mode().Perm())
	}

	loaded := Load()
	if loaded["google-light"] == nil || loaded["google-light"].Key != "apikey123456" {
		t.Fatalf("Load() missing google-light key: %#v", loaded["google-light"])
	}
	if loaded["openai"] == nil || loaded["openai"].BaseURL != "http://localhost:8080/v1" {
		t.Fatalf("Load() missing openai entry: %#v", loaded["openai"])
	}

	if err := Remove("google-light"); err != nil {
		t.Fatalf("Remove(google-light) error: %v", err)
	}
	if Get("google-light") != nil {
		t.Fatal("google-light credential survived Remove")
	}
	if Get("openai") == nil {
		t.Fatal("openai credential should remain after removing google-light")
	}

	if err := Remove("missing-engine"); err != nil {
		t.Fatalf("Remove(missing) should be no-op, got: %v", err)
	}

	if err := RemoveAll(); err != nil {
		t.Fatalf("RemoveAll() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("auth.json should be removed, stat err=%v", err)
	}
	if got := Load(); len(got) != 0 {
		t.Fatalf("Load() after RemoveAll should be empty, got=%#v", got)
	}
}

func TestResolveAPIKeyPriority(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	if err := Set("google-light", &Credential{Key: "stored-key"}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	t.Setenv(EnvAPIKey, "env-key")
	if got := ResolveAPIKey("flag-key", "google-light"); got != "flag-key" {
		t.Fatalf("flag should win, got %q", got)
	}
	if got := ResolveAPIKey("", "google-light"); got != "env-key" {
		t.Fatalf("env should win over store, got %q", got)
	}

	t.Setenv(EnvAPIKey, "")
	if got := ResolveAPIKey("", "google-light"); got != "stored-key" {
		t.Fatalf("stored key expected, got %q", got)
	}
	if got := ResolveAPIKey("", "unknown"); got != "" {
		t.Fatalf("unknown engine resolved to %q", got)
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("short"); got != "****" {
		t.Fatalf("MaskKey(short) = %q, want ****", got)
	}
	if got := MaskKey("12345678"); got != "****" {
		t.Fatalf("MaskKey(8 chars) = %q, want ****", got)
	}
	if got := MaskKey("123456789"); got != "1234...6789" {
		t.Fatalf("MaskKey(9 chars) = %q, want 1234...6789", got)
	}
}
