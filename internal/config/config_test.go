package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{DefaultProfile: "work"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "work", "profile.toml")

	p := DefaultProfile()
	p.UserID = "u1"
	p.Username = "ana"
	p.ResendOnReconnect = true
	p.DialTimeout = Duration{3 * time.Second}
	if err := SaveProfile(path, p); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadProfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *p {
		t.Errorf("loaded = %+v, want %+v", loaded, p)
	}
	if id := loaded.Identity(); id.UserID != "u1" || id.Username != "ana" {
		t.Errorf("identity = %+v", id)
	}
}

func TestLoadProfileDefaults(t *testing.T) {
	p, err := LoadProfile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if p.WSURL != DefaultWSURL || p.APIURL != DefaultAPIURL || p.DialTimeout.Duration != DefaultDialTimeout {
		t.Errorf("defaults = %+v", p)
	}
	if p.Registered() {
		t.Error("fresh profile should not be registered")
	}
}

func TestLoadProfilePartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	content := "ws_url = \"wss://chat.example.com\"\ndial_timeout = \"2s\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.WSURL != "wss://chat.example.com" {
		t.Errorf("ws_url = %q", p.WSURL)
	}
	if p.APIURL != DefaultAPIURL {
		t.Errorf("api_url = %q, want default", p.APIURL)
	}
	if p.DialTimeout.Duration != 2*time.Second {
		t.Errorf("dial_timeout = %s", p.DialTimeout)
	}
}

func TestLoadProfileBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	if err := os.WriteFile(path, []byte("dial_timeout = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProfile(path); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Profile)
		wantErr bool
	}{
		{"defaults", func(p *Profile) {}, false},
		{"missing ws_url", func(p *Profile) { p.WSURL = "" }, true},
		{"missing api_url", func(p *Profile) { p.APIURL = "" }, true},
		{"negative timeout", func(p *Profile) { p.DialTimeout = Duration{-time.Second} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProfile()
			tt.mutate(p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvWSURL:       "ws://10.0.0.2:8000",
		EnvUserID:      "u9",
		EnvResend:      "true",
		EnvDialTimeout: "250ms",
	}
	p := DefaultProfile()
	if err := ApplyEnv(p, func(k string) string { return env[k] }); err != nil {
		t.Fatal(err)
	}
	if p.WSURL != "ws://10.0.0.2:8000" || p.UserID != "u9" || !p.ResendOnReconnect {
		t.Errorf("profile = %+v", p)
	}
	if p.APIURL != DefaultAPIURL {
		t.Errorf("api_url changed without override: %q", p.APIURL)
	}
	if p.DialTimeout.Duration != 250*time.Millisecond {
		t.Errorf("dial_timeout = %s", p.DialTimeout)
	}

	bad := map[string]string{EnvResend: "maybe"}
	if err := ApplyEnv(DefaultProfile(), func(k string) string { return bad[k] }); err == nil {
		t.Error("expected error for bad bool")
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CHATDEV_TEST_DOTENV=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATDEV_TEST_DOTENV", "")
	os.Unsetenv("CHATDEV_TEST_DOTENV")

	if err := LoadDotenv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("CHATDEV_TEST_DOTENV"); got != "from-file" {
		t.Errorf("CHATDEV_TEST_DOTENV = %q, want from-file", got)
	}
}
