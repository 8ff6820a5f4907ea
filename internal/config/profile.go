package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/andrejr971/chat/internal/chat"
)

// Defaults for a fresh profile, matching a server started locally.
const (
	DefaultWSURL       = "ws://localhost:8000"
	DefaultAPIURL      = "http://localhost:8000"
	DefaultDialTimeout = 10 * time.Second
)

// Profile is the per-profile profile.toml.
type Profile struct {
	WSURL             string   `toml:"ws_url"`
	APIURL            string   `toml:"api_url"`
	UserID            string   `toml:"user_id"`
	Username          string   `toml:"username"`
	ResendOnReconnect bool     `toml:"resend_on_reconnect"`
	MetricsAddr       string   `toml:"metrics_addr,omitempty"`
	DialTimeout       Duration `toml:"dial_timeout"`
}

// DefaultProfile returns a profile pointing at a local server.
func DefaultProfile() *Profile {
	return &Profile{
		WSURL:       DefaultWSURL,
		APIURL:      DefaultAPIURL,
		DialTimeout: Duration{DefaultDialTimeout},
	}
}

// LoadProfile reads path over the defaults. A missing file yields the defaults.
func LoadProfile(path string) (*Profile, error) {
	p := DefaultProfile()
	if _, err := toml.DecodeFile(path, p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("load profile %s: %w", path, err)
	}
	return p, nil
}

// SaveProfile writes p to path with 0600 permissions.
func SaveProfile(path string, p *Profile) error {
	return writeTOML(path, p)
}

// Identity returns the user the profile connects as.
func (p *Profile) Identity() chat.Identity {
	return chat.Identity{UserID: p.UserID, Username: p.Username}
}

// Registered reports whether the profile has a server-side user.
func (p *Profile) Registered() bool {
	return p.UserID != ""
}

// Validate checks the fields needed to reach the server.
func (p *Profile) Validate() error {
	if p.WSURL == "" {
		return errors.New("ws_url is required")
	}
	if p.APIURL == "" {
		return errors.New("api_url is required")
	}
	if p.DialTimeout.Duration < 0 {
		return fmt.Errorf("dial_timeout must not be negative, got %s", p.DialTimeout)
	}
	return nil
}

// Duration is a time.Duration written as a string ("10s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
