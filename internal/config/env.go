package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override profile.toml.
const (
	EnvProfile     = "CHATDEV_PROFILE"
	EnvHome        = "CHATDEV_HOME"
	EnvWSURL       = "CHATDEV_WS_URL"
	EnvAPIURL      = "CHATDEV_API_URL"
	EnvUserID      = "CHATDEV_USER_ID"
	EnvUsername    = "CHATDEV_USERNAME"
	EnvResend      = "CHATDEV_RESEND_ON_RECONNECT"
	EnvMetricsAddr = "CHATDEV_METRICS_ADDR"
	EnvDialTimeout = "CHATDEV_DIAL_TIMEOUT"
)

// LoadDotenv loads the given .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields of p from CHATDEV_* variables read with getenv.
func ApplyEnv(p *Profile, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvWSURL); v != "" {
		p.WSURL = v
	}
	if v := getenv(EnvAPIURL); v != "" {
		p.APIURL = v
	}
	if v := getenv(EnvUserID); v != "" {
		p.UserID = v
	}
	if v := getenv(EnvUsername); v != "" {
		p.Username = v
	}
	if v := getenv(EnvMetricsAddr); v != "" {
		p.MetricsAddr = v
	}
	if v := getenv(EnvResend); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvResend, err)
		}
		p.ResendOnReconnect = b
	}
	if v := getenv(EnvDialTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDialTimeout, err)
		}
		p.DialTimeout = Duration{d}
	}
	return nil
}
