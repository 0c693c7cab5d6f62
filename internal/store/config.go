// Package store holds local persistence: the global JSON config under
// ~/.followup and the sqlite dispatch log.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GlobalConfig is the on-disk configuration at ~/.followup/config.json.
// CLI flags and FOLLOWUP_* environment variables override these at runtime.
type GlobalConfig struct {
	// BaseURL is the remote data service endpoint.
	BaseURL string `json:"baseUrl,omitempty"`

	// Email identifies the signed-in user to the service.
	Email string `json:"email,omitempty"`

	// Token is the service credential passed as id_token.
	Token string `json:"token,omitempty"`

	// PunchURL is the order-punch form page. PunchOrigin is the only origin
	// trusted to connect back over the bridge; empty derives it from PunchURL.
	PunchURL    string `json:"punchUrl,omitempty"`
	PunchOrigin string `json:"punchOrigin,omitempty"`

	// ThirdBucketEnd is the last day of the third week bucket (21 or 22).
	// Zero uses the built-in default.
	ThirdBucketEnd int `json:"thirdBucketEnd,omitempty"`

	// RequirePunchCompletion blocks submitting an Order Recorded outcome
	// until the punch form reports completion.
	RequirePunchCompletion bool `json:"requirePunchCompletion,omitempty"`

	// RefreshSeconds is the auto-refresh poll interval. Zero means 30.
	RefreshSeconds int `json:"refreshSeconds,omitempty"`

	// TUI holds optional appearance preferences.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// ColorProfile forces a termenv profile ("truecolor", "256", "ansi",
	// "ascii"). Empty autodetects.
	ColorProfile string `json:"colorProfile,omitempty"`
	// DarkBackground overrides background detection when set.
	DarkBackground *bool `json:"darkBackground,omitempty"`
}

// RefreshInterval returns the configured poll interval with the default
// applied.
func (c *GlobalConfig) RefreshInterval() time.Duration {
	if c != nil && c.RefreshSeconds > 0 {
		return time.Duration(c.RefreshSeconds) * time.Second
	}
	return 30 * time.Second
}

// TrustedOrigin returns the origin allowed to talk to the bridge: PunchOrigin
// when set, otherwise the scheme://host of PunchURL.
func (c *GlobalConfig) TrustedOrigin() string {
	if c == nil {
		return ""
	}
	if v := strings.TrimSpace(c.PunchOrigin); v != "" {
		return strings.TrimRight(v, "/")
	}
	u := strings.TrimSpace(c.PunchURL)
	if u == "" {
		return ""
	}
	// scheme://host, dropping path and query.
	if i := strings.Index(u, "://"); i >= 0 {
		rest := u[i+3:]
		if j := strings.IndexAny(rest, "/?#"); j >= 0 {
			rest = rest[:j]
		}
		return u[:i+3] + rest
	}
	return ""
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.followup).
	if v := strings.TrimSpace(os.Getenv("FOLLOWUP_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".followup"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// Unique temp file name to avoid cross-process clobbering when CLI and
	// TUI write config concurrently.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}
