// Package clientconfig manages device-local configuration for the sync
// client: the server URL and cycle interval in config.json, and
// credentials plus device identity in auth.json, both under
// ~/.config/todosync.
package clientconfig

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds sync-related settings persisted at config.json.
type Config struct {
	ServerURL    string `json:"serverUrl"`
	SyncInterval string `json:"syncInterval,omitempty"` // duration string, default "30s"
	ProjectName  string `json:"projectName,omitempty"`
}

// AuthCredentials stores the issued bearer token and device identity at
// auth.json.
type AuthCredentials struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	DeviceID  string `json:"deviceId"`
	ServerURL string `json:"serverUrl"`
}

const defaultServerURL = "http://localhost:8080"
const defaultSyncInterval = 30 * time.Second
const defaultProjectName = "inbox"

// Dir returns ~/.config/todosync, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "todosync")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig reads config.json, returning a zero-value Config if absent.
func LoadConfig() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes config.json.
func SaveConfig(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

// LoadAuth reads auth.json, returning (nil, nil) if the device has never
// logged in.
func LoadAuth() (*AuthCredentials, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "auth.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read auth: %w", err)
	}
	var creds AuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse auth: %w", err)
	}
	return &creds, nil
}

// SaveAuth writes auth.json with owner-only permissions (it holds a
// bearer token).
func SaveAuth(creds *AuthCredentials) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal auth: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "auth.json"), data, 0o600)
}

// ClearAuth removes auth.json, used by "todosync logout".
func ClearAuth() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, "auth.json"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ServerURL resolves the sync server URL.
// Priority: TODOSYNC_SERVER_URL env > config.json > default.
func ServerURL() string {
	if v := os.Getenv("TODOSYNC_SERVER_URL"); v != "" {
		return v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	return defaultServerURL
}

// SyncInterval resolves the cycle scheduling interval.
// Priority: TODOSYNC_SYNC_INTERVAL env > config.json > default (30s).
func SyncInterval() time.Duration {
	if v := os.Getenv("TODOSYNC_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.SyncInterval != "" {
		if d, err := time.ParseDuration(cfg.SyncInterval); err == nil {
			return d
		}
	}
	return defaultSyncInterval
}

// ProjectName resolves the host-app project to sync.
// Priority: TODOSYNC_PROJECT env > config.json > default ("inbox").
func ProjectName() string {
	if v := os.Getenv("TODOSYNC_PROJECT"); v != "" {
		return v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.ProjectName != "" {
		return cfg.ProjectName
	}
	return defaultProjectName
}

// Token resolves the bearer token.
// Priority: TODOSYNC_AUTH_TOKEN env > auth.json.
func Token() string {
	if v := os.Getenv("TODOSYNC_AUTH_TOKEN"); v != "" {
		return v
	}
	creds, err := LoadAuth()
	if err == nil && creds != nil {
		return creds.Token
	}
	return ""
}

// IsAuthenticated reports whether a bearer token is available.
func IsAuthenticated() bool {
	return Token() != ""
}

// DeviceID resolves this device's identity.
// Priority: TODOSYNC_DEVICE_ID env > auth.json. When neither holds one,
// it returns a freshly generated id without persisting it; the id is
// stored only once it is passed to SaveAuth.
func DeviceID() (string, error) {
	if v := os.Getenv("TODOSYNC_DEVICE_ID"); v != "" {
		return v, nil
	}
	creds, err := LoadAuth()
	if err != nil {
		return "", err
	}
	if creds != nil && creds.DeviceID != "" {
		return creds.DeviceID, nil
	}
	return GenerateDeviceID()
}

// GenerateDeviceID creates a new random device id (16 bytes hex).
func GenerateDeviceID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SnapshotPath returns the path to the client state snapshot (§3).
func SnapshotPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "snapshot.json"), nil
}

// LockPath returns the path to the sync cycle's PID lock file (C4).
func LockPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sync.lock"), nil
}

// ConflictLogPath returns the path to the append-only conflict log (C7).
func ConflictLogPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "conflicts.json"), nil
}

// HostAppPath returns the path to the built-in File host app adapter's
// JSON document, used when no richer host application is configured.
func HostAppPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tasks.json"), nil
}
