package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// AllowedPaths is an allowlist of directories for snapshot import/export files.
	// Paths outside <base>/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export files.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// MaxImportBytes caps the size of a snapshot accepted for import.
	MaxImportBytes int64 `json:"max_import_bytes,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "data", "stats", "migraine", "medication".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogMode selects the zap preset: "dev" or "prod".
	LogMode string `json:"log_mode,omitempty"`

	// LogLevel is the minimum level: debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// WebBind is the interface the web server listens on.
	WebBind string `json:"web_bind,omitempty"`

	// WebPort is the TCP port the web server listens on.
	WebPort int `json:"web_port,omitempty"`

	// UserHeader names the request header an upstream auth proxy uses to
	// pass the authenticated account email to the web server.
	UserHeader string `json:"user_header,omitempty"`

	// DefaultUserEmail is used by the CLI and MCP server when no user is given.
	DefaultUserEmail string `json:"default_user_email,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxImportBytes: 10 << 20,
		LogMode:        "dev",
		LogLevel:       "info",
		WebBind:        "127.0.0.1",
		WebPort:        8642,
		UserHeader:     "X-User-Email",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.migraine.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// BaseDir returns $MIGRAINE_HOME, or ~/.migraine when unset.
func BaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("MIGRAINE_HOME")); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".migraine"), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.MaxImportBytes = firstNonZero(overlay.MaxImportBytes, base.MaxImportBytes)
	result.DBMaxOpenConns = firstNonZero(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstNonZero(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.WebPort = firstNonZero(overlay.WebPort, base.WebPort)
	result.LogMode = firstNonZero(overlay.LogMode, base.LogMode)
	result.LogLevel = firstNonZero(overlay.LogLevel, base.LogLevel)
	result.WebBind = firstNonZero(overlay.WebBind, base.WebBind)
	result.UserHeader = firstNonZero(overlay.UserHeader, base.UserHeader)
	result.DefaultUserEmail = firstNonZero(overlay.DefaultUserEmail, base.DefaultUserEmail)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstNonZero[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
