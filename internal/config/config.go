// Package config loads OpenTraceSch settings from JSON files and the
// environment.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// DirName is the per-user and per-project configuration directory.
const DirName = ".ots"

// Config holds application configuration.
type Config struct {
	// Paper is the default sheet size for generated documents (A4, A3, ...).
	Paper string `json:"paper,omitempty"`

	// Margin, RowHeight, Gap and Grid are layout parameters in millimeters.
	Margin    float64 `json:"margin,omitempty"`
	RowHeight float64 `json:"row_height,omitempty"`
	Gap       float64 `json:"gap,omitempty"`
	Grid      float64 `json:"grid,omitempty"`

	// Generator is written to the header of generated documents.
	Generator string `json:"generator,omitempty"`

	// StoreBackend selects where saved documents live: "sqlite" or "s3".
	StoreBackend string `json:"store_backend,omitempty"`

	// SQLitePath is the database file of the sqlite backend. Empty means
	// ~/.ots/ots.db.
	SQLitePath string `json:"sqlite_path,omitempty"`

	S3 S3Config `json:"s3,omitempty"`

	// CacheSize bounds the number of decoded documents kept in memory.
	CacheSize int `json:"cache_size,omitempty"`

	// DisabledTools lists tool names to leave out of the tool server.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// S3Config configures the S3 document store.
type S3Config struct {
	Endpoint  string `json:"endpoint,omitempty"`
	Region    string `json:"region,omitempty"`
	AccessKey string `json:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	UseSSL    *bool  `json:"use_ssl,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Paper:        "A4",
		Margin:       20,
		RowHeight:    20.32,
		Gap:          10.16,
		Grid:         1.27,
		Generator:    "eeschema",
		StoreBackend: BackendSQLite,
		CacheSize:    64,
		S3: S3Config{
			Region: "us-east-1",
			Bucket: "ots-schematics",
		},
	}
}

// GlobalDir returns ~/.ots, or .ots when the home directory is unknown.
func GlobalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// Load reads defaults, then globalDir/config.json, then the nearest
// .ots/config.json above startDir, then .env and OTS_* variables.
// Either file may be missing.
func Load(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}
	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)

	_ = godotenv.Load()
	ApplyEnv(cfg)
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest
// .ots/config.json. Returns an empty string if there is none.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw returns a zero config when the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
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

// Merge combines base and overlay configs. Overlay values take precedence
// for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Paper:        firstNonEmpty(overlay.Paper, base.Paper),
		Margin:       firstNonZero(overlay.Margin, base.Margin),
		RowHeight:    firstNonZero(overlay.RowHeight, base.RowHeight),
		Gap:          firstNonZero(overlay.Gap, base.Gap),
		Grid:         firstNonZero(overlay.Grid, base.Grid),
		Generator:    firstNonEmpty(overlay.Generator, base.Generator),
		StoreBackend: firstNonEmpty(overlay.StoreBackend, base.StoreBackend),
		SQLitePath:   firstNonEmpty(overlay.SQLitePath, base.SQLitePath),
		S3: S3Config{
			Endpoint:  firstNonEmpty(overlay.S3.Endpoint, base.S3.Endpoint),
			Region:    firstNonEmpty(overlay.S3.Region, base.S3.Region),
			AccessKey: firstNonEmpty(overlay.S3.AccessKey, base.S3.AccessKey),
			SecretKey: firstNonEmpty(overlay.S3.SecretKey, base.S3.SecretKey),
			Bucket:    firstNonEmpty(overlay.S3.Bucket, base.S3.Bucket),
			UseSSL:    base.S3.UseSSL,
		},
		CacheSize: overlay.CacheSize,
	}
	if overlay.S3.UseSSL != nil {
		result.S3.UseSSL = overlay.S3.UseSSL
	}
	if result.CacheSize == 0 {
		result.CacheSize = base.CacheSize
	}
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	return result
}

// ApplyEnv overrides settings from OTS_* environment variables. Malformed
// numbers are ignored.
func ApplyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setFloat := func(dst *float64, key string) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
			*dst = v
		}
	}

	setString(&cfg.Paper, "OTS_PAPER")
	setFloat(&cfg.Margin, "OTS_MARGIN")
	setFloat(&cfg.RowHeight, "OTS_ROW_HEIGHT")
	setFloat(&cfg.Gap, "OTS_GAP")
	setFloat(&cfg.Grid, "OTS_GRID")
	setString(&cfg.Generator, "OTS_GENERATOR")
	setString(&cfg.StoreBackend, "OTS_STORE")
	setString(&cfg.SQLitePath, "OTS_SQLITE_PATH")
	setString(&cfg.S3.Endpoint, "OTS_S3_ENDPOINT")
	setString(&cfg.S3.Region, "OTS_S3_REGION")
	setString(&cfg.S3.AccessKey, "OTS_S3_ACCESS_KEY")
	setString(&cfg.S3.SecretKey, "OTS_S3_SECRET_KEY")
	setString(&cfg.S3.Bucket, "OTS_S3_BUCKET")

	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("OTS_S3_USE_SSL"))); err == nil {
		cfg.S3.UseSSL = &v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv("OTS_CACHE_SIZE"))); err == nil {
		cfg.CacheSize = v
	}
	if v := strings.TrimSpace(os.Getenv("OTS_DISABLED_TOOLS")); v != "" {
		cfg.DisabledTools = mergeStringSlice(cfg.DisabledTools, strings.Split(v, ","))
	}
}

// SSL reports whether the S3 client should use TLS. Defaults to true.
func (s S3Config) SSL() bool {
	if s.UseSSL == nil {
		return true
	}
	return *s.UseSSL
}

// DatabasePath returns the sqlite file, defaulting under GlobalDir.
func (c *Config) DatabasePath() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(GlobalDir(), "ots.db")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
