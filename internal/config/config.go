// Package config provides configuration management for the Reelforge Agent.
// Configuration is layered: built-in defaults, then an optional YAML file,
// then environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort     = 8788
	DefaultLogLevel = "info"
	DefaultDataDir  = ".reelforge"

	DefaultFPS                 = 30
	DefaultImageDurationFrames = 120
	DefaultDissolveSeconds     = 0.5
	DefaultTailSeconds         = 5
	DefaultAudioFadeSeconds    = 1.5
	DefaultPollIntervalMs      = 120
	DefaultUploadRatePerMinute = 120
	DefaultManifestBackend     = BackendSQLite
	DefaultFFprobePath         = "ffprobe"

	BackendSQLite = "sqlite"
	BackendFile   = "file"

	// Environment variable names
	EnvConfigFile      = "REELFORGE_CONFIG"
	EnvPort            = "REELFORGE_PORT"
	EnvLogLevel        = "REELFORGE_LOG_LEVEL"
	EnvDataDir         = "REELFORGE_DATA_DIR"
	EnvFPS             = "REELFORGE_FPS"
	EnvManifestBackend = "REELFORGE_MANIFEST_BACKEND"
	EnvMinFreeBytes    = "REELFORGE_MIN_FREE_BYTES"
	EnvRenderURL       = "REELFORGE_RENDER_URL"
	EnvRenderToken     = "REELFORGE_RENDER_TOKEN"
	EnvFFprobePath     = "REELFORGE_FFPROBE_PATH"
	EnvHeadless        = "REELFORGE_HEADLESS"

	// Database filename
	DBFilename = "reelforge.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	ProjectsDir() string
	FPS() int
	ImageDurationFrames() int
	DissolveSeconds() float64
	TailSeconds() int
	AudioFadeSeconds() float64
	ManifestBackend() string
	PollInterval() time.Duration
	MinFreeBytes() uint64
	UploadRatePerMinute() int
	RenderURL() string
	RenderToken() string
	FFprobePath() string
	Headless() bool
}

// fileConfig mirrors the YAML file layout. Zero values mean "not set".
type fileConfig struct {
	Port                int      `yaml:"port"`
	LogLevel            string   `yaml:"log_level"`
	DataDir             string   `yaml:"data_dir"`
	FPS                 int      `yaml:"fps"`
	ImageDurationFrames int      `yaml:"image_duration_frames"`
	DissolveSeconds     *float64 `yaml:"dissolve_seconds"`
	TailSeconds         *int     `yaml:"tail_seconds"`
	AudioFadeSeconds    *float64 `yaml:"audio_fade_seconds"`
	ManifestBackend     string   `yaml:"manifest_backend"`
	PollIntervalMs      int      `yaml:"poll_interval_ms"`
	MinFreeBytes        uint64   `yaml:"min_free_bytes"`
	UploadRatePerMinute int      `yaml:"upload_rate_per_minute"`
	Render              struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"render"`
	FFprobePath string `yaml:"ffprobe_path"`
	Headless    bool   `yaml:"headless"`
}

// EnvConfig reads configuration from a YAML file and environment variables
type EnvConfig struct {
	port                int
	logLevel            string
	dataDir             string
	fps                 int
	imageDurationFrames int
	dissolveSeconds     float64
	tailSeconds         int
	audioFadeSeconds    float64
	manifestBackend     string
	pollInterval        time.Duration
	minFreeBytes        uint64
	uploadRatePerMinute int
	renderURL           string
	renderToken         string
	ffprobePath         string
	headless            bool
}

// New creates a new EnvConfig with defaults, the optional config file named by
// REELFORGE_CONFIG and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:                DefaultPort,
		logLevel:            DefaultLogLevel,
		dataDir:             defaultDataDir(),
		fps:                 DefaultFPS,
		imageDurationFrames: DefaultImageDurationFrames,
		dissolveSeconds:     DefaultDissolveSeconds,
		tailSeconds:         DefaultTailSeconds,
		audioFadeSeconds:    DefaultAudioFadeSeconds,
		manifestBackend:     DefaultManifestBackend,
		pollInterval:        DefaultPollIntervalMs * time.Millisecond,
		uploadRatePerMinute: DefaultUploadRatePerMinute,
		ffprobePath:         DefaultFFprobePath,
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.FPS != 0 {
		c.fps = fc.FPS
	}
	if fc.ImageDurationFrames != 0 {
		c.imageDurationFrames = fc.ImageDurationFrames
	}
	if fc.DissolveSeconds != nil {
		c.dissolveSeconds = *fc.DissolveSeconds
	}
	if fc.TailSeconds != nil {
		c.tailSeconds = *fc.TailSeconds
	}
	if fc.AudioFadeSeconds != nil {
		c.audioFadeSeconds = *fc.AudioFadeSeconds
	}
	if fc.ManifestBackend != "" {
		c.manifestBackend = fc.ManifestBackend
	}
	if fc.PollIntervalMs != 0 {
		c.pollInterval = time.Duration(fc.PollIntervalMs) * time.Millisecond
	}
	if fc.MinFreeBytes != 0 {
		c.minFreeBytes = fc.MinFreeBytes
	}
	if fc.UploadRatePerMinute != 0 {
		c.uploadRatePerMinute = fc.UploadRatePerMinute
	}
	if fc.Render.URL != "" {
		c.renderURL = fc.Render.URL
	}
	if fc.Render.Token != "" {
		c.renderToken = fc.Render.Token
	}
	if fc.FFprobePath != "" {
		c.ffprobePath = fc.FFprobePath
	}
	c.headless = c.headless || fc.Headless
	return nil
}

func (c *EnvConfig) applyEnv() error {
	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		c.dataDir = dd
	}

	if f := os.Getenv(EnvFPS); f != "" {
		fps, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvFPS, err)
		}
		c.fps = fps
	}

	if mb := os.Getenv(EnvManifestBackend); mb != "" {
		c.manifestBackend = strings.ToLower(mb)
	}

	if mf := os.Getenv(EnvMinFreeBytes); mf != "" {
		n, err := strconv.ParseUint(mf, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMinFreeBytes, err)
		}
		c.minFreeBytes = n
	}

	if u := os.Getenv(EnvRenderURL); u != "" {
		c.renderURL = u
	}
	if tok := os.Getenv(EnvRenderToken); tok != "" {
		c.renderToken = tok
	}
	if fp := os.Getenv(EnvFFprobePath); fp != "" {
		c.ffprobePath = fp
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.headless = headless
	}
	return nil
}

func (c *EnvConfig) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.port)
	}
	if c.fps < 1 || c.fps > 240 {
		return fmt.Errorf("invalid fps %d: must be between 1 and 240", c.fps)
	}
	if c.imageDurationFrames < 1 {
		return fmt.Errorf("invalid image_duration_frames %d: must be positive", c.imageDurationFrames)
	}
	if c.dissolveSeconds < 0 {
		return fmt.Errorf("invalid dissolve_seconds %v: must not be negative", c.dissolveSeconds)
	}
	if c.tailSeconds < 0 {
		return fmt.Errorf("invalid tail_seconds %d: must not be negative", c.tailSeconds)
	}
	if c.pollInterval <= 0 {
		return fmt.Errorf("invalid poll interval %s", c.pollInterval)
	}
	switch c.manifestBackend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("invalid manifest backend %q: want %q or %q", c.manifestBackend, BackendSQLite, BackendFile)
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir returns the content-addressed blob directory
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, "media")
}

// ProjectsDir returns the root of the per-project directories
func (c *EnvConfig) ProjectsDir() string {
	return filepath.Join(c.dataDir, "projects")
}

func (c *EnvConfig) FPS() int {
	return c.fps
}

func (c *EnvConfig) ImageDurationFrames() int {
	return c.imageDurationFrames
}

func (c *EnvConfig) DissolveSeconds() float64 {
	return c.dissolveSeconds
}

func (c *EnvConfig) TailSeconds() int {
	return c.tailSeconds
}

func (c *EnvConfig) AudioFadeSeconds() float64 {
	return c.audioFadeSeconds
}

func (c *EnvConfig) ManifestBackend() string {
	return c.manifestBackend
}

func (c *EnvConfig) PollInterval() time.Duration {
	return c.pollInterval
}

// MinFreeBytes is the free-space floor below which uploads are refused. Zero disables the check.
func (c *EnvConfig) MinFreeBytes() uint64 {
	return c.minFreeBytes
}

func (c *EnvConfig) UploadRatePerMinute() int {
	return c.uploadRatePerMinute
}

func (c *EnvConfig) RenderURL() string {
	return c.renderURL
}

func (c *EnvConfig) RenderToken() string {
	return c.renderToken
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) Headless() bool {
	return c.headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
