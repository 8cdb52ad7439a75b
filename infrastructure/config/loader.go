package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultManifestPath  = "data/disfluency_manifest.csv"
	DefaultInputAudioDir = "data/raw_audio"
	DefaultOutputDir     = "clips"
	DefaultLogFile       = "logs/clip_extraction.log"
	DefaultDelimiter     = ","
	DefaultFFmpegPath    = "ffmpeg"
	DefaultLogLevel      = "info"
	DefaultCredentials   = "credentials.json"
	DefaultTokenFile     = "token.json"
)

// Config represents the complete application configuration
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Manifest   ManifestConfig   `yaml:"manifest"`
	Transcoder TranscoderConfig `yaml:"transcoder"`
	Log        LogConfig        `yaml:"log"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Google     GoogleConfig     `yaml:"google"`
}

// PathsConfig contains the manifest, audio and log locations
type PathsConfig struct {
	Manifest            string `yaml:"manifest"`
	InputAudioDirectory string `yaml:"input_audio_directory"`
	OutputDirectory     string `yaml:"output_directory"`
	LogFile             string `yaml:"log_file"`
}

// ManifestConfig contains manifest parsing settings
type ManifestConfig struct {
	Delimiter string `yaml:"delimiter"`
}

// TranscoderConfig contains ffmpeg settings. The audio profile itself is fixed.
type TranscoderConfig struct {
	FFmpegPath string `yaml:"ffmpeg_path"`
	Timeout    string `yaml:"timeout"` // Go duration; empty or "0s" means no limit
}

// LogConfig contains run log settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// LedgerConfig contains the optional outcome database settings
type LedgerConfig struct {
	Path string `yaml:"path"` // empty disables the ledger
}

// GoogleConfig contains Google API settings
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	ClipsFolderID   string `yaml:"clips_folder_id"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration from the specified YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not exist.
// Any other read or parse error is returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if _, err := c.TranscoderTimeout(); err != nil {
		return err
	}
	return nil
}

// TranscoderTimeout parses transcoder.timeout; zero means no limit
func (c *Config) TranscoderTimeout() (time.Duration, error) {
	if c.Transcoder.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Transcoder.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid transcoder timeout %q: %w", c.Transcoder.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid transcoder timeout %q: must not be negative", c.Transcoder.Timeout)
	}
	return d, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Paths.Manifest, DefaultManifestPath)
	setDefault(&c.Paths.InputAudioDirectory, DefaultInputAudioDir)
	setDefault(&c.Paths.OutputDirectory, DefaultOutputDir)
	setDefault(&c.Paths.LogFile, DefaultLogFile)
	setDefault(&c.Manifest.Delimiter, DefaultDelimiter)
	setDefault(&c.Transcoder.FFmpegPath, DefaultFFmpegPath)
	setDefault(&c.Log.Level, DefaultLogLevel)
	setDefault(&c.Google.CredentialsFile, DefaultCredentials)
	setDefault(&c.Google.TokenFile, DefaultTokenFile)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
