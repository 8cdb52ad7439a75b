package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvManifest      = "CLIPPER_MANIFEST"
	EnvInputAudioDir = "CLIPPER_INPUT_AUDIO_DIR"
	EnvOutputDir     = "CLIPPER_OUTPUT_DIR"
	EnvLogFile       = "CLIPPER_LOG_FILE"
	EnvFFmpegPath    = "CLIPPER_FFMPEG_PATH"
	EnvLedgerPath    = "CLIPPER_LEDGER_PATH"
	EnvLogLevel      = "CLIPPER_LOG_LEVEL"
)

// LoadDotEnv loads variables from the given .env files (default ".env") into
// the process environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides config values from environment variables
func (c *Config) ApplyEnv() {
	c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key   string
		field *string
	}{
		{EnvManifest, &c.Paths.Manifest},
		{EnvInputAudioDir, &c.Paths.InputAudioDirectory},
		{EnvOutputDir, &c.Paths.OutputDirectory},
		{EnvLogFile, &c.Paths.LogFile},
		{EnvFFmpegPath, &c.Transcoder.FFmpegPath},
		{EnvLedgerPath, &c.Ledger.Path},
		{EnvLogLevel, &c.Log.Level},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.field = v
		}
	}
}
