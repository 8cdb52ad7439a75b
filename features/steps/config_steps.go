//go:build integration

package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"speech-clipper/infrastructure/config"

	"github.com/cucumber/godog"
)

type configContext struct {
	configPath string
	tempDir    string
	envKeys    []string
	cfg        *config.Config
	loadErr    error
}

// SharedConfigContext is reset before each scenario via After hook
var SharedConfigContext = &configContext{}

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedConfigContext

	// Reset context after each scenario
	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		for _, key := range testCtx.envKeys {
			os.Unsetenv(key)
		}
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		*testCtx = configContext{}
		return c, nil
	})

	ctx.Step(`^a configuration file exists at "([^"]*)"$`, testCtx.aConfigurationFileExistsAt)
	ctx.Step(`^no configuration file exists at "([^"]*)"$`, testCtx.noConfigurationFileExistsAt)
	ctx.Step(`^a configuration file with content:$`, testCtx.aConfigurationFileWithContent)
	ctx.Step(`^the environment variable "([^"]*)" is "([^"]*)"$`, testCtx.theEnvironmentVariableIs)
	ctx.Step(`^I load the configuration$`, testCtx.iLoadTheConfiguration)
	ctx.Step(`^I attempt to load the configuration$`, testCtx.iAttemptToLoadTheConfiguration)
	ctx.Step(`^"([^"]*)" should be "([^"]*)"$`, testCtx.keyShouldBe)
	ctx.Step(`^I should receive an error containing "([^"]*)"$`, testCtx.iShouldReceiveAnErrorContaining)
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}

func (c *configContext) aConfigurationFileExistsAt(path string) error {
	root, err := findProjectRoot()
	if err != nil {
		return err
	}
	c.configPath = filepath.Join(root, path)

	// Verify file actually exists
	if _, err := os.Stat(c.configPath); err != nil {
		return fmt.Errorf("expected config file at %s but it does not exist: %w", c.configPath, err)
	}
	return nil
}

func (c *configContext) noConfigurationFileExistsAt(path string) error {
	root, err := findProjectRoot()
	if err != nil {
		return err
	}
	c.configPath = filepath.Join(root, path)
	return nil
}

func (c *configContext) aConfigurationFileWithContent(content *godog.DocString) error {
	dir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		return err
	}
	c.tempDir = dir
	c.configPath = filepath.Join(dir, "config.yaml")
	return os.WriteFile(c.configPath, []byte(content.Content), 0644)
}

func (c *configContext) theEnvironmentVariableIs(key, value string) error {
	c.envKeys = append(c.envKeys, key)
	return os.Setenv(key, value)
}

func (c *configContext) load() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func (c *configContext) iLoadTheConfiguration() error {
	cfg, err := c.load()
	if err != nil {
		return fmt.Errorf("unexpected error loading config: %w", err)
	}
	c.cfg = cfg
	return nil
}

func (c *configContext) iAttemptToLoadTheConfiguration() error {
	c.cfg, c.loadErr = c.load()
	return nil
}

func (c *configContext) keyShouldBe(key, expected string) error {
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}

	values := map[string]string{
		"paths.manifest":              c.cfg.Paths.Manifest,
		"paths.input_audio_directory": c.cfg.Paths.InputAudioDirectory,
		"paths.output_directory":      c.cfg.Paths.OutputDirectory,
		"paths.log_file":              c.cfg.Paths.LogFile,
		"transcoder.ffmpeg_path":      c.cfg.Transcoder.FFmpegPath,
		"ledger.path":                 c.cfg.Ledger.Path,
	}
	got, ok := values[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	if got != expected {
		return fmt.Errorf("expected %s %q, got %q", key, expected, got)
	}
	return nil
}

func (c *configContext) iShouldReceiveAnErrorContaining(text string) error {
	if c.loadErr == nil {
		return fmt.Errorf("expected an error but got none")
	}
	if !strings.Contains(c.loadErr.Error(), text) {
		return fmt.Errorf("expected error containing %q, got: %v", text, c.loadErr)
	}
	return nil
}
