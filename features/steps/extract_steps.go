//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"speech-clipper/cmd"
	"speech-clipper/domain/clip"
	"speech-clipper/infrastructure/ffmpeg"
	"speech-clipper/infrastructure/filesystem"

	"github.com/cucumber/godog"
)

// recordingRunner stands in for ffmpeg: it records every invocation and
// writes the output file, or exits non-zero for configured segments
type recordingRunner struct {
	calls    [][]string
	failures map[string]bool // output paths that should fail
}

func (r *recordingRunner) Run(ctx context.Context, out io.Writer, name string, args ...string) error {
	r.calls = append(r.calls, args)
	outputPath := args[len(args)-1]

	if r.failures[outputPath] {
		c := exec.CommandContext(ctx, "sh", "-c", "echo 'Invalid data found when processing input' >&2; exit 1")
		c.Stdout = out
		c.Stderr = out
		return c.Run()
	}
	return os.WriteFile(outputPath, []byte("RIFF"), 0644)
}

func (r *recordingRunner) LookPath(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

// extractContext holds test state for extract scenarios
type extractContext struct {
	workDir      string
	inputDir     string
	outputDir    string
	logPath      string
	manifestPath string
	runner       *recordingRunner
	noFFmpeg     bool
	output       *bytes.Buffer
	summary      *clip.Summary
	err          error
}

// SharedExtractContext is reset before each scenario via Before hook
var SharedExtractContext *extractContext

func getExtractContext() *extractContext {
	return SharedExtractContext
}

func InitializeExtractScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		workDir, err := os.MkdirTemp("", "extract-test-*")
		if err != nil {
			return c, err
		}
		SharedExtractContext = &extractContext{
			workDir: workDir,
			logPath: filepath.Join(workDir, "logs", "clip_extraction.log"),
			runner:  &recordingRunner{failures: make(map[string]bool)},
			output:  &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if t := getExtractContext(); t != nil && t.workDir != "" {
			os.RemoveAll(t.workDir)
		}
		SharedExtractContext = nil
		return c, nil
	})

	ctx.Step(`^a workspace with input directory "([^"]*)" and output directory "([^"]*)"$`, aWorkspaceWithDirectories)
	ctx.Step(`^source audio "([^"]*)" exists$`, sourceAudioExists)
	ctx.Step(`^the manifest contains:$`, theManifestContains)
	ctx.Step(`^ffmpeg is not installed$`, ffmpegIsNotInstalled)
	ctx.Step(`^ffmpeg fails for segment "([^"]*)"$`, ffmpegFailsForSegment)
	ctx.Step(`^I run the extraction$`, iRunTheExtraction)
	ctx.Step(`^the extraction should succeed$`, theExtractionShouldSucceed)
	ctx.Step(`^the extraction should fail with "([^"]*)"$`, theExtractionShouldFailWith)
	ctx.Step(`^ffmpeg should have been called (\d+) times?$`, ffmpegShouldHaveBeenCalledTimes)
	ctx.Step(`^ffmpeg should not have been called$`, ffmpegShouldNotHaveBeenCalled)
	ctx.Step(`^ffmpeg should have been called with arguments:$`, ffmpegShouldHaveBeenCalledWithArguments)
	ctx.Step(`^the clip "([^"]*)" should exist$`, theClipShouldExist)
	ctx.Step(`^the clip "([^"]*)" should not exist$`, theClipShouldNotExist)
	ctx.Step(`^the console should contain "([^"]*)"$`, theConsoleShouldContain)
	ctx.Step(`^the log should contain "([^"]*)"$`, theLogShouldContain)
	ctx.Step(`^the log should contain "([^"]*)" (\d+) times$`, theLogShouldContainTimes)
	ctx.Step(`^the summary should report (\d+) completed, (\d+) skipped and (\d+) failed$`, theSummaryShouldReport)
	ctx.Step(`^no rows should have been processed$`, noRowsShouldHaveBeenProcessed)
	ctx.Step(`^the output directory should exist$`, theOutputDirectoryShouldExist)
}

func aWorkspaceWithDirectories(inputDir, outputDir string) error {
	t := getExtractContext()
	t.inputDir = filepath.Join(t.workDir, inputDir)
	t.outputDir = filepath.Join(t.workDir, outputDir)
	t.manifestPath = filepath.Join(t.workDir, "manifest.csv")
	return os.MkdirAll(t.inputDir, 0755)
}

func sourceAudioExists(recordingID string) error {
	t := getExtractContext()
	return os.WriteFile(filepath.Join(t.inputDir, recordingID+clip.AudioExtension), []byte("RIFF"), 0644)
}

func theManifestContains(table *godog.Table) error {
	t := getExtractContext()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range table.Rows {
		record := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			record[i] = cell.Value
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return os.WriteFile(t.manifestPath, buf.Bytes(), 0644)
}

func ffmpegIsNotInstalled() error {
	getExtractContext().noFFmpeg = true
	return nil
}

func ffmpegFailsForSegment(segmentID string) error {
	t := getExtractContext()
	t.runner.failures[filepath.Join(t.outputDir, segmentID+clip.AudioExtension)] = true
	return nil
}

func iRunTheExtraction() error {
	t := getExtractContext()

	transcoder := ffmpeg.NewTranscoder(ffmpeg.WithCommandRunner(t.runner))
	if t.noFFmpeg {
		transcoder = ffmpeg.NewTranscoder(ffmpeg.WithFFmpegPath(filepath.Join(t.workDir, "bin", "ffmpeg")))
	}

	t.summary, t.err = cmd.RunExtractWithDependencies(
		context.Background(),
		transcoder,
		filesystem.NewChecker(),
		cmd.ExtractOptions{
			ManifestPath:  t.manifestPath,
			Delimiter:     ',',
			InputAudioDir: t.inputDir,
			OutputDir:     t.outputDir,
			LogPath:       t.logPath,
			LogLevel:      "info",
		},
		t.output,
	)
	return nil
}

func theExtractionShouldSucceed() error {
	t := getExtractContext()
	if t.err != nil {
		return fmt.Errorf("unexpected error: %v", t.err)
	}
	return nil
}

func theExtractionShouldFailWith(text string) error {
	t := getExtractContext()
	if t.err == nil {
		return fmt.Errorf("expected an error but got none")
	}
	if !strings.Contains(t.err.Error(), text) {
		return fmt.Errorf("expected error containing %q, got: %v", text, t.err)
	}
	return nil
}

func ffmpegShouldHaveBeenCalledTimes(n int) error {
	t := getExtractContext()
	if len(t.runner.calls) != n {
		return fmt.Errorf("expected %d ffmpeg calls, got %d", n, len(t.runner.calls))
	}
	return nil
}

func ffmpegShouldNotHaveBeenCalled() error {
	return ffmpegShouldHaveBeenCalledTimes(0)
}

func ffmpegShouldHaveBeenCalledWithArguments(table *godog.Table) error {
	t := getExtractContext()
	if len(t.runner.calls) == 0 {
		return fmt.Errorf("ffmpeg was not called")
	}

	call := t.runner.calls[0]

	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		expectedArg := row.Cells[0].Value
		found := false
		for _, arg := range call {
			if arg == expectedArg || arg == filepath.Join(t.workDir, expectedArg) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("expected argument %q not found in ffmpeg call: %v", expectedArg, call)
		}
	}
	return nil
}

func theClipShouldExist(segmentID string) error {
	t := getExtractContext()
	path := filepath.Join(t.outputDir, segmentID+clip.AudioExtension)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("expected clip %s: %v", path, err)
	}
	return nil
}

func theClipShouldNotExist(segmentID string) error {
	t := getExtractContext()
	path := filepath.Join(t.outputDir, segmentID+clip.AudioExtension)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("clip %s should not exist", path)
	}
	return nil
}

func theConsoleShouldContain(text string) error {
	t := getExtractContext()
	if !strings.Contains(t.output.String(), text) {
		return fmt.Errorf("console output does not contain %q:\n%s", text, t.output.String())
	}
	return nil
}

func readLog() (string, error) {
	t := getExtractContext()
	data, err := os.ReadFile(t.logPath)
	if err != nil {
		return "", fmt.Errorf("failed to read log: %w", err)
	}
	return string(data), nil
}

func theLogShouldContain(text string) error {
	log, err := readLog()
	if err != nil {
		return err
	}
	if !strings.Contains(log, text) {
		return fmt.Errorf("log does not contain %q:\n%s", text, log)
	}
	return nil
}

func theLogShouldContainTimes(text string, n int) error {
	log, err := readLog()
	if err != nil {
		return err
	}
	lines := 0
	for _, line := range strings.Split(log, "\n") {
		if strings.Contains(line, text) {
			lines++
		}
	}
	if lines != n {
		return fmt.Errorf("expected %d log lines containing %q, got %d:\n%s", n, text, lines, log)
	}
	return nil
}

func theSummaryShouldReport(completed, skipped, failed int) error {
	t := getExtractContext()
	if t.summary == nil {
		return fmt.Errorf("no summary was returned")
	}
	s := t.summary
	if s.Completed != completed || s.Skipped != skipped || s.Failed != failed {
		return fmt.Errorf("expected %d/%d/%d completed/skipped/failed, got %d/%d/%d",
			completed, skipped, failed, s.Completed, s.Skipped, s.Failed)
	}
	return nil
}

func noRowsShouldHaveBeenProcessed() error {
	t := getExtractContext()
	if t.summary != nil && t.summary.Total() > 0 {
		return fmt.Errorf("expected no rows processed, got %d", t.summary.Total())
	}
	if strings.Contains(t.output.String(), "Clipping") {
		return fmt.Errorf("no clip should have been announced:\n%s", t.output.String())
	}
	return nil
}

func theOutputDirectoryShouldExist() error {
	t := getExtractContext()
	info, err := os.Stat(t.outputDir)
	if err != nil {
		return fmt.Errorf("output directory missing: %v", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", t.outputDir)
	}
	return nil
}
