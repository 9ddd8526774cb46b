package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyforge/internal/config"
	"storyforge/internal/logging"
)

func TestConsoleOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Paths: []string{path}})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	component := logging.NewComponentLogger(logger, "generation")
	component.Info("image batch complete",
		logging.Int("succeeded", 2),
		logging.String("title", "two words"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO generation: image batch complete") {
		t.Fatalf("component prefix missing: %q", line)
	}
	if !strings.Contains(line, "succeeded=2") {
		t.Fatalf("int attribute missing: %q", line)
	}
	if !strings.Contains(line, `title="two words"`) {
		t.Fatalf("expected quoted string value: %q", line)
	}
}

func TestConsoleLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Paths: []string{path}})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "suppressed") {
		t.Fatalf("info line not filtered at warn level: %q", data)
	}
	if !strings.Contains(string(data), "WARN kept") {
		t.Fatalf("warn line missing: %q", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("new from config: %v", err)
	}
	logger.Info("daemon ready")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "storyforge.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "daemon ready") {
		t.Fatalf("log file missing entry: %q", data)
	}
}
