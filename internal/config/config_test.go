package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Generation.MaxVariantsPerSlot != 10 {
		t.Fatalf("unexpected retention cap %d", cfg.Generation.MaxVariantsPerSlot)
	}
	if cfg.Generation.DefaultBatchSize != 1 {
		t.Fatalf("unexpected default batch size %d", cfg.Generation.DefaultBatchSize)
	}
	if !cfg.History.Enabled {
		t.Fatal("history journal should default to enabled")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatal("file does not exist")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Video.PollIntervalSeconds != Default().Video.PollIntervalSeconds {
		t.Fatal("missing file must yield defaults")
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
output_dir = "` + dir + `/out"

[generation]
max_variants_per_slot = 4

[wanx]
api_key = "  sk-test  "
base_url = "https://example.test/api/"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("expected file to be found")
	}
	if cfg.Generation.MaxVariantsPerSlot != 4 {
		t.Fatalf("override not applied: %d", cfg.Generation.MaxVariantsPerSlot)
	}
	// Unset sections keep defaults.
	if cfg.Video.PollIntervalSeconds != Default().Video.PollIntervalSeconds {
		t.Fatal("unset section lost its default")
	}
	if cfg.Wanx.APIKey != "sk-test" {
		t.Fatalf("api key not trimmed: %q", cfg.Wanx.APIKey)
	}
	if strings.HasSuffix(cfg.Wanx.BaseURL, "/") {
		t.Fatalf("base url not trimmed: %q", cfg.Wanx.BaseURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[generation]
max_variants_per_slot = 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected validation failure for zero retention cap")
	}
}

func TestValidateLoggingFormat(t *testing.T) {
	cfg := Default()
	for _, format := range []string{"", "console", "json", "JSON"} {
		cfg.Logging.Format = format
		if err := cfg.Validate(); err != nil {
			t.Errorf("format %q rejected: %v", format, err)
		}
	}
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unsupported format rejected")
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataDir = "/srv/storyforge"

	if got := cfg.ProjectsFile(); got != "/srv/storyforge/projects.json" {
		t.Fatalf("ProjectsFile = %q", got)
	}
	if got := cfg.VideoInputsDir(); got != "/srv/storyforge/video_inputs" {
		t.Fatalf("VideoInputsDir = %q", got)
	}
	if got := cfg.HistoryPath(); got != "/srv/storyforge/history.db" {
		t.Fatalf("HistoryPath = %q", got)
	}
	cfg.History.Path = "/var/db/journal.db"
	if got := cfg.HistoryPath(); got != "/var/db/journal.db" {
		t.Fatalf("explicit HistoryPath = %q", got)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := expandPath("~/x/y")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != filepath.Join(home, "x", "y") {
		t.Fatalf("expandPath(~/x/y) = %q", got)
	}
}

func TestCreateSampleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config must load cleanly: exists=%v err=%v", exists, err)
	}
}
