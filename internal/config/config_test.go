package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "pipeline.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// validConfigYAML overrides a subset of keys; the rest come from Default.
const validConfigYAML = `
pipeline:
  paths:
    raw: "/tmp/in/jobs.csv"
    processed_dir: "/tmp/out"
    structured_parquet: "/tmp/out/structured.parquet"
    structured_csv: "/tmp/out/structured.csv"
    clean_csv: "/tmp/out/clean.csv"
  columns:
    numerics: ["salary_minimum", "salary_maximum"]
  cleaning:
    fill_numeric_gaps: false
  logging:
    level: "debug"
    format: "json"
report:
  top_n: 5
`

func TestLoadConfig_Valid(t *testing.T) {
	configPath := createTempConfigFile(t, validConfigYAML)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Pipeline.Paths.Raw != "/tmp/in/jobs.csv" {
		t.Errorf("Expected raw path '/tmp/in/jobs.csv', got '%s'", cfg.Pipeline.Paths.Raw)
	}

	if len(cfg.Pipeline.Columns.Numerics) != 2 {
		t.Errorf("Expected 2 numeric columns, got %d", len(cfg.Pipeline.Columns.Numerics))
	}

	if cfg.Pipeline.Cleaning.FillNumericGaps {
		t.Error("Expected fill_numeric_gaps to be false")
	}

	if cfg.Pipeline.Logging.Format != "json" {
		t.Errorf("Expected json log format, got '%s'", cfg.Pipeline.Logging.Format)
	}

	if cfg.Report.TopN != 5 {
		t.Errorf("Expected top_n 5, got %d", cfg.Report.TopN)
	}
}

func TestLoadConfig_KeepsDefaults(t *testing.T) {
	configPath := createTempConfigFile(t, validConfigYAML)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	def := Default()

	if cfg.Pipeline.Columns.ID != def.Pipeline.Columns.ID {
		t.Errorf("Expected default id column %s, got %s", def.Pipeline.Columns.ID, cfg.Pipeline.Columns.ID)
	}

	if len(cfg.Pipeline.Columns.Dates) != 3 {
		t.Errorf("Expected 3 default date columns, got %d", len(cfg.Pipeline.Columns.Dates))
	}

	if cfg.Report.UpperQuantile != 0.99 {
		t.Errorf("Expected default upper quantile 0.99, got %v", cfg.Report.UpperQuantile)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/pipeline.yaml")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "pipeline: [unclosed")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestLoadConfig_DoesNotCreateDirectories(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed")

	content := strings.ReplaceAll(validConfigYAML, "/tmp/out", processed)
	if _, err := LoadConfig(createTempConfigFile(t, content)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if _, err := os.Stat(processed); !os.IsNotExist(err) {
		t.Errorf("Expected %s not to exist after loading config", processed)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"default is valid", func(c *Config) {}, nil},
		{"missing raw", func(c *Config) { c.Pipeline.Paths.Raw = "" }, ErrMissingRawPath},
		{"missing processed dir", func(c *Config) { c.Pipeline.Paths.ProcessedDir = "" }, ErrMissingProcessedDir},
		{"missing structured csv", func(c *Config) { c.Pipeline.Paths.StructuredCSV = "" }, ErrMissingStructuredPath},
		{"missing clean", func(c *Config) { c.Pipeline.Paths.CleanCSV = "" }, ErrMissingCleanPath},
		{"missing id", func(c *Config) { c.Pipeline.Columns.ID = "" }, ErrMissingIDColumn},
		{"missing title", func(c *Config) { c.Pipeline.Columns.Title = "" }, ErrMissingTitleColumn},
		{
			"column in two classes",
			func(c *Config) { c.Pipeline.Columns.Dates = append(c.Pipeline.Columns.Dates, "salary_minimum") },
			ErrDuplicateTypedColumn,
		},
		{"bad level", func(c *Config) { c.Pipeline.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"bad format", func(c *Config) { c.Pipeline.Logging.Format = "xml" }, ErrInvalidLogFormat},
		{"inverted quantiles", func(c *Config) { c.Report.LowerQuantile = 0.9; c.Report.UpperQuantile = 0.1 }, ErrInvalidQuantiles},
		{"negative experience", func(c *Config) { c.Report.MaxExperienceYears = -1 }, ErrInvalidMaxExperience},
		{"zero top n", func(c *Config) { c.Report.TopN = 0 }, ErrInvalidTopN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}

				return
			}

			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfig_SaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")

	cfg := Default()
	cfg.Pipeline.Paths.Raw = "input/raw.csv"

	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.Pipeline.Paths.Raw != "input/raw.csv" {
		t.Errorf("Expected raw path 'input/raw.csv', got '%s'", loaded.Pipeline.Paths.Raw)
	}

	if len(loaded.Pipeline.Columns.Numerics) != len(cfg.Pipeline.Columns.Numerics) {
		t.Errorf("Numeric columns not preserved: %v", loaded.Pipeline.Columns.Numerics)
	}
}

func TestConfig_String(t *testing.T) {
	s := Default().String()
	if !strings.Contains(s, "SGJobData.csv") {
		t.Errorf("String() = %s, expected raw path", s)
	}
}

func TestLoadConfig_CheckedInFileMatchesDefault(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "pipeline.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("configs/pipeline.yaml drifted from Default():\n got %s\nwant %s", cfg, Default())
	}
}
