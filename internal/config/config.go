// Package config provides configuration management for the job postings pipeline.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingRawPath        = errors.New("pipeline.paths.raw is required")
	ErrMissingProcessedDir   = errors.New("pipeline.paths.processed_dir is required")
	ErrMissingStructuredPath = errors.New("pipeline.paths.structured_parquet and structured_csv are required")
	ErrMissingCleanPath      = errors.New("pipeline.paths.clean_csv is required")
	ErrMissingIDColumn       = errors.New("pipeline.columns.id is required")
	ErrMissingTitleColumn    = errors.New("pipeline.columns.title is required")
	ErrDuplicateTypedColumn  = errors.New("column listed under more than one type class")
	ErrInvalidLogLevel       = errors.New("pipeline.logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat      = errors.New("pipeline.logging.format must be 'text' or 'json'")
	ErrInvalidQuantiles      = errors.New("report quantiles must satisfy 0 <= lower < upper <= 1")
	ErrInvalidMaxExperience  = errors.New("report.max_experience_years must be non-negative")
	ErrInvalidTopN           = errors.New("report.top_n must be at least 1")
)

// Config represents the complete pipeline configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Report   ReportConfig   `yaml:"report"`
}

// PipelineConfig contains ingestion and cleaning settings.
type PipelineConfig struct {
	Paths    PathsConfig    `yaml:"paths"`
	Columns  ColumnsConfig  `yaml:"columns"`
	Cleaning CleaningConfig `yaml:"cleaning"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PathsConfig locates every artifact the pipeline reads or writes.
type PathsConfig struct {
	Raw               string `yaml:"raw"`
	ProcessedDir      string `yaml:"processed_dir"`
	StructuredParquet string `yaml:"structured_parquet"`
	StructuredCSV     string `yaml:"structured_csv"`
	CleanCSV          string `yaml:"clean_csv"`
	Report            string `yaml:"report"`
	RunLedger         string `yaml:"run_ledger"`
}

// ColumnsConfig names the columns that drive pipeline logic.
type ColumnsConfig struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	Categories     string   `yaml:"categories"`
	EmploymentType string   `yaml:"employment_type"`
	Booleans       []string `yaml:"booleans"`
	Dates          []string `yaml:"dates"`
	Numerics       []string `yaml:"numerics"`
}

// CleaningConfig tunes Phase 2.
type CleaningConfig struct {
	// FillNumericGaps replaces nulls in numeric columns with 0. Lossy.
	FillNumericGaps bool `yaml:"fill_numeric_gaps"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ReportConfig controls the clean-table loader used by the summary report.
type ReportConfig struct {
	RemoveOutliers     bool    `yaml:"remove_outliers"`
	LowerQuantile      float64 `yaml:"lower_quantile"`
	UpperQuantile      float64 `yaml:"upper_quantile"`
	MaxExperienceYears float64 `yaml:"max_experience_years"`
	TopN               int     `yaml:"top_n"`
}

// Default returns the configuration matching the standard data layout.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Paths: PathsConfig{
				Raw:               "data/raw/SGJobData.csv",
				ProcessedDir:      "data/processed",
				StructuredParquet: "data/processed/SGJobData_structured.parquet",
				StructuredCSV:     "data/processed/SGJobData_structured.csv",
				CleanCSV:          "data/processed/SGJobData_clean.csv",
				Report:            "reports/summary.md",
				RunLedger:         "data/processed/runs.db",
			},
			Columns: ColumnsConfig{
				ID:             "metadata_jobPostId",
				Title:          "title",
				Categories:     "categories",
				EmploymentType: "employmentTypes",
				Booleans:       []string{"metadata_isPostedOnBehalf"},
				Dates: []string{
					"metadata_originalPostingDate",
					"metadata_newPostingDate",
					"metadata_expiryDate",
				},
				Numerics: []string{
					"salary_minimum",
					"salary_maximum",
					"minimumYearsExperience",
					"numberOfVacancies",
					"metadata_totalNumberJobApplication",
					"metadata_totalNumberOfView",
					"metadata_repostCount",
				},
			},
			Cleaning: CleaningConfig{FillNumericGaps: true},
			Logging:  LoggingConfig{Level: "info", Format: "text"},
		},
		Report: ReportConfig{
			RemoveOutliers:     true,
			LowerQuantile:      0.01,
			UpperQuantile:      0.99,
			MaxExperienceYears: 30,
			TopN:               10,
		},
	}
}

// LoadConfig loads configuration from a YAML file. Keys absent from the file keep their defaults.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	paths := c.Pipeline.Paths

	if paths.Raw == "" {
		return ErrMissingRawPath
	}

	if paths.ProcessedDir == "" {
		return ErrMissingProcessedDir
	}

	if paths.StructuredParquet == "" || paths.StructuredCSV == "" {
		return ErrMissingStructuredPath
	}

	if paths.CleanCSV == "" {
		return ErrMissingCleanPath
	}

	cols := c.Pipeline.Columns

	if cols.ID == "" {
		return ErrMissingIDColumn
	}

	if cols.Title == "" {
		return ErrMissingTitleColumn
	}

	// A column can only be coerced to one type
	seen := make(map[string]string)

	for class, names := range map[string][]string{
		"booleans": cols.Booleans,
		"dates":    cols.Dates,
		"numerics": cols.Numerics,
	} {
		for _, name := range names {
			if prev, ok := seen[name]; ok && prev != class {
				return fmt.Errorf("%w: %s (%s, %s)", ErrDuplicateTypedColumn, name, prev, class)
			}

			seen[name] = class
		}
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Pipeline.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Pipeline.Logging.Format != "text" && c.Pipeline.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	// Validate report config
	r := c.Report
	if r.LowerQuantile < 0 || r.UpperQuantile > 1 || r.LowerQuantile >= r.UpperQuantile {
		return ErrInvalidQuantiles
	}

	if r.MaxExperienceYears < 0 {
		return ErrInvalidMaxExperience
	}

	if r.TopN < 1 {
		return ErrInvalidTopN
	}

	return nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Raw: %s, Processed: %s, Clean: %s, FillGaps: %t}",
		c.Pipeline.Paths.Raw,
		c.Pipeline.Paths.ProcessedDir,
		c.Pipeline.Paths.CleanCSV,
		c.Pipeline.Cleaning.FillNumericGaps,
	)
}
