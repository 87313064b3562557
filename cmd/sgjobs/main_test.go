package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgjobs/internal/config"
	"sgjobs/internal/runlog"
	"sgjobs/internal/storage"
)

func TestMain(m *testing.M) {
	pterm.DisableOutput()
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) error {
	t.Helper()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	return cmd.ExecuteContext(context.Background())
}

// writeConfig points every path into a temp dir and copies the raw fixture there.
func writeConfig(t *testing.T) (string, *config.Config) {
	t.Helper()

	root := t.TempDir()

	cfg := config.Default()
	paths := &cfg.Pipeline.Paths
	paths.Raw = filepath.Join(root, "raw.csv")
	paths.ProcessedDir = filepath.Join(root, "processed")
	paths.StructuredParquet = filepath.Join(root, "processed", "structured.parquet")
	paths.StructuredCSV = filepath.Join(root, "processed", "structured.csv")
	paths.CleanCSV = filepath.Join(root, "processed", "clean.csv")
	paths.Report = filepath.Join(root, "summary.md")
	paths.RunLedger = filepath.Join(root, "ledger", "runs.db")
	cfg.Pipeline.Logging.Level = "error"

	raw, err := os.ReadFile(filepath.Join("..", "..", "test", "fixtures", "jobs_raw.csv"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(paths.Raw, raw, 0644))

	path := filepath.Join(root, "pipeline.yaml")
	require.NoError(t, cfg.SaveConfig(path))

	return path, cfg
}

func TestCommands_RunReportVerifyHistory(t *testing.T) {
	path, cfg := writeConfig(t)

	require.NoError(t, execute(t, "--config", path, "--progress=false", "run"))
	assert.FileExists(t, cfg.Pipeline.Paths.CleanCSV)

	require.NoError(t, execute(t, "--config", path, "report"))
	require.NoError(t, execute(t, "--config", path, "verify"))
	require.NoError(t, execute(t, "--config", path, "history", "--limit", "5"))

	store, err := runlog.Open(cfg.Pipeline.Paths.RunLedger)
	require.NoError(t, err)

	defer func() { _ = store.Close() }()

	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, runlog.StageReport, runs[0].Stage)
}

func TestCommands_IngestWithProgressBar(t *testing.T) {
	path, cfg := writeConfig(t)

	require.NoError(t, execute(t, "--config", path, "ingest"))

	snapshot, err := storage.ReadCSV(afero.NewOsFs(), cfg.Pipeline.Paths.StructuredCSV)
	require.NoError(t, err)
	assert.Equal(t, 6, snapshot.NumRows())
}

func TestCommands_RunWithoutLedger(t *testing.T) {
	_, cfg := writeConfig(t)

	// The ledger's parent is a regular file, so the ledger cannot be opened.
	cfg.Pipeline.Paths.RunLedger = filepath.Join(cfg.Pipeline.Paths.Raw, "runs.db")
	path := filepath.Join(filepath.Dir(cfg.Pipeline.Paths.Raw), "no-ledger.yaml")
	require.NoError(t, cfg.SaveConfig(path))

	require.NoError(t, execute(t, "--config", path, "--progress=false", "run"))
	assert.FileExists(t, cfg.Pipeline.Paths.CleanCSV)

	assert.Error(t, execute(t, "--config", path, "history"))
}

func TestCommands_CleanWithoutIngest(t *testing.T) {
	path, _ := writeConfig(t)

	err := execute(t, "--config", path, "clean")
	require.ErrorIs(t, err, storage.ErrMissingSourceFile)
}

func TestCommands_VerifyDetectsTampering(t *testing.T) {
	path, cfg := writeConfig(t)

	require.NoError(t, execute(t, "--config", path, "run"))
	require.NoError(t, execute(t, "--config", path, "report"))

	f, err := os.OpenFile(cfg.Pipeline.Paths.Report, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("\nedited by hand\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Error(t, execute(t, "--config", path, "verify"))
}

func TestCommands_ExplicitConfigMustExist(t *testing.T) {
	err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "history")
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	path, _ := writeConfig(t)
	target := filepath.Join(t.TempDir(), "configs", "pipeline.yaml")

	require.NoError(t, execute(t, "--config", path, "config", "init", target))

	cfg, err := config.LoadConfig(target)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	assert.Error(t, execute(t, "--config", path, "config", "init", target))
	assert.NoError(t, execute(t, "--config", path, "config", "init", "--force", target))
}
