package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"sgjobs/internal/config"
	"sgjobs/internal/logger"
	"sgjobs/internal/pipeline"
	"sgjobs/internal/runlog"
	"sgjobs/internal/storage"
)

const defaultConfigPath = "configs/pipeline.yaml"

// app holds state shared by every subcommand once the config is loaded.
type app struct {
	configPath string
	logLevel   string
	progress   bool

	cfg *config.Config
	log *logger.Logger
	fs  afero.Fs
}

func newRootCmd() *cobra.Command {
	a := &app{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:           "sgjobs",
		Short:         "Ingest, clean and summarise Singapore job postings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to the pipeline config (default "+defaultConfigPath+" when present)")
	flags.StringVar(&a.logLevel, "log-level", "", "override pipeline.logging.level (debug, info, warn, error)")
	flags.BoolVar(&a.progress, "progress", true, "show a progress bar while reading the raw file")

	cmd.AddCommand(
		a.ingestCmd(),
		a.cleanCmd(),
		a.runCmd(),
		a.reportCmd(),
		a.historyCmd(),
		a.verifyCmd(),
		a.configCmd(),
	)

	return cmd
}

// load resolves the config file and builds the logger. An explicit --config
// must exist; the default path is optional.
func (a *app) load(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}

	if path == "" {
		a.cfg = config.Default()
	} else {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}

		a.cfg = cfg
	}

	if a.logLevel != "" {
		a.cfg.Pipeline.Logging.Level = a.logLevel
		if err := a.cfg.Validate(); err != nil {
			return err
		}
	}

	a.log = logger.New(logger.Options{
		Level:  a.cfg.Pipeline.Logging.Level,
		Format: a.cfg.Pipeline.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})

	return nil
}

// openLedger opens the run ledger, creating its directory first.
func (a *app) openLedger() (*runlog.Store, error) {
	path := a.cfg.Pipeline.Paths.RunLedger
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	return runlog.Open(path)
}

// pipeline builds a pipeline that records into the ledger. A ledger that
// cannot be opened is logged and the stages run unrecorded. The returned
// function closes the ledger and finishes any progress bar.
func (a *app) pipeline() (*pipeline.Pipeline, func()) {
	var opts []pipeline.Option

	store, err := a.openLedger()
	if err != nil {
		a.log.Warn("run ledger unavailable, runs will not be recorded", "path", a.cfg.Pipeline.Paths.RunLedger, "error", err)
	} else {
		opts = append(opts, pipeline.WithRecorder(store))
	}

	bar := &progressBar{}
	if a.progress {
		opts = append(opts, pipeline.WithReadOptions(storage.WithReaderHook(bar.wrap)))
	}

	done := func() {
		bar.finish()

		if store == nil {
			return
		}

		if err := store.Close(); err != nil {
			a.log.Warn("failed to close run ledger", "error", err)
		}
	}

	return pipeline.New(a.cfg, a.fs, a.log, opts...), done
}

// progressBar reports bytes read from the raw file.
type progressBar struct {
	bar *pb.ProgressBar
}

func (p *progressBar) wrap(r io.Reader, size int64) io.Reader {
	p.bar = pb.New64(size).SetTemplate(pb.Full).Set(pb.Bytes, true).SetWriter(os.Stderr).Start()

	return p.bar.NewProxyReader(r)
}

func (p *progressBar) finish() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}

// hint adds a suggestion to errors a user can act on.
func hint(err error) error {
	switch {
	case errors.Is(err, storage.ErrLocked):
		return fmt.Errorf("%w (another run is active, or remove the stale lock file)", err)
	case errors.Is(err, storage.ErrMissingSourceFile):
		return fmt.Errorf("%w (run the earlier stage first or fix pipeline.paths)", err)
	}

	return err
}
