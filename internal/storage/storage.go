// Package storage reads and writes job posting tables: the raw and clean CSV
// files and the typed Parquet snapshot that connects the two pipeline phases.
//
// Every function takes an afero.Fs so stages can run against a real directory
// or an in-memory filesystem.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"sgjobs/internal/table"
)

// Storage errors.
var (
	ErrMissingSourceFile = errors.New("source file not found")
	ErrNoHeader          = errors.New("file has no header row")
	ErrEmptyTable        = errors.New("table has no columns")
	ErrUnsupportedKind   = errors.New("unsupported column type")
	ErrLocked            = errors.New("another pipeline run holds the lock")
)

// PrepareDir creates the parent directory of path if it does not exist.
func PrepareDir(fs afero.Fs, path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}

// StatFile stats path and returns ErrMissingSourceFile when it does not
// resolve to a regular file.
func StatFile(fs afero.Fs, path string) (os.FileInfo, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSourceFile, path)
		}

		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrMissingSourceFile, path)
	}

	return info, nil
}

// writeAtomic writes through a temporary sibling file and renames it into place,
// so a failed write never leaves a partial artifact at path.
func writeAtomic(fs afero.Fs, path string, write func(f afero.File) error) (err error) {
	if err := PrepareDir(fs, path); err != nil {
		return err
	}

	tmp := path + ".tmp"

	f, err := fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	defer func() {
		if err != nil {
			_ = fs.Remove(tmp)
		}
	}()

	if err = write(f); err != nil {
		_ = f.Close()
		return err
	}

	// Some writers close the file themselves; a second close is harmless here.
	_ = f.Close()

	if err = fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return nil
}

// WriteStructured writes the typed snapshot to parquetPath and a CSV copy to
// csvPath, in that order. There is no transaction across the two files.
func WriteStructured(fs afero.Fs, t *table.Table, parquetPath, csvPath string) error {
	if err := WriteParquet(fs, t, parquetPath); err != nil {
		return err
	}

	return WriteCSV(fs, t, csvPath)
}

// WriteFile writes data to path atomically, creating parent directories.
func WriteFile(fs afero.Fs, path string, data []byte) error {
	return writeAtomic(fs, path, func(f afero.File) error {
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		return nil
	})
}
