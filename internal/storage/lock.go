package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"
)

// LockName is the lock file created in the processed-data directory.
const LockName = ".sgjobs.lock"

// Lock is an exclusive claim on a processed-data directory.
type Lock struct {
	fs   afero.Fs
	path string
}

// AcquireLock creates the lock file in dir. It fails with ErrLocked when another
// run already holds it.
func AcquireLock(fs afero.Fs, dir string) (*Lock, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, LockName)

	f, err := fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}

		return nil, fmt.Errorf("failed to create lock %s: %w", path, err)
	}

	_, werr := fmt.Fprintf(f, "pid=%s\nacquired=%s\n", strconv.Itoa(os.Getpid()), time.Now().UTC().Format(time.RFC3339))
	cerr := f.Close()

	if err := errors.Join(werr, cerr); err != nil {
		_ = fs.Remove(path)
		return nil, fmt.Errorf("failed to write lock %s: %w", path, err)
	}

	return &Lock{fs: fs, path: path}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}

	err := l.fs.Remove(l.path)
	l.path = ""

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}
