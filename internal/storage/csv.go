package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"sgjobs/internal/table"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// ReadOption configures ReadCSV.
type ReadOption func(*readOptions)

type readOptions struct {
	hook func(r io.Reader, size int64) io.Reader
}

// WithReaderHook wraps the file reader, e.g. to drive a progress bar.
func WithReaderHook(hook func(r io.Reader, size int64) io.Reader) ReadOption {
	return func(o *readOptions) {
		o.hook = hook
	}
}

// ReadCSV loads a delimited file with a header row. Every field is read as text
// and empty fields become null; typing is left to the normalizer.
//
// Empty header names become "Unnamed: N" and repeated names get a ".N" suffix,
// skipping suffixed names already present in the header.
// Short rows are padded with nulls and extra fields are ignored.
func ReadCSV(fs afero.Fs, path string, opts ...ReadOption) (*table.Table, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	info, err := StatFile(fs, path)
	if err != nil {
		return nil, err
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if o.hook != nil {
		r = o.hook(r, info.Size())
	}

	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrNoHeader, path)
		}

		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	names := headerNames(header)
	values := make([][]any, len(names))

	line := 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		line++

		if err != nil {
			return nil, fmt.Errorf("failed to read %s line %d: %w", path, line, err)
		}

		for i := range names {
			var v any
			if i < len(record) && record[i] != "" {
				v = strings.Clone(record[i])
			}

			values[i] = append(values[i], v)
		}
	}

	t, err := table.New()
	if err != nil {
		return nil, err
	}

	for i, name := range names {
		col := &table.Column{Name: name, Kind: table.String, Values: values[i]}
		if col.Values == nil {
			col.Values = []any{}
		}

		if err := t.Add(col); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func headerNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))

	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}

		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}

		if n, ok := seen[name]; ok {
			base := name

			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)

				if _, taken := seen[name]; !taken {
					break
				}
			}

			seen[base] = n
		}

		seen[name] = 0
		names[i] = name
	}

	return names
}

// WriteCSV writes t with a header row. Nulls are written as empty fields.
func WriteCSV(fs afero.Fs, t *table.Table, path string) error {
	return writeAtomic(fs, path, func(f afero.File) error {
		if err := EncodeCSV(f, t); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		return f.Close()
	})
}

// EncodeCSV writes t as CSV to w.
func EncodeCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Names()); err != nil {
		return err
	}

	cols := t.Columns()
	record := make([]string, len(cols))

	for r := range t.NumRows() {
		for i, c := range cols {
			s, err := FormatValue(c.Values[r])
			if err != nil {
				return fmt.Errorf("column %s row %d: %w", c.Name, r, err)
			}

			record[i] = s
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// FormatValue renders one table value as a CSV field.
func FormatValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case bool:
		return strconv.FormatBool(val), nil
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(dateLayout), nil
		}

		return val.Format(dateTimeLayout), nil
	case []string:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}

		return string(b), nil
	}

	return "", fmt.Errorf("%w: %T", ErrUnsupportedKind, v)
}
