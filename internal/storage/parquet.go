package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/spf13/afero"

	"sgjobs/internal/table"
)

// ParquetExt is the extension of the typed snapshot.
const ParquetExt = ".parquet"

const rowGroupSize = 64 * 1024

var timestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// Schema returns the Arrow schema for t. Every field is nullable.
func Schema(t *table.Table) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, t.NumCols())

	for _, c := range t.Columns() {
		dt, err := arrowType(c.Kind)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}

		fields = append(fields, arrow.Field{Name: c.Name, Type: dt, Nullable: true})
	}

	return arrow.NewSchema(fields, nil), nil
}

func arrowType(k table.Kind) (arrow.DataType, error) {
	switch k {
	case table.String:
		return arrow.BinaryTypes.String, nil
	case table.Float:
		return arrow.PrimitiveTypes.Float64, nil
	case table.Int:
		return arrow.PrimitiveTypes.Int64, nil
	case table.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case table.Time:
		return timestampType, nil
	case table.List:
		return arrow.ListOf(arrow.BinaryTypes.String), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, k)
}

func tableKind(dt arrow.DataType) (table.Kind, error) {
	switch dt.ID() {
	case arrow.STRING:
		return table.String, nil
	case arrow.FLOAT64:
		return table.Float, nil
	case arrow.INT64:
		return table.Int, nil
	case arrow.BOOL:
		return table.Bool, nil
	case arrow.TIMESTAMP:
		return table.Time, nil
	case arrow.LIST:
		return table.List, nil
	}

	return 0, fmt.Errorf("%w: %s", ErrUnsupportedKind, dt)
}

// WriteParquet writes t as a Snappy-compressed Parquet file. The Arrow schema is
// stored in the file metadata so kinds survive a round trip.
func WriteParquet(fs afero.Fs, t *table.Table, path string) error {
	if t.NumCols() == 0 {
		return ErrEmptyTable
	}

	schema, err := Schema(t)
	if err != nil {
		return err
	}

	mem := memory.NewGoAllocator()

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, c := range t.Columns() {
		if err := appendColumn(b.Field(i), c); err != nil {
			return err
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	return writeAtomic(fs, path, func(f afero.File) error {
		if err := pqarrow.WriteTable(tbl, f, rowGroupSize, props, arrProps); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		return nil
	})
}

func appendColumn(fb array.Builder, c *table.Column) error {
	for r, v := range c.Values {
		if v == nil {
			fb.AppendNull()
			continue
		}

		ok := true

		switch b := fb.(type) {
		case *array.StringBuilder:
			var s string
			if s, ok = v.(string); ok {
				b.Append(s)
			}
		case *array.Float64Builder:
			var f float64
			if f, ok = v.(float64); ok {
				b.Append(f)
			}
		case *array.Int64Builder:
			var n int64
			if n, ok = v.(int64); ok {
				b.Append(n)
			}
		case *array.BooleanBuilder:
			var x bool
			if x, ok = v.(bool); ok {
				b.Append(x)
			}
		case *array.TimestampBuilder:
			var ts time.Time
			if ts, ok = v.(time.Time); ok {
				b.Append(arrow.Timestamp(ts.UnixMicro()))
			}
		case *array.ListBuilder:
			var l []string
			if l, ok = v.([]string); ok {
				b.Append(true)

				vb := b.ValueBuilder().(*array.StringBuilder)
				for _, s := range l {
					vb.Append(s)
				}
			}
		default:
			return fmt.Errorf("column %s: %w: %T", c.Name, ErrUnsupportedKind, fb)
		}

		if !ok {
			return fmt.Errorf("column %s row %d: value %T does not match kind %s", c.Name, r, v, c.Kind)
		}
	}

	return nil
}

// ReadParquet loads a Parquet snapshot written by WriteParquet.
func ReadParquet(ctx context.Context, fs afero.Fs, path string) (*table.Table, error) {
	if _, err := StatFile(fs, path); err != nil {
		return nil, err
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	mem := memory.NewGoAllocator()

	atbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer atbl.Release()

	out, err := table.New()
	if err != nil {
		return nil, err
	}

	for i := range int(atbl.NumCols()) {
		col := atbl.Column(i)

		kind, err := tableKind(col.DataType())
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name(), err)
		}

		values := make([]any, 0, atbl.NumRows())

		for _, chunk := range col.Data().Chunks() {
			values, err = appendValues(values, chunk)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name(), err)
			}
		}

		if err := out.Add(&table.Column{Name: col.Name(), Kind: kind, Values: values}); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func appendValues(dst []any, arr arrow.Array) ([]any, error) {
	for j := range arr.Len() {
		if arr.IsNull(j) {
			dst = append(dst, nil)
			continue
		}

		switch a := arr.(type) {
		case *array.String:
			dst = append(dst, a.Value(j))
		case *array.Float64:
			dst = append(dst, a.Value(j))
		case *array.Int64:
			dst = append(dst, a.Value(j))
		case *array.Boolean:
			dst = append(dst, a.Value(j))
		case *array.Timestamp:
			unit := a.DataType().(*arrow.TimestampType).Unit
			dst = append(dst, a.Value(j).ToTime(unit).UTC())
		case *array.List:
			values, ok := a.ListValues().(*array.String)
			if !ok {
				return nil, fmt.Errorf("%w: list of %s", ErrUnsupportedKind, a.ListValues().DataType())
			}

			start, end := a.ValueOffsets(j)
			l := make([]string, 0, end-start)

			for k := start; k < end; k++ {
				l = append(l, values.Value(int(k)))
			}

			dst = append(dst, l)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, arr.DataType())
		}
	}

	return dst, nil
}
