package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strCol(name string, vals ...any) *Column {
	return &Column{Name: name, Kind: String, Values: vals}
}

func TestNew_LengthMismatch(t *testing.T) {
	_, err := New(strCol("a", "x", "y"), strCol("b", "z"))
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestAdd_ReplacesInPlace(t *testing.T) {
	tbl := MustNew(strCol("a", "1"), strCol("b", "2"))

	require.NoError(t, tbl.Add(&Column{Name: "a", Kind: Int, Values: []any{int64(1)}}))

	assert.Equal(t, []string{"a", "b"}, tbl.Names())
	assert.Equal(t, Int, tbl.Column("a").Kind)
}

func TestDrop(t *testing.T) {
	tbl := MustNew(strCol("a", "1"), strCol("b", "2"), strCol("c", "3"))

	tbl.Drop("b", "missing")

	assert.Equal(t, []string{"a", "c"}, tbl.Names())
	assert.False(t, tbl.Has("b"))
	assert.Equal(t, "3", tbl.Column("c").Values[0])
}

func TestFilter(t *testing.T) {
	tbl := MustNew(strCol("a", "1", "2", "3"), &Column{Name: "n", Kind: Float, Values: []any{1.0, nil, 3.0}})

	removed, err := tbl.Filter([]bool{true, false, true})
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, []any{"1", "3"}, tbl.Column("a").Values)
	assert.Equal(t, []any{1.0, 3.0}, tbl.Column("n").Values)

	_, err = tbl.Filter([]bool{true})
	assert.ErrorIs(t, err, ErrKeepMismatch)
}

func TestClone_IsDeep(t *testing.T) {
	tbl := MustNew(&Column{Name: "l", Kind: List, Values: []any{[]string{"A", "B"}}})

	cp := tbl.Clone()
	cp.Column("l").Values[0].([]string)[0] = "Z"

	assert.Equal(t, "A", tbl.Column("l").Values[0].([]string)[0])
	assert.True(t, tbl.Equal(tbl.Clone()))
	assert.False(t, tbl.Equal(cp))
}

func TestEqual_Times(t *testing.T) {
	ts := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	a := MustNew(&Column{Name: "d", Kind: Time, Values: []any{ts, nil}})
	b := MustNew(&Column{Name: "d", Kind: Time, Values: []any{ts.In(time.FixedZone("SGT", 8*3600)), nil}})

	assert.True(t, a.Equal(b))
}

func TestColumnHelpers(t *testing.T) {
	c := &Column{Name: "n", Kind: Int, Values: []any{int64(4), nil}}

	f, ok := c.Float(0)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, f, 0)

	_, ok = c.Float(1)
	assert.False(t, ok)

	assert.True(t, c.IsNumeric())
	assert.False(t, c.IsAllNull())
	assert.True(t, NewColumn("e", String, 3).IsAllNull())
}
