package dataset

import (
	"math"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgjobs/internal/cleaner"
	"sgjobs/internal/config"
	"sgjobs/internal/storage"
	"sgjobs/internal/table"
)

const cleanCSV = `metadata_jobPostId,title,average_salary,minimumYearsExperience,numberOfVacancies,metadata_totalNumberJobApplication,metadata_originalPostingDate,metadata_newPostingDate,categories_list,posting_month
1,A,1000,1,1,5,2023-01-05,,"[""IT""]",2023-01
2,B,2000,35,2,10,2023-01-06,,[],2023-01
3,C,3000,2,0,10,2023-02-01,2023-03-01,"[""IT"",""Sales""]",2023-03
4,D,4000,3,4,,2023-02-02,,not-json,2023-02
5,E,100000,4,1,1,,,[],
`

func writeClean(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
}

func defaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

func TestLoad_TrimsOutliersAndExperience(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeClean(t, fs, "clean.csv", cleanCSV)

	tbl, stats, err := Load(fs, "clean.csv", defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, Stats{RowsRead: 5, SalaryOutliers: 2, ExperienceOut: 1, Rows: 2}, stats)
	assert.Equal(t, []any{"C", "D"}, tbl.Column("title").Values)

	assert.Equal(t, []any{nil, nil}, tbl.Column(AppsPerVacancyColumn).Values)
	assert.Equal(t, []any{"2023-02", "2023-02"}, tbl.Column(cleaner.PostingMonthColumn).Values)

	cats := tbl.Column(cleaner.CategoriesListColumn)
	assert.Equal(t, table.List, cats.Kind)
	assert.Equal(t, []any{[]string{"IT", "Sales"}, nil}, cats.Values)

	assert.Equal(t, table.Time, tbl.Column(cleaner.OriginalPostingDateColumn).Kind)
	assert.True(t, tbl.Column(cleaner.AverageSalaryColumn).IsNumeric())
	assert.Equal(t, table.String, tbl.Column("metadata_jobPostId").Kind)
}

func TestLoad_NoTrim(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeClean(t, fs, "clean.csv", cleanCSV)

	opts := defaultOptions()
	opts.RemoveOutliers = false
	opts.MaxExperienceYears = 0

	tbl, stats, err := Load(fs, "clean.csv", opts)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, []any{5.0, 5.0, nil, nil, 1.0}, tbl.Column(AppsPerVacancyColumn).Values)
	assert.Equal(t, []any{"2023-01", "2023-01", "2023-02", "2023-02", nil}, tbl.Column(cleaner.PostingMonthColumn).Values)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(afero.NewMemMapFs(), "none.csv", defaultOptions())
	require.ErrorIs(t, err, storage.ErrMissingSourceFile)
}

func TestQuantile(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	assert.InDelta(t, 2.5, Quantile(values, 0.5), 1e-9)
	assert.InDelta(t, 1.0, Quantile(values, 0), 1e-9)
	assert.InDelta(t, 4.0, Quantile(values, 1), 1e-9)
	assert.InDelta(t, 1.03, Quantile(values, 0.01), 1e-9)
	assert.Equal(t, []float64{4, 1, 3, 2}, values, "input must not be reordered")

	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.InDelta(t, 2.5, Mean(values), 1e-9)
	assert.InDelta(t, 3.0, Median([]float64{5, 3, 1}), 1e-9)
}

func TestCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeClean(t, fs, "clean.csv", cleanCSV)

	opts := defaultOptions()
	opts.RemoveOutliers = false
	opts.MaxExperienceYears = 0

	cache := NewCache(fs, opts)

	first, _, err := cache.Get("clean.csv")
	require.NoError(t, err)
	assert.Equal(t, 5, first.NumRows())
	assert.Equal(t, 1, cache.Len())

	// Mutating a returned table leaves the cached copy alone.
	first.Drop("title")

	second, _, err := cache.Get("clean.csv")
	require.NoError(t, err)
	assert.True(t, second.Has("title"))

	writeClean(t, fs, "clean.csv", "title,average_salary\nZ,10\n")

	third, stats, err := cache.Get("clean.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, third.NumRows())
	assert.Equal(t, 1, stats.RowsRead)

	cache.Invalidate("clean.csv")
	assert.Equal(t, 0, cache.Len())

	require.NoError(t, fs.Remove("clean.csv"))

	_, _, err = cache.Get("clean.csv")
	require.ErrorIs(t, err, storage.ErrMissingSourceFile)
}
