package loader

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

const fixtureCSV = "\ufeffTimestamp,GHI,DNI,WS,WD,Comments\n" +
	"2021-08-09 00:01,-1.2,0.0,0.4,122.1,\n" +
	"2021-08-09 00:02,-1.1,,0.6,124.7,dusty\n" +
	"2021-08-09 00:03,-1.1,0.0,0.5,NA,\n"

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadCSV_DetectsSchema(t *testing.T) {
	tbl, err := Load(writeFixture(t, "benin.csv", fixtureCSV), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Rows())
	assert.Equal(t, table.Schema{
		{Name: "Timestamp", Kind: table.Timestamp},
		{Name: "GHI", Kind: table.Numeric},
		{Name: "DNI", Kind: table.Numeric},
		{Name: "WS", Kind: table.Numeric},
		{Name: "WD", Kind: table.Numeric},
		{Name: "Comments", Kind: table.Text},
	}, tbl.Schema())

	ts, _ := tbl.Column("Timestamp")
	assert.Equal(t, time.Date(2021, 8, 9, 0, 2, 0, 0, time.UTC), ts.Times[1])

	dni, _ := tbl.Column("DNI")
	assert.Equal(t, []bool{false, true, false}, dni.Null)

	wd, _ := tbl.Column("WD")
	assert.True(t, wd.IsNull(2))

	comments, _ := tbl.Column("Comments")
	assert.Equal(t, []bool{true, false, true}, comments.Null)
	assert.Equal(t, "dusty", comments.Texts[1])
}

func TestLoadCSV_Options(t *testing.T) {
	path := writeFixture(t, "benin.csv", fixtureCSV)

	t.Run("forced types", func(t *testing.T) {
		tbl, err := Load(path, Options{Types: table.Schema{{Name: "WD", Kind: table.Text}}})
		require.NoError(t, err)
		wd, err := tbl.ColumnOf("WD", table.Text)
		require.NoError(t, err)
		assert.Equal(t, "122.1", wd.Texts[0])
	})

	t.Run("max rows", func(t *testing.T) {
		tbl, err := Load(path, Options{MaxRows: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, tbl.Rows())
	})

	t.Run("semicolon sniffed", func(t *testing.T) {
		tbl, err := Load(writeFixture(t, "eu.csv", "GHI;Tamb\n1;20\n2;21\n"), Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"GHI", "Tamb"}, tbl.Names())
		assert.Equal(t, []string{"GHI", "Tamb"}, tbl.NumericNames())
	})

	t.Run("tsv by extension", func(t *testing.T) {
		tbl, err := Load(writeFixture(t, "x.tsv", "a\tb\n1\t2\n"), Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, tbl.Names())
	})
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	assert.Error(t, err)

	_, err = Load(writeFixture(t, "data.json", "{}"), Options{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter("a.csv", []byte("a,b,c\n1;2")))
	assert.Equal(t, ';', sniffDelimiter("a.csv", []byte("a;b;c\n")))
	assert.Equal(t, '|', sniffDelimiter("a.txt", []byte("a|b")))
	assert.Equal(t, '\t', sniffDelimiter("a.tsv", []byte("a,b")))
	assert.Equal(t, ',', sniffDelimiter("a.csv", nil))
}

func writeXLSXFixture(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)

	cells := map[string]any{
		"A1": "Timestamp", "B1": "GHI", "C1": "WS",
		"A2": "2021-08-09 00:01", "B2": 1.5, "C2": 2,
		"A3": "2021-08-09 00:02", "B3": 2.5,
	}
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	require.NoError(t, f.SetCellValue("Notes", "A1", "note"))

	p := filepath.Join(t.TempDir(), "station.xlsx")
	require.NoError(t, f.SaveAs(p))
	return p
}

func TestLoadXLSX(t *testing.T) {
	path := writeXLSXFixture(t)

	tbl, err := Load(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Timestamp", "GHI", "WS"}, tbl.Names())
	assert.Equal(t, 2, tbl.Rows())

	ghi, err := tbl.ColumnOf("GHI", table.Numeric)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, ghi.Nums)

	ws, _ := tbl.Column("WS")
	assert.True(t, ws.IsNull(1))

	notes, err := Load(path, Options{SheetIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"note"}, notes.Names())

	_, err = Load(path, Options{Sheet: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets: Sheet1, Notes")
}

func TestWriteCSV(t *testing.T) {
	tbl, err := table.New(
		table.NewNumeric("GHI", []float64{1.5, math.NaN(), 1000000}),
		table.NewText("Comments", []string{"a", "", "b"}, []bool{false, true, false}),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, "GHI,Comments\n1.5,a\n,\n1000000,b\n", buf.String())

	path := filepath.Join(t.TempDir(), "out", "clean.csv")
	require.NoError(t, WriteCSVFile(path, tbl))
	back, err := Load(path, Options{})
	require.NoError(t, err)
	ghi, _ := back.Column("GHI")
	assert.True(t, ghi.IsNull(1))
	assert.Equal(t, 1000000.0, ghi.Nums[2])
}

func TestSupported(t *testing.T) {
	for name, want := range map[string]bool{
		"benin.csv":    true,
		"TOGO.TSV":     true,
		"export.txt":   true,
		"station.xlsx": true,
		"macro.xlsm":   true,
		"notes.md":     false,
		"old.xls":      false,
		".x.csv.1.tmp": false,
	} {
		assert.Equal(t, want, Supported(name), name)
	}
}

func TestLoadCSV_SlashDatesUseOneLayoutPerColumn(t *testing.T) {
	csv := "Date,Other,GHI\n" +
		"08/09/2021,13/08/2021,1\n" +
		"08/10/2021,14/08/2021,2\n" +
		"08/13/2021,01/09/2021,3\n"
	tbl, err := ReadCSV(bytes.NewBufferString(csv), "dates.csv", Options{})
	require.NoError(t, err)

	date, err := tbl.ColumnOf("Date", table.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2021, 8, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 8, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 8, 13, 0, 0, 0, 0, time.UTC),
	}, date.Times, "month-first when every cell allows it")

	other, err := tbl.ColumnOf("Other", table.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2021, 8, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 8, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC),
	}, other.Times, "day-first when a cell rules out month-first")
}
