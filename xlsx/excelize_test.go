package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pressops/sheetfile/sheet"
)

// Cross-check written packages against an independent implementation.
func TestExcelizeReadsOutput(t *testing.T) {
	var buf bytes.Buffer
	wb, err := Create(&buf, nil, &sheet.Options{Headers: true})
	require.NoError(t, err)

	cols := testColumns(
		"title|type=string",
		"count|type=number",
		"published|type=datetime",
	)
	rows := [][]any{
		{"alpha", 42.5, time.Date(2021, 3, 14, 9, 26, 53, 0, time.UTC)},
		{"beta", 7, time.Date(2020, 12, 31, 23, 59, 59, 0, time.UTC)},
	}
	_, err = wb.CreateSheet(cols, rows, "Data")
	require.NoError(t, err)
	require.NoError(t, wb.Write())

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Data"}, f.GetSheetList())

	got, err := f.GetRows("Data")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []string{"title", "count", "published"}, got[0])
	require.Equal(t, "alpha", got[1][0])
	require.Equal(t, "42.5", got[1][1])
	require.Equal(t, "2021-03-14 09:26:53", got[1][2])

	cell, err := f.GetCellValue("Data", "A3")
	require.NoError(t, err)
	require.Equal(t, "beta", cell)
}
