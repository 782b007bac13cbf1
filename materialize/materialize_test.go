package materialize

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"altinnaudit.dev/query"
)

func group(maj string, n int) *query.AppGroup {
	g := &query.AppGroup{Tuple: map[string]string{"maj": maj}, Selected: map[string]interface{}{"n": n}}
	return g
}

func TestBuildTable(t *testing.T) {
	groups := []*query.AppGroup{group("3", 1), group("4", 2)}
	table := BuildTable(groups)
	assert.Equal(t, []string{"maj", "n"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"3", "1"}, table.Rows[0])
	assert.Equal(t, []string{"4", "2"}, table.Rows[1])
}

func TestWriteCSV(t *testing.T) {
	groups := []*query.AppGroup{group("3", 1), group("4", 2)}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, groups))
	assert.Equal(t, "maj,n\n3,1\n4,2\n", buf.String())
}

func TestBarChart(t *testing.T) {
	groups := []*query.AppGroup{group("3", 1), group("4", 2)}
	series := BarChart(groups)
	require.Len(t, series, 2)
	assert.Equal(t, ChartSeries{Label: "3", Value: 1}, series[0])
	assert.Equal(t, ChartSeries{Label: "4", Value: 2}, series[1])
}
