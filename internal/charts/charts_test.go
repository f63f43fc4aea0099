package charts

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delhidash/internal/report"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func sampleReport() *report.Report {
	return &report.Report{
		TotalEarnings: d(1000),
		TotalExpenses: d(400),
		Balance:       d(600),
		Earnings:      []report.Earning{{ID: "a", Platform: "Uber", Amount: d(1000)}},
		Expenses:      []report.Expense{{ID: "b", Type: "Fuel", Amount: d(400)}},
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "100.0%", Percentage(d(1000), d(1000)))
	assert.Equal(t, "33.3%", Percentage(d(1), d(3)))
	assert.Equal(t, "62.5%", Percentage(d(250), d(400)))
	assert.Equal(t, NoPercentage, Percentage(d(500), decimal.Zero))
}

func TestFormatRupees(t *testing.T) {
	assert.Equal(t, "₹1,000", FormatRupees(d(1000)))
	assert.Equal(t, "₹400", FormatRupees(d(400)))
	assert.Equal(t, "₹1,234,567", FormatRupees(d(1234567)))
	assert.Equal(t, "₹1,234.5", FormatRupees(decimal.RequireFromString("1234.50")))
	assert.Equal(t, "₹0", FormatRupees(decimal.Zero))
}

func TestReportScenarioSlices(t *testing.T) {
	r := sampleReport()

	earn := EarningsSlices(r)
	require.Len(t, earn, 1)
	assert.Equal(t, "Uber", earn[0].Name)
	assert.Equal(t, "100.0%", earn[0].Percentage)
	assert.Equal(t, "#0088FE", earn[0].Color)

	exp := ExpenseSlices(r)
	require.Len(t, exp, 1)
	assert.Equal(t, "Fuel", exp[0].Name)
	assert.Equal(t, "100.0%", exp[0].Percentage)
	assert.Equal(t, "#FFBB28", exp[0].Color, "expenses start two colors in")
}

func TestPaletteWraps(t *testing.T) {
	r := &report.Report{TotalExpenses: d(6)}
	for i := 0; i < 6; i++ {
		r.Expenses = append(r.Expenses, report.Expense{Type: "t", Amount: d(1)})
	}
	exp := ExpenseSlices(r)
	assert.Equal(t, "#FFBB28", exp[0].Color)
	assert.Equal(t, "#0088FE", exp[3].Color)
	assert.Equal(t, "#FFBB28", exp[5].Color)
}

func TestZeroTotalSlices(t *testing.T) {
	r := sampleReport()
	r.TotalEarnings = decimal.Zero
	earn := EarningsSlices(r)
	assert.Equal(t, NoPercentage, earn[0].Percentage)
	assert.NotContains(t, earn[0].Percentage, "NaN")
	assert.NotContains(t, earn[0].Percentage, "Inf")
}

func TestNilReport(t *testing.T) {
	assert.Nil(t, EarningsSlices(nil))
	assert.Nil(t, ExpenseSlices(nil))
}

func TestRenderPie(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPie(&buf, EarningsSlices(sampleReport())))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<svg"), out[:min(len(out), 40)])
	assert.NotContains(t, out, "No data to chart")
}

func TestRenderPieSingleSliceKeepsColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPie(&buf, EarningsSlices(sampleReport())))
	assert.Contains(t, buf.String(), "fill:rgba(0,136,254,1.0)")

	buf.Reset()
	require.NoError(t, RenderPie(&buf, ExpenseSlices(sampleReport())))
	assert.Contains(t, buf.String(), "fill:rgba(255,187,40,1.0)")
	assert.NotContains(t, buf.String(), "fill:rgba(106,195,203,1.0)")
}

func TestRenderPieSkipsEmptySlicesInPalette(t *testing.T) {
	slices := []Slice{
		{Name: "Ola", Value: decimal.Zero, Color: "#00C49F"},
		{Name: "Uber", Value: d(10), Color: "#FF8042"},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderPie(&buf, slices))
	assert.Contains(t, buf.String(), "fill:rgba(255,128,66,1.0)")
	assert.NotContains(t, buf.String(), "fill:rgba(0,196,159,1.0)")
}

func TestRenderPiePlaceholder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPie(&buf, nil))
	assert.Contains(t, buf.String(), "No data to chart")

	buf.Reset()
	zero := []Slice{{Name: "Uber", Value: decimal.Zero}}
	require.NoError(t, RenderPie(&buf, zero))
	assert.Contains(t, buf.String(), "No data to chart")
}

func TestDailyExpensesDataset(t *testing.T) {
	rows, err := LoadDailyExpenses()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.True(t, rows[0].Date.Before(rows[len(rows)-1].Date))
}

func TestCategorySeries(t *testing.T) {
	rows, err := ParseDailyExpenses([]byte(`[
		{"date":"2024-01-01","expenseCategory":{"petrol":10,"toll":2,"maintenance":0,"misc":1}},
		{"date":"2024-01-02","expenseCategory":{"petrol":12,"toll":3}}
	]`))
	require.NoError(t, err)

	series := CategorySeries(rows)
	require.Len(t, series, 4)
	assert.Equal(t, "Petrol", series[0].Name)
	assert.Equal(t, "#F59E0B", series[0].Color)
	assert.Equal(t, []float64{10, 12}, series[0].Values)
	assert.Equal(t, "Miscellaneous", series[3].Name)
	assert.Equal(t, "#6B7280", series[3].Color)
	assert.Equal(t, []float64{1, 0}, series[3].Values)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), series[1].Dates[1])
}

func TestParseDailyExpensesErrors(t *testing.T) {
	_, err := ParseDailyExpenses([]byte(`{`))
	assert.Error(t, err)
	_, err = ParseDailyExpenses([]byte(`[{"date":"Jan 1"}]`))
	assert.Error(t, err)
}

func TestRenderLine(t *testing.T) {
	rows, err := LoadDailyExpenses()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderLine(&buf, CategorySeries(rows)))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Contains(t, out, "Miscellaneous")
}

func TestRenderLineSinglePointAndEmpty(t *testing.T) {
	rows, err := ParseDailyExpenses([]byte(`[{"date":"2024-01-01","expenseCategory":{"petrol":10}}]`))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, RenderLine(&buf, CategorySeries(rows)))
	assert.True(t, strings.HasPrefix(buf.String(), "<svg"))

	buf.Reset()
	require.NoError(t, RenderLine(&buf, CategorySeries(nil)))
	assert.Contains(t, buf.String(), "No expense history")
}
