package charts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"delhidash/internal/report"
)

//go:embed data/daily_expenses.json
var dailyExpensesJSON []byte

// Category is one line of the category-wise expenses chart.
type Category struct {
	Key   string
	Name  string
	Color string
}

// Categories lists the expense lines in legend order.
var Categories = []Category{
	{Key: "petrol", Name: "Petrol", Color: "#F59E0B"},
	{Key: "toll", Name: "Toll", Color: "#8B5CF6"},
	{Key: "maintenance", Name: "Maintenance", Color: "#EC4899"},
	{Key: "misc", Name: "Miscellaneous", Color: "#6B7280"},
}

// DailyExpense is one day of the static category dataset.
type DailyExpense struct {
	Date       time.Time
	Categories map[string]float64
}

type dailyExpenseJSON struct {
	Date            string             `json:"date"`
	ExpenseCategory map[string]float64 `json:"expenseCategory"`
}

// Series is a plotted line.
type Series struct {
	Category
	Dates  []time.Time
	Values []float64
}

// LoadDailyExpenses decodes the bundled category dataset.
func LoadDailyExpenses() ([]DailyExpense, error) {
	return ParseDailyExpenses(dailyExpensesJSON)
}

// ParseDailyExpenses decodes rows of {date, expenseCategory}.
func ParseDailyExpenses(b []byte) ([]DailyExpense, error) {
	var raw []dailyExpenseJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode daily expenses: %w", err)
	}
	out := make([]DailyExpense, 0, len(raw))
	for _, r := range raw {
		d, err := time.Parse(report.DateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("daily expense date %q: %w", r.Date, err)
		}
		out = append(out, DailyExpense{Date: d, Categories: r.ExpenseCategory})
	}
	return out, nil
}

// CategorySeries builds one series per category over rows. Missing
// categories on a day plot as zero.
func CategorySeries(rows []DailyExpense) []Series {
	out := make([]Series, len(Categories))
	for i, c := range Categories {
		s := Series{
			Category: c,
			Dates:    make([]time.Time, len(rows)),
			Values:   make([]float64, len(rows)),
		}
		for j, r := range rows {
			s.Dates[j] = r.Date
			s.Values[j] = r.Categories[c.Key]
		}
		out[i] = s
	}
	return out
}
