package http

import (
	"html/template"
	"strconv"
	"strings"

	"delhidash/internal/charts"
	"delhidash/internal/report"
	"delhidash/internal/zones"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// breakdownRow is one line of an earnings or expenses table.
type breakdownRow struct {
	ID, Name, Amount, Percentage, Color string
}

func breakdownRows(slices []charts.Slice) []breakdownRow {
	rows := make([]breakdownRow, len(slices))
	for i, s := range slices {
		rows[i] = breakdownRow{
			ID:         s.ID,
			Name:       s.Name,
			Amount:     charts.FormatRupees(s.Value),
			Percentage: s.Percentage,
			Color:      s.Color,
		}
	}
	return rows
}

// summaryCard is one of the three totals above the charts.
type summaryCard struct {
	Label, Value, Accent string
}

func summaryCards(r *report.Report) []summaryCard {
	return []summaryCard{
		{Label: "Total Earnings", Value: charts.FormatRupees(r.TotalEarnings), Accent: "blue"},
		{Label: "Total Expenses", Value: charts.FormatRupees(r.TotalExpenses), Accent: "red"},
		{Label: "Balance", Value: charts.FormatRupees(r.Balance), Accent: "green"},
	}
}

// filterButton is one entry of the map filter bar.
type filterButton struct {
	Value  zones.FilterStatus
	Label  string
	Active bool
}

func filterButtons(current zones.FilterStatus) []filterButton {
	all := zones.Filters()
	out := make([]filterButton, len(all))
	for i, f := range all {
		out[i] = filterButton{Value: f, Label: f.Label(), Active: f == current}
	}
	return out
}

// zoneRow is one entry of the zone list.
type zoneRow struct {
	ID       int
	Name     string
	Status   zones.Status
	Color    template.CSS
	Tint     template.CSS
	Location string
	Selected bool
}

func zoneRows(list []zones.Zone, selected int) []zoneRow {
	rows := make([]zoneRow, len(list))
	for i, z := range list {
		rows[i] = zoneRow{
			ID:       z.ID,
			Name:     z.Name,
			Status:   z.Status,
			Color:    template.CSS(z.Status.Color()),
			Tint:     template.CSS(z.Status.Tint()),
			Location: formatCoords(z, 4),
			Selected: z.ID == selected,
		}
	}
	return rows
}

// legendEntry explains one marker color.
type legendEntry struct {
	Color template.CSS
	Label string
}

func legend() []legendEntry {
	statuses := []zones.Status{zones.Red, zones.Yellow, zones.Green}
	out := make([]legendEntry, len(statuses))
	for i, s := range statuses {
		out[i] = legendEntry{
			Color: template.CSS(s.Color()),
			Label: strings.ToUpper(string(s[:1])) + string(s[1:]) + " Zone (" + s.Risk() + ")",
		}
	}
	return out
}

// formatCoords prints a zone position with prec decimals.
func formatCoords(z zones.Zone, prec int) string {
	return strconv.FormatFloat(z.Lat, 'f', prec, 64) + ", " + strconv.FormatFloat(z.Lng, 'f', prec, 64)
}
