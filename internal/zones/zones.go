// Package zones holds the fixed table of Delhi risk zones shown on the map.
package zones

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
)

const (
	Red    Status = "red"
	Yellow Status = "yellow"
	Green  Status = "green"

	FilterAll    FilterStatus = "all"
	FilterRed    FilterStatus = "red"
	FilterYellow FilterStatus = "yellow"
	FilterGreen  FilterStatus = "green"
)

type (
	// Status is the risk classification of a zone.
	Status string

	// FilterStatus selects which zones are emphasized on the map.
	FilterStatus string

	Zone struct {
		ID     int
		Name   string
		Status Status
		Lat    float64
		Lng    float64
	}

	// Recommendation is the advice block rendered in the zone details panel.
	Recommendation struct {
		Title string
		Items []string
	}
)

var (
	ErrUnknownZone   = errors.New("unknown zone")
	ErrInvalidFilter = errors.New("invalid filter status")
)

var table = []Zone{
	{ID: 1, Name: "Connaught Place", Status: Red, Lat: 28.6289, Lng: 77.2074},
	{ID: 2, Name: "Karol Bagh", Status: Red, Lat: 28.6518, Lng: 77.1929},
	{ID: 3, Name: "Chandni Chowk", Status: Red, Lat: 28.6505, Lng: 77.2303},
	{ID: 4, Name: "Lajpat Nagar", Status: Yellow, Lat: 28.5689, Lng: 77.2373},
	{ID: 5, Name: "Dwarka", Status: Yellow, Lat: 28.5921, Lng: 77.0460},
	{ID: 6, Name: "Saket", Status: Yellow, Lat: 28.5237, Lng: 77.2111},
	{ID: 7, Name: "Rohini", Status: Green, Lat: 28.7410, Lng: 77.1154},
	{ID: 8, Name: "Janakpuri", Status: Green, Lat: 28.6219, Lng: 77.0878},
}

// All returns a copy of the zone table in id order.
func All() []Zone {
	out := make([]Zone, len(table))
	copy(out, table)
	return out
}

// ByID looks up a zone in the table.
func ByID(id int) (Zone, error) {
	for _, z := range table {
		if z.ID == id {
			return z, nil
		}
	}
	return Zone{}, fmt.Errorf("zone %d: %w", id, ErrUnknownZone)
}

// Filter returns the zones visible under f, preserving table order.
func Filter(list []Zone, f FilterStatus) []Zone {
	out := make([]Zone, 0, len(list))
	for _, z := range list {
		if f.Matches(z.Status) {
			out = append(out, z)
		}
	}
	return out
}

// ParseFilter accepts "all", "red", "yellow" or "green". Empty means all.
func ParseFilter(s string) (FilterStatus, error) {
	switch f := FilterStatus(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterRed, FilterYellow, FilterGreen:
		return f, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidFilter)
	}
}

// Filters lists the filter buttons in display order.
func Filters() []FilterStatus {
	return []FilterStatus{FilterAll, FilterRed, FilterYellow, FilterGreen}
}

// Matches reports whether a zone with status s is emphasized under f.
func (f FilterStatus) Matches(s Status) bool {
	return f == FilterAll || Status(f) == s
}

// Label is the filter button caption.
func (f FilterStatus) Label() string {
	switch f {
	case FilterRed:
		return "Red Zones"
	case FilterYellow:
		return "Yellow Zones"
	case FilterGreen:
		return "Green Zones"
	default:
		return "All"
	}
}

// Color is the marker fill color for the status.
func (s Status) Color() string {
	switch s {
	case Red:
		return "#dc2626"
	case Yellow:
		return "#eab308"
	default:
		return "#16a34a"
	}
}

// Tint is the light background used for zone list entries.
func (s Status) Tint() string {
	switch s {
	case Red:
		return "#fee2e2"
	case Yellow:
		return "#fef3c7"
	default:
		return "#dcfce7"
	}
}

// Risk is the human readable risk level.
func (s Status) Risk() string {
	switch s {
	case Red:
		return "High Risk"
	case Yellow:
		return "Moderate Risk"
	default:
		return "Low Risk"
	}
}

// Recommendation returns the advice shown for the status.
func (s Status) Recommendation() Recommendation {
	switch s {
	case Red:
		return Recommendation{Title: "High Risk Zone", Items: []string{
			"Avoid non-essential travel to this area",
			"Follow strict social distancing measures",
			"Always wear protective equipment",
			"Monitor symptoms daily if residing in this zone",
		}}
	case Yellow:
		return Recommendation{Title: "Moderate Risk Zone", Items: []string{
			"Limit non-essential travel",
			"Maintain social distancing",
			"Wear masks in public spaces",
			"Follow local health authority guidelines",
		}}
	default:
		return Recommendation{Title: "Low Risk Zone", Items: []string{
			"Follow standard precautions",
			"Safe for essential activities",
			"Monitor local updates",
			"Continue practicing good hygiene",
		}}
	}
}

// PopupHTML is the marker popup body, e.g. "<b>Saket</b><br>YELLOW Zone".
func (z Zone) PopupHTML() string {
	return "<b>" + template.HTMLEscapeString(z.Name) + "</b><br>" + strings.ToUpper(string(z.Status)) + " Zone"
}
