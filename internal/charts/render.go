package charts

import (
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	PieSize     = 320
	LineWidth   = 720
	LineHeight  = 300
	placeholder = `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" role="img">` +
		`<rect width="100%%" height="100%%" fill="#f9fafb"/>` +
		`<text x="50%%" y="50%%" text-anchor="middle" dominant-baseline="middle" fill="#6b7280" font-family="sans-serif" font-size="14">%s</text></svg>`
)

// Color converts "#RRGGBB" to a drawing color.
func Color(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

// RenderPie writes a pie chart of slices as SVG. Slices without a positive
// sum render a placeholder instead.
func RenderPie(w io.Writer, slices []Slice) error {
	if !Plottable(slices) {
		return Placeholder(w, PieSize, PieSize, "No data to chart")
	}

	values := make([]chart.Value, 0, len(slices))
	palette := slicePalette{ColorPalette: chart.DefaultColorPalette}
	for _, s := range slices {
		v, _ := s.Value.Float64()
		if v <= 0 {
			continue
		}
		palette.colors = append(palette.colors, Color(s.Color))
		values = append(values, chart.Value{
			Value: v,
			Label: s.Name,
			Style: chart.Style{
				FillColor:   Color(s.Color),
				FontColor:   drawing.ColorWhite,
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		})
	}

	pie := chart.PieChart{
		Width:        PieSize,
		Height:       PieSize,
		Values:       values,
		ColorPalette: palette,
	}
	if err := pie.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}

// slicePalette colors the i-th plotted slice. go-chart draws a lone value
// as a full circle styled from the palette, not from the value's style.
type slicePalette struct {
	chart.ColorPalette
	colors []drawing.Color
}

func (p slicePalette) GetSeriesColor(index int) drawing.Color {
	if index < len(p.colors) {
		return p.colors[index]
	}
	return p.ColorPalette.GetSeriesColor(index)
}

// RenderLine writes the category-wise expenses chart as SVG.
func RenderLine(w io.Writer, series []Series) error {
	if !hasPoints(series) {
		return Placeholder(w, LineWidth, LineHeight, "No expense history")
	}

	plotted := make([]chart.Series, 0, len(series))
	for _, s := range series {
		xs, ys := s.Dates, s.Values
		// a single point has no x range, so widen it to a flat segment
		if len(xs) == 1 {
			xs = []time.Time{xs[0], xs[0].AddDate(0, 0, 1)}
			ys = []float64{ys[0], ys[0]}
		}
		plotted = append(plotted, chart.TimeSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: Color(s.Color),
				StrokeWidth: 2,
				DotColor:    Color(s.Color),
				DotWidth:    3,
			},
		})
	}

	ch := chart.Chart{
		Width:      LineWidth,
		Height:     LineHeight,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 12, Bottom: 12}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
			GridMajorStyle: chart.Style{StrokeColor: drawing.ColorFromHex("e5e7eb"), StrokeWidth: 1},
		},
		YAxis: chart.YAxis{
			Name:           "₹",
			GridMajorStyle: chart.Style{StrokeColor: drawing.ColorFromHex("e5e7eb"), StrokeWidth: 1},
		},
		Series: plotted,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render line chart: %w", err)
	}
	return nil
}

// Placeholder writes a blank SVG carrying msg.
func Placeholder(w io.Writer, width, height int, msg string) error {
	_, err := fmt.Fprintf(w, placeholder, width, height, html.EscapeString(msg))
	return err
}

func hasPoints(series []Series) bool {
	for _, s := range series {
		if len(s.Dates) > 0 && len(s.Dates) == len(s.Values) {
			return true
		}
	}
	return false
}
