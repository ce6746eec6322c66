// Package chart lays out grouped bar charts: it turns labeled numeric series
// into bar heights, a per-group width and a legend, ready for a template or JSON.
package chart

import (
	"math"
	"strconv"
)

// Series is one named sequence of values, index-aligned to the chart labels.
type Series struct {
	Name string    `json:"name"`
	Data []float64 `json:"data"`
}

// Options controls the geometry of a chart.
type Options struct {
	// Height is the pixel ceiling the largest value maps to.
	Height float64
	// TotalWidth is divided across the label groups.
	TotalWidth int
	// MinWidth is the floor for a group's width.
	MinWidth int
	// DefaultColor is used when fewer colors than series are supplied.
	DefaultColor string
}

// DefaultOptions matches the dashboard layout: 160px bars over 480px.
func DefaultOptions() Options {
	return Options{
		Height:       160,
		TotalWidth:   480,
		MinWidth:     12,
		DefaultColor: "#60a5fa",
	}
}

type Bar struct {
	Series string  `json:"series"`
	Value  float64 `json:"value"`
	Height float64 `json:"height"`
	Color  string  `json:"color"`
	Title  string  `json:"title"`
}

type Group struct {
	Label string `json:"label"`
	Bars  []Bar  `json:"bars"`
}

type LegendEntry struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Chart is a computed layout. Max is never below 1.
type Chart struct {
	Groups   []Group       `json:"groups"`
	Legend   []LegendEntry `json:"legend"`
	BarWidth int           `json:"bar_width"`
	Max      float64       `json:"max"`
	Height   float64       `json:"height"`
}

// Compute lays out series over labels. Values missing from a short series
// count as 0 and negative values draw as empty bars; no bar exceeds opts.Height.
func Compute(labels []string, series []Series, colors []string, opts Options) Chart {
	if opts.Height <= 0 || opts.TotalWidth <= 0 {
		def := DefaultOptions()
		if opts.Height <= 0 {
			opts.Height = def.Height
		}
		if opts.TotalWidth <= 0 {
			opts.TotalWidth = def.TotalWidth
		}
	}
	if opts.DefaultColor == "" {
		opts.DefaultColor = DefaultOptions().DefaultColor
	}

	peak := Max(series)
	c := Chart{
		Groups:   make([]Group, 0, len(labels)),
		Legend:   make([]LegendEntry, 0, len(series)),
		BarWidth: BarWidth(len(labels), opts.TotalWidth, opts.MinWidth),
		Max:      peak,
		Height:   opts.Height,
	}

	resolved := make([]string, len(series))
	for i, s := range series {
		resolved[i] = colorAt(colors, i, opts.DefaultColor)
		c.Legend = append(c.Legend, LegendEntry{Name: s.Name, Color: resolved[i]})
	}

	for i, label := range labels {
		g := Group{Label: label, Bars: make([]Bar, 0, len(series))}
		for si, s := range series {
			v := valueAt(s.Data, i)
			g.Bars = append(g.Bars, Bar{
				Series: s.Name,
				Value:  v,
				Height: scale(v, peak, opts.Height),
				Color:  resolved[si],
				Title:  s.Name + ": " + formatValue(v),
			})
		}
		c.Groups = append(c.Groups, g)
	}
	return c
}

// Max returns the largest value across all series, floored at 1.
func Max(series []Series) float64 {
	peak := 1.0
	for _, s := range series {
		for _, v := range s.Data {
			if !math.IsNaN(v) && v > peak {
				peak = v
			}
		}
	}
	return peak
}

// BarWidth spreads totalWidth over n groups without going under minWidth.
func BarWidth(n, totalWidth, minWidth int) int {
	if n < 1 {
		n = 1
	}
	w := totalWidth / n
	if w < minWidth {
		return minWidth
	}
	return w
}

func scale(v, peak, height float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	h := v / peak * height
	if h > height {
		return height
	}
	return h
}

func valueAt(data []float64, i int) float64 {
	if i < len(data) {
		return data[i]
	}
	return 0
}

func colorAt(colors []string, i int, fallback string) string {
	if i < len(colors) && colors[i] != "" {
		return colors[i]
	}
	return fallback
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
