package tui

import (
	"github.com/guptarohit/asciigraph"
)

// PlotSeries draws one series. Fewer than two points yield an empty string.
func PlotSeries(data []float64, width, height int, caption string) string {
	if len(data) < 2 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// PlotEnergies overlays total (default colour), potential (blue) and kinetic
// (red) energy traces.
func PlotEnergies(total, potential, kinetic []float64, width, height int, caption string) string {
	if len(total) < 2 {
		return ""
	}
	return asciigraph.PlotMany([][]float64{total, potential, kinetic},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Default, asciigraph.Blue, asciigraph.Red),
	)
}
