package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
)

const (
	svgBackground = "#0a0a0a"
	svgForeground = "#7D56F4"
)

// CanvasToSVG renders every set Braille dot of c as a circle. scale is the
// pixel pitch in SVG units.
func CanvasToSVG(c *Canvas, scale float64) string {
	if c == nil || scale <= 0 {
		return ""
	}
	width := float64(c.Width) * scale * 2
	height := float64(c.Height) * scale * 4
	r := scale * 0.4

	var sb strings.Builder
	svgHeader(&sb, width, height)
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", svgForeground)
	for y := 0; y < c.Height*4; y++ {
		for x := 0; x < c.Width*2; x++ {
			if !c.IsSet(x, y) {
				continue
			}
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
				(float64(x)+0.5)*scale, (float64(y)+0.5)*scale, r)
		}
	}
	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// SeriesToSVG draws values against their index as a polyline. Non-finite
// values break the line.
func SeriesToSVG(values []float64, width, height int, stroke string) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = min(lo, v), max(hi, v)
	}
	if len(values) < 2 || lo > hi {
		return ""
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= span * 0.1
	span *= 1.2

	var sb strings.Builder
	svgHeader(&sb, float64(width), float64(height))
	fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"", stroke)
	pen := false
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			pen = false
			continue
		}
		x := float64(i) / float64(len(values)-1) * float64(width)
		y := float64(height) - (v-lo)/span*float64(height)
		if pen {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " M%.1f,%.1f", x, y)
			pen = true
		}
	}
	sb.WriteString("\"/>\n</svg>\n")
	return sb.String()
}

func svgHeader(sb *strings.Builder, width, height float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, svgBackground)
}

// WriteSVG writes doc to w, failing on an empty document.
func WriteSVG(w io.Writer, doc string) error {
	if doc == "" {
		return fmt.Errorf("tui: nothing to render")
	}
	_, err := io.WriteString(w, doc)
	return err
}
