package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/langevin/internal/analysis"
	"github.com/san-kum/langevin/internal/dynamo"
)

const (
	background = "#0a0a0a"
	axisColor  = "#888899"
	wallColor  = "#ff4444"
)

type Point struct {
	X, Y float64
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func (b bounds) project(p Point, width, height int) (float64, float64) {
	x := (p.X - b.minX) / (b.maxX - b.minX) * float64(width)
	y := float64(height) - (p.Y-b.minY)/(b.maxY-b.minY)*float64(height)
	return x, y
}

func pad(b bounds) bounds {
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * 0.1
	b.maxX += rangeX * 0.1
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
	return b
}

func boundsOf(points []Point) bounds {
	b := bounds{points[0].X, points[0].X, points[0].Y, points[0].Y}
	for _, p := range points {
		b.minX = min(b.minX, p.X)
		b.maxX = max(b.maxX, p.X)
		b.minY = min(b.minY, p.Y)
		b.maxY = max(b.maxY, p.Y)
	}
	return b
}

func writePath(sb *strings.Builder, points []Point, b bounds, width, height int, stroke string) {
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke)
	for i, p := range points {
		x, y := b.project(p, width, height)
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}

// PathToSVG draws a polyline through points, scaled to fit.
func PathToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	b := pad(boundsOf(points))

	var sb strings.Builder
	header(&sb, width, height)
	writePath(&sb, points, b, width, height, strokeColor)
	sb.WriteString("</svg>")
	return sb.String()
}

// TrajectoryToSVG draws position against time with both walls as
// dashed horizontal lines.
func TrajectoryToSVG(traj *dynamo.Trajectory, wall float64, width, height int, strokeColor string) string {
	if traj == nil || traj.Len() < 2 {
		return ""
	}

	points := make([]Point, traj.Len())
	for i := range points {
		points[i] = Point{X: traj.Times[i], Y: traj.Positions[i]}
	}
	b := boundsOf(points)
	b.minY = min(b.minY, 0)
	b.maxY = max(b.maxY, wall)
	b = pad(b)

	var sb strings.Builder
	header(&sb, width, height)
	for _, w := range []float64{0, wall} {
		_, y := b.project(Point{X: b.minX, Y: w}, width, height)
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="4 4"/>
`, y, width, y, wallColor)
	}
	writePath(&sb, points, b, width, height, strokeColor)
	sb.WriteString("</svg>")
	return sb.String()
}

// HistogramToSVG draws one bar per bin, labelled "Time" along the x axis
// and "Frequency" along the y axis.
func HistogramToSVG(h analysis.Histogram, width, height int, fill string) string {
	if h.Bins() == 0 {
		return ""
	}

	const margin = 40
	plotW := float64(width - 2*margin)
	plotH := float64(height - 2*margin)
	lo, hi := h.Edges[0], h.Edges[h.Bins()]
	peak := float64(h.MaxCount())
	if peak == 0 {
		peak = 1
	}

	var sb strings.Builder
	header(&sb, width, height)
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", fill)
	for i, c := range h.Counts {
		x0 := margin + (h.Edges[i]-lo)/(hi-lo)*plotW
		x1 := margin + (h.Edges[i+1]-lo)/(hi-lo)*plotW
		barH := float64(c) / peak * plotH
		fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f"/>
`, x0, float64(margin)+plotH-barH, x1-x0, barH)
	}
	sb.WriteString("</g>\n")

	baseY := float64(margin) + plotH
	fmt.Fprintf(&sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s"/>
<line x1="%d" y1="%d" x2="%d" y2="%.1f" stroke="%s"/>
`, margin, baseY, width-margin, baseY, axisColor, margin, margin, margin, baseY, axisColor)
	fmt.Fprintf(&sb, `<text x="%d" y="%d" fill="%s" font-family="monospace" font-size="12" text-anchor="middle">Time</text>
<text x="12" y="%d" fill="%s" font-family="monospace" font-size="12" text-anchor="middle" transform="rotate(-90 12 %d)">Frequency</text>
`, width/2, height-10, axisColor, height/2, axisColor, height/2)
	fmt.Fprintf(&sb, `<text x="%d" y="%.1f" fill="%s" font-family="monospace" font-size="10">%.4g</text>
<text x="%d" y="%.1f" fill="%s" font-family="monospace" font-size="10" text-anchor="end">%.4g</text>
`, margin, baseY+14, axisColor, lo, width-margin, baseY+14, axisColor, hi)
	sb.WriteString("</svg>")
	return sb.String()
}

func WriteFile(path, svg string) error {
	if svg == "" {
		return fmt.Errorf("nothing to draw for %s", path)
	}
	return os.WriteFile(path, []byte(svg), 0644)
}
