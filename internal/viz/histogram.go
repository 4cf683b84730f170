package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/langevin/internal/analysis"
)

const (
	TimeLabel      = "Time"
	FrequencyLabel = "Frequency"
)

// RenderHistogram draws one horizontal bar per bin. Rows are time bins,
// bar length is the bin count scaled to barWidth.
func RenderHistogram(h analysis.Histogram, barWidth int) string {
	if h.Bins() == 0 {
		return Subtle.Render("no first-passage events")
	}

	labels := make([]string, h.Bins())
	labelWidth := len(TimeLabel)
	for i := range h.Counts {
		closing := ")"
		if i == h.Bins()-1 {
			closing = "]"
		}
		labels[i] = fmt.Sprintf("[%.4g, %.4g%s", h.Edges[i], h.Edges[i+1], closing)
		labelWidth = max(labelWidth, len(labels[i]))
	}

	peak := max(h.MaxCount(), 1)
	label := lipgloss.NewStyle().Width(labelWidth).Foreground(lipgloss.Color("#888899"))

	rows := make([]string, 0, h.Bins()+1)
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
		AxisLabel.Width(labelWidth).Render(TimeLabel), "  ", AxisLabel.Render(FrequencyLabel)))
	for i, c := range h.Counts {
		n := c * barWidth / peak
		if c > 0 && n == 0 {
			n = 1
		}
		bar := Bar.Render(strings.Repeat("█", n))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			label.Render(labels[i]), "  ", bar, " ", Subtle.Render(fmt.Sprint(c))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// Summary renders the statistics block printed under a histogram.
func Summary(s analysis.Summary, trials, censored int) string {
	lines := []string{
		KeyValue("trials", fmt.Sprint(trials)),
		KeyValue("absorbed", fmt.Sprint(s.Count)),
		KeyValue("censored", fmt.Sprint(censored)),
	}
	if s.Count > 0 {
		lines = append(lines,
			KeyValue("mean", fmt.Sprintf("%.6g", s.Mean)),
			KeyValue("std", fmt.Sprintf("%.6g", s.StdDev)),
			KeyValue("median", fmt.Sprintf("%.6g", s.Median)),
			KeyValue("range", fmt.Sprintf("[%.6g, %.6g]", s.Min, s.Max)),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
