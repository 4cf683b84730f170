package analysis

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// MaxBins caps the automatic bin count so that a few far outliers cannot
// explode the histogram.
const MaxBins = 1000

// Histogram holds len(Counts)+1 edges. Bin i covers [Edges[i], Edges[i+1]);
// the last bin is closed on the right.
type Histogram struct {
	Edges  []float64
	Counts []int
}

func (h Histogram) Bins() int { return len(h.Counts) }

func (h Histogram) Total() int {
	n := 0
	for _, c := range h.Counts {
		n += c
	}
	return n
}

func (h Histogram) Centers() []float64 {
	c := make([]float64, len(h.Counts))
	for i := range c {
		c[i] = 0.5 * (h.Edges[i] + h.Edges[i+1])
	}
	return c
}

// MaxCount returns the height of the tallest bin.
func (h Histogram) MaxCount() int {
	m := 0
	for _, c := range h.Counts {
		m = max(m, c)
	}
	return m
}

// AutoHistogram bins samples over their observed range. An empty input
// yields an empty histogram; a zero-range input yields one unit-wide bin
// centred on the common value.
func AutoHistogram(samples []float64) Histogram {
	n := len(samples)
	if n == 0 {
		return Histogram{}
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	lo, hi := sorted[0], sorted[n-1]

	if hi == lo {
		return Histogram{Edges: []float64{lo - 0.5, lo + 0.5}, Counts: []int{n}}
	}

	return Bin(sorted, lo, hi, AutoBinCount(sorted))
}

// AutoBinCount picks the number of bins for sorted (ascending) samples.
func AutoBinCount(sorted []float64) int {
	n := len(sorted)
	if n < 2 {
		return 1
	}
	span := sorted[n-1] - sorted[0]
	if span <= 0 {
		return 1
	}

	width := span / (math.Log2(float64(n)) + 1)

	iqr := stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	if fd := 2 * iqr / math.Cbrt(float64(n)); fd > 0 {
		width = math.Min(width, fd)
	}

	bins := int(math.Ceil(span / width))
	return min(max(bins, 1), MaxBins)
}

// Bin counts samples into bins equal-width bins spanning [lo, hi]. Values
// outside the range are ignored.
func Bin(samples []float64, lo, hi float64, bins int) Histogram {
	h := Histogram{
		Edges:  make([]float64, bins+1),
		Counts: make([]int, bins),
	}
	width := (hi - lo) / float64(bins)
	for i := range h.Edges {
		h.Edges[i] = lo + float64(i)*width
	}
	h.Edges[bins] = hi

	for _, x := range samples {
		if x < lo || x > hi {
			continue
		}
		idx := int((x - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		h.Counts[idx]++
	}
	return h
}
