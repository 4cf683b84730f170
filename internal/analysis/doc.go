// Package analysis provides the statistics built on ensemble samples.
//
// The package includes:
//
//   - [AutoHistogram]: frequency histogram with automatically chosen bins
//   - [Summarize]: count, mean, spread and quantiles of a sample set
//
// # Binning
//
// Bin widths follow the usual "auto" rule: the smaller of the Sturges and
// Freedman-Diaconis widths, falling back to Sturges when the interquartile
// range is zero:
//
//	h := analysis.AutoHistogram(result.Samples)
//	for i, c := range h.Counts {
//	    fmt.Printf("[%g, %g): %d\n", h.Edges[i], h.Edges[i+1], c)
//	}
package analysis
