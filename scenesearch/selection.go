package scenesearch

import (
	"math"

	"github.com/pkg/errors"
)

// DefaultNumBins partitions the image plane 4x4 for observation
// selection.
const DefaultNumBins = 4

// Selection is the spatially diverse subset of observations used by the
// scene search, with the bin edges that produced it for diagnostics.
type Selection struct {
	Indices   []int
	BinEdgesX []float64
	BinEdgesY []float64
}

var errNoUsableObservations = errors.New("no observations with finite centers and fit errors")

// SelectObservations partitions the ellipse centers into an NxN grid and
// keeps, within each occupied bin, the single observation with the
// lowest boundary-fit error. The result is a small, spatially diverse,
// high-confidence subset: at most numBins^2 frames, spread across the
// image plane rather than clustered at primary gaze. Frames with NaN
// ellipses or fit errors never survive selection.
func SelectObservations(pass *FitPass, numBins int) (Selection, error) {
	if err := pass.CheckValid(); err != nil {
		return Selection{}, err
	}
	if numBins < 1 {
		numBins = DefaultNumBins
	}

	usable := make([]int, 0, len(pass.Ellipses))
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i, e := range pass.Ellipses {
		if e.IsNaN() || math.IsNaN(pass.FitRMSE[i]) || pass.FitRMSE[i] <= 0 {
			continue
		}
		usable = append(usable, i)
		minX = math.Min(minX, e.CenterX)
		maxX = math.Max(maxX, e.CenterX)
		minY = math.Min(minY, e.CenterY)
		maxY = math.Max(maxY, e.CenterY)
	}
	if len(usable) == 0 {
		return Selection{}, errNoUsableObservations
	}

	edgesX := binEdges(minX, maxX, numBins)
	edgesY := binEdges(minY, maxY, numBins)

	// best observation per occupied bin
	best := make(map[int]int)
	for _, i := range usable {
		e := pass.Ellipses[i]
		bin := binIndex(edgesX, e.CenterX)*numBins + binIndex(edgesY, e.CenterY)
		if j, ok := best[bin]; !ok || pass.FitRMSE[i] < pass.FitRMSE[j] {
			best[bin] = i
		}
	}

	sel := Selection{BinEdgesX: edgesX, BinEdgesY: edgesY}
	for bin := 0; bin < numBins*numBins; bin++ {
		if i, ok := best[bin]; ok {
			sel.Indices = append(sel.Indices, i)
		}
	}
	return sel, nil
}

// ErrorWeights returns the inverse fit errors of the selected
// observations, renormalized to mean one so that the search objective
// keeps the same scale regardless of how noisy the upstream fits are.
func ErrorWeights(pass *FitPass, indices []int) []float64 {
	weights := make([]float64, len(indices))
	sum := 0.0
	for k, i := range indices {
		weights[k] = 1 / pass.FitRMSE[i]
		sum += weights[k]
	}
	mean := sum / float64(len(indices))
	for k := range weights {
		weights[k] /= mean
	}
	return weights
}

// binEdges returns numBins+1 edges spanning [lo, hi]. A degenerate span
// is widened slightly so every point lands in a bin.
func binEdges(lo, hi float64, numBins int) []float64 {
	if hi-lo < 1e-9 {
		lo -= 0.5
		hi += 0.5
	}
	edges := make([]float64, numBins+1)
	step := (hi - lo) / float64(numBins)
	for i := range edges {
		edges[i] = lo + float64(i)*step
	}
	return edges
}

// binIndex returns which bin of the edges contains v; values at the top
// edge fall into the last bin.
func binIndex(edges []float64, v float64) int {
	n := len(edges) - 1
	for i := 1; i < n; i++ {
		if v < edges[i] {
			return i - 1
		}
	}
	return n - 1
}
