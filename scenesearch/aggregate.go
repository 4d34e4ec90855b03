package scenesearch

import (
	"gonum.org/v1/gonum/stat"

	eutils "github.com/gazelab/eyescene/utils"
)

// aggregateRuns reduces a stage's multi-start results to a weighted mean
// and standard deviation per scene-parameter dimension, weighting each
// run by the inverse of its final objective value so better runs count
// more. The reduction is commutative over run order.
func aggregateRuns(runs []runResult) (mean, sd []float64) {
	weights := make([]float64, len(runs))
	for i, r := range runs {
		weights[i] = eutils.ClampFinite(1 / r.Objective)
	}

	mean = make([]float64, NumSceneParams)
	sd = make([]float64, NumSceneParams)
	values := make([]float64, len(runs))
	for d := 0; d < NumSceneParams; d++ {
		for i, r := range runs {
			values[i] = r.Params[d]
		}
		mean[d] = stat.Mean(values, weights)
		sd[d] = stat.StdDev(values, weights)
	}
	return mean, sd
}

// bestRun returns the index of the run with the lowest objective.
func bestRun(runs []runResult) int {
	best := 0
	for i, r := range runs {
		if r.Objective < runs[best].Objective {
			best = i
		}
	}
	return best
}
