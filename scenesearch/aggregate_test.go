package scenesearch

import (
	"math/rand"
	"testing"

	"go.viam.com/test"
)

func randomRuns(n int, r *rand.Rand) []runResult {
	runs := make([]runResult, n)
	for i := range runs {
		params := make([]float64, NumSceneParams)
		for d := range params {
			params[d] = r.NormFloat64() * 10
		}
		runs[i] = runResult{Params: params, Objective: 1 + r.Float64()*4}
	}
	return runs
}

func TestAggregateRunsCommutative(t *testing.T) {
	//nolint:gosec
	r := rand.New(rand.NewSource(17))
	runs := randomRuns(10, r)

	mean, sd := aggregateRuns(runs)

	shuffled := append([]runResult(nil), runs...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	meanShuffled, sdShuffled := aggregateRuns(shuffled)

	for d := 0; d < NumSceneParams; d++ {
		test.That(t, meanShuffled[d], test.ShouldAlmostEqual, mean[d], 1e-9)
		test.That(t, sdShuffled[d], test.ShouldAlmostEqual, sd[d], 1e-9)
	}
}

func TestAggregateRunsWeighting(t *testing.T) {
	good := runResult{Params: []float64{0, 0, 100, 1, 1}, Objective: 1}
	bad := runResult{Params: []float64{10, 10, 200, 1.2, 1.2}, Objective: 100}

	mean, _ := aggregateRuns([]runResult{good, bad})
	// The low-objective run dominates the weighted mean.
	test.That(t, mean[2], test.ShouldBeLessThan, 102)
	test.That(t, mean[2], test.ShouldBeGreaterThanOrEqualTo, 100)
}

func TestBestRun(t *testing.T) {
	runs := []runResult{{Objective: 3}, {Objective: 1}, {Objective: 2}}
	test.That(t, bestRun(runs), test.ShouldEqual, 1)
}

func TestTightenBounds(t *testing.T) {
	hard := DefaultHardBounds()
	mean := []float64{0, 0, 110, 1, 1}
	sd := []float64{2, 2, 5, 0.02, 0.02}

	tightened := TightenBounds(hard, mean, sd)
	test.That(t, tightened.Lower[2], test.ShouldEqual, 105.0)
	test.That(t, tightened.Upper[2], test.ShouldEqual, 115.0)

	// A mean near a hard bound clips rather than escaping it.
	meanEdge := []float64{-19.5, 0, 65, 1, 1}
	tightened = TightenBounds(hard, meanEdge, sd)
	test.That(t, tightened.Lower[0], test.ShouldEqual, hard.Lower[0])

	// Degenerate spread collapses to the mean.
	zeroSD := []float64{0, 0, 0, 0, 0}
	tightened = TightenBounds(hard, mean, zeroSD)
	test.That(t, tightened.Lower[2], test.ShouldEqual, 110.0)
	test.That(t, tightened.Upper[2], test.ShouldEqual, 110.0)
}
