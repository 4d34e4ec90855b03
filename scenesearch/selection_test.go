package scenesearch

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"

	"github.com/gazelab/eyescene/ellipse"
)

func randomPass(n int, r *rand.Rand) *FitPass {
	pass := &FitPass{}
	for i := 0; i < n; i++ {
		pass.Ellipses = append(pass.Ellipses, ellipse.Transparent{
			CenterX: r.Float64()*320 - 160,
			CenterY: r.Float64()*240 - 120,
			Area:    10 + r.Float64()*10,
		})
		pass.FitRMSE = append(pass.FitRMSE, 0.1+r.Float64())
	}
	return pass
}

func TestSelectObservationsProperties(t *testing.T) {
	//nolint:gosec
	r := rand.New(rand.NewSource(42))
	for _, numBins := range []int{1, 2, 4, 7} {
		pass := randomPass(200, r)
		sel, err := SelectObservations(pass, numBins)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(sel.Indices), test.ShouldBeLessThanOrEqualTo, numBins*numBins)
		test.That(t, len(sel.BinEdgesX), test.ShouldEqual, numBins+1)
		test.That(t, len(sel.BinEdgesY), test.ShouldEqual, numBins+1)

		// Each selected observation has the lowest fit error among the
		// members of its bin.
		for _, i := range sel.Indices {
			e := pass.Ellipses[i]
			binX := binIndex(sel.BinEdgesX, e.CenterX)
			binY := binIndex(sel.BinEdgesY, e.CenterY)
			for j, other := range pass.Ellipses {
				if binIndex(sel.BinEdgesX, other.CenterX) == binX &&
					binIndex(sel.BinEdgesY, other.CenterY) == binY {
					test.That(t, pass.FitRMSE[i], test.ShouldBeLessThanOrEqualTo, pass.FitRMSE[j])
				}
			}
		}
	}
}

func TestSelectObservationsSkipsNaN(t *testing.T) {
	//nolint:gosec
	r := rand.New(rand.NewSource(7))
	pass := randomPass(30, r)
	pass.Ellipses[4] = ellipse.NaNTransparent()
	pass.FitRMSE[4] = math.NaN()
	pass.FitRMSE[9] = math.NaN()

	sel, err := SelectObservations(pass, 3)
	test.That(t, err, test.ShouldBeNil)
	for _, i := range sel.Indices {
		test.That(t, i, test.ShouldNotEqual, 4)
		test.That(t, i, test.ShouldNotEqual, 9)
	}
}

func TestSelectObservationsAllNaN(t *testing.T) {
	pass := &FitPass{
		Ellipses: []ellipse.Transparent{ellipse.NaNTransparent(), ellipse.NaNTransparent()},
		FitRMSE:  []float64{math.NaN(), math.NaN()},
	}
	_, err := SelectObservations(pass, 4)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSelectObservationsDegenerateCluster(t *testing.T) {
	// All centers identical: one bin is occupied, one frame selected.
	pass := &FitPass{}
	for i := 0; i < 10; i++ {
		pass.Ellipses = append(pass.Ellipses, ellipse.Transparent{CenterX: 5, CenterY: 5, Area: 10})
		pass.FitRMSE = append(pass.FitRMSE, float64(10-i))
	}
	sel, err := SelectObservations(pass, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(sel.Indices), test.ShouldEqual, 1)
	test.That(t, sel.Indices[0], test.ShouldEqual, 9)
}

func TestErrorWeightsMeanOne(t *testing.T) {
	//nolint:gosec
	r := rand.New(rand.NewSource(3))
	pass := randomPass(50, r)
	sel, err := SelectObservations(pass, 4)
	test.That(t, err, test.ShouldBeNil)

	weights := ErrorWeights(pass, sel.Indices)
	test.That(t, len(weights), test.ShouldEqual, len(sel.Indices))
	sum := 0.0
	for k, w := range weights {
		sum += w
		// Noisier fits weigh less.
		for j := range weights {
			if pass.FitRMSE[sel.Indices[k]] < pass.FitRMSE[sel.Indices[j]] {
				test.That(t, w, test.ShouldBeGreaterThan, weights[j])
			}
		}
	}
	test.That(t, sum/float64(len(weights)), test.ShouldAlmostEqual, 1, 1e-12)
}

func TestFitPassCheckValid(t *testing.T) {
	test.That(t, (&FitPass{}).CheckValid(), test.ShouldNotBeNil)

	mismatched := &FitPass{
		Ellipses: []ellipse.Transparent{{Area: 1}},
		FitRMSE:  []float64{1, 2},
	}
	test.That(t, mismatched.CheckValid(), test.ShouldNotBeNil)

	var nilPass *FitPass
	test.That(t, nilPass.CheckValid(), test.ShouldNotBeNil)
}

func TestConcatPasses(t *testing.T) {
	a := &FitPass{Ellipses: []ellipse.Transparent{{Area: 1}}, FitRMSE: []float64{0.5}}
	b := &FitPass{Ellipses: []ellipse.Transparent{{Area: 2}, {Area: 3}}, FitRMSE: []float64{0.6, 0.7}}
	combined := ConcatPasses(a, nil, b)
	test.That(t, len(combined.Ellipses), test.ShouldEqual, 3)
	test.That(t, combined.FitRMSE, test.ShouldResemble, []float64{0.5, 0.6, 0.7})
}

func TestPupilDataPass(t *testing.T) {
	data := &PupilData{Initial: &FitPass{Ellipses: []ellipse.Transparent{{Area: 1}}, FitRMSE: []float64{1}}}

	pass, err := data.Pass(FitInitial)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(pass.Ellipses), test.ShouldEqual, 1)

	_, err = data.Pass(FitRadiusSmoothed)
	test.That(t, err, test.ShouldNotBeNil)

	label, err := ParseFitLabel("radiusSmoothed")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, label, test.ShouldEqual, FitRadiusSmoothed)
	test.That(t, label.String(), test.ShouldEqual, "radiusSmoothed")

	_, err = ParseFitLabel("bogus")
	test.That(t, err, test.ShouldNotBeNil)
}
