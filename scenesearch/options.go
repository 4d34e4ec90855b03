package scenesearch

import (
	"github.com/pkg/errors"

	"github.com/gazelab/eyescene/eyemodel"
	eutils "github.com/gazelab/eyescene/utils"
)

// NumSceneParams is the dimension of the scene search vector:
// camera translation [x y z], joint rotation-center scaling,
// differential rotation-center scaling.
const NumSceneParams = 5

// Names of the scene parameter dimensions, for logs and diagnostics.
var paramNames = [NumSceneParams]string{
	"translationX", "translationY", "translationZ", "jointScale", "differentialScale",
}

// ParamBounds are per-dimension limits on the scene search vector.
type ParamBounds struct {
	Lower [NumSceneParams]float64 `json:"lower"`
	Upper [NumSceneParams]float64 `json:"upper"`
}

// Contains reports whether the vector lies within the bounds.
func (b ParamBounds) Contains(params []float64) bool {
	for d := 0; d < NumSceneParams; d++ {
		if params[d] < b.Lower[d] || params[d] > b.Upper[d] {
			return false
		}
	}
	return true
}

// Clamp limits the vector to the bounds in place.
func (b ParamBounds) Clamp(params []float64) {
	for d := 0; d < NumSceneParams; d++ {
		params[d] = eutils.Clamp(params[d], b.Lower[d], b.Upper[d])
	}
}

// Pinned reports whether every dimension has zero width, leaving nothing
// to optimize.
func (b ParamBounds) Pinned() bool {
	for d := 0; d < NumSceneParams; d++ {
		if b.Lower[d] != b.Upper[d] {
			return false
		}
	}
	return true
}

// DefaultHardBounds are the outer limits of physically credible scene
// configurations for an infra-red eye-tracking rig.
func DefaultHardBounds() ParamBounds {
	return ParamBounds{
		Lower: [NumSceneParams]float64{-20, -20, 60, 0.75, 0.7},
		Upper: [NumSceneParams]float64{20, 20, 200, 1.25, 1.3},
	}
}

// DefaultPlausibleBounds is the tighter box from which multi-start
// searches draw their starting points.
func DefaultPlausibleBounds() ParamBounds {
	return ParamBounds{
		Lower: [NumSceneParams]float64{-10, -10, 90, 0.85, 0.8},
		Upper: [NumSceneParams]float64{10, 10, 150, 1.15, 1.2},
	}
}

// TightenBounds narrows the plausible box to mean +/- sd per dimension,
// clipped to the hard bounds. Used before the ray-traced stage, once the
// no-ray-trace stage has produced a coarse answer.
func TightenBounds(hard ParamBounds, mean, sd []float64) ParamBounds {
	var out ParamBounds
	for d := 0; d < NumSceneParams; d++ {
		s := sd[d]
		if !isFinitePositive(s) {
			s = 0
		}
		out.Lower[d] = eutils.Clamp(mean[d]-s, hard.Lower[d], hard.Upper[d])
		out.Upper[d] = eutils.Clamp(mean[d]+s, hard.Lower[d], hard.Upper[d])
	}
	return out
}

func isFinitePositive(v float64) bool {
	return v > 0 && v < 1e300
}

// SearchOptions configure one scene estimation job.
type SearchOptions struct {
	// HardBounds constrain every candidate; PlausibleBounds bound the
	// randomized starting points of the multi-start runs.
	HardBounds      ParamBounds
	PlausibleBounds ParamBounds
	// PoseBounds constrain the nested eye pose search.
	PoseBounds eyemodel.PoseBounds
	// NumBins is the per-axis bin count for observation selection.
	NumBins int
	// NumSearches is the multi-start run count for the no-ray-trace and
	// with-ray-trace stages respectively.
	NumSearches [2]int
	// UseRayTrace enables the refraction model and the second stage.
	UseRayTrace bool
	// ConstraintTolerance bounds the acceptable shape/area mismatch in
	// the inverse projection.
	ConstraintTolerance float64
	// Seed derives the per-run random seeds; a fixed seed reproduces
	// the job bit for bit regardless of worker count.
	Seed int64
	// NumWorkers caps parallel runs; zero or one runs sequentially.
	NumWorkers int
	// SelectedIndices, when non-empty, bypass spatial selection and are
	// used verbatim.
	SelectedIndices []int
	// InitialScene overrides the default starting geometry.
	InitialScene *eyemodel.SceneGeometry
}

// DefaultSearchOptions returns the standard configuration: 4x4 spatial
// bins, 10 multi-start runs per stage, no ray tracing.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		HardBounds:          DefaultHardBounds(),
		PlausibleBounds:     DefaultPlausibleBounds(),
		PoseBounds:          eyemodel.DefaultPoseBounds(),
		NumBins:             DefaultNumBins,
		NumSearches:         [2]int{10, 10},
		UseRayTrace:         false,
		ConstraintTolerance: eyemodel.DefaultConstraintTolerance,
		Seed:                1,
		NumWorkers:          eutils.ParallelFactor,
	}
}

// CheckValid fails fast on incoherent configuration.
func (o *SearchOptions) CheckValid() error {
	for d := 0; d < NumSceneParams; d++ {
		if o.HardBounds.Lower[d] > o.HardBounds.Upper[d] {
			return errors.Errorf("hard bounds inverted for %s", paramNames[d])
		}
		if o.PlausibleBounds.Lower[d] < o.HardBounds.Lower[d] ||
			o.PlausibleBounds.Upper[d] > o.HardBounds.Upper[d] {
			return errors.Errorf("plausible bounds exceed hard bounds for %s", paramNames[d])
		}
	}
	if o.NumSearches[0] < 1 || (o.UseRayTrace && o.NumSearches[1] < 1) {
		return errors.New("at least one search run per stage is required")
	}
	if o.ConstraintTolerance <= 0 {
		return errors.New("constraint tolerance must be positive")
	}
	return nil
}
