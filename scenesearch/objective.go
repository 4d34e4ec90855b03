package scenesearch

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/optimize"

	"github.com/gazelab/eyescene/eyemodel"
	"github.com/gazelab/eyescene/projection"
	"github.com/gazelab/eyescene/raytrace"
	eutils "github.com/gazelab/eyescene/utils"
)

const (
	// outOfBoundsPenalty steers the simplex back inside the hard bounds
	// without ever producing a non-finite objective.
	outOfBoundsPenalty = 1e3
	searchEvalBudget   = 2000
	searchConvergeIter = 50
	searchConvergeTol  = 1e-10
)

// sceneObjective owns the scratch state of one multi-start run. Each run
// constructs its own copy, so parallel runs never alias the candidate
// geometry or the per-ellipse working arrays.
type sceneObjective struct {
	base       eyemodel.SceneGeometry
	optics     *raytrace.OpticsModel
	pass       *FitPass
	indices    []int
	weights    []float64
	poseBounds eyemodel.PoseBounds
	hard       ParamBounds

	// working arrays, reused across evaluations
	centerDists []float64
	shapeErrs   []float64
	areaErrs    []float64
	clamped     []float64
}

func newSceneObjective(
	base eyemodel.SceneGeometry,
	optics *raytrace.OpticsModel,
	pass *FitPass,
	indices []int,
	weights []float64,
	poseBounds eyemodel.PoseBounds,
	hard ParamBounds,
) *sceneObjective {
	return &sceneObjective{
		base:        base,
		optics:      optics,
		pass:        pass,
		indices:     indices,
		weights:     weights,
		poseBounds:  poseBounds,
		hard:        hard,
		centerDists: make([]float64, len(indices)),
		shapeErrs:   make([]float64, len(indices)),
		areaErrs:    make([]float64, len(indices)),
		clamped:     make([]float64, NumSceneParams),
	}
}

// value evaluates the scene objective at a candidate parameter vector:
// the root-mean-square over the selected ellipses of the error-weighted
// product (shapeError+1)*(areaError+1) from the inverse projection. The
// +1 offsets keep the objective well conditioned near zero error. The
// result is always finite.
func (o *sceneObjective) value(params []float64) float64 {
	copy(o.clamped, params)
	o.hard.Clamp(o.clamped)
	penalty := 0.0
	for d := 0; d < NumSceneParams; d++ {
		penalty += outOfBoundsPenalty * eutils.Square(params[d]-o.clamped[d])
	}

	candidate := o.base.WithParams(o.clamped)

	sumSq := 0.0
	for k, idx := range o.indices {
		res, err := projection.Inverse(o.pass.Ellipses[idx], candidate, o.optics, o.poseBounds)
		if err != nil {
			o.centerDists[k] = math.MaxFloat64
			o.shapeErrs[k] = math.MaxFloat64
			o.areaErrs[k] = math.MaxFloat64
		} else {
			o.centerDists[k] = res.CenterDistance
			o.shapeErrs[k] = res.ShapeError
			o.areaErrs[k] = res.AreaError
		}
		term := o.weights[k] * (eutils.ClampFinite(o.shapeErrs[k]) + 1) * (eutils.ClampFinite(o.areaErrs[k]) + 1)
		sumSq += eutils.ClampFinite(eutils.Square(term))
	}
	return eutils.ClampFinite(math.Sqrt(sumSq/float64(len(o.indices))) + penalty)
}

// runResult is the outcome of one multi-start run.
type runResult struct {
	Params    []float64
	Objective float64
	// residuals of the final candidate, parallel to the selection
	CenterDistances []float64
	ShapeErrors     []float64
	AreaErrors      []float64
}

// search runs one bounded derivative-free minimization from a starting
// point drawn uniformly from the plausible box. Dimensions whose hard
// bounds have zero width are pinned and excluded from the simplex. If
// every dimension is pinned, the objective is evaluated once at the
// fixed point.
func (o *sceneObjective) search(plausible ParamBounds, seed int64) runResult {
	randSrc := rand.New(rand.NewSource(seed))

	start := make([]float64, NumSceneParams)
	free := make([]int, 0, NumSceneParams)
	for d := 0; d < NumSceneParams; d++ {
		if o.hard.Lower[d] == o.hard.Upper[d] {
			start[d] = o.hard.Lower[d]
			continue
		}
		start[d] = eutils.SampleRandomFloatRange(plausible.Lower[d], plausible.Upper[d], randSrc)
		free = append(free, d)
	}

	full := make([]float64, NumSceneParams)
	expand := func(x []float64) []float64 {
		copy(full, start)
		for i, d := range free {
			full[d] = x[i]
		}
		return full
	}

	if len(free) == 0 {
		return o.finish(start)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 { return o.value(expand(x)) },
	}
	settings := &optimize.Settings{
		FuncEvaluations: searchEvalBudget,
		Converger: &optimize.FunctionConverge{
			Absolute:   searchConvergeTol,
			Relative:   searchConvergeTol,
			Iterations: searchConvergeIter,
		},
	}

	x0 := make([]float64, len(free))
	for i, d := range free {
		x0[i] = start[d]
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})

	solution := start
	if result != nil && len(result.X) == len(free) {
		solution = append([]float64(nil), expand(result.X)...)
		o.hard.Clamp(solution)
	}
	_ = err // a stop on the evaluation budget still yields a usable point

	return o.finish(solution)
}

// finish re-evaluates the objective at the accepted vector so the stored
// residual arrays describe exactly the reported point.
func (o *sceneObjective) finish(params []float64) runResult {
	objective := o.value(params)
	return runResult{
		Params:          append([]float64(nil), params...),
		Objective:       objective,
		CenterDistances: append([]float64(nil), o.centerDists...),
		ShapeErrors:     append([]float64(nil), o.shapeErrs...),
		AreaErrors:      append([]float64(nil), o.areaErrs...),
	}
}
