package scenesearch

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/gazelab/eyescene/eyemodel"
	"github.com/gazelab/eyescene/raytrace"
	eutils "github.com/gazelab/eyescene/utils"
)

// State is the phase of an estimation job. A job runs each phase once
// and terminates in StateDone or StateFailed; a failed job is not
// retried, the caller re-invokes.
type State int

const (
	StateInit State = iota
	StateSelect
	StateSearchNoRayTrace
	StateSearchRayTrace
	StateAggregate
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSelect:
		return "SELECT_ELLIPSES"
	case StateSearchNoRayTrace:
		return "SEARCH_NO_RAYTRACE"
	case StateSearchRayTrace:
		return "SEARCH_WITH_RAYTRACE"
	case StateAggregate:
		return "AGGREGATE"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Estimator runs one scene estimation job over a batch of observations.
type Estimator struct {
	opts   SearchOptions
	logger golog.Logger

	state State
	diag  *Diagnostics
}

// NewEstimator validates the options and prepares a job.
func NewEstimator(opts SearchOptions, logger golog.Logger) (*Estimator, error) {
	if err := opts.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "invalid search options")
	}
	return &Estimator{opts: opts, logger: logger, state: StateInit}, nil
}

// State reports the phase the job last reached.
func (e *Estimator) State() State {
	return e.state
}

// Diagnostics returns the payload for external plotting after a
// completed job, or nil before one.
func (e *Estimator) Diagnostics() *Diagnostics {
	return e.diag
}

// Estimate concatenates the given observation sets and searches for the
// scene geometry that best explains them. On success the returned
// geometry carries a metadata record of how it was derived; on failure
// no partial geometry is produced.
func (e *Estimator) Estimate(ctx context.Context, passes ...*FitPass) (*eyemodel.SceneGeometry, error) {
	geometry, err := e.estimate(ctx, passes...)
	if err != nil {
		e.state = StateFailed
		return nil, err
	}
	e.state = StateDone
	return geometry, nil
}

func (e *Estimator) estimate(ctx context.Context, passes ...*FitPass) (*eyemodel.SceneGeometry, error) {
	opts := e.opts

	// INIT
	e.state = StateInit
	pass := ConcatPasses(passes...)
	if err := pass.CheckValid(); err != nil {
		return nil, err
	}
	base := eyemodel.DefaultSceneGeometry()
	if opts.InitialScene != nil {
		base = *opts.InitialScene
	}
	base.ConstraintTolerance = opts.ConstraintTolerance
	if err := base.CheckValid(); err != nil {
		return nil, err
	}
	var optics *raytrace.OpticsModel
	if opts.UseRayTrace {
		var err error
		optics, err = raytrace.NewOpticsModel(base.Eye)
		if err != nil {
			return nil, err
		}
		e.logger.Debugf("built optics model for ray-traced refinement")
	}

	// SELECT_ELLIPSES
	e.state = StateSelect
	var sel Selection
	if len(opts.SelectedIndices) > 0 {
		for _, i := range opts.SelectedIndices {
			if i < 0 || i >= len(pass.Ellipses) {
				return nil, errors.Errorf("selected index %d outside the %d observations", i, len(pass.Ellipses))
			}
			// The error weights divide by the fit error; a frame the
			// automatic selection would have filtered must be rejected
			// here too.
			if pass.Ellipses[i].IsNaN() || math.IsNaN(pass.FitRMSE[i]) || pass.FitRMSE[i] <= 0 {
				return nil, errors.Errorf("selected index %d has no usable boundary fit", i)
			}
		}
		sel = Selection{Indices: append([]int(nil), opts.SelectedIndices...)}
	} else {
		var err error
		sel, err = SelectObservations(pass, opts.NumBins)
		if err != nil {
			return nil, err
		}
	}
	weights := ErrorWeights(pass, sel.Indices)
	e.logger.Debugf("selected %d of %d observations for the scene search", len(sel.Indices), len(pass.Ellipses))

	e.diag = &Diagnostics{
		SelectedFrames: sel.Indices,
		BinEdgesX:      sel.BinEdgesX,
		BinEdgesY:      sel.BinEdgesY,
		Weights:        weights,
	}

	// SEARCH_NO_RAYTRACE
	e.state = StateSearchNoRayTrace
	runs, err := e.runStage(ctx, base, nil, pass, sel.Indices, weights, opts.PlausibleBounds, opts.NumSearches[0], opts.Seed)
	if err != nil {
		return nil, err
	}
	mean, sd := aggregateRuns(runs)
	e.diag.Stages = append(e.diag.Stages, stageDiagnostics(runs, false, mean, sd))
	e.logger.Debugf("no-ray-trace stage best objective %v", runs[bestRun(runs)].Objective)

	rayTraced := false
	if opts.UseRayTrace {
		// SEARCH_WITH_RAYTRACE
		e.state = StateSearchRayTrace
		tightened := TightenBounds(opts.HardBounds, mean, sd)
		runs, err = e.runStage(ctx, base, optics, pass, sel.Indices, weights, tightened,
			opts.NumSearches[1], opts.Seed+int64(opts.NumSearches[0]))
		if err != nil {
			return nil, err
		}
		mean, sd = aggregateRuns(runs)
		e.diag.Stages = append(e.diag.Stages, stageDiagnostics(runs, true, mean, sd))
		rayTraced = true
		e.logger.Debugf("ray-trace stage best objective %v", runs[bestRun(runs)].Objective)
	}

	// AGGREGATE
	e.state = StateAggregate
	best := bestRun(runs)
	accepted := runs[best]
	geometry := base.WithParams(accepted.Params)
	geometry.Meta = &eyemodel.SearchMeta{
		Seed:            opts.Seed,
		RayTraced:       rayTraced,
		SelectedFrames:  sel.Indices,
		BinEdgesX:       sel.BinEdgesX,
		BinEdgesY:       sel.BinEdgesY,
		RunObjectives:   e.diag.Stages[len(e.diag.Stages)-1].Objectives,
		RunParams:       e.diag.Stages[len(e.diag.Stages)-1].Params,
		ParamMean:       mean,
		ParamSD:         sd,
		BestRun:         best,
		CenterDistances: accepted.CenterDistances,
		ShapeErrors:     accepted.ShapeErrors,
		AreaErrors:      accepted.AreaErrors,
	}
	e.logger.Infof("scene search done: translation [%v %v %v], joint scale %v, differential scale %v, objective %v",
		accepted.Params[0], accepted.Params[1], accepted.Params[2],
		accepted.Params[3], accepted.Params[4], accepted.Objective)
	return &geometry, nil
}

// runStage executes the stage's independent multi-start runs, in
// parallel up to the worker cap. Each run owns its objective scratch
// state and derives its seed from the run index, so results are
// identical regardless of worker count or completion order.
func (e *Estimator) runStage(
	ctx context.Context,
	base eyemodel.SceneGeometry,
	optics *raytrace.OpticsModel,
	pass *FitPass,
	indices []int,
	weights []float64,
	plausible ParamBounds,
	numRuns int,
	seedBase int64,
) ([]runResult, error) {
	results := make([]runResult, numRuns)
	tasks := make([]eutils.SimpleFunc, numRuns)
	for i := 0; i < numRuns; i++ {
		run := i
		tasks[run] = func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			objective := newSceneObjective(base, optics, pass, indices, weights, e.opts.PoseBounds, e.opts.HardBounds)
			results[run] = objective.search(plausible, seedBase+int64(run))
			return nil
		}
	}
	if err := eutils.RunInParallel(ctx, e.opts.NumWorkers, tasks); err != nil {
		return nil, errors.Wrap(err, "scene search stage failed")
	}
	return results, nil
}
