package projection

import (
	"math"

	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/gazelab/eyescene/ellipse"
	"github.com/gazelab/eyescene/eyemodel"
	"github.com/gazelab/eyescene/raytrace"
	eutils "github.com/gazelab/eyescene/utils"
)

// ExitFlag classifies the outcome of an inverse projection.
type ExitFlag int

const (
	// FlagNoFit marks an observed ellipse with NaN center: no upstream
	// boundary fit, the optimizer is never invoked.
	FlagNoFit ExitFlag = iota
	// FlagConverged marks a pose meeting the shape and area constraints
	// within the scene's constraint tolerance.
	FlagConverged
	// FlagLocalMinimum marks an optimizer stop with the constraints
	// still unmet, the signature of a local rather than global optimum.
	FlagLocalMinimum
	// FlagFailed marks an optimizer error; the best point seen is still
	// reported.
	FlagFailed
)

// InverseResult is the recovered pose and its residual errors against
// the observed ellipse.
type InverseResult struct {
	Pose           eyemodel.EyePose
	Predicted      ellipse.Transparent
	CenterDistance float64
	ShapeError     float64
	AreaError      float64
	Flag           ExitFlag
}

const (
	inverseMaxEval   = 2001
	inverseXTol      = 1e-9
	perturbAzimuth   = 1.0  // degrees
	perturbRadius    = 0.05 // mm
	constraintBuffer = 1e-7
)

// inverseEval owns the per-call scratch state of one inverse projection:
// the observation, the candidate geometry, and the last forward
// prediction. Each call constructs its own, so concurrent searches never
// alias working state.
type inverseEval struct {
	observed ellipse.Transparent
	scene    eyemodel.SceneGeometry
	optics   *raytrace.OpticsModel

	lastX         [3]float64
	lastPredicted ellipse.Transparent
}

func (ev *inverseEval) predict(x []float64) ellipse.Transparent {
	if x[0] == ev.lastX[0] && x[1] == ev.lastX[1] && x[2] == ev.lastX[2] {
		return ev.lastPredicted
	}
	pose := eyemodel.EyePose{Azimuth: x[0], Elevation: x[1], Torsion: 0, PupilRadius: x[2]}
	predicted := Forward(pose, ev.scene, ev.optics)
	ev.lastX = [3]float64{x[0], x[1], x[2]}
	ev.lastPredicted = predicted
	return predicted
}

func (ev *inverseEval) centerDistance(x, _ []float64) float64 {
	return eutils.ClampFinite(ellipse.CenterDistance(ev.predict(x), ev.observed))
}

func (ev *inverseEval) shapeConstraint(x, _ []float64) float64 {
	return eutils.ClampFinite(ellipse.ShapeDistance(ev.predict(x), ev.observed) - ev.scene.ConstraintTolerance)
}

func (ev *inverseEval) areaConstraint(x, _ []float64) float64 {
	return eutils.ClampFinite(ellipse.AreaDistance(ev.predict(x), ev.observed) - ev.scene.ConstraintTolerance)
}

// Inverse searches for the eye pose whose forward projection reproduces
// the observed ellipse under the given scene geometry. The center
// distance is minimized subject to inequality constraints holding the
// predicted shape and area within the scene's constraint tolerance;
// only the correct pose satisfies both at once. If the optimizer stops
// with the constraints unmet, one re-run from a perturbed start is
// attempted before the result is accepted. Torsion is pinned to zero.
func Inverse(
	observed ellipse.Transparent,
	scene eyemodel.SceneGeometry,
	optics *raytrace.OpticsModel,
	bounds eyemodel.PoseBounds,
) (InverseResult, error) {
	if observed.IsNaN() {
		nan := math.NaN()
		return InverseResult{
			Pose:           eyemodel.NaNEyePose(),
			Predicted:      ellipse.NaNTransparent(),
			CenterDistance: nan,
			ShapeError:     nan,
			AreaError:      nan,
			Flag:           FlagNoFit,
		}, nil
	}

	x0 := seedPose(observed, scene, bounds)
	result, err := solveInverse(observed, scene, optics, bounds, x0)
	if err != nil {
		return result, err
	}

	if result.Flag == FlagLocalMinimum {
		// A stop short of the constraints often means the search
		// stalled on a flat or multi-modal region near the image
		// boundary; one nudge usually escapes it.
		perturbed := []float64{
			eutils.Clamp(result.Pose.Azimuth+perturbAzimuth, bounds.AzimuthMin, bounds.AzimuthMax),
			eutils.Clamp(result.Pose.Elevation+perturbAzimuth, bounds.ElevationMin, bounds.ElevationMax),
			eutils.Clamp(result.Pose.PupilRadius+perturbRadius, bounds.PupilRadiusMin, bounds.PupilRadiusMax),
		}
		retry, retryErr := solveInverse(observed, scene, optics, bounds, perturbed)
		if retryErr == nil && betterInverse(retry, result) {
			result = retry
		}
	}
	return result, nil
}

func solveInverse(
	observed ellipse.Transparent,
	scene eyemodel.SceneGeometry,
	optics *raytrace.OpticsModel,
	bounds eyemodel.PoseBounds,
	x0 []float64,
) (InverseResult, error) {
	ev := &inverseEval{observed: observed, scene: scene, optics: optics, lastX: [3]float64{math.NaN(), 0, 0}}

	opt, err := nlopt.NewNLopt(nlopt.LN_COBYLA, 3)
	if err != nil {
		return InverseResult{}, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	err = multierr.Combine(
		opt.SetLowerBounds([]float64{bounds.AzimuthMin, bounds.ElevationMin, bounds.PupilRadiusMin}),
		opt.SetUpperBounds([]float64{bounds.AzimuthMax, bounds.ElevationMax, bounds.PupilRadiusMax}),
		opt.SetMinObjective(ev.centerDistance),
		opt.AddInequalityConstraint(ev.shapeConstraint, constraintBuffer),
		opt.AddInequalityConstraint(ev.areaConstraint, constraintBuffer),
		opt.SetXtolAbs1(inverseXTol),
		opt.SetMaxEval(inverseMaxEval),
	)
	if err != nil {
		return InverseResult{}, errors.Wrap(err, "nlopt configuration error")
	}

	solution, _, optErr := opt.Optimize(x0)
	if solution == nil {
		solution = x0
	}

	pose := eyemodel.EyePose{Azimuth: solution[0], Elevation: solution[1], Torsion: 0, PupilRadius: solution[2]}
	predicted := Forward(pose, scene, optics)
	result := InverseResult{
		Pose:           pose,
		Predicted:      predicted,
		CenterDistance: ellipse.CenterDistance(predicted, observed),
		ShapeError:     ellipse.ShapeDistance(predicted, observed),
		AreaError:      ellipse.AreaDistance(predicted, observed),
	}
	switch {
	case optErr != nil:
		result.Flag = FlagFailed
	case result.ShapeError <= scene.ConstraintTolerance+constraintBuffer &&
		result.AreaError <= scene.ConstraintTolerance+constraintBuffer:
		result.Flag = FlagConverged
	default:
		result.Flag = FlagLocalMinimum
	}
	return result, nil
}

// seedPose derives a starting pose from the observed ellipse alone: the
// rotation whose arm carries the pupil center to the observed center,
// and the radius of a circle with the observed area.
func seedPose(observed ellipse.Transparent, scene eyemodel.SceneGeometry, bounds eyemodel.PoseBounds) []float64 {
	eye := scene.Eye
	aziArm := eye.RotationCenters.Azimuth - eye.PupilDepth
	eleArm := eye.RotationCenters.Elevation - eye.PupilDepth

	azi := eutils.RadToDeg(math.Asin(eutils.Clamp(
		(observed.CenterX-scene.CameraTranslation.X)/aziArm, -0.99, 0.99)))
	ele := eutils.RadToDeg(math.Asin(eutils.Clamp(
		(observed.CenterY-scene.CameraTranslation.Y)/eleArm, -0.99, 0.99)))
	radius := math.Sqrt(observed.Area / math.Pi)

	return []float64{
		eutils.Clamp(azi, bounds.AzimuthMin, bounds.AzimuthMax),
		eutils.Clamp(ele, bounds.ElevationMin, bounds.ElevationMax),
		eutils.Clamp(radius, bounds.PupilRadiusMin, bounds.PupilRadiusMax),
	}
}

// betterInverse prefers constraint-satisfying results, then lower center
// distance.
func betterInverse(a, b InverseResult) bool {
	if (a.Flag == FlagConverged) != (b.Flag == FlagConverged) {
		return a.Flag == FlagConverged
	}
	return a.CenterDistance < b.CenterDistance
}
