// Package scenesearch estimates the scene geometry that best explains a
// set of observed pupil ellipses. A spatially diverse, high-confidence
// subset of the observations is selected, and a multi-start constrained
// search over the 5 scene parameters (camera translation and the coupled
// rotation-center scalings) is run against the inverse projection,
// optionally refined with ray tracing.
package scenesearch

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/gazelab/eyescene/ellipse"
)

// FitLabel selects which upstream ellipse-fitting pass of a PupilData
// record to read.
type FitLabel int

const (
	// FitInitial is the unconstrained per-frame boundary fit.
	FitInitial FitLabel = iota
	// FitSceneConstrained is the fit constrained by a previously
	// estimated scene geometry.
	FitSceneConstrained
	// FitRadiusSmoothed is the fit with the pupil radius smoothed over
	// time.
	FitRadiusSmoothed
)

func (l FitLabel) String() string {
	switch l {
	case FitInitial:
		return "initial"
	case FitSceneConstrained:
		return "sceneConstrained"
	case FitRadiusSmoothed:
		return "radiusSmoothed"
	default:
		return "unknown"
	}
}

// ParseFitLabel converts the string form of a fit label.
func ParseFitLabel(s string) (FitLabel, error) {
	switch s {
	case "initial":
		return FitInitial, nil
	case "sceneConstrained":
		return FitSceneConstrained, nil
	case "radiusSmoothed":
		return FitRadiusSmoothed, nil
	default:
		return 0, errors.Errorf("unknown fit label %q", s)
	}
}

// FitPass is one upstream fitting pass over a video: per-frame
// transparent ellipses with the parallel root-mean-square boundary-fit
// error of each. Frames with no detectable boundary carry NaN ellipses
// and NaN errors.
type FitPass struct {
	Ellipses []ellipse.Transparent `json:"ellipses"`
	FitRMSE  []float64             `json:"fit_rmse"`
}

// CheckValid fails fast on malformed input before any search begins.
func (p *FitPass) CheckValid() error {
	if p == nil {
		return errors.New("fit pass is nil")
	}
	if len(p.Ellipses) == 0 {
		return errors.New("fit pass holds no ellipses")
	}
	if len(p.Ellipses) != len(p.FitRMSE) {
		return errors.Errorf("fit pass has %d ellipses but %d fit errors",
			len(p.Ellipses), len(p.FitRMSE))
	}
	return nil
}

// ConcatPasses concatenates observation sets from one or more sources
// into a single ordered pass.
func ConcatPasses(passes ...*FitPass) *FitPass {
	out := &FitPass{}
	for _, p := range passes {
		if p == nil {
			continue
		}
		out.Ellipses = append(out.Ellipses, p.Ellipses...)
		out.FitRMSE = append(out.FitRMSE, p.FitRMSE...)
	}
	return out
}

// PupilData is the multi-pass output of the upstream pupil fitter for
// one video.
type PupilData struct {
	Initial          *FitPass `json:"initial,omitempty"`
	SceneConstrained *FitPass `json:"scene_constrained,omitempty"`
	RadiusSmoothed   *FitPass `json:"radius_smoothed,omitempty"`
}

// Pass returns the fitting pass selected by the label.
func (d *PupilData) Pass(label FitLabel) (*FitPass, error) {
	if d == nil {
		return nil, errors.New("pupil data is nil")
	}
	var p *FitPass
	switch label {
	case FitInitial:
		p = d.Initial
	case FitSceneConstrained:
		p = d.SceneConstrained
	case FitRadiusSmoothed:
		p = d.RadiusSmoothed
	default:
		return nil, errors.Errorf("unknown fit label %d", label)
	}
	if p == nil {
		return nil, errors.Errorf("pupil data has no %q pass", label)
	}
	return p, nil
}

// NewPupilDataFromJSONFile reads a PupilData record from a JSON file.
func NewPupilDataFromJSONFile(jsonPath string) (*PupilData, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	data := &PupilData{}
	if err := json.Unmarshal(byteValue, data); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return data, nil
}
