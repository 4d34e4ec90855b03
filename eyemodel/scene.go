package eyemodel

import (
	"encoding/json"
	"io"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// SceneGeometry is the physical configuration relating eye pose to
// image-plane ellipses. CameraTranslation is the camera position
// relative to the corneal apex: X and Y are in-plane offsets, Z is the
// distance along the optical axis. Once a geometry is produced by the
// scene search it is frozen; candidate geometries during the search are
// value copies, never shared mutations.
type SceneGeometry struct {
	CameraTranslation   r3.Vector   `json:"camera_translation"`
	Eye                 EyeModel    `json:"eye"`
	ConstraintTolerance float64     `json:"constraint_tolerance"`
	Meta                *SearchMeta `json:"meta,omitempty"`
}

// SearchMeta records how a SceneGeometry was derived, for audit by
// downstream consumers. RunParams and RunObjectives are parallel over
// the multi-start runs of the accepted stage.
type SearchMeta struct {
	Seed            int64       `json:"seed"`
	RayTraced       bool        `json:"ray_traced"`
	SelectedFrames  []int       `json:"selected_frames"`
	BinEdgesX       []float64   `json:"bin_edges_x,omitempty"`
	BinEdgesY       []float64   `json:"bin_edges_y,omitempty"`
	RunObjectives   []float64   `json:"run_objectives"`
	RunParams       [][]float64 `json:"run_params"`
	ParamMean       []float64   `json:"param_mean"`
	ParamSD         []float64   `json:"param_sd"`
	BestRun         int         `json:"best_run"`
	CenterDistances []float64   `json:"center_distances,omitempty"`
	ShapeErrors     []float64   `json:"shape_errors,omitempty"`
	AreaErrors      []float64   `json:"area_errors,omitempty"`
}

// DefaultConstraintTolerance bounds the acceptable shape and area
// mismatch in the inverse projection.
const DefaultConstraintTolerance = 0.02

// DefaultSceneGeometry places the camera on the optical axis 120mm from
// the corneal apex, with the unscaled average eye.
func DefaultSceneGeometry() SceneGeometry {
	return SceneGeometry{
		CameraTranslation:   r3.Vector{X: 0, Y: 0, Z: 120},
		Eye:                 DefaultEyeModel(),
		ConstraintTolerance: DefaultConstraintTolerance,
	}
}

// WithParams returns a copy of the geometry with the 5 scene search
// parameters applied: camera translation [x y z], then the joint and
// differential rotation-center scalings over the base eye's centers.
func (g SceneGeometry) WithParams(params []float64) SceneGeometry {
	out := g
	out.Meta = nil
	out.CameraTranslation = r3.Vector{X: params[0], Y: params[1], Z: params[2]}
	out.Eye.RotationCenters = ScaledCenters(g.Eye.RotationCenters, params[3], params[4])
	return out
}

// CheckValid checks the geometry for physically meaningful values.
func (g *SceneGeometry) CheckValid() error {
	if g == nil {
		return errors.New("scene geometry is nil")
	}
	if err := g.Eye.CheckValid(); err != nil {
		return err
	}
	if g.CameraTranslation.Z <= 0 {
		return errors.Errorf("camera must sit in front of the eye, got Z translation %v", g.CameraTranslation.Z)
	}
	if g.ConstraintTolerance <= 0 {
		return errors.Errorf("invalid constraint tolerance %v", g.ConstraintTolerance)
	}
	return nil
}

// NewSceneGeometryFromJSONFile reads a SceneGeometry from a JSON file.
func NewSceneGeometryFromJSONFile(jsonPath string) (*SceneGeometry, error) {
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
	geometry := &SceneGeometry{}
	if err := json.Unmarshal(byteValue, geometry); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := geometry.CheckValid(); err != nil {
		return nil, err
	}
	return geometry, nil
}

// WriteToJSONFile persists the geometry for downstream consumers.
func (g *SceneGeometry) WriteToJSONFile(jsonPath string) error {
	if err := g.CheckValid(); err != nil {
		return err
	}
	byteValue, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error encoding scene geometry")
	}
	//nolint:gosec
	return os.WriteFile(jsonPath, byteValue, 0o640)
}
