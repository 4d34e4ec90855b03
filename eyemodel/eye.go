// Package eyemodel holds the physical model relating a rotating eye to a
// camera: the optical constants of the cornea and pupil plane, the
// rotation centers of the globe, the extrinsic camera translation, and
// the pose of the eye at a simulated instant.
//
// Coordinates are millimeters in the eye frame: the origin is the apex
// of the anterior corneal surface, +X points along the optical axis
// toward the camera, +Y is horizontal in the image plane and +Z is
// vertical. Positive azimuth rotates the eye about +Z, positive
// elevation about -Y.
package eyemodel

import "github.com/pkg/errors"

// Adult emmetrope population averages.
const (
	// DefaultCorneaRadius is the radius of curvature of the anterior
	// corneal surface.
	DefaultCorneaRadius = 7.77
	// DefaultPupilDepth is the distance of the pupil aperture plane
	// behind the corneal apex.
	DefaultPupilDepth = 3.70
	// DefaultAqueousRefractiveIndex is the refractive index of the
	// aqueous humor for near infra-red light.
	DefaultAqueousRefractiveIndex = 1.3374
	// DefaultAirRefractiveIndex is the refractive index on the camera
	// side of the cornea.
	DefaultAirRefractiveIndex = 1.0
	// DefaultAzimuthCenterDepth and DefaultElevationCenterDepth are the
	// distances of the horizontal and vertical rotation centers of the
	// globe behind the corneal apex.
	DefaultAzimuthCenterDepth   = 14.45
	DefaultElevationCenterDepth = 12.17
)

// RotationCenters are the depths, behind the corneal apex and along the
// optical axis, about which the globe rotates horizontally and
// vertically. Values are positive.
type RotationCenters struct {
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
}

// ScaledCenters applies the coupled two-parameter scaling to a base set
// of rotation centers. The joint factor multiplies both centers; the
// differential factor multiplies the azimuthal center up and the
// elevational center down, so the two search parameters move the pair
// together and apart rather than varying the centers independently.
func ScaledCenters(base RotationCenters, joint, differential float64) RotationCenters {
	return RotationCenters{
		Azimuth:   base.Azimuth * joint * differential,
		Elevation: base.Elevation * joint / differential,
	}
}

// EyeModel is the fixed anatomy of the modeled eye.
type EyeModel struct {
	CorneaRadius           float64         `json:"cornea_radius"`
	PupilDepth             float64         `json:"pupil_depth"`
	AqueousRefractiveIndex float64         `json:"aqueous_refractive_index"`
	AirRefractiveIndex     float64         `json:"air_refractive_index"`
	RotationCenters        RotationCenters `json:"rotation_centers"`
}

// DefaultEyeModel returns the unscaled population-average eye.
func DefaultEyeModel() EyeModel {
	return EyeModel{
		CorneaRadius:           DefaultCorneaRadius,
		PupilDepth:             DefaultPupilDepth,
		AqueousRefractiveIndex: DefaultAqueousRefractiveIndex,
		AirRefractiveIndex:     DefaultAirRefractiveIndex,
		RotationCenters: RotationCenters{
			Azimuth:   DefaultAzimuthCenterDepth,
			Elevation: DefaultElevationCenterDepth,
		},
	}
}

// CheckValid checks the model for physically meaningful values.
func (m *EyeModel) CheckValid() error {
	if m.CorneaRadius <= 0 {
		return errors.Errorf("invalid cornea radius %v", m.CorneaRadius)
	}
	if m.PupilDepth <= 0 || m.PupilDepth >= m.CorneaRadius {
		return errors.Errorf("pupil depth %v must lie between the corneal apex and its center of curvature", m.PupilDepth)
	}
	if m.AqueousRefractiveIndex < 1 || m.AirRefractiveIndex < 1 {
		return errors.New("refractive indices must be at least 1")
	}
	if m.RotationCenters.Azimuth <= 0 || m.RotationCenters.Elevation <= 0 {
		return errors.New("rotation centers must lie behind the corneal apex")
	}
	return nil
}
