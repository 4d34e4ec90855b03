package eyemodel

import (
	"math"

	eutils "github.com/gazelab/eyescene/utils"
)

// EyePose is the orientation of the eye's optical axis and the pupil
// aperture radius at a simulated instant. Angles are degrees; the
// torsion component is carried for completeness but is pinned to zero
// throughout this core. Radius is millimeters.
type EyePose struct {
	Azimuth     float64
	Elevation   float64
	Torsion     float64
	PupilRadius float64
}

// NaNEyePose returns the pose used to signal "no answer" downstream of a
// failed or absent ellipse fit.
func NaNEyePose() EyePose {
	nan := math.NaN()
	return EyePose{nan, nan, nan, nan}
}

// IsNaN reports whether the pose is the no-answer marker.
func (p EyePose) IsNaN() bool {
	return eutils.AnyNaN(p.Azimuth, p.Elevation, p.PupilRadius)
}

// PoseBounds are hard limits on the eye pose search. Torsion has no
// bounds because it is pinned to zero.
type PoseBounds struct {
	AzimuthMin, AzimuthMax         float64
	ElevationMin, ElevationMax     float64
	PupilRadiusMin, PupilRadiusMax float64
}

// DefaultPoseBounds bound the pose search to the physiologically
// plausible oculomotor range.
func DefaultPoseBounds() PoseBounds {
	return PoseBounds{
		AzimuthMin: -89, AzimuthMax: 89,
		ElevationMin: -89, ElevationMax: 89,
		PupilRadiusMin: 0.5, PupilRadiusMax: 5,
	}
}

// Clamp returns the pose limited to the bounds.
func (b PoseBounds) Clamp(p EyePose) EyePose {
	return EyePose{
		Azimuth:     eutils.Clamp(p.Azimuth, b.AzimuthMin, b.AzimuthMax),
		Elevation:   eutils.Clamp(p.Elevation, b.ElevationMin, b.ElevationMax),
		Torsion:     0,
		PupilRadius: eutils.Clamp(p.PupilRadius, b.PupilRadiusMin, b.PupilRadiusMax),
	}
}
