// Package ellipse converts between the parameterizations of an image-plane
// ellipse used by the pupil pipeline. The transparent form (center, area,
// eccentricity, tilt angle) is the one whose parameters can be bounded and
// constrained independently; the explicit form carries semi-axes; the
// implicit form is the general conic.
package ellipse

import (
	"math"

	eutils "github.com/gazelab/eyescene/utils"
)

// Transparent is an ellipse parameterized by center, area, eccentricity
// and tilt. Eccentricity 0 denotes a circle, in which case Theta carries
// no information. A Transparent with NaN fields denotes "no boundary
// found" upstream and is passed through conversions unchanged.
type Transparent struct {
	CenterX      float64 `json:"center_x"`
	CenterY      float64 `json:"center_y"`
	Area         float64 `json:"area"`
	Eccentricity float64 `json:"eccentricity"`
	Theta        float64 `json:"theta"`
}

// Explicit is an ellipse parameterized by center, semi-major and
// semi-minor axis lengths, and tilt.
type Explicit struct {
	CenterX   float64
	CenterY   float64
	SemiMajor float64
	SemiMinor float64
	Theta     float64
}

// NaNTransparent returns the "no boundary found" marker ellipse.
func NaNTransparent() Transparent {
	nan := math.NaN()
	return Transparent{nan, nan, nan, nan, nan}
}

// IsNaN reports whether the ellipse carries the upstream no-fit marker.
// A NaN in either center coordinate is sufficient; a well-formed fit
// never produces one.
func (e Transparent) IsNaN() bool {
	return math.IsNaN(e.CenterX) || math.IsNaN(e.CenterY)
}

// Explicit converts to the explicit (semi-axes) form.
func (e Transparent) Explicit() Explicit {
	if eutils.AnyNaN(e.CenterX, e.CenterY, e.Area, e.Eccentricity, e.Theta) {
		nan := math.NaN()
		return Explicit{nan, nan, nan, nan, nan}
	}
	// b = a*ratio, area = pi*a*b
	ratio := math.Sqrt(1 - e.Eccentricity*e.Eccentricity)
	a := math.Sqrt(e.Area / (math.Pi * ratio))
	b := e.Area / (math.Pi * a)
	return Explicit{
		CenterX:   e.CenterX,
		CenterY:   e.CenterY,
		SemiMajor: a,
		SemiMinor: b,
		Theta:     normalizeTheta(e.Theta),
	}
}

// Transparent converts to the transparent form.
func (e Explicit) Transparent() Transparent {
	if eutils.AnyNaN(e.CenterX, e.CenterY, e.SemiMajor, e.SemiMinor, e.Theta) {
		return NaNTransparent()
	}
	a, b, theta := e.SemiMajor, e.SemiMinor, e.Theta
	if b > a {
		a, b = b, a
		theta += math.Pi / 2
	}
	ecc := 0.0
	if a > 0 {
		ecc = math.Sqrt(1 - (b*b)/(a*a))
	}
	return Transparent{
		CenterX:      e.CenterX,
		CenterY:      e.CenterY,
		Area:         math.Pi * a * b,
		Eccentricity: ecc,
		Theta:        normalizeTheta(theta),
	}
}

// ShapeDistance returns the distance between the shapes of two ellipses,
// independent of their centers and areas. The eccentricity and tilt are
// embedded as the vector (ecc*cos(2theta), ecc*sin(2theta)) so that the
// circle degeneracy (undefined tilt at zero eccentricity) and the pi
// periodicity of the tilt do not produce spurious distance.
func ShapeDistance(e1, e2 Transparent) float64 {
	x1 := e1.Eccentricity * math.Cos(2*e1.Theta)
	y1 := e1.Eccentricity * math.Sin(2*e1.Theta)
	x2 := e2.Eccentricity * math.Cos(2*e2.Theta)
	y2 := e2.Eccentricity * math.Sin(2*e2.Theta)
	return math.Hypot(x1-x2, y1-y2)
}

// AreaDistance returns the relative area mismatch |a1-a2|/a2, with e2
// acting as the reference.
func AreaDistance(e1, e2 Transparent) float64 {
	return math.Abs(e1.Area-e2.Area) / e2.Area
}

// CenterDistance returns the Euclidean distance between centers.
func CenterDistance(e1, e2 Transparent) float64 {
	return math.Hypot(e1.CenterX-e2.CenterX, e1.CenterY-e2.CenterY)
}

// normalizeTheta maps an angle to [0, pi).
func normalizeTheta(theta float64) float64 {
	theta = math.Mod(theta, math.Pi)
	if theta < 0 {
		theta += math.Pi
	}
	return theta
}
