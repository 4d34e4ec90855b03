// Package raytrace models refraction of the pupil boundary through the
// anterior corneal surface. The cornea is a single spherical refracting
// surface; for a point behind it and a camera in front, the model finds
// the surface point at which a ray from the point Snell-refracts into a
// ray through the camera, and reports the virtual (apparent) position of
// the point as seen from the camera.
//
// Construction is expensive: a grid of surface solutions is precomputed
// over the reachable range of point and camera positions, so that each
// query only refines a well-bracketed root. A built OpticsModel is
// immutable and safe for concurrent use. The camera position is a query
// parameter, not a construction parameter; rebuilding is needed only
// when the optical constants of the eye change.
package raytrace

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/gazelab/eyescene/eyemodel"
)

const (
	// Grid extents. Points are pupil-boundary points: always inside the
	// corneal sphere and behind the apex. Camera distances cover any
	// plausible infra-red eye-tracking rig.
	minCameraDistance = 20
	maxCameraDistance = 400
	maxMeridianAngle  = 0.9

	gridAngleNodes    = 24
	gridRadiusNodes   = 16
	gridDistanceNodes = 10

	bisectionIterations = 80
)

// OpticsModel is the reusable ray-trace function set for one set of
// optical constants.
type OpticsModel struct {
	radius float64
	center r3.Vector // center of corneal curvature, eye frame
	eta    float64   // aqueous index over air index

	angleNodes    []float64
	radiusNodes   []float64
	distanceNodes []float64
	// seeds[i][j][k] is the solved surface angle for angleNodes[i],
	// radiusNodes[j], distanceNodes[k].
	seeds [][][]float64
}

// NewOpticsModel builds the ray-trace function set for the given eye.
func NewOpticsModel(eye eyemodel.EyeModel) (*OpticsModel, error) {
	if err := eye.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "cannot build optics model")
	}
	o := &OpticsModel{
		radius: eye.CorneaRadius,
		center: r3.Vector{X: -eye.CorneaRadius},
		eta:    eye.AqueousRefractiveIndex / eye.AirRefractiveIndex,
	}

	o.angleNodes = linspace(0, maxMeridianAngle, gridAngleNodes)
	o.radiusNodes = linspace(0.2*eye.CorneaRadius, 0.995*eye.CorneaRadius, gridRadiusNodes)
	o.distanceNodes = linspace(minCameraDistance, maxCameraDistance, gridDistanceNodes)

	o.seeds = make([][][]float64, gridAngleNodes)
	for i, psi := range o.angleNodes {
		o.seeds[i] = make([][]float64, gridRadiusNodes)
		for j, b := range o.radiusNodes {
			o.seeds[i][j] = make([]float64, gridDistanceNodes)
			for k, a := range o.distanceNodes {
				phi, ok := o.solveSurfaceAngle(psi, b, a, 0, maxMeridianAngle)
				if !ok {
					phi = psi * b / o.radius
				}
				o.seeds[i][j][k] = phi
			}
		}
	}
	return o, nil
}

// VirtualPoint returns the apparent position of p, a point at or behind
// the corneal surface in the eye frame, as seen by a camera at the given
// extrinsic translation. The virtual point preserves the axial depth of
// p and carries the refractive lateral displacement. Points at or in
// front of the apex, and points outside the corneal sphere, are returned
// unchanged.
func (o *OpticsModel) VirtualPoint(p, cameraTranslation r3.Vector) r3.Vector {
	camera := CameraPosition(cameraTranslation)

	if p.X >= 0 {
		return p
	}
	fromCenterP := p.Sub(o.center)
	b := fromCenterP.Norm()
	if b >= o.radius {
		return p
	}
	fromCenterC := camera.Sub(o.center)
	a := fromCenterC.Norm()
	if a <= o.radius {
		return p
	}

	// Meridional plane basis: e1 toward the camera, e2 toward the point.
	e1 := fromCenterC.Mul(1 / a)
	px := fromCenterP.Dot(e1)
	lateral := fromCenterP.Sub(e1.Mul(px))
	py := lateral.Norm()
	psi := math.Atan2(py, px)
	var e2 r3.Vector
	if py > 1e-12 {
		e2 = lateral.Mul(1 / py)
	} else {
		// On-axis point: any normal direction gives the same answer.
		e2 = r3.Vector{Y: 1}.Sub(e1.Mul(e1.Y)).Normalize()
		psi = 0
	}

	phi0 := o.seedAngle(psi, b, a)
	window := maxMeridianAngle / float64(gridAngleNodes-1)
	lo := math.Max(0, phi0-window)
	hi := math.Min(maxMeridianAngle, phi0+window)
	phi, ok := o.solveSurfaceAngle(psi, b, a, lo, hi)
	if !ok {
		phi, ok = o.solveSurfaceAngle(psi, b, a, 0, maxMeridianAngle)
	}
	if !ok {
		return p
	}

	surface := o.center.Add(e1.Mul(o.radius * math.Cos(phi))).Add(e2.Mul(o.radius * math.Sin(phi)))
	outDir, ok := o.refract(p, surface)
	if !ok || outDir.X <= 1e-9 {
		return p
	}
	// Extend the refracted ray back to the axial depth of p.
	t := (surface.X - p.X) / outDir.X
	return surface.Sub(outDir.Mul(t))
}

// CameraPosition converts an extrinsic camera translation [x y z] into a
// camera position in the eye frame, where the optical axis is +X and the
// in-plane offsets lie along Y and Z.
func CameraPosition(translation r3.Vector) r3.Vector {
	return r3.Vector{X: translation.Z, Y: translation.X, Z: translation.Y}
}

// refract returns the unit direction of the ray from p after refraction
// at the given surface point. The second return is false on total
// internal reflection or a ray that does not exit the surface.
func (o *OpticsModel) refract(p, surface r3.Vector) (r3.Vector, bool) {
	inDir := surface.Sub(p).Normalize()
	normal := surface.Sub(o.center).Mul(1 / o.radius)
	cosIncident := inDir.Dot(normal)
	if cosIncident <= 0 {
		return r3.Vector{}, false
	}
	sinTransmitted2 := o.eta * o.eta * (1 - cosIncident*cosIncident)
	if sinTransmitted2 >= 1 {
		return r3.Vector{}, false
	}
	cosTransmitted := math.Sqrt(1 - sinTransmitted2)
	out := inDir.Sub(normal.Mul(cosIncident)).Mul(o.eta).Add(normal.Mul(cosTransmitted))
	return out.Normalize(), true
}

// solveSurfaceAngle finds, in the meridional plane, the surface angle phi
// at which the ray from the point refracts into a ray through the
// camera. The plane is parameterized by the angle psi of the point from
// the camera direction, the point's distance b from the center of
// curvature, and the camera's distance a. The root is found by bisection
// on the signed miss of the camera by the refracted ray.
func (o *OpticsModel) solveSurfaceAngle(psi, b, a, lo, hi float64) (float64, bool) {
	camera := o.center.Add(r3.Vector{X: a})
	point := o.center.Add(r3.Vector{X: b * math.Cos(psi), Y: b * math.Sin(psi)})

	miss := func(phi float64) float64 {
		surface := o.center.Add(r3.Vector{X: o.radius * math.Cos(phi), Y: o.radius * math.Sin(phi)})
		outDir, ok := o.refract(point, surface)
		if !ok {
			return math.NaN()
		}
		toCamera := camera.Sub(surface)
		// Z component of the in-plane cross product; zero when the
		// refracted ray passes through the camera.
		return outDir.X*toCamera.Y - outDir.Y*toCamera.X
	}

	fLo := miss(lo)
	fHi := miss(hi)
	if math.IsNaN(fLo) || math.IsNaN(fHi) || fLo*fHi > 0 {
		return 0, false
	}
	for i := 0; i < bisectionIterations; i++ {
		mid := (lo + hi) / 2
		fMid := miss(mid)
		if math.IsNaN(fMid) {
			return 0, false
		}
		if fLo*fMid <= 0 {
			hi = mid
		} else {
			lo = mid
			fLo = fMid
		}
	}
	return (lo + hi) / 2, true
}

// seedAngle interpolates the precomputed solution grid trilinearly.
func (o *OpticsModel) seedAngle(psi, b, a float64) float64 {
	i, ti := bracket(o.angleNodes, psi)
	j, tj := bracket(o.radiusNodes, b)
	k, tk := bracket(o.distanceNodes, a)

	interp := func(i, j int) float64 {
		return o.seeds[i][j][k]*(1-tk) + o.seeds[i][j][k+1]*tk
	}
	c00 := interp(i, j)
	c01 := interp(i, j+1)
	c10 := interp(i+1, j)
	c11 := interp(i+1, j+1)
	c0 := c00*(1-tj) + c01*tj
	c1 := c10*(1-tj) + c11*tj
	return c0*(1-ti) + c1*ti
}

// bracket returns the index of the node interval containing v and the
// interpolation fraction within it, clamping out-of-range values.
func bracket(nodes []float64, v float64) (int, float64) {
	n := len(nodes)
	if v <= nodes[0] {
		return 0, 0
	}
	if v >= nodes[n-1] {
		return n - 2, 1
	}
	for i := 1; i < n; i++ {
		if v < nodes[i] {
			return i - 1, (v - nodes[i-1]) / (nodes[i] - nodes[i-1])
		}
	}
	return n - 2, 1
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
