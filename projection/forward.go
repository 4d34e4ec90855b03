// Package projection implements the forward optical model that maps an
// eye pose to an image-plane pupil ellipse, and the constrained inverse
// search that recovers the pose which best reproduces an observed
// ellipse under a given scene geometry.
package projection

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/gazelab/eyescene/ellipse"
	"github.com/gazelab/eyescene/eyemodel"
	"github.com/gazelab/eyescene/raytrace"
	eutils "github.com/gazelab/eyescene/utils"
)

// perimeterPoints is the number of pupil boundary points projected and
// fit per forward evaluation. Enough for a stable conic fit; few enough
// to keep the inverse search cheap.
const perimeterPoints = 16

// Forward projects the pupil aperture, a circle of the pose's radius in
// the pupil plane, onto the image plane and returns the transparent
// ellipse of the projection. The eye is rotated about its modeled
// rotation centers, elevation before azimuth, torsion pinned to zero.
// When an optics model is supplied the perimeter points are replaced by
// their refracted virtual positions before projection; otherwise a
// scaled-orthographic camera is used. A NaN pose projects to the NaN
// marker ellipse.
func Forward(pose eyemodel.EyePose, scene eyemodel.SceneGeometry, optics *raytrace.OpticsModel) ellipse.Transparent {
	if eutils.AnyNaN(pose.Azimuth, pose.Elevation, pose.Torsion, pose.PupilRadius) {
		return ellipse.NaNTransparent()
	}

	eye := scene.Eye
	aziCenter := r3.Vector{X: -eye.RotationCenters.Azimuth}
	eleCenter := r3.Vector{X: -eye.RotationCenters.Elevation}
	azimuth := eutils.DegToRad(pose.Azimuth)
	elevation := eutils.DegToRad(pose.Elevation)

	imagePoints := make([]r2.Point, perimeterPoints)
	for i := 0; i < perimeterPoints; i++ {
		angle := 2 * math.Pi * float64(i) / perimeterPoints
		p := r3.Vector{
			X: -eye.PupilDepth,
			Y: pose.PupilRadius * math.Cos(angle),
			Z: pose.PupilRadius * math.Sin(angle),
		}
		p = rotateAboutY(p, eleCenter, -elevation)
		p = rotateAboutZ(p, aziCenter, azimuth)
		if optics != nil {
			p = optics.VirtualPoint(p, scene.CameraTranslation)
		}
		imagePoints[i] = project(p, scene.CameraTranslation)
	}

	fit, err := ellipse.FitTransparent(imagePoints)
	if err != nil {
		return ellipse.NaNTransparent()
	}
	return fit
}

// project maps an eye-frame point onto the image plane with the
// scaled-orthographic camera: in-plane coordinates are magnified by the
// ratio of the camera distance to the point's axial distance, then
// offset by the in-plane camera translation.
func project(p, translation r3.Vector) r2.Point {
	scale := translation.Z / (translation.Z - p.X)
	return r2.Point{
		X: p.Y*scale + translation.X,
		Y: p.Z*scale + translation.Y,
	}
}

// rotateAboutZ rotates p about the axis through center parallel to Z.
// Positive angles carry +X toward +Y.
func rotateAboutZ(p, center r3.Vector, angle float64) r3.Vector {
	sin, cos := math.Sincos(angle)
	v := p.Sub(center)
	return center.Add(r3.Vector{
		X: v.X*cos - v.Y*sin,
		Y: v.X*sin + v.Y*cos,
		Z: v.Z,
	})
}

// rotateAboutY rotates p about the axis through center parallel to Y.
// Positive angles carry +X toward -Z.
func rotateAboutY(p, center r3.Vector, angle float64) r3.Vector {
	sin, cos := math.Sincos(angle)
	v := p.Sub(center)
	return center.Add(r3.Vector{
		X: v.X*cos + v.Z*sin,
		Y: v.Y,
		Z: -v.X*sin + v.Z*cos,
	})
}
