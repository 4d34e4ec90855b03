package ellipse

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func perimeter(e Explicit, n int) []r2.Point {
	sinT, cosT := math.Sincos(e.Theta)
	points := make([]r2.Point, n)
	for i := range points {
		angle := 2 * math.Pi * float64(i) / float64(n)
		px := e.SemiMajor * math.Cos(angle)
		py := e.SemiMinor * math.Sin(angle)
		points[i] = r2.Point{
			X: e.CenterX + px*cosT - py*sinT,
			Y: e.CenterY + px*sinT + py*cosT,
		}
	}
	return points
}

func TestImplicitRoundTrip(t *testing.T) {
	for _, e := range []Explicit{
		{CenterX: 160, CenterY: 120, SemiMajor: 30, SemiMinor: 20, Theta: 0.7},
		{CenterX: -5, CenterY: 2, SemiMajor: 4, SemiMinor: 4, Theta: 0},
		{CenterX: 0, CenterY: 0, SemiMajor: 10, SemiMinor: 1, Theta: 2.9},
	} {
		back, err := e.Implicit().Explicit()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, back.CenterX, test.ShouldAlmostEqual, e.CenterX, 1e-8)
		test.That(t, back.CenterY, test.ShouldAlmostEqual, e.CenterY, 1e-8)
		test.That(t, back.SemiMajor, test.ShouldAlmostEqual, e.SemiMajor, 1e-8)
		test.That(t, back.SemiMinor, test.ShouldAlmostEqual, e.SemiMinor, 1e-8)
		if e.SemiMajor != e.SemiMinor {
			test.That(t, back.Theta, test.ShouldAlmostEqual, normalizeTheta(e.Theta), 1e-8)
		}
	}
}

func TestFitTransparent(t *testing.T) {
	want := Explicit{CenterX: 12, CenterY: -7, SemiMajor: 5, SemiMinor: 3, Theta: 0.4}
	fit, err := FitTransparent(perimeter(want, 16))
	test.That(t, err, test.ShouldBeNil)

	wantTransparent := want.Transparent()
	test.That(t, fit.CenterX, test.ShouldAlmostEqual, wantTransparent.CenterX, 1e-6)
	test.That(t, fit.CenterY, test.ShouldAlmostEqual, wantTransparent.CenterY, 1e-6)
	test.That(t, fit.Area, test.ShouldAlmostEqual, wantTransparent.Area, 1e-5)
	test.That(t, fit.Eccentricity, test.ShouldAlmostEqual, wantTransparent.Eccentricity, 1e-6)
	test.That(t, fit.Theta, test.ShouldAlmostEqual, wantTransparent.Theta, 1e-6)
}

func TestFitConicTooFewPoints(t *testing.T) {
	_, err := FitConic(perimeter(Explicit{SemiMajor: 2, SemiMinor: 1}, 4))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFitConicNaNPoints(t *testing.T) {
	points := perimeter(Explicit{CenterX: 1, CenterY: 1, SemiMajor: 2, SemiMinor: 1}, 8)
	points[3] = r2.Point{X: math.NaN(), Y: math.NaN()}

	fit, err := FitTransparent(points)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fit.IsNaN(), test.ShouldBeTrue)
}

func TestDegenerateConic(t *testing.T) {
	// A pair of lines, not an ellipse.
	_, err := Implicit{A: 1, B: 0, C: -1}.Explicit()
	test.That(t, err, test.ShouldNotBeNil)
}
