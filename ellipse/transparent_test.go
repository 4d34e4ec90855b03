package ellipse

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestTransparentExplicitRoundTrip(t *testing.T) {
	for _, e := range []Transparent{
		{CenterX: 160, CenterY: 120, Area: 12, Eccentricity: 0, Theta: 0},
		{CenterX: -3, CenterY: 7, Area: 40, Eccentricity: 0.4, Theta: 1.1},
		{CenterX: 0, CenterY: 0, Area: 100, Eccentricity: 0.9, Theta: 3.0},
	} {
		back := e.Explicit().Transparent()
		test.That(t, back.CenterX, test.ShouldAlmostEqual, e.CenterX, 1e-10)
		test.That(t, back.CenterY, test.ShouldAlmostEqual, e.CenterY, 1e-10)
		test.That(t, back.Area, test.ShouldAlmostEqual, e.Area, 1e-9)
		test.That(t, back.Eccentricity, test.ShouldAlmostEqual, e.Eccentricity, 1e-10)
		if e.Eccentricity > 0 {
			test.That(t, back.Theta, test.ShouldAlmostEqual, e.Theta, 1e-10)
		}
	}
}

func TestExplicitAxisOrder(t *testing.T) {
	// A minor axis longer than the major axis folds into a quarter-turn.
	e := Explicit{CenterX: 1, CenterY: 2, SemiMajor: 2, SemiMinor: 3, Theta: 0}
	tr := e.Transparent()
	test.That(t, tr.Area, test.ShouldAlmostEqual, math.Pi*6, 1e-10)
	test.That(t, tr.Theta, test.ShouldAlmostEqual, math.Pi/2, 1e-10)
	test.That(t, tr.Eccentricity, test.ShouldAlmostEqual, math.Sqrt(1-4.0/9.0), 1e-10)
}

func TestNaNPassthrough(t *testing.T) {
	nan := math.NaN()
	e := Transparent{CenterX: nan, CenterY: nan, Area: nan, Eccentricity: nan, Theta: nan}
	test.That(t, e.IsNaN(), test.ShouldBeTrue)

	ex := e.Explicit()
	test.That(t, math.IsNaN(ex.SemiMajor), test.ShouldBeTrue)
	test.That(t, math.IsNaN(ex.Transparent().Area), test.ShouldBeTrue)

	// NaN in a single field is enough to signal no boundary.
	partial := Transparent{CenterX: nan, CenterY: 3, Area: 10}
	test.That(t, partial.IsNaN(), test.ShouldBeTrue)
}

func TestShapeDistance(t *testing.T) {
	circle := Transparent{Area: 10, Eccentricity: 0, Theta: 0}
	circleTilted := Transparent{Area: 99, Eccentricity: 0, Theta: 1.3}
	// Tilt carries no shape information for a circle.
	test.That(t, ShapeDistance(circle, circleTilted), test.ShouldAlmostEqual, 0, 1e-12)

	// The tilt is pi-periodic.
	e1 := Transparent{Eccentricity: 0.5, Theta: 0.2}
	e2 := Transparent{Eccentricity: 0.5, Theta: 0.2 + math.Pi}
	test.That(t, ShapeDistance(e1, e2), test.ShouldAlmostEqual, 0, 1e-12)

	// Perpendicular tilts of the same eccentricity are maximally apart.
	e3 := Transparent{Eccentricity: 0.5, Theta: 0.2 + math.Pi/2}
	test.That(t, ShapeDistance(e1, e3), test.ShouldAlmostEqual, 1.0, 1e-12)
}

func TestCenterAndAreaDistance(t *testing.T) {
	e1 := Transparent{CenterX: 0, CenterY: 0, Area: 10}
	e2 := Transparent{CenterX: 3, CenterY: 4, Area: 12}
	test.That(t, CenterDistance(e1, e2), test.ShouldAlmostEqual, 5, 1e-12)
	test.That(t, AreaDistance(e1, e2), test.ShouldAlmostEqual, 2.0/12, 1e-12)
}
