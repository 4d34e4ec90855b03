package ellipse

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Implicit holds the coefficients of the general conic
// A*x^2 + B*x*y + C*y^2 + D*x + E*y + F = 0.
type Implicit struct {
	A, B, C, D, E, F float64
}

var errDegenerateConic = errors.New("conic does not describe a real ellipse")

// Implicit converts the explicit form to conic coefficients.
func (e Explicit) Implicit() Implicit {
	sinT, cosT := math.Sincos(e.Theta)
	a2 := e.SemiMajor * e.SemiMajor
	b2 := e.SemiMinor * e.SemiMinor

	A := a2*sinT*sinT + b2*cosT*cosT
	B := 2 * (b2 - a2) * sinT * cosT
	C := a2*cosT*cosT + b2*sinT*sinT
	D := -2*A*e.CenterX - B*e.CenterY
	E := -B*e.CenterX - 2*C*e.CenterY
	F := A*e.CenterX*e.CenterX + B*e.CenterX*e.CenterY + C*e.CenterY*e.CenterY - a2*b2
	return Implicit{A, B, C, D, E, F}
}

// Explicit recovers center, semi-axes and tilt from conic coefficients.
// The quadratic part is diagonalized with a symmetric eigendecomposition;
// the major axis direction is the eigenvector of the smaller eigenvalue.
func (c Implicit) Explicit() (Explicit, error) {
	det := 4*c.A*c.C - c.B*c.B
	if det <= 0 {
		return Explicit{}, errDegenerateConic
	}
	// The coefficients are only defined up to scale; fix the sign so the
	// quadratic part is positive definite.
	if c.A+c.C < 0 {
		c = Implicit{-c.A, -c.B, -c.C, -c.D, -c.E, -c.F}
	}

	// Center is the stationary point of the quadratic form.
	cx := (c.B*c.E - 2*c.C*c.D) / det
	cy := (c.B*c.D - 2*c.A*c.E) / det

	// Constant term after translating the conic to its center.
	f0 := c.F + (c.D*cx+c.E*cy)/2

	m := mat.NewSymDense(2, []float64{c.A, c.B / 2, c.B / 2, c.C})
	var eig mat.EigenSym
	if ok := eig.Factorize(m, true); !ok {
		return Explicit{}, errDegenerateConic
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Eigenvalues come back in ascending order; the smaller one belongs
	// to the major axis.
	if vals[0] <= 0 || -f0/vals[0] <= 0 || -f0/vals[1] <= 0 {
		return Explicit{}, errDegenerateConic
	}
	semiMajor := math.Sqrt(-f0 / vals[0])
	semiMinor := math.Sqrt(-f0 / vals[1])
	theta := math.Atan2(vecs.At(1, 0), vecs.At(0, 0))

	return Explicit{
		CenterX:   cx,
		CenterY:   cy,
		SemiMajor: semiMajor,
		SemiMinor: semiMinor,
		Theta:     normalizeTheta(theta),
	}, nil
}

// FitConic fits conic coefficients to perimeter points by linear least
// squares. The coefficient vector is the right singular vector of the
// design matrix with the smallest singular value.
func FitConic(points []r2.Point) (Implicit, error) {
	if len(points) < 5 {
		return Implicit{}, errors.Errorf("need at least 5 points to fit a conic, got %d", len(points))
	}
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			nan := math.NaN()
			return Implicit{nan, nan, nan, nan, nan, nan}, nil
		}
	}

	m := mat.NewDense(len(points), 6, nil)
	for i, p := range points {
		m.SetRow(i, []float64{p.X * p.X, p.X * p.Y, p.Y * p.Y, p.X, p.Y, 1})
	}

	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return Implicit{}, errors.New("svd factorization failed on conic design matrix")
	}
	var v mat.Dense
	svd.VTo(&v)
	last := v.ColView(5)

	return Implicit{
		A: last.AtVec(0),
		B: last.AtVec(1),
		C: last.AtVec(2),
		D: last.AtVec(3),
		E: last.AtVec(4),
		F: last.AtVec(5),
	}, nil
}

// FitTransparent fits a transparent ellipse to perimeter points. NaN
// points yield the NaN marker ellipse rather than an error.
func FitTransparent(points []r2.Point) (Transparent, error) {
	conic, err := FitConic(points)
	if err != nil {
		return NaNTransparent(), err
	}
	if math.IsNaN(conic.A) {
		return NaNTransparent(), nil
	}
	explicit, err := conic.Explicit()
	if err != nil {
		return NaNTransparent(), err
	}
	return explicit.Transparent(), nil
}
