// Package xform adapts github.com/go-gl/mathgl/mgl64 to the affine math the
// layout tools need: 3-vectors and 4×4 homogeneous matrices.
//
// Matrices use the column-vector convention. At(r, c) addresses row r,
// column c; a point p maps to M·p, the translation lives in column 3 and
// column i (i < 3) is the image of local axis i. A valid affine matrix has
// bottom row (0, 0, 0, 1).
package xform

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultTolerance is the absolute tolerance used by approximate comparisons.
const DefaultTolerance = 1e-9

// singularDeterminant is the |det| below which Inverse gives up.
const singularDeterminant = 1e-15

// ErrSingular is returned when a matrix has no inverse.
var ErrSingular = errors.New("xform: singular matrix")

// Vec3 is a point or direction in 3-space.
type Vec3 mgl64.Vec3

func (v Vec3) gl() mgl64.Vec3 { return mgl64.Vec3(v) }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3(v.gl().Add(o.gl())) }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3(v.gl().Sub(o.gl())) }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3(v.gl().Mul(s)) }

// Length returns the Euclidean norm of v.
func (v Vec3) Length() float64 { return v.gl().Len() }

// ApproxEqual reports whether every component differs by at most tol.
// mgl64's own ApproxEqual is relative, which misjudges values near zero.
func (v Vec3) ApproxEqual(o Vec3, tol float64) bool {
	return v.gl().ApproxFuncEqual(o.gl(), within(tol))
}

// Matrix is a 4×4 homogeneous transform in mgl64's column-major layout.
type Matrix mgl64.Mat4

func (m Matrix) gl() mgl64.Mat4 { return mgl64.Mat4(m) }

// Identity returns the identity matrix.
func Identity() Matrix { return Matrix(mgl64.Ident4()) }

// Translate returns a pure translation by t.
func Translate(t Vec3) Matrix { return Matrix(mgl64.Translate3D(t[0], t[1], t[2])) }

// Scale returns a non-uniform scale along the principal axes.
func Scale(s Vec3) Matrix { return Matrix(mgl64.Scale3D(s[0], s[1], s[2])) }

// RotateX returns a rotation of rad radians about the X axis.
func RotateX(rad float64) Matrix { return Matrix(mgl64.HomogRotate3DX(rad)) }

// RotateY returns a rotation of rad radians about the Y axis.
func RotateY(rad float64) Matrix { return Matrix(mgl64.HomogRotate3DY(rad)) }

// RotateZ returns a rotation of rad radians about the Z axis.
func RotateZ(rad float64) Matrix { return Matrix(mgl64.HomogRotate3DZ(rad)) }

// Compose builds translate · rotate(XYZ order) · scale, the usual TRS
// transform of a scene node. Angles are in radians.
func Compose(t, r, s Vec3) Matrix {
	rot := RotateZ(r[2]).Mul(RotateY(r[1])).Mul(RotateX(r[0]))
	return Translate(t).Mul(rot).Mul(Scale(s))
}

// FromBasis assembles an affine matrix whose columns are the three basis
// vectors and the origin. The bottom row is (0,0,0,1) by construction.
func FromBasis(origin, x, y, z Vec3) Matrix {
	return Matrix(mgl64.Mat4FromCols(x.gl().Vec4(0), y.gl().Vec4(0), z.gl().Vec4(0), origin.gl().Vec4(1)))
}

// At returns the element at row r, column c.
func (m Matrix) At(r, c int) float64 { return m.gl().At(r, c) }

// WithTranslation returns m with its translation column replaced by t.
func (m Matrix) WithTranslation(t Vec3) Matrix {
	g := m.gl()
	g.SetCol(3, t.gl().Vec4(m.At(3, 3)))
	return Matrix(g)
}

// Mul returns m · o.
func (m Matrix) Mul(o Matrix) Matrix { return Matrix(m.gl().Mul4(o.gl())) }

// TransformPoint applies m to p (w = 1).
func (m Matrix) TransformPoint(p Vec3) Vec3 {
	return Vec3(m.gl().Mul4x1(p.gl().Vec4(1)).Vec3())
}

// Translation returns the translation column.
func (m Matrix) Translation() Vec3 { return m.Column(3) }

// Column returns the first three components of column c.
func (m Matrix) Column(c int) Vec3 { return Vec3(m.gl().Col(c).Vec3()) }

// Determinant3 returns the determinant of the upper-left 3×3 block.
func (m Matrix) Determinant3() float64 {
	g := m.gl()
	return mgl64.Mat3FromCols(g.Col(0).Vec3(), g.Col(1).Vec3(), g.Col(2).Vec3()).Det()
}

// IsAffine reports whether the bottom row is (0, 0, 0, 1) within tol.
func (m Matrix) IsAffine(tol float64) bool {
	return m.gl().Row(3).ApproxFuncEqual(mgl64.Vec4{0, 0, 0, 1}, within(tol))
}

// Inverse returns the inverse of an affine matrix.
func (m Matrix) Inverse() (Matrix, error) {
	if math.Abs(m.Determinant3()) < singularDeterminant {
		return Matrix{}, ErrSingular
	}
	return Matrix(m.gl().Inv()), nil
}

// ApproxEqual reports whether every element differs by at most tol.
func (m Matrix) ApproxEqual(o Matrix, tol float64) bool {
	return m.gl().ApproxFuncEqual(o.gl(), within(tol))
}

// Flat returns the 16 elements in row-major order.
func (m Matrix) Flat() []float64 {
	out := make([]float64, 0, 16)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out = append(out, m.At(r, c))
		}
	}
	return out
}

// FromFlat builds a matrix from 16 row-major elements.
func FromFlat(v []float64) (Matrix, error) {
	if len(v) != 16 {
		return Matrix{}, fmt.Errorf("xform: matrix needs 16 elements, got %d", len(v))
	}
	var g mgl64.Mat4
	for i, x := range v {
		g.Set(i/4, i%4, x)
	}
	return Matrix(g), nil
}

// String renders the matrix one row per bracket.
func (m Matrix) String() string {
	g := m.gl()
	return fmt.Sprintf("[%v %v %v %v]", g.Row(0), g.Row(1), g.Row(2), g.Row(3))
}

func within(tol float64) func(a, b float64) bool {
	return func(a, b float64) bool { return math.Abs(a-b) <= tol }
}
