// seehuhn.de/go/srgbclamp - clamp display output to a reference colour space
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package colorimetry

import "math"

// Vector is a column vector, usually an XYZ or linear RGB triple.
type Vector [3]float64

// Matrix is a 3x3 matrix in row-major order.
type Matrix [3][3]float64

// Identity is the 3x3 identity matrix.
var Identity = Matrix{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// Mul returns the matrix product m·n.
func (m Matrix) Mul(n Matrix) Matrix {
	var res Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			res[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return res
}

// Apply returns the matrix-vector product m·v.
func (m Matrix) Apply(v Vector) Vector {
	return Vector{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// Det returns the determinant of m.
func (m Matrix) Det() float64 {
	a, b, c := m[0][0], m[0][1], m[0][2]
	d, e, f := m[1][0], m[1][1], m[1][2]
	g, h, i := m[2][0], m[2][1], m[2][2]
	return a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
}

// Inverse returns the inverse of m.
// The second return value is false if m is singular.
func (m Matrix) Inverse() (Matrix, bool) {
	a, b, c := m[0][0], m[0][1], m[0][2]
	d, e, f := m[1][0], m[1][1], m[1][2]
	g, h, i := m[2][0], m[2][1], m[2][2]

	det := m.Det()
	if det == 0 || math.IsNaN(det) {
		return Matrix{}, false
	}
	invDet := 1.0 / det

	return Matrix{
		{(e*i - f*h) * invDet, (c*h - b*i) * invDet, (b*f - c*e) * invDet},
		{(f*g - d*i) * invDet, (a*i - c*g) * invDet, (c*d - a*f) * invDet},
		{(d*h - e*g) * invDet, (b*g - a*h) * invDet, (a*e - b*d) * invDet},
	}, true
}

// Transpose returns the transpose of m.
func (m Matrix) Transpose() Matrix {
	var res Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			res[i][j] = m[j][i]
		}
	}
	return res
}

// IsIdentity reports whether every entry of m is within tol of the
// corresponding entry of the identity matrix.
func (m Matrix) IsIdentity(tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(m[i][j]-Identity[i][j]) > tol {
				return false
			}
		}
	}
	return true
}
