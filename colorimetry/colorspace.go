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

// Package colorimetry describes RGB colour spaces by their primaries and
// white point, and derives the linear transforms between them.
//
// Transforms assume that both colour spaces share the same reference white;
// no chromatic adaptation is performed.
package colorimetry

import (
	"errors"
	"fmt"
	"math"
)

// Point is a chromaticity in the CIE 1931 xy diagram.
type Point struct {
	X, Y float64
}

// XYZ returns the tristimulus values of the chromaticity, normalised to Y = 1.
func (p Point) XYZ() Vector {
	return Vector{p.X / p.Y, 1, (1 - p.X - p.Y) / p.Y}
}

// Round returns p with both coordinates rounded to 3 decimal places.
func (p Point) Round() Point {
	return Point{X: round3(p.X), Y: round3(p.Y)}
}

// Equal reports whether p and q agree after rounding to 3 decimal places.
func (p Point) Equal(q Point) bool {
	return p.Round() == q.Round()
}

func (p Point) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", p.X, p.Y)
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// D65 is the white point of CIE standard illuminant D65.
var D65 = Point{X: 0.3127, Y: 0.3290}

// ColorSpace is an RGB colour space given by the chromaticities of its
// primaries and its white point.
type ColorSpace struct {
	Red, Green, Blue Point
	White            Point
}

// Round returns a copy of cs with all chromaticities rounded to 3 decimal
// places.  This is the precision at which EDID data is meaningful.
func (cs ColorSpace) Round() ColorSpace {
	return ColorSpace{
		Red:   cs.Red.Round(),
		Green: cs.Green.Round(),
		Blue:  cs.Blue.Round(),
		White: cs.White.Round(),
	}
}

// Equal reports whether all four points of cs and other agree after
// rounding to 3 decimal places.
func (cs ColorSpace) Equal(other ColorSpace) bool {
	return cs.Round() == other.Round()
}

func (cs ColorSpace) String() string {
	return fmt.Sprintf("R%s G%s B%s W%s", cs.Red, cs.Green, cs.Blue, cs.White)
}

// RGBToXYZ returns the matrix which maps linear RGB values in cs to CIE XYZ.
// The matrix is normalised so that RGB (1, 1, 1) maps to the white point
// with Y = 1.
func (cs ColorSpace) RGBToXYZ() (Matrix, error) {
	for _, p := range []Point{cs.Red, cs.Green, cs.Blue, cs.White} {
		if p.Y <= 0 {
			return Matrix{}, ErrDegenerateColorSpace
		}
	}

	// The primaries are collinear exactly when the matrix of homogeneous
	// chromaticities is singular.
	xy := Matrix{
		{cs.Red.X, cs.Green.X, cs.Blue.X},
		{cs.Red.Y, cs.Green.Y, cs.Blue.Y},
		{1, 1, 1},
	}
	if math.Abs(xy.Det()) < degenerateLimit {
		return Matrix{}, ErrDegenerateColorSpace
	}

	r, g, b := cs.Red.XYZ(), cs.Green.XYZ(), cs.Blue.XYZ()
	p := Matrix{
		{r[0], g[0], b[0]},
		{r[1], g[1], b[1]},
		{r[2], g[2], b[2]},
	}
	pInv, ok := p.Inverse()
	if !ok {
		return Matrix{}, ErrDegenerateColorSpace
	}
	s := pInv.Apply(cs.White.XYZ())

	var m Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = p[i][j] * s[j]
		}
	}
	return m, nil
}

// XYZToRGB returns the matrix which maps CIE XYZ to linear RGB values in cs.
func (cs ColorSpace) XYZToRGB() (Matrix, error) {
	m, err := cs.RGBToXYZ()
	if err != nil {
		return Matrix{}, err
	}
	inv, ok := m.Inverse()
	if !ok {
		return Matrix{}, ErrDegenerateColorSpace
	}
	return inv, nil
}

// DeriveTransform returns the matrix which maps linear RGB values in source
// to linear RGB values in destination which describe the same colour.
//
// Both colour spaces must use the same white point.
func DeriveTransform(source, destination ColorSpace) (Matrix, error) {
	if !source.White.Equal(destination.White) {
		return Matrix{}, ErrWhitePointMismatch
	}
	toXYZ, err := source.RGBToXYZ()
	if err != nil {
		return Matrix{}, err
	}
	fromXYZ, err := destination.XYZToRGB()
	if err != nil {
		return Matrix{}, err
	}
	return fromXYZ.Mul(toXYZ), nil
}

// degenerateLimit is the smallest (signed) area, times two, of a primaries
// triangle which is not treated as collinear.
const degenerateLimit = 1e-9

var (
	// ErrDegenerateColorSpace indicates that two primaries of a colour space
	// are collinear, or that a chromaticity has y = 0.
	ErrDegenerateColorSpace = errors.New("colorimetry: degenerate colour space")

	// ErrWhitePointMismatch indicates that a transform was requested between
	// colour spaces with different white points.
	ErrWhitePointMismatch = errors.New("colorimetry: colour spaces have different white points")

	// ErrUnknownTarget indicates an index outside the table of reference
	// colour spaces.
	ErrUnknownTarget = errors.New("colorimetry: unknown target colour space")
)
