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

package icc

import (
	"fmt"
	"math"
)

// Curve is a tone reproduction curve (TRC) from an ICC profile.
// It represents either an ICC curveType or a parametricCurveType.
//
// Precedence when evaluating: Table > Params > Gamma.
//
// To create a curve:
//   - Gamma curve (curveType): set Gamma only (e.g. &Curve{Gamma: 2.2})
//   - Sampled curve (curveType): set Table only
//   - Parametric curve (parametricCurveType): set FuncType and Params
type Curve struct {
	// Gamma specifies the exponent for a simple gamma curve (curveType with
	// n=1).  Set to 1.0 for an identity curve (curveType with n=0).
	Gamma float64

	// FuncType and Params define an ICC parametricCurveType. FuncType selects
	// the ICC function type (0-4) and Params provides the coefficients
	// [g, a, b, c, d, e, f]:
	//   - type 0: y = x^g
	//   - type 1: y = (ax+b)^g for x >= -b/a, else y = 0
	//   - type 2: y = (ax+b)^g + c for x >= -b/a, else y = c
	//   - type 3: y = (ax+b)^g for x >= d, else y = cx
	//   - type 4: y = (ax+b)^g + e for x >= d, else y = cx + f
	FuncType int
	Params   []float64

	// Table specifies a sampled curve (curveType with n>1). Values are evenly
	// spaced from input 0 to 1, with linear interpolation between samples.
	Table []uint16
}

// numParams gives the number of coefficients for each parametric function type.
var numParams = [...]int{1, 3, 4, 5, 7}

// DecodeCurve decodes a curve from ICC tag data.
// The data must be a curveType or parametricCurveType element.
func DecodeCurve(data []byte) (*Curve, error) {
	if len(data) < 12 {
		return nil, errInvalidTagData
	}

	switch string(data[0:4]) {
	case "curv":
		n := uint64(getUint32(data, 8))
		switch {
		case n == 0:
			return &Curve{Gamma: 1}, nil
		case n == 1:
			if len(data) < 14 {
				return nil, errInvalidTagData
			}
			// u8Fixed8Number
			return &Curve{Gamma: float64(getUint16(data, 12)) / 256}, nil
		case uint64(len(data)) < 12+2*n:
			return nil, errInvalidTagData
		}
		table := make([]uint16, n)
		for i := range table {
			table[i] = getUint16(data, 12+2*i)
		}
		return &Curve{Table: table}, nil

	case "para":
		funcType := int(getUint16(data, 8))
		if funcType >= len(numParams) {
			return nil, errInvalidTagData
		}
		n := numParams[funcType]
		if len(data) < 12+4*n {
			return nil, errInvalidTagData
		}
		params := make([]float64, n)
		for i := range params {
			params[i] = getS15Fixed16(data, 12+4*i)
		}
		return &Curve{FuncType: funcType, Params: params}, nil

	default:
		return nil, errUnexpectedType
	}
}

// Evaluate computes the output value for an input value x in [0, 1].
// The output is clamped to [0, 1] as required by the ICC specification.
func (c *Curve) Evaluate(x float64) float64 {
	x = clamp(x, 0, 1)

	var y float64
	switch {
	case c.Table != nil:
		y = c.evaluateSampled(x)
	case c.Params != nil:
		y = c.evaluateParametric(x)
	case c.Gamma != 0:
		y = pow(x, c.Gamma)
	default:
		y = x
	}
	return clamp(y, 0, 1)
}

func (c *Curve) evaluateParametric(x float64) float64 {
	// missing coefficients default to the values which turn the
	// extra terms into no-ops
	var p [7]float64
	p[1] = 1
	copy(p[:], c.Params)
	g, a, b, cc, d, e, f := p[0], p[1], p[2], p[3], p[4], p[5], p[6]

	switch c.FuncType {
	case 0:
		return pow(x, g)
	case 1:
		if a == 0 || x < -b/a {
			return 0
		}
		return pow(a*x+b, g)
	case 2:
		if a == 0 || x < -b/a {
			return cc
		}
		return pow(a*x+b, g) + cc
	case 3:
		if x < d {
			return cc * x
		}
		return pow(a*x+b, g)
	case 4:
		if x < d {
			return cc*x + f
		}
		return pow(a*x+b, g) + e
	}
	return x
}

func (c *Curve) evaluateSampled(x float64) float64 {
	n := len(c.Table)
	switch n {
	case 0:
		return x
	case 1:
		return float64(c.Table[0]) / 65535
	}

	pos := x * float64(n-1)
	idx := int(pos)
	if idx >= n-1 {
		return float64(c.Table[n-1]) / 65535
	}
	frac := pos - float64(idx)
	v0 := float64(c.Table[idx]) / 65535
	v1 := float64(c.Table[idx+1]) / 65535
	return v0 + frac*(v1-v0)
}

// IsIdentity returns true if the curve represents an identity function.
func (c *Curve) IsIdentity() bool {
	if c.Table != nil {
		return false
	}
	if c.Params != nil {
		return c.FuncType == 0 && c.Params[0] == 1
	}
	return c.Gamma == 1
}

func (c *Curve) String() string {
	switch {
	case c.Table != nil:
		return fmt.Sprintf("sampled (%d points)", len(c.Table))
	case c.Params != nil:
		return fmt.Sprintf("parametric type %d %.4g", c.FuncType, c.Params)
	default:
		return fmt.Sprintf("gamma %.4g", c.Gamma)
	}
}

// Encode converts the curve to ICC tag data.
// The result is either a curveType or parametricCurveType element.
func (c *Curve) Encode() []byte {
	if c.Table == nil && c.Params != nil {
		n := len(c.Params)
		if c.FuncType >= 0 && c.FuncType < len(numParams) {
			n = numParams[c.FuncType]
		}
		buf := make([]byte, 12+4*n)
		copy(buf[0:4], "para")
		putUint16(buf, 8, uint16(c.FuncType))
		for i := 0; i < n && i < len(c.Params); i++ {
			putS15Fixed16(buf, 12+4*i, c.Params[i])
		}
		return buf
	}

	switch {
	case c.Table != nil:
		buf := make([]byte, 12+2*len(c.Table))
		copy(buf[0:4], "curv")
		putUint32(buf, 8, uint32(len(c.Table)))
		for i, v := range c.Table {
			putUint16(buf, 12+2*i, v)
		}
		return buf
	case c.Gamma == 1 || c.Gamma == 0:
		buf := make([]byte, 12)
		copy(buf[0:4], "curv")
		return buf
	default:
		buf := make([]byte, 14)
		copy(buf[0:4], "curv")
		putUint32(buf, 8, 1)
		putUint16(buf, 12, uint16(math.Round(c.Gamma*256)))
		return buf
	}
}

// pow returns x^g for x > 0 and 0 otherwise.
func pow(x, g float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Pow(x, g)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
