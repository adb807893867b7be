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

// Package tonecurve implements the tone curves used to linearise a display
// with black-point compensation.
//
// A [Curve] maps an encoded signal value in [0, 1] to relative linear light.
// All curves are monotonic, start at the curve's black level and end at 1.
package tonecurve

import (
	"errors"
	"fmt"
	"math"
)

// Kind selects the shape of a tone curve.  The numeric values are stored in
// configuration files and must not change.
type Kind int

// These are the supported tone curve kinds.
const (
	SRGB                Kind = 0 // sRGB EOTF
	Gamma24             Kind = 1 // pure power law with exponent 2.4
	CustomGamma         Kind = 2 // power law with output black offset
	CustomGammaExtended Kind = 3 // power law with mixed input/output black offset
	LStar               Kind = 4 // CIE L* EOTF
)

func (k Kind) String() string {
	switch k {
	case SRGB:
		return "sRGB"
	case Gamma24:
		return "Gamma 2.4"
	case CustomGamma:
		return "Custom gamma"
	case CustomGammaExtended:
		return "Custom gamma (extended)"
	case LStar:
		return "L*"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Curve is a tone curve.  The zero value is not a valid curve; use one of
// the constructors or [FromKind].
type Curve struct {
	kind  Kind
	gamma float64
	black float64 // black level of the display, in relative luminance
	blend float64 // fraction of the black offset applied at the output
}

// NewSRGB returns the sRGB EOTF, lifted so that it starts at black.
func NewSRGB(black float64) *Curve {
	return &Curve{kind: SRGB, gamma: 2.4, black: black, blend: 1}
}

// NewGamma returns a power law curve.  The fraction blend in [0, 1] of the
// black level is added at the output: blend = 1 gives full black-point
// compensation, blend = 0 gives the pure power law starting at 0.
func NewGamma(gamma, black, blend float64) *Curve {
	return &Curve{kind: CustomGamma, gamma: gamma, black: black, blend: clamp(blend, 0, 1)}
}

// NewGammaExtended returns a power law curve which always reaches the black
// level at 0.  The fraction blend of the black offset is applied at the
// output, the remainder is applied as an input offset in the style of
// BT.1886.
func NewGammaExtended(gamma, black, blend float64) *Curve {
	return &Curve{kind: CustomGammaExtended, gamma: gamma, black: black, blend: clamp(blend, 0, 1)}
}

// NewLStar returns the CIE L* EOTF, lifted so that it starts at black.
func NewLStar(black float64) *Curve {
	return &Curve{kind: LStar, black: black, blend: 1}
}

// FromKind returns the curve selected by a profile's gamma settings.
// Percentage is the output offset in percent and is only used by the custom
// gamma kinds.
//
// The black level must lie in [0, 1), and for the custom gamma kinds the
// exponent must be finite and positive.  Otherwise FromKind fails with
// [ErrInvalidBlack] or [ErrInvalidGamma].
func FromKind(kind Kind, black, customGamma, percentage float64) (*Curve, error) {
	if !(black >= 0 && black < 1) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidBlack, black)
	}
	if kind == CustomGamma || kind == CustomGammaExtended {
		if !(customGamma > 0) || math.IsInf(customGamma, 1) {
			return nil, fmt.Errorf("%w: exponent %g", ErrInvalidGamma, customGamma)
		}
		if math.IsNaN(percentage) {
			return nil, fmt.Errorf("%w: output offset %g", ErrInvalidGamma, percentage)
		}
	}

	switch kind {
	case SRGB:
		return NewSRGB(black), nil
	case Gamma24:
		c := NewGamma(2.4, black, 0)
		c.kind = Gamma24
		return c, nil
	case CustomGamma:
		return NewGamma(customGamma, black, percentage/100), nil
	case CustomGammaExtended:
		return NewGammaExtended(customGamma, black, percentage/100), nil
	case LStar:
		return NewLStar(black), nil
	default:
		return nil, fmt.Errorf("%w %d", ErrUnsupportedGammaKind, int(kind))
	}
}

// Kind returns the kind of the curve.
func (c *Curve) Kind() Kind {
	return c.kind
}

// Gamma returns the exponent of power law curves, and 2.4 for the sRGB curve.
func (c *Curve) Gamma() float64 {
	return c.gamma
}

// Black returns the output of the curve at 0.
func (c *Curve) Black() float64 {
	switch c.kind {
	case CustomGamma, Gamma24:
		return c.blend * c.black
	default:
		return c.black
	}
}

// Sample evaluates the curve at v.  Inputs outside [0, 1] are clamped.
func (c *Curve) Sample(v float64) float64 {
	v = clamp(v, 0, 1)

	switch c.kind {
	case SRGB:
		return c.black + (1-c.black)*srgbEOTF(v)
	case Gamma24, CustomGamma:
		pure := math.Pow(v, c.gamma)
		return pure + c.blend*c.black*(1-pure)
	case CustomGammaExtended:
		k := c.blend * c.black
		if k >= 1 {
			return 1
		}
		r := (c.black - k) / (1 - k)
		b := math.Pow(max(r, 0), 1/c.gamma)
		return k + (1-k)*math.Pow((1-b)*v+b, c.gamma)
	case LStar:
		return c.black + (1-c.black)*lstarEOTF(v)
	}
	panic("unreachable")
}

// Table samples the curve at n evenly spaced points from 0 to 1.
func (c *Curve) Table(n int) []float64 {
	if n < 2 {
		n = 2
	}
	res := make([]float64, n)
	for i := range res {
		res[i] = c.Sample(float64(i) / float64(n-1))
	}
	return res
}

func (c *Curve) String() string {
	switch c.kind {
	case CustomGamma, CustomGammaExtended:
		return fmt.Sprintf("%s %.2f (black %.5f, %.0f%% output offset)",
			c.kind, c.gamma, c.black, 100*c.blend)
	default:
		return fmt.Sprintf("%s (black %.5f)", c.kind, c.black)
	}
}

func srgbEOTF(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func lstarEOTF(v float64) float64 {
	l := 100 * v
	if l <= 8 {
		return l * 27 / 24389
	}
	f := (l + 16) / 116
	return f * f * f
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

// ErrUnsupportedGammaKind indicates a gamma kind outside the known range.
var ErrUnsupportedGammaKind = errors.New("tonecurve: unsupported gamma kind")

// ErrInvalidGamma indicates custom gamma settings which do not describe a
// monotonic curve from black to 1.
var ErrInvalidGamma = errors.New("tonecurve: invalid custom gamma")

// ErrInvalidBlack indicates a black level outside [0, 1).
var ErrInvalidBlack = errors.New("tonecurve: black level out of range")
