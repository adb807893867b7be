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

// Package driver describes the display driver operations needed to clamp a
// display: the colour space conversion of an output, its dither control and
// its EDID.
//
// The concrete binding to a vendor API lives outside this module.  Package
// [seehuhn.de/go/srgbclamp/driver/drivertest] provides an in-memory
// implementation.
package driver

import (
	"fmt"

	"seehuhn.de/go/srgbclamp/colorimetry"
	"seehuhn.de/go/srgbclamp/icc"
	"seehuhn.de/go/srgbclamp/tonecurve"
)

// Output is an opaque handle for a display output, as issued by the driver.
type Output uint32

func (o Output) String() string {
	return fmt.Sprintf("output %d", uint32(o))
}

// Driver gives access to the colour pipeline of the graphics driver.
//
// All calls block until the driver has completed the operation.  Failures
// should be reported as *[Error] values.
type Driver interface {
	// IsConversionActive reports whether a colour space conversion is
	// currently programmed for the output.
	IsConversionActive(out Output) (bool, error)

	// SetConversion programs a 3x3 matrix which maps linear RGB values
	// in the target space to linear RGB values of the display.
	SetConversion(out Output, m colorimetry.Matrix) error

	// SetProfileConversion programs a conversion derived from an ICC
	// matrix/TRC profile.
	SetProfileConversion(out Output, c Conversion) error

	// DisableConversion removes any colour space conversion.
	DisableConversion(out Output) error

	// Dither returns the current dither settings and capabilities.
	Dither(out Output) (DitherControl, error)

	// SetDither requests new dither settings.  The driver may adjust the
	// request to what the output supports.
	SetDither(out Output, state, bits, mode int) error

	// EDID returns the raw EDID of the display connected to the output.
	EDID(out Output) ([]byte, error)
}

// Conversion describes a colour space conversion based on an ICC profile.
type Conversion struct {
	// Profile describes the display.
	Profile *icc.MatrixProfile

	// Target is the colour space the display should reproduce.
	Target colorimetry.ColorSpace

	// Curve, if set, replaces the tone response of the profile.
	// If Curve is nil, only the matrix of the profile is used.
	Curve *tonecurve.Curve

	// DisableOptimization asks the driver to program the curve as given,
	// without fitting it to the hardware's native transfer function.
	DisableOptimization bool
}

// Dither states.
const (
	DitherDefault  = 0
	DitherEnabled  = 1
	DitherDisabled = 2
)

// ditherModes lists the names of the dither modes, indexed by mode.
var ditherModes = [NumDitherModes]string{
	"SpatialDynamic",
	"SpatialStatic",
	"SpatialDynamic2x2",
	"SpatialStatic2x2",
	"Temporal",
}

// NumDitherModes is the number of dither modes known to this package.
const NumDitherModes = 5

// NumDitherBits is the number of dither bit depths: 6, 8 and 10 bits.
const NumDitherBits = 3

// DitherControl holds the dither settings of an output.
type DitherControl struct {
	State int // DitherDefault, DitherEnabled or DitherDisabled
	Bits  int // 0 = 6 bit, 1 = 8 bit, 2 = 10 bit
	Mode  int // index into the list of dither modes

	// BitsCaps and ModeCaps are bit masks of the supported values of Bits
	// and Mode, as reported by the driver.
	BitsCaps uint32
	ModeCaps uint32
}

// SupportsBits reports whether the driver supports the given bit depth.
func (d DitherControl) SupportsBits(bits int) bool {
	return bits >= 0 && bits < 32 && d.BitsCaps&(1<<bits) != 0
}

// SupportsMode reports whether the driver supports the given dither mode.
func (d DitherControl) SupportsMode(mode int) bool {
	return mode >= 0 && mode < 32 && d.ModeCaps&(1<<mode) != 0
}

// String returns a human readable description of the dither settings,
// for example "8 bit Temporal (forced)".
func (d DitherControl) String() string {
	if d.State == DitherDisabled {
		return "Disabled (forced)"
	}
	if d.State == DitherDefault && d.Bits == 0 && d.Mode == 0 {
		return "Disabled (default)"
	}

	how := "forced"
	if d.State == DitherDefault {
		how = "default"
	}
	return fmt.Sprintf("%d bit %s (%s)", 6+2*d.Bits, ModeName(d.Mode), how)
}

// ModeName returns the name of a dither mode.
func ModeName(mode int) string {
	if mode < 0 || mode >= len(ditherModes) {
		return fmt.Sprintf("mode %d", mode)
	}
	return ditherModes[mode]
}

// Error is returned when a driver operation fails.
type Error struct {
	Op     string // the failed operation, e.g. "SetConversion"
	Output Output
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("driver: %s on %s: %v", e.Op, e.Output, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
