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

package driver

import (
	"seehuhn.de/go/srgbclamp/colorimetry"
	"seehuhn.de/go/srgbclamp/edid"
)

// Display describes a physical display, as found by enumeration.
type Display struct {
	Output Output

	// Path identifies the display across restarts and topology changes.
	Path string

	// Name is the monitor name from the EDID, or "<no name>".
	Name string

	// ColorSpace is the native colour space from the EDID, rounded to
	// three decimals and with a D65 white point.
	ColorSpace colorimetry.ColorSpace

	HDRActive bool
	BitDepth  int
}

// Enumerator lists the displays which are currently connected.
type Enumerator interface {
	Displays() ([]Display, error)
}

// NoName is used as the display name if the EDID has no name descriptor.
const NoName = "<no name>"

// DisplayFromEDID reads the EDID of out and fills in the name and native
// colour space of a Display.
//
// Displays report their white point with varying accuracy, so the white
// point is always taken to be D65.
func DisplayFromEDID(d Driver, out Output, path string, hdrActive bool, bitDepth int) (Display, error) {
	data, err := d.EDID(out)
	if err != nil {
		return Display{}, err
	}
	info, err := edid.Decode(data)
	if err != nil {
		return Display{}, err
	}

	cs := info.ColorSpace().Round()
	cs.White = colorimetry.D65
	name := info.Name
	if name == "" {
		name = NoName
	}
	return Display{
		Output:     out,
		Path:       path,
		Name:       name,
		ColorSpace: cs,
		HDRActive:  hdrActive,
		BitDepth:   bitDepth,
	}, nil
}
