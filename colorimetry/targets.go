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

// Reference colour spaces.
var (
	SRGB = ColorSpace{
		Red:   Point{0.640, 0.330},
		Green: Point{0.300, 0.600},
		Blue:  Point{0.150, 0.060},
		White: D65,
	}

	DisplayP3 = ColorSpace{
		Red:   Point{0.680, 0.320},
		Green: Point{0.265, 0.690},
		Blue:  Point{0.150, 0.060},
		White: D65,
	}

	AdobeRGB = ColorSpace{
		Red:   Point{0.640, 0.330},
		Green: Point{0.210, 0.710},
		Blue:  Point{0.150, 0.060},
		White: D65,
	}

	BT2020 = ColorSpace{
		Red:   Point{0.708, 0.292},
		Green: Point{0.170, 0.797},
		Blue:  Point{0.131, 0.046},
		White: D65,
	}
)

// Target is an entry in the table of colour spaces a display can be
// clamped to.
type Target struct {
	Name  string
	Space ColorSpace
}

// Targets lists the colour spaces a display can be clamped to.  Persisted
// settings refer to targets by their index in this table, so entries must
// only ever be appended.
var Targets = []Target{
	{Name: "sRGB", Space: SRGB},
	{Name: "Display P3", Space: DisplayP3},
	{Name: "Adobe RGB", Space: AdobeRGB},
	{Name: "BT.2020", Space: BT2020},
}

// TargetSpace returns the colour space stored at index idx of [Targets].
func TargetSpace(idx int) (ColorSpace, error) {
	if idx < 0 || idx >= len(Targets) {
		return ColorSpace{}, ErrUnknownTarget
	}
	return Targets[idx].Space, nil
}
