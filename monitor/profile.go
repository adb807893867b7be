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

package monitor

import (
	"fmt"

	"seehuhn.de/go/srgbclamp/config"
	"seehuhn.de/go/srgbclamp/tonecurve"
)

// DefaultProfileCount is the number of profile slots of a display without
// stored settings.
const DefaultProfileCount = 3

// Profile is a named set of calibration settings for one display.
type Profile struct {
	Name string

	// UseICC selects the ICC profile at ICCPath as the description of the
	// display.  Otherwise the primaries from the EDID are used.
	UseICC  bool
	ICCPath string

	// CalibrateGamma replaces the tone response of the ICC profile by the
	// curve selected by GammaKind.
	CalibrateGamma   bool
	GammaKind        tonecurve.Kind
	CustomGamma      float64
	CustomPercentage float64

	// Target is an index into [colorimetry.Targets].
	Target int

	DisableOptimization bool

	DitherState int
	DitherMode  int
	DitherBits  int
}

// NewProfile returns a profile with default settings.
func NewProfile(name string) Profile {
	return Profile{
		Name:             name,
		CustomGamma:      config.DefaultCustomGamma,
		CustomPercentage: config.DefaultCustomPercentage,
	}
}

func defaultProfiles() []Profile {
	res := make([]Profile, DefaultProfileCount)
	for i := range res {
		res[i] = NewProfile(defaultProfileName(i))
	}
	return res
}

func defaultProfileName(i int) string {
	return fmt.Sprintf("Profile %d", i+1)
}

func profileFromConfig(c config.Profile) Profile {
	return Profile{
		Name:                c.Name,
		UseICC:              c.UseICC,
		ICCPath:             c.ICCPath,
		CalibrateGamma:      c.CalibrateGamma,
		GammaKind:           tonecurve.Kind(c.SelectedGamma),
		CustomGamma:         c.CustomGamma,
		CustomPercentage:    c.CustomPercentage,
		Target:              c.Target,
		DisableOptimization: c.DisableOptimization,
		DitherState:         c.DitherState,
		DitherMode:          c.DitherMode,
		DitherBits:          c.DitherBits,
	}
}

func (p Profile) toConfig() config.Profile {
	return config.Profile{
		Name:                p.Name,
		UseICC:              p.UseICC,
		ICCPath:             p.ICCPath,
		CalibrateGamma:      p.CalibrateGamma,
		SelectedGamma:       int(p.GammaKind),
		CustomGamma:         p.CustomGamma,
		CustomPercentage:    p.CustomPercentage,
		Target:              p.Target,
		DisableOptimization: p.DisableOptimization,
		DitherState:         p.DitherState,
		DitherMode:          p.DitherMode,
		DitherBits:          p.DitherBits,
	}
}
