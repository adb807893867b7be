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

// Package config reads and writes the persisted settings of all displays.
//
// The settings are stored as an XML file with one <monitor> element per
// display, keyed by the display's device path, and one <profile> element per
// calibration profile:
//
//	<monitors>
//	  <monitor path="..." clamp_sdr="true" selected_profile="0">
//	    <profile name="Profile 1" use_icc="false" icc_path="" ... />
//	  </monitor>
//	</monitors>
//
// Files written before profiles were introduced store the settings of a
// single profile as attributes of the <monitor> element.  Such legacy
// records are still read, see [Monitor.LegacyProfile].
package config

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Default values for profile settings which are missing from legacy records.
const (
	DefaultCustomGamma      = 2.2
	DefaultCustomPercentage = 100
)

// File is the content of a configuration file.
type File struct {
	XMLName xml.Name `xml:"monitors"`

	// HotkeyModifiers and HotkeyKey describe the global hotkey which
	// toggles clamping on all displays.  Zero values mean "not set".
	HotkeyModifiers int `xml:"hotkey_modifiers,attr,omitempty"`
	HotkeyKey       int `xml:"hotkey_key,attr,omitempty"`

	Monitors []Monitor `xml:"monitor"`
}

// Monitor holds the settings of one display.
type Monitor struct {
	Path            string    `xml:"path,attr"`
	ClampSDR        bool      `xml:"clamp_sdr,attr"`
	SelectedProfile int       `xml:"selected_profile,attr"`
	Profiles        []Profile `xml:"profile"`

	// Legacy profile settings.  These are only present in files written
	// before a display could have more than one profile, and are never
	// written.
	UseICC              *bool    `xml:"use_icc,attr"`
	ICCPath             *string  `xml:"icc_path,attr"`
	CalibrateGamma      *bool    `xml:"calibrate_gamma,attr"`
	SelectedGamma       *int     `xml:"selected_gamma,attr"`
	CustomGamma         *float64 `xml:"custom_gamma,attr"`
	CustomPercentage    *float64 `xml:"custom_percentage,attr"`
	Target              *int     `xml:"target,attr"`
	DisableOptimization *bool    `xml:"disable_optimization,attr"`
}

// Profile holds the settings of one calibration profile.
type Profile struct {
	Name                string  `xml:"name,attr"`
	UseICC              bool    `xml:"use_icc,attr"`
	ICCPath             string  `xml:"icc_path,attr"`
	CalibrateGamma      bool    `xml:"calibrate_gamma,attr"`
	SelectedGamma       int     `xml:"selected_gamma,attr"`
	CustomGamma         float64 `xml:"custom_gamma,attr"`
	CustomPercentage    float64 `xml:"custom_percentage,attr"`
	Target              int     `xml:"target,attr"`
	DisableOptimization bool    `xml:"disable_optimization,attr"`
	DitherState         int     `xml:"dither_state,attr"`
	DitherMode          int     `xml:"dither_mode,attr"`
	DitherBits          int     `xml:"dither_bits,attr"`
}

// Monitor returns the settings stored for the display with the given path,
// or nil if there are none.
func (f *File) Monitor(path string) *Monitor {
	for i := range f.Monitors {
		if f.Monitors[i].Path == path {
			return &f.Monitors[i]
		}
	}
	return nil
}

// IsLegacy reports whether m was written before displays had several
// profiles, i.e. whether it has no <profile> children.
func (m *Monitor) IsLegacy() bool {
	return len(m.Profiles) == 0
}

// LegacyProfile returns the single profile described by the attributes of
// a legacy record.  Missing attributes take their default values.  The
// dither fields are left at zero: legacy files did not store them.
func (m *Monitor) LegacyProfile(name string) Profile {
	p := Profile{
		Name:             name,
		CustomGamma:      DefaultCustomGamma,
		CustomPercentage: DefaultCustomPercentage,
	}
	if m.UseICC != nil {
		p.UseICC = *m.UseICC
	}
	if m.ICCPath != nil {
		p.ICCPath = *m.ICCPath
	}
	if m.CalibrateGamma != nil {
		p.CalibrateGamma = *m.CalibrateGamma
	}
	if m.SelectedGamma != nil {
		p.SelectedGamma = *m.SelectedGamma
	}
	if m.CustomGamma != nil {
		p.CustomGamma = *m.CustomGamma
	}
	if m.CustomPercentage != nil {
		p.CustomPercentage = *m.CustomPercentage
	}
	if m.Target != nil {
		p.Target = *m.Target
	}
	if m.DisableOptimization != nil {
		p.DisableOptimization = *m.DisableOptimization
	}
	return p
}

// Decode reads a configuration file from r.
func Decode(r io.Reader) (*File, error) {
	f := &File{}
	err := xml.NewDecoder(r).Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return f, nil
}

// Encode writes f to w.  Legacy attributes are dropped; records without
// profiles must be converted before encoding.
func Encode(w io.Writer, f *File) error {
	out := &File{
		HotkeyModifiers: f.HotkeyModifiers,
		HotkeyKey:       f.HotkeyKey,
		Monitors:        make([]Monitor, len(f.Monitors)),
	}
	for i, m := range f.Monitors {
		out.Monitors[i] = Monitor{
			Path:            m.Path,
			ClampSDR:        m.ClampSDR,
			SelectedProfile: m.SelectedProfile,
			Profiles:        m.Profiles,
		}
	}

	_, err := io.WriteString(w, xml.Header)
	if err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	err = enc.Encode(out)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// FileStore keeps the configuration in a file.
type FileStore struct {
	Path string
}

// Load reads the configuration file.  If the file does not exist, an empty
// configuration is returned.
func (s *FileStore) Load() (*File, error) {
	fd, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return &File{}, nil
	} else if err != nil {
		return nil, &PersistenceError{Path: s.Path, Err: err}
	}
	defer fd.Close()

	f, err := Decode(fd)
	if err != nil {
		return nil, &PersistenceError{Path: s.Path, Err: err}
	}
	return f, nil
}

// Save writes the configuration file.  The new content is written to a
// temporary file first, which then replaces the old file.
func (s *FileStore) Save(f *File) error {
	buf := &bytes.Buffer{}
	err := Encode(buf, f)
	if err != nil {
		return &PersistenceError{Path: s.Path, Err: err}
	}

	dir, base := filepath.Split(s.Path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return &PersistenceError{Path: s.Path, Err: err}
	}
	_, err = tmp.Write(buf.Bytes())
	if err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}
	if err == nil {
		err = os.Rename(tmp.Name(), s.Path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return &PersistenceError{Path: s.Path, Err: err}
	}
	return nil
}

// PersistenceError is returned when the configuration cannot be read or
// written.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
