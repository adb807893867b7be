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

package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var testFile = &File{
	HotkeyModifiers: 6,
	HotkeyKey:       83,
	Monitors: []Monitor{
		{
			Path:            `\\?\DISPLAY#DELA0F7#5&1b3a5f1&0&UID4352`,
			ClampSDR:        true,
			SelectedProfile: 1,
			Profiles: []Profile{
				{Name: "Profile 1", CustomGamma: 2.2, CustomPercentage: 100},
				{
					Name:             "Movies",
					UseICC:           true,
					ICCPath:          `C:\Users\jochen\Documents\U2720Q <calibrated> & measured.icm`,
					CalibrateGamma:   true,
					SelectedGamma:    3,
					CustomGamma:      2.4,
					CustomPercentage: 37.5,
					Target:           1,
					DitherState:      1,
					DitherMode:       4,
					DitherBits:       1,
				},
				{Name: "Profile 3", CustomGamma: 2.2, CustomPercentage: 100, DisableOptimization: true},
			},
		},
		{
			Path: `\\?\DISPLAY#GSM5B7F#5&1b3a5f1&0&UID4353`,
			Profiles: []Profile{
				{Name: "Profile 1", CustomGamma: 2.2, CustomPercentage: 100},
			},
		},
	},
}

func TestRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	err := Encode(buf, testFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "<?xml") {
		t.Errorf("missing XML declaration")
	}

	f, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	f.XMLName = testFile.XMLName
	if d := cmp.Diff(testFile, f); d != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", d)
	}
}

func TestDecodeOriginal(t *testing.T) {
	// as written by the original tool
	in := `<?xml version="1.0" encoding="utf-8"?>
<monitors>
  <monitor path="a" clamp_sdr="true" selected_profile="2">
    <profile name="Profile 1" use_icc="false" icc_path="" calibrate_gamma="false" selected_gamma="0" custom_gamma="2.2" custom_percentage="100" target="0" disable_optimization="false" dither_state="0" dither_mode="0" dither_bits="0" />
    <profile name="Profile 2" use_icc="True" icc_path="x.icc" calibrate_gamma="True" selected_gamma="2" custom_gamma="2.35" custom_percentage="50" target="0" disable_optimization="False" dither_state="1" dither_mode="4" dither_bits="1" />
  </monitor>
</monitors>`
	f, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}

	m := f.Monitor("a")
	if m == nil {
		t.Fatal("monitor not found")
	}
	if m.IsLegacy() {
		t.Error("record with profiles reported as legacy")
	}
	want := Profile{
		Name:             "Profile 2",
		UseICC:           true,
		ICCPath:          "x.icc",
		CalibrateGamma:   true,
		SelectedGamma:    2,
		CustomGamma:      2.35,
		CustomPercentage: 50,
		DitherState:      1,
		DitherMode:       4,
		DitherBits:       1,
	}
	if d := cmp.Diff(want, m.Profiles[1]); d != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", d)
	}
	if m.SelectedProfile != 2 || !m.ClampSDR {
		t.Errorf("got selected=%d clamp=%t", m.SelectedProfile, m.ClampSDR)
	}
	if f.Monitor("b") != nil {
		t.Error("unexpected monitor b")
	}
}

func TestLegacy(t *testing.T) {
	in := `<monitors>
  <monitor path="old" clamp_sdr="true" use_icc="true" icc_path="display.icm"
    calibrate_gamma="true" selected_gamma="4" target="2" disable_optimization="true" />
  <monitor path="older" clamp_sdr="false" />
</monitors>`
	f, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}

	m := f.Monitor("old")
	if !m.IsLegacy() {
		t.Fatal("legacy record not recognised")
	}
	want := Profile{
		Name:                "Profile 1",
		UseICC:              true,
		ICCPath:             "display.icm",
		CalibrateGamma:      true,
		SelectedGamma:       4,
		CustomGamma:         DefaultCustomGamma,
		CustomPercentage:    DefaultCustomPercentage,
		Target:              2,
		DisableOptimization: true,
	}
	if d := cmp.Diff(want, m.LegacyProfile("Profile 1")); d != "" {
		t.Errorf("legacy profile mismatch (-want +got):\n%s", d)
	}

	want = Profile{
		Name:             "Profile 1",
		CustomGamma:      DefaultCustomGamma,
		CustomPercentage: DefaultCustomPercentage,
	}
	if d := cmp.Diff(want, f.Monitor("older").LegacyProfile("Profile 1")); d != "" {
		t.Errorf("empty legacy profile mismatch (-want +got):\n%s", d)
	}

	// legacy attributes are not written back
	f.Monitors[0].Profiles = []Profile{m.LegacyProfile("Profile 1")}
	buf := &bytes.Buffer{}
	if err := Encode(buf, f); err != nil {
		t.Fatal(err)
	}
	g, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if g.Monitors[0].UseICC != nil || g.Monitors[0].ICCPath != nil {
		t.Error("legacy attributes were written")
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, in := range []string{
		``,
		`<monitors><monitor path="a" clamp_sdr="maybe"/></monitors>`,
		`<monitors><monitor path="a"><profile custom_gamma="x"/></monitor></monitors>`,
		`<settings/>`,
	} {
		if _, err := Decode(strings.NewReader(in)); err == nil {
			t.Errorf("%q: expected an error", in)
		}
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s := &FileStore{Path: filepath.Join(dir, "config.xml")}

	f, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(&File{}, f); d != "" {
		t.Errorf("missing file: (-want +got):\n%s", d)
	}

	if err := s.Save(testFile); err != nil {
		t.Fatal(err)
	}
	f, err = s.Load()
	if err != nil {
		t.Fatal(err)
	}
	f.XMLName = testFile.XMLName
	if d := cmp.Diff(testFile, f); d != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", d)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("found %d files, want 1", len(entries))
	}
}

func TestFileStoreErrors(t *testing.T) {
	dir := t.TempDir()

	s := &FileStore{Path: filepath.Join(dir, "missing", "config.xml")}
	err := s.Save(testFile)
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("got %v, want *PersistenceError", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("got %v, want fs.ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.xml")
	if err := os.WriteFile(bad, []byte("<monitors>"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = (&FileStore{Path: bad}).Load()
	if !errors.As(err, &perr) {
		t.Errorf("got %v, want *PersistenceError", err)
	}
}
