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
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"seehuhn.de/go/srgbclamp/colorimetry"
)

// testMatrix is the colorant matrix of a wide-gamut panel, adapted to D50.
var testMatrix = colorimetry.Matrix{
	{0.5151, 0.2920, 0.1571},
	{0.2412, 0.6922, 0.0666},
	{-0.0011, 0.0419, 0.7841},
}

func raisedBlackProfile() *MatrixProfile {
	mp := &MatrixProfile{
		Matrix:      testMatrix,
		WhitePoint:  colorimetry.Vector{0.9642, 1, 0.8249},
		Description: "Test Display",
	}
	for i, c := range []float64{0.01, 0.008, 0.012} {
		mp.TRC[i] = &Curve{FuncType: 2, Params: []float64{2.2, 1 - c, 0, c}}
	}
	return mp
}

func TestMatrixProfileBlack(t *testing.T) {
	mp := raisedBlackProfile()

	want := testMatrix.Apply(colorimetry.Vector{0.01, 0.008, 0.012})
	got := mp.Black()
	if d := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); d != "" {
		t.Errorf("black point mismatch (-want +got):\n%s", d)
	}

	// the same after a trip through the binary format
	q, err := ParseMatrixProfile(mp.Encode())
	if err != nil {
		t.Fatal(err)
	}
	wantDecoded := q.Matrix.Apply(colorimetry.Vector{
		q.TRC[0].Params[3], q.TRC[1].Params[3], q.TRC[2].Params[3],
	})
	if d := cmp.Diff(wantDecoded, q.Black(), cmpopts.EquateApprox(0, 1e-12)); d != "" {
		t.Errorf("decoded black point mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff(want, q.Black(), cmpopts.EquateApprox(0, 1e-4)); d != "" {
		t.Errorf("decoded black point drifted (-want +got):\n%s", d)
	}
}

func TestMatrixProfileRoundTrip(t *testing.T) {
	mp := raisedBlackProfile()
	q, err := ParseMatrixProfile(mp.Encode())
	if err != nil {
		t.Fatal(err)
	}
	// s15Fixed16Number has a resolution of 1/65536
	if d := cmp.Diff(mp, q, cmpopts.EquateApprox(0, 1e-4)); d != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", d)
	}
}

func TestMatrixProfileToXYZ(t *testing.T) {
	mp := &MatrixProfile{Matrix: testMatrix}
	for i := range mp.TRC {
		mp.TRC[i] = &Curve{Gamma: 1}
	}
	white := mp.ToXYZ(1, 1, 1)
	for i := 0; i < 3; i++ {
		want := testMatrix[i][0] + testMatrix[i][1] + testMatrix[i][2]
		if math.Abs(white[i]-want) > 1e-12 {
			t.Errorf("white[%d] = %f, want %f", i, white[i], want)
		}
	}
}

func TestReadMatrixProfile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "display.icc")
	err := os.WriteFile(fname, raisedBlackProfile().Encode(), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	mp, err := ReadMatrixProfile(fname)
	if err != nil {
		t.Fatal(err)
	}
	if mp.Description != "Test Display" {
		t.Errorf("description = %q, want %q", mp.Description, "Test Display")
	}

	_, err = ReadMatrixProfile(filepath.Join(t.TempDir(), "missing.icc"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want os.ErrNotExist", err)
	}
}

func TestMatrixProfileUnsupported(t *testing.T) {
	base := func() *Profile {
		p, err := Decode(raisedBlackProfile().Encode())
		if err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name   string
		modify func(p *Profile)
	}{
		{"LUT-based", func(p *Profile) { p.TagData[AToB0] = []byte{'m', 'A', 'B', ' ', 0, 0, 0, 0} }},
		{"gray", func(p *Profile) { p.ColorSpace = GraySpace }},
		{"CMYK", func(p *Profile) { p.ColorSpace = CMYKSpace }},
		{"Lab PCS", func(p *Profile) { p.PCS = PCSLabSpace }},
		{"device link", func(p *Profile) { p.Class = DeviceLinkProfile }},
		{"missing rTRC", func(p *Profile) { delete(p.TagData, RedTRC) }},
		{"missing bXYZ", func(p *Profile) { delete(p.TagData, BlueMatrixColumn) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.modify(p)

			_, err := NewMatrixProfile(p)
			if !errors.Is(err, ErrUnsupportedProfileClass) {
				t.Errorf("got %v, want ErrUnsupportedProfileClass", err)
			}

			_, err = ParseMatrixProfile(p.Encode())
			if !errors.Is(err, ErrUnsupportedProfileClass) {
				t.Errorf("after encoding: got %v, want ErrUnsupportedProfileClass", err)
			}
		})
	}
}

func TestMatrixProfileMalformed(t *testing.T) {
	p, err := Decode(raisedBlackProfile().Encode())
	if err != nil {
		t.Fatal(err)
	}
	p.TagData[GreenMatrixColumn] = []byte{'X', 'Y', 'Z', ' ', 0, 0, 0, 0}
	_, err = NewMatrixProfile(p)
	if !errors.Is(err, errInvalidTagData) {
		t.Errorf("short XYZ: got %v, want errInvalidTagData", err)
	}

	p.TagData[GreenMatrixColumn] = encodeXYZ(colorimetry.Vector{0.3, 0.7, 0.04})
	p.TagData[GreenTRC] = []byte{'s', 'f', '3', '2', 0, 0, 0, 0, 0, 0, 0, 0}
	_, err = NewMatrixProfile(p)
	if !errors.Is(err, errUnexpectedType) {
		t.Errorf("bad TRC: got %v, want errUnexpectedType", err)
	}

	_, err = ParseMatrixProfile([]byte("not an ICC profile"))
	var perr *InvalidProfileError
	if !errors.As(err, &perr) {
		t.Errorf("garbage input: got %v, want *InvalidProfileError", err)
	}
}
