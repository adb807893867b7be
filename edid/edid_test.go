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

package edid

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/srgbclamp/colorimetry"
)

// dellU2720Q is the base block of a wide-gamut office monitor.
var dellU2720Q = &Info{
	Manufacturer: "DEL",
	ProductCode:  0xA0F7,
	SerialNumber: 0x4C4B3433,
	Version:      1,
	Revision:     4,
	Name:         "DELL U2720Q",
	Red:          colorimetry.Point{X: 696.0 / 1024, Y: 310.0 / 1024},
	Green:        colorimetry.Point{X: 217.0 / 1024, Y: 720.0 / 1024},
	Blue:         colorimetry.Point{X: 153.0 / 1024, Y: 53.0 / 1024},
	White:        colorimetry.Point{X: 321.0 / 1024, Y: 337.0 / 1024},
	Extensions:   1,
}

func TestRoundTrip(t *testing.T) {
	data := dellU2720Q.Encode()
	if len(data) != BlockSize {
		t.Fatalf("len(data) = %d, want %d", len(data), BlockSize)
	}
	info, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(dellU2720Q, info); d != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", d)
	}
}

func TestChromaticityBits(t *testing.T) {
	data := make([]byte, BlockSize)
	copy(data, header[:])
	// red x = 0xA3<<2 | 3
	data[27] = 0xA3
	data[25] = 0xC0
	// white y = 0x150 / 1024
	data[34] = 0x54
	data[26] = 0x00
	var sum byte
	for _, b := range data[:127] {
		sum += b
	}
	data[127] = -sum

	info, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if want := float64(0xA3<<2|3) / 1024; info.Red.X != want {
		t.Errorf("red x = %f, want %f", info.Red.X, want)
	}
	if want := float64(0x54<<2) / 1024; info.White.Y != want {
		t.Errorf("white y = %f, want %f", info.White.Y, want)
	}
	if info.Name != "" {
		t.Errorf("name = %q, want empty", info.Name)
	}
	if info.Manufacturer != "" {
		t.Errorf("manufacturer = %q, want empty", info.Manufacturer)
	}
}

func TestColorSpace(t *testing.T) {
	cs := dellU2720Q.ColorSpace().Round()
	want := colorimetry.ColorSpace{
		Red:   colorimetry.Point{X: 0.680, Y: 0.303},
		Green: colorimetry.Point{X: 0.212, Y: 0.703},
		Blue:  colorimetry.Point{X: 0.149, Y: 0.052},
		White: colorimetry.Point{X: 0.313, Y: 0.329},
	}
	if d := cmp.Diff(want, cs); d != "" {
		t.Errorf("colour space mismatch (-want +got):\n%s", d)
	}
}

func TestDecodeInvalid(t *testing.T) {
	good := dellU2720Q.Encode()

	badHeader := append([]byte{}, good...)
	badHeader[0] = 1
	badSum := append([]byte{}, good...)
	badSum[127]++

	tests := []struct {
		name   string
		data   []byte
		offset int
	}{
		{"short", good[:100], 0},
		{"header", badHeader, 0},
		{"checksum", badSum, 127},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			var e *InvalidEDIDError
			if !errors.As(err, &e) {
				t.Fatalf("got %v, want *InvalidEDIDError", err)
			}
			if e.Offset != tt.offset {
				t.Errorf("offset = %d, want %d", e.Offset, tt.offset)
			}
		})
	}
}

func TestLongName(t *testing.T) {
	info := &Info{Name: "A VERY LONG MONITOR NAME"}
	got, err := Decode(info.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "A VERY LONG M" {
		t.Errorf("name = %q, want %q", got.Name, "A VERY LONG M")
	}
}

func TestNameCodePage(t *testing.T) {
	info := &Info{Name: "Écran 27"}
	data := info.Encode()
	if data[59] != 0x90 {
		t.Errorf("first name byte = 0x%02X, want 0x90", data[59])
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != info.Name {
		t.Errorf("name = %q, want %q", got.Name, info.Name)
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(dellU2720Q.Encode())
	f.Add((&Info{}).Encode())
	f.Fuzz(func(t *testing.T, a []byte) {
		info, err := Decode(a)
		if err != nil {
			return
		}
		b := info.Encode()
		info2, err := Decode(b)
		if err != nil {
			t.Fatalf("re-decoding failed: %v", err)
		}
		if info.Name == info2.Name && info.Red == info2.Red && info.White == info2.White {
			return
		}
		t.Fatalf("info differs:\n%s", cmp.Diff(info, info2))
	})
}
