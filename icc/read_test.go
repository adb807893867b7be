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
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDateTime(t *testing.T) {
	in := []byte{
		byte(2020 >> 8), byte(2020 & 0xFF),
		0, 1,
		0, 2,
		0, 4,
		0, 5,
		0, 6,
	}
	want := "2020-01-02 04:05:06 +0000 UTC"
	got := getDateTime(in, 0).String()
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecodeHeader(t *testing.T) {
	p := &Profile{
		Version:         Version4_3_0,
		Class:           DisplayDeviceProfile,
		ColorSpace:      RGBSpace,
		PCS:             PCSXYZSpace,
		CreationDate:    time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		RenderingIntent: Perceptual,
		TagData: map[TagType][]byte{
			ProfileDescription: encodeMLUC("wide gamut panel"),
		},
	}
	data := p.Encode()

	// trailing garbage after the declared size does not affect the checksum
	data = append(data, 1, 2, 3)

	q, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	p.CheckSum = CheckSumValid
	if d := cmp.Diff(p, q); d != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", d)
	}

	desc, err := q.Description()
	if err != nil {
		t.Fatal(err)
	}
	if desc.String() != "wide gamut panel" {
		t.Errorf("description = %q", desc)
	}
}

func TestDecodeInvalid(t *testing.T) {
	valid := (&Profile{Class: DisplayDeviceProfile}).Encode()

	noSig := append([]byte(nil), valid...)
	copy(noSig[36:], "xxxx")

	tooManyTags := append([]byte(nil), valid...)
	putUint32(tooManyTags, 128, 1000)

	badTag := (&Profile{TagData: map[TagType][]byte{ProfileDescription: {1, 2, 3, 4}}}).Encode()
	putUint32(badTag, 128+4+4, 0xFFFF)

	tests := []struct {
		name   string
		data   []byte
		offset int
	}{
		{"short", valid[:100], 0},
		{"signature", noSig, 36},
		{"tag count", tooManyTags, 128},
		{"tag bounds", badTag, 128 + 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			var e *InvalidProfileError
			if !errors.As(err, &e) {
				t.Fatalf("got %v, want *InvalidProfileError", err)
			}
			if e.Offset != tt.offset {
				t.Errorf("offset = %d, want %d", e.Offset, tt.offset)
			}
		})
	}
}

func FuzzDecode(f *testing.F) {
	p := &Profile{
		TagData:      make(map[TagType][]byte),
		CreationDate: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	f.Add(p.Encode())
	p.TagData[0x100] = []byte{0, 0, 0, 0}
	f.Add(p.Encode())
	p.TagData[0x6368726D] = []byte{0, 0, 0, 0}
	f.Add(p.Encode())
	f.Fuzz(func(t *testing.T, a []byte) {
		p, err := Decode(a)
		if err != nil {
			return
		}
		b := p.Encode()
		q, err := Decode(b)
		if err != nil {
			t.Fatalf("re-decoding failed: %v", err)
		}

		p.CheckSum = CheckSumMissing
		q.CheckSum = CheckSumMissing
		if !reflect.DeepEqual(p, q) {
			d := cmp.Diff(p, q)
			fmt.Println(d)
			t.Fatalf("profiles differ")
		}
	})
}
