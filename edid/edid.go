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

// Package edid decodes the base block of the Extended Display Identification
// Data which a display reports to the graphics card.
//
// Only the information needed to describe the display's native colour space
// is extracted: the chromaticities of the primaries and the white point, the
// manufacturer and product code, and the monitor name.
package edid

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"seehuhn.de/go/srgbclamp/colorimetry"
)

// BlockSize is the size of an EDID block in bytes.
const BlockSize = 128

var header = [8]byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// Info is the decoded content of an EDID base block.
type Info struct {
	Manufacturer string // three-letter PNP ID
	ProductCode  uint16
	SerialNumber uint32
	Version      int
	Revision     int

	// Name is the content of the monitor name descriptor, or "" if the
	// display does not report a name.
	Name string

	// Chromaticities as reported by the display, at 10-bit precision.
	Red, Green, Blue, White colorimetry.Point

	// Extensions is the number of extension blocks following the base block.
	Extensions int
}

// Decode decodes the base block at the start of data.
// Extension blocks, if any, are ignored.
func Decode(data []byte) (*Info, error) {
	if len(data) < BlockSize {
		return nil, invalidEDID(0, "block is too short")
	}
	for i, b := range header {
		if data[i] != b {
			return nil, invalidEDID(i, "missing header")
		}
	}
	var sum byte
	for _, b := range data[:BlockSize] {
		sum += b
	}
	if sum != 0 {
		return nil, invalidEDID(127, "checksum mismatch")
	}

	info := &Info{
		Manufacturer: decodePNPID(uint16(data[8])<<8 | uint16(data[9])),
		ProductCode:  uint16(data[10]) | uint16(data[11])<<8,
		SerialNumber: uint32(data[12]) | uint32(data[13])<<8 | uint32(data[14])<<16 | uint32(data[15])<<24,
		Version:      int(data[18]),
		Revision:     int(data[19]),
		Extensions:   int(data[126]),
	}

	// bytes 25 and 26 hold the two low-order bits of every coordinate,
	// bytes 27 to 34 the eight high-order bits
	lo := uint16(data[25])<<8 | uint16(data[26])
	coord := func(idx int) float64 {
		shift := 14 - 2*idx
		v := uint16(data[27+idx])<<2 | (lo>>shift)&3
		return float64(v) / 1024
	}
	info.Red = colorimetry.Point{X: coord(0), Y: coord(1)}
	info.Green = colorimetry.Point{X: coord(2), Y: coord(3)}
	info.Blue = colorimetry.Point{X: coord(4), Y: coord(5)}
	info.White = colorimetry.Point{X: coord(6), Y: coord(7)}

	for _, offset := range []int{54, 72, 90, 108} {
		d := data[offset : offset+18]
		if d[0] != 0 || d[1] != 0 {
			// detailed timing descriptor
			continue
		}
		if d[3] == 0xFC {
			info.Name = descriptorString(d[5:])
			break
		}
	}

	return info, nil
}

// ColorSpace returns the native colour space of the display.
func (info *Info) ColorSpace() colorimetry.ColorSpace {
	return colorimetry.ColorSpace{
		Red:   info.Red,
		Green: info.Green,
		Blue:  info.Blue,
		White: info.White,
	}
}

// Encode returns a base block carrying the identification, chromaticities
// and name of info.  The block has no timing descriptors.
func (info *Info) Encode() []byte {
	data := make([]byte, BlockSize)
	copy(data, header[:])

	id := encodePNPID(info.Manufacturer)
	data[8], data[9] = byte(id>>8), byte(id)
	data[10], data[11] = byte(info.ProductCode), byte(info.ProductCode>>8)
	for i := 0; i < 4; i++ {
		data[12+i] = byte(info.SerialNumber >> (8 * i))
	}
	data[18], data[19] = byte(info.Version), byte(info.Revision)

	var lo uint16
	for idx, x := range []float64{
		info.Red.X, info.Red.Y, info.Green.X, info.Green.Y,
		info.Blue.X, info.Blue.Y, info.White.X, info.White.Y,
	} {
		v := uint16(math.Round(min(max(x, 0), 1023.0/1024) * 1024))
		data[27+idx] = byte(v >> 2)
		lo |= (v & 3) << (14 - 2*idx)
	}
	data[25], data[26] = byte(lo>>8), byte(lo)

	// unused descriptors
	for _, offset := range []int{54, 72, 90, 108} {
		data[offset+3] = 0x10
	}
	if info.Name != "" {
		d := data[54:72]
		d[3] = 0xFC
		text := d[5:]
		name, _ := encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder()).Bytes([]byte(info.Name))
		n := copy(text, name)
		if n < len(text) {
			text[n] = 0x0A
			for i := n + 1; i < len(text); i++ {
				text[i] = ' '
			}
		}
	}

	data[126] = byte(info.Extensions)
	var sum byte
	for _, b := range data[:127] {
		sum += b
	}
	data[127] = -sum
	return data
}

// decodePNPID decodes the compressed three-letter manufacturer ID.
func decodePNPID(v uint16) string {
	var b [3]byte
	for i := range b {
		c := (v >> (10 - 5*i)) & 0x1F
		if c < 1 || c > 26 {
			return ""
		}
		b[i] = 'A' + byte(c) - 1
	}
	return string(b[:])
}

func encodePNPID(s string) uint16 {
	if len(s) != 3 {
		return 0
	}
	var v uint16
	for i := 0; i < 3; i++ {
		c := s[i]
		if c < 'A' || c > 'Z' {
			return 0
		}
		v |= uint16(c-'A'+1) << (10 - 5*i)
	}
	return v
}

// descriptorString extracts the text of a display descriptor.
// The text uses code page 437, is terminated by a line feed and is padded
// with spaces.
func descriptorString(b []byte) string {
	if i := bytes.IndexByte(b, 0x0A); i >= 0 {
		b = b[:i]
	}
	text, err := charmap.CodePage437.NewDecoder().Bytes(b)
	if err != nil {
		text = b
	}
	return strings.TrimRight(string(text), " \x00")
}

// InvalidEDIDError indicates that EDID data could not be decoded.
type InvalidEDIDError struct {
	Offset int
	Reason string
}

func invalidEDID(offset int, reason string) error {
	return &InvalidEDIDError{Offset: offset, Reason: reason}
}

func (e *InvalidEDIDError) Error() string {
	return fmt.Sprintf("edid: invalid data at offset %d: %s", e.Offset, e.Reason)
}
