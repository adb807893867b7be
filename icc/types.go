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
	"unicode/utf16"
)

func decodeText(data []byte) (string, error) {
	err := checkType("text", data)
	if err != nil {
		return "", err
	}

	if len(data) < 8 {
		return "", errInvalidTagData
	}
	start := 8
	end := len(data)
	for end-1 > start && data[end-1] == 0 {
		end--
	}
	return string(data[start:end]), nil
}

// decodeTextDescription decodes an ICC version 2 textDescriptionType.
// Only the ASCII description is used.
func decodeTextDescription(data []byte) (string, error) {
	err := checkType("desc", data)
	if err != nil {
		return "", err
	}

	if len(data) < 12 {
		return "", errInvalidTagData
	}
	n := uint64(getUint32(data, 8))
	if n == 0 || uint64(len(data)) < 12+n {
		return "", errInvalidTagData
	}
	start := 12
	end := 12 + int(n)
	for end > start && data[end-1] == 0 {
		end--
	}
	return string(data[start:end]), nil
}

// MultiLocalizedUnicode represents a localized Unicode string.
type MultiLocalizedUnicode []LocalizedUnicode

// LocalizedUnicode represents a language-country pair.
type LocalizedUnicode struct {
	Language string
	Country  string
	Value    string
}

func decodeMLUC(data []byte) (MultiLocalizedUnicode, error) {
	err := checkType("mluc", data)
	if err != nil {
		return nil, err
	}

	if len(data) < 12 {
		return nil, errInvalidTagData
	}
	n := getUint32(data, 8)

	if n == 0 || uint64(len(data)) < 16+12*uint64(n) {
		return nil, errInvalidTagData
	}
	res := make(MultiLocalizedUnicode, n)
	for i := range res {
		language := string(data[16+12*i : 16+12*i+2])
		country := string(data[16+12*i+2 : 16+12*i+4])
		length := getUint32(data, 16+12*i+4)
		offset := getUint32(data, 16+12*i+8)

		start := uint64(offset)
		end := start + uint64(length)
		if end > uint64(len(data)) || length&1 != 0 {
			return nil, errInvalidTagData
		}

		d16 := make([]uint16, length/2)
		for j := range d16 {
			d16[j] = uint16(data[start+2*uint64(j)])<<8 | uint16(data[start+2*uint64(j)+1])
		}
		res[i] = LocalizedUnicode{
			Language: language,
			Country:  country,
			Value:    string(utf16.Decode(d16)),
		}
	}
	return res, nil
}

// encodeMLUC encodes s as a multiLocalizedUnicodeType with a single en_US entry.
func encodeMLUC(s string) []byte {
	u := utf16.Encode([]rune(s))
	buf := make([]byte, 28+2*len(u))
	copy(buf[0:4], "mluc")
	putUint32(buf, 8, 1)  // number of records
	putUint32(buf, 12, 12) // record size
	copy(buf[16:20], "enUS")
	putUint32(buf, 20, uint32(2*len(u)))
	putUint32(buf, 24, 28)
	for i, c := range u {
		putUint16(buf, 28+2*i, c)
	}
	return buf
}

func checkType(typeID string, data []byte) error {
	bb := []byte(typeID)
	for i, b := range bb {
		if i >= len(data) || data[i] != b {
			return errUnexpectedType
		}
	}
	return nil
}

// String returns the en_US entry, or the first entry if there is none.
func (m MultiLocalizedUnicode) String() string {
	if len(m) == 0 {
		return ""
	}
	for _, lu := range m {
		if lu.Language == "en" && lu.Country == "US" {
			return lu.Value
		}
	}
	return m[0].Value
}

var (
	errMissingTag     = errors.New("icc: missing tag")
	errUnexpectedType = errors.New("icc: unexpected tag data type")
	errInvalidTagData = errors.New("icc: invalid tag data")

	// ErrUnsupportedProfileClass indicates a profile which is not a
	// matrix/TRC RGB profile.
	ErrUnsupportedProfileClass = errors.New("icc: unsupported profile class")
)
