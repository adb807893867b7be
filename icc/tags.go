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

import "fmt"

// The TagType identifies a tag in an ICC profile.
type TagType uint32

func (t TagType) String() string {
	switch t {
	case ProfileDescription:
		return "Profile Description"
	case Copyright:
		return "Copyright"
	case ChromaticAdaption:
		return "Chromatic Adaption"
	case MediaWhitePoint:
		return "Media White Point"
	default:
		bb := []byte{
			byte(t >> 24),
			byte(t >> 16),
			byte(t >> 8),
			byte(t),
		}
		for _, c := range bb {
			if c < 0x20 || c > 0x7E {
				return fmt.Sprintf("0x%08X", uint32(t))
			}
		}
		return fmt.Sprintf("%q", string(bb))
	}
}

// These are the tag types used by display profiles.
// (The ICC specification defines many more.)
const (
	ProfileDescription TagType = 0x64657363 // "desc"
	Copyright          TagType = 0x63707274 // "cprt"
	ChromaticAdaption  TagType = 0x63686164 // "chad"
	MediaWhitePoint    TagType = 0x77747074 // "wtpt"

	RedMatrixColumn   TagType = 0x7258595A // "rXYZ"
	GreenMatrixColumn TagType = 0x6758595A // "gXYZ"
	BlueMatrixColumn  TagType = 0x6258595A // "bXYZ"
	RedTRC            TagType = 0x72545243 // "rTRC"
	GreenTRC          TagType = 0x67545243 // "gTRC"
	BlueTRC           TagType = 0x62545243 // "bTRC"
	GrayTRC           TagType = 0x6B545243 // "kTRC"

	AToB0 TagType = 0x41324230 // "A2B0"
	AToB1 TagType = 0x41324231 // "A2B1"
	AToB2 TagType = 0x41324232 // "A2B2"
	BToA0 TagType = 0x42324130 // "B2A0"
	BToA1 TagType = 0x42324131 // "B2A1"
	BToA2 TagType = 0x42324132 // "B2A2"
)

// lutTags are the tags which make a profile LUT-based.
var lutTags = []TagType{AToB0, AToB1, AToB2, BToA0, BToA1, BToA2}

// Copyright returns the copyright notice stored in the profile.
func (p *Profile) Copyright() (MultiLocalizedUnicode, error) {
	return p.localizedText(Copyright)
}

// Description returns the profile description, as shown to users when
// they select a profile.
func (p *Profile) Description() (MultiLocalizedUnicode, error) {
	return p.localizedText(ProfileDescription)
}

func (p *Profile) localizedText(tagType TagType) (MultiLocalizedUnicode, error) {
	tag, ok := p.TagData[tagType]
	if !ok {
		return nil, errMissingTag
	}
	val, err := decodeMLUC(tag)
	if err != errUnexpectedType {
		return val, err
	}

	// ICC version 2 profiles use textType or textDescriptionType
	s, err := decodeText(tag)
	if err == errUnexpectedType {
		s, err = decodeTextDescription(tag)
	}
	if err != nil {
		return nil, err
	}
	val = MultiLocalizedUnicode{
		{
			Language: "en",
			Country:  "US",
			Value:    s,
		},
	}
	return val, nil
}
