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
	"fmt"

	"seehuhn.de/go/srgbclamp/colorimetry"
)

// MatrixProfile is an RGB display profile of the matrix/TRC class: the
// colorant tags form a 3x3 matrix from linear device RGB to PCS XYZ, and
// each channel is linearised by its own tone reproduction curve.
type MatrixProfile struct {
	// Matrix maps linear device RGB to PCS XYZ.  The columns are the
	// rXYZ, gXYZ and bXYZ colorant tags.
	Matrix colorimetry.Matrix

	// TRC holds the red, green and blue tone reproduction curves.
	TRC [3]*Curve

	// WhitePoint is the media white point, if the profile has one.
	WhitePoint colorimetry.Vector

	// Description is the profile description, or "" if there is none.
	Description string
}

// ReadMatrixProfile reads a matrix/TRC profile from the named file.
func ReadMatrixProfile(fname string) (*MatrixProfile, error) {
	p, err := ReadFile(fname)
	if err != nil {
		return nil, err
	}
	return NewMatrixProfile(p)
}

// ParseMatrixProfile decodes a matrix/TRC profile from binary data.
// The function takes over ownership of the data.
func ParseMatrixProfile(data []byte) (*MatrixProfile, error) {
	p, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return NewMatrixProfile(p)
}

// NewMatrixProfile extracts the matrix and curves from a decoded profile.
// Profiles which are not of the matrix/TRC class fail with an error
// wrapping [ErrUnsupportedProfileClass].
func NewMatrixProfile(p *Profile) (*MatrixProfile, error) {
	if err := checkMatrixTRC(p); err != nil {
		return nil, err
	}

	mp := &MatrixProfile{}
	var cols [3]colorimetry.Vector
	for i, tag := range []TagType{RedMatrixColumn, GreenMatrixColumn, BlueMatrixColumn} {
		xyz, err := parseXYZ(p.TagData[tag])
		if err != nil {
			return nil, fmt.Errorf("icc: tag %s: %w", tag, err)
		}
		cols[i] = xyz
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			mp.Matrix[i][j] = cols[j][i]
		}
	}

	for i, tag := range []TagType{RedTRC, GreenTRC, BlueTRC} {
		c, err := DecodeCurve(p.TagData[tag])
		if err != nil {
			return nil, fmt.Errorf("icc: tag %s: %w", tag, err)
		}
		mp.TRC[i] = c
	}

	if data, ok := p.TagData[MediaWhitePoint]; ok {
		if wp, err := parseXYZ(data); err == nil {
			mp.WhitePoint = wp
		}
	}
	if desc, err := p.Description(); err == nil {
		mp.Description = desc.String()
	}

	return mp, nil
}

// checkMatrixTRC verifies that p can be represented as a MatrixProfile.
// LUT-based profiles are rejected even if they also carry matrix/TRC tags.
func checkMatrixTRC(p *Profile) error {
	switch p.Class {
	case DeviceLinkProfile, AbstractProfile, NamedColorProfile:
		return fmt.Errorf("%w: %s", ErrUnsupportedProfileClass, p.Class)
	}
	if p.ColorSpace != RGBSpace {
		return fmt.Errorf("%w: device colour space is %s", ErrUnsupportedProfileClass, p.ColorSpace)
	}
	if p.PCS != PCSXYZSpace {
		return fmt.Errorf("%w: connection space is %s", ErrUnsupportedProfileClass, p.PCS)
	}
	for _, tag := range lutTags {
		if _, ok := p.TagData[tag]; ok {
			return fmt.Errorf("%w: LUT-based profile (%s)", ErrUnsupportedProfileClass, tag)
		}
	}
	for _, tag := range []TagType{
		RedMatrixColumn, GreenMatrixColumn, BlueMatrixColumn,
		RedTRC, GreenTRC, BlueTRC,
	} {
		if _, ok := p.TagData[tag]; !ok {
			return fmt.Errorf("%w: missing %s tag", ErrUnsupportedProfileClass, tag)
		}
	}
	return nil
}

// Black returns the PCS XYZ value of device RGB (0, 0, 0), i.e. the matrix
// applied to the three curves evaluated at 0.  The Y component is the
// relative black luminance of the display.
func (mp *MatrixProfile) Black() colorimetry.Vector {
	return mp.ToXYZ(0, 0, 0)
}

// ToXYZ converts an encoded device RGB value to PCS XYZ.
func (mp *MatrixProfile) ToXYZ(r, g, b float64) colorimetry.Vector {
	lin := colorimetry.Vector{
		mp.TRC[0].Evaluate(r),
		mp.TRC[1].Evaluate(g),
		mp.TRC[2].Evaluate(b),
	}
	return mp.Matrix.Apply(lin)
}

// Encode returns the binary form of a version 4 display profile holding the
// matrix, curves, white point and description of mp.
func (mp *MatrixProfile) Encode() []byte {
	p := &Profile{
		Version:    Version4_3_0,
		Class:      DisplayDeviceProfile,
		ColorSpace: RGBSpace,
		PCS:        PCSXYZSpace,
		TagData:    make(map[TagType][]byte),
	}
	for j, tag := range []TagType{RedMatrixColumn, GreenMatrixColumn, BlueMatrixColumn} {
		p.TagData[tag] = encodeXYZ(colorimetry.Vector{mp.Matrix[0][j], mp.Matrix[1][j], mp.Matrix[2][j]})
	}
	for i, tag := range []TagType{RedTRC, GreenTRC, BlueTRC} {
		p.TagData[tag] = mp.TRC[i].Encode()
	}
	if mp.WhitePoint != (colorimetry.Vector{}) {
		p.TagData[MediaWhitePoint] = encodeXYZ(mp.WhitePoint)
	}
	if mp.Description != "" {
		p.TagData[ProfileDescription] = encodeMLUC(mp.Description)
	}
	return p.Encode()
}

func parseXYZ(data []byte) (colorimetry.Vector, error) {
	if len(data) < 20 {
		return colorimetry.Vector{}, errInvalidTagData
	}
	if string(data[0:4]) != "XYZ " {
		return colorimetry.Vector{}, errUnexpectedType
	}

	x := getS15Fixed16(data, 8)
	y := getS15Fixed16(data, 12)
	z := getS15Fixed16(data, 16)

	return colorimetry.Vector{x, y, z}, nil
}

func encodeXYZ(v colorimetry.Vector) []byte {
	buf := make([]byte, 20)
	copy(buf[0:4], "XYZ ")
	for i, x := range v {
		putS15Fixed16(buf, 8+4*i, x)
	}
	return buf
}
