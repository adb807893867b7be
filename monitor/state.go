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

// Package monitor implements the clamp state of each display: which
// calibration profile is selected, whether a colour space conversion is
// active, and how a failed driver call is reconciled with the state of the
// hardware.
//
// A [State] describes a single display and is not safe for concurrent use.
// A [Fleet] holds the States of all connected displays, serialises access
// to each of them, and saves the settings after every change.
package monitor

import (
	"errors"
	"fmt"
	"time"

	"seehuhn.de/go/srgbclamp/colorimetry"
	"seehuhn.de/go/srgbclamp/config"
	"seehuhn.de/go/srgbclamp/driver"
	"seehuhn.de/go/srgbclamp/icc"
	"seehuhn.de/go/srgbclamp/tonecurve"
)

// SettleDelay is the pause between removing a conversion and programming a
// new one.  The driver does not reliably accept two conversions in quick
// succession.
const SettleDelay = 100 * time.Millisecond

// Via tells how the conversion of a clamped display was derived.
type Via int

// These are the possible sources of a conversion.
const (
	ViaNone Via = iota
	ViaEDID
	ViaICC
)

func (v Via) String() string {
	switch v {
	case ViaNone:
		return "none"
	case ViaEDID:
		return "EDID"
	case ViaICC:
		return "ICC"
	default:
		return fmt.Sprintf("Via(%d)", int(v))
	}
}

// Status is the state of the colour space conversion of a display.
type Status struct {
	Clamped bool
	Via     Via // ViaNone if not clamped, or if the source is unknown
}

func (s Status) String() string {
	if !s.Clamped {
		return "unclamped"
	}
	if s.Via == ViaNone {
		return "clamped"
	}
	return "clamped via " + s.Via.String()
}

// Change describes the effect of an operation on a display.
type Change struct {
	Old, New Status

	// Persist is set if the settings of the display have changed and
	// should be saved.
	Persist bool
}

// Changed reports whether the clamp status has changed.
func (c Change) Changed() bool {
	return c.Old != c.New
}

var (
	// ErrProfileIndex indicates a profile index outside the list of
	// profiles.
	ErrProfileIndex = errors.New("monitor: profile index out of range")

	// ErrCannotClamp indicates a clamp request for a display which cannot
	// be clamped with the current settings.
	ErrCannotClamp = errors.New("monitor: display cannot be clamped")

	// ErrUnknownDisplay indicates a device path which does not belong to a
	// connected display.
	ErrUnknownDisplay = errors.New("monitor: unknown display")
)

// State is the clamp state of one display.
type State struct {
	// Number is the 1-based position of the display in the enumeration.
	Number int

	// Display describes the physical display.  It does not change during
	// the lifetime of the State.
	Display driver.Display

	drv   driver.Driver
	sleep func(time.Duration)

	status   Status
	intent   bool
	profiles []Profile
	selected int

	// dither is the dither state as last read from the driver.
	dither driver.DitherControl
}

// NewState creates the state for a display.  The settings are taken from
// rec, which may be nil for a display without stored settings.  The clamp
// status and dither settings are read from the driver; the conversion is
// not changed until [State.Reapply] is called.
func NewState(drv driver.Driver, number int, disp driver.Display, rec *config.Monitor) (*State, error) {
	active, err := drv.IsConversionActive(disp.Output)
	if err != nil {
		return nil, err
	}

	s := &State{
		Number:  number,
		Display: disp,
		drv:     drv,
		sleep:   time.Sleep,
		status:  Status{Clamped: active},
	}

	dither, err := drv.Dither(disp.Output)
	if err != nil {
		Logger().Warn("cannot read dither control",
			"display", disp.Name, "err", err)
	}
	s.dither = dither

	switch {
	case rec == nil:
		s.profiles = defaultProfiles()
	case rec.IsLegacy():
		// the old format had a single profile and no dither settings
		s.intent = rec.ClampSDR
		s.profiles = defaultProfiles()
		p := profileFromConfig(rec.LegacyProfile(s.profiles[0].Name))
		p.DitherState = dither.State
		p.DitherMode = dither.Mode
		p.DitherBits = dither.Bits
		s.profiles[0] = p
	default:
		s.intent = rec.ClampSDR
		s.profiles = make([]Profile, len(rec.Profiles))
		for i, p := range rec.Profiles {
			s.profiles[i] = profileFromConfig(p)
		}
		s.selected = rec.SelectedProfile
		if s.selected < 0 || s.selected >= len(s.profiles) {
			Logger().Warn("stored profile index out of range",
				"display", disp.Name, "index", s.selected)
			s.selected = 0
		}
	}

	return s, nil
}

// Status returns the current clamp status.
func (s *State) Status() Status {
	return s.status
}

// Clamped reports whether a conversion is active.
func (s *State) Clamped() bool {
	return s.status.Clamped
}

// ClampIntent reports whether the user wants the display to be clamped.
// This is the stored setting which [State.Reapply] re-asserts.
func (s *State) ClampIntent() bool {
	return s.intent
}

// CanClamp reports whether the display can be clamped with the settings of
// the current profile.  Displays in HDR mode are never clamped.
func (s *State) CanClamp() bool {
	if s.Display.HDRActive {
		return false
	}
	p := s.CurrentProfile()
	if p.UseICC {
		return p.ICCPath != ""
	}
	target, err := colorimetry.TargetSpace(p.Target)
	if err != nil {
		// reported when the conversion is prepared
		return true
	}
	return !s.Display.ColorSpace.Equal(target)
}

// SetClamped switches the conversion of the display on or off and records
// the request as the user's intent.
//
// Invalid settings, for example an ICC profile which cannot be used, make
// the call fail before the driver is touched.  If a driver call fails, the
// status is reconciled with the driver: the returned Change describes the
// actual state of the display, and the error is a *[driver.Error].
func (s *State) SetClamped(enable bool) (Change, error) {
	if enable && !s.CanClamp() {
		return s.unchanged(), ErrCannotClamp
	}
	ch, err := s.update(enable)
	if err != nil {
		return ch, err
	}
	s.intent = enable
	ch.Persist = true
	return ch, nil
}

// Reapply programs the conversion again, according to the user's intent and
// the current profile.  This is used after the display configuration has
// changed, or after the system has resumed from sleep.  The user's intent
// is not changed.
func (s *State) Reapply() (Change, error) {
	return s.update(s.CanClamp() && s.intent)
}

// SelectProfile makes profile i the current profile and reapplies the
// clamp state with the new settings.  If the new settings cannot be used,
// the previous profile stays selected.
func (s *State) SelectProfile(i int) (Change, error) {
	if i < 0 || i >= len(s.profiles) {
		return s.unchanged(), ErrProfileIndex
	}
	if i == s.selected {
		return s.unchanged(), nil
	}

	prev := s.selected
	s.selected = i
	ch, err := s.Reapply()
	var derr *driver.Error
	if err != nil && !errors.As(err, &derr) {
		s.selected = prev
		return ch, err
	}
	Logger().Info("profile selected",
		"display", s.Display.Name, "profile", s.profiles[i].Name)
	ch.Persist = true
	return ch, err
}

// ApplyDither requests new dither settings from the driver and stores them
// in the current profile.  The clamp state is not affected.
func (s *State) ApplyDither(state, bits, mode int) (Change, error) {
	out := s.Display.Output
	err := s.drv.SetDither(out, state, bits, mode)
	if err != nil {
		err = asDriverError("SetDither", out, err)
		Logger().Warn("cannot set dither", "display", s.Display.Name, "err", err)
		return s.unchanged(), err
	}
	dither, err := s.drv.Dither(out)
	if err != nil {
		// the new settings are in place, only the read-back failed
		Logger().Warn("cannot read dither control",
			"display", s.Display.Name, "err", err)
	} else {
		s.dither = dither
	}

	p := &s.profiles[s.selected]
	p.DitherState = state
	p.DitherBits = bits
	p.DitherMode = mode

	ch := s.unchanged()
	ch.Persist = true
	if err != nil {
		return ch, asDriverError("Dither", out, err)
	}
	return ch, nil
}

// Dither returns the dither settings of the current profile, together with
// the capabilities reported by the driver.
func (s *State) Dither() driver.DitherControl {
	p := s.CurrentProfile()
	return driver.DitherControl{
		State:    p.DitherState,
		Bits:     p.DitherBits,
		Mode:     p.DitherMode,
		BitsCaps: s.dither.BitsCaps,
		ModeCaps: s.dither.ModeCaps,
	}
}

// DitherString describes the dither settings which are active in the
// driver.
func (s *State) DitherString() string {
	return s.dither.String()
}

// Profiles returns a copy of the profile list.
func (s *State) Profiles() []Profile {
	res := make([]Profile, len(s.profiles))
	copy(res, s.profiles)
	return res
}

// NumProfiles returns the number of profile slots.
func (s *State) NumProfiles() int {
	return len(s.profiles)
}

// Profile returns the settings stored in slot i.
func (s *State) Profile(i int) (Profile, error) {
	if i < 0 || i >= len(s.profiles) {
		return Profile{}, ErrProfileIndex
	}
	return s.profiles[i], nil
}

// SetProfile replaces the settings stored in slot i.  The conversion is
// not changed; call [State.Reapply] to use the new settings.
func (s *State) SetProfile(i int, p Profile) error {
	if i < 0 || i >= len(s.profiles) {
		return ErrProfileIndex
	}
	s.profiles[i] = p
	return nil
}

// SelectedProfile returns the index of the current profile.
func (s *State) SelectedProfile() int {
	return s.selected
}

// CurrentProfile returns the settings of the current profile.
func (s *State) CurrentProfile() Profile {
	return s.profiles[s.selected]
}

// RenameProfile changes the name of profile i.
func (s *State) RenameProfile(i int, name string) error {
	if i < 0 || i >= len(s.profiles) {
		return ErrProfileIndex
	}
	s.profiles[i].Name = name
	return nil
}

// ProfileName returns the name of profile i, or "Unknown" if there is no
// such profile.
func (s *State) ProfileName(i int) string {
	if i < 0 || i >= len(s.profiles) {
		return "Unknown"
	}
	return s.profiles[i].Name
}

// record returns the settings of the display in the stored format.
func (s *State) record() config.Monitor {
	rec := config.Monitor{
		Path:            s.Display.Path,
		ClampSDR:        s.intent,
		SelectedProfile: s.selected,
		Profiles:        make([]config.Profile, len(s.profiles)),
	}
	for i, p := range s.profiles {
		rec.Profiles[i] = p.toConfig()
	}
	return rec
}

func (s *State) unchanged() Change {
	return Change{Old: s.status, New: s.status}
}

// conversion is a conversion which is ready to be sent to the driver.
type conversion struct {
	via     Via
	matrix  colorimetry.Matrix
	profile *driver.Conversion
}

// prepare computes the conversion for the current profile.
func (s *State) prepare() (*conversion, error) {
	p := s.CurrentProfile()
	target, err := colorimetry.TargetSpace(p.Target)
	if err != nil {
		return nil, err
	}

	if !p.UseICC {
		m, err := colorimetry.DeriveTransform(target, s.Display.ColorSpace)
		if err != nil {
			return nil, err
		}
		return &conversion{via: ViaEDID, matrix: m}, nil
	}

	mp, err := icc.ReadMatrixProfile(p.ICCPath)
	if err != nil {
		return nil, fmt.Errorf("monitor: %s: %w", p.ICCPath, err)
	}
	c := &driver.Conversion{
		Profile: mp,
		Target:  target,
	}
	if p.CalibrateGamma {
		black := mp.Black()[1]
		curve, err := tonecurve.FromKind(p.GammaKind, black, p.CustomGamma, p.CustomPercentage)
		if err != nil {
			return nil, err
		}
		c.Curve = curve
		c.DisableOptimization = p.DisableOptimization
	}
	return &conversion{via: ViaICC, profile: c}, nil
}

// update brings the conversion of the display into the requested state.
// The conversion is prepared before the driver is touched, so that invalid
// settings leave the display as it is.
func (s *State) update(enable bool) (Change, error) {
	old := s.status
	out := s.Display.Output

	var conv *conversion
	if enable {
		var err error
		conv, err = s.prepare()
		if err != nil {
			return s.unchanged(), err
		}
	}

	if old.Clamped {
		err := s.drv.DisableConversion(out)
		if err != nil {
			return s.reconcile(old, old.Via, "DisableConversion", err)
		}
		s.status = Status{}
	}
	if !enable {
		if old.Clamped {
			Logger().Info("clamp disabled", "display", s.Display.Name)
		}
		return Change{Old: old, New: s.status}, nil
	}

	if old.Clamped {
		Logger().Debug("waiting for the driver", "display", s.Display.Name, "delay", SettleDelay)
		s.sleep(SettleDelay)
	}

	var op string
	var err error
	if conv.profile != nil {
		op = "SetProfileConversion"
		err = s.drv.SetProfileConversion(out, *conv.profile)
	} else {
		op = "SetConversion"
		err = s.drv.SetConversion(out, conv.matrix)
	}
	if err != nil {
		return s.reconcile(old, conv.via, op, err)
	}

	s.status = Status{Clamped: true, Via: conv.via}
	Logger().Info("clamp enabled", "display", s.Display.Name, "via", conv.via,
		"profile", s.CurrentProfile().Name)
	return Change{Old: old, New: s.status}, nil
}

// reconcile sets the status and the user's intent to the actual state of
// the driver, after the driver call op has failed with err.
func (s *State) reconcile(old Status, via Via, op string, err error) (Change, error) {
	out := s.Display.Output
	err = asDriverError(op, out, err)
	Logger().Warn("driver call failed", "display", s.Display.Name, "err", err)

	active, qerr := s.drv.IsConversionActive(out)
	if qerr != nil {
		// nothing is known about the hardware; assume the conversion is
		// gone, so that the next request starts from scratch
		Logger().Error("cannot query conversion state",
			"display", s.Display.Name, "err", qerr)
		active = false
		err = errors.Join(err, asDriverError("IsConversionActive", out, qerr))
	}

	s.status = Status{Clamped: active}
	if active {
		s.status.Via = via
	}
	s.intent = active
	Logger().Debug("clamp state reconciled", "display", s.Display.Name, "status", s.status)

	return Change{Old: old, New: s.status, Persist: true}, err
}

func asDriverError(op string, out driver.Output, err error) error {
	var derr *driver.Error
	if errors.As(err, &derr) {
		return err
	}
	return &driver.Error{Op: op, Output: out, Err: err}
}
