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

// Package drivertest provides an in-memory display driver for tests and
// examples.
//
// The driver keeps the colour pipeline state of each output, records every
// call, and can be told to fail individual operations.
package drivertest

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"seehuhn.de/go/srgbclamp/colorimetry"
	"seehuhn.de/go/srgbclamp/driver"
)

// ErrInjected is the default error returned by injected failures.
var ErrInjected = errors.New("drivertest: injected failure")

// Names of the driver operations, as used in [Call] and [Failure].
const (
	OpIsConversionActive   = "IsConversionActive"
	OpSetConversion        = "SetConversion"
	OpSetProfileConversion = "SetProfileConversion"
	OpDisableConversion    = "DisableConversion"
	OpDither               = "Dither"
	OpSetDither            = "SetDither"
	OpEDID                 = "EDID"
)

// Failure describes how an operation should fail.
type Failure struct {
	// Err is the error returned by the operation.  If Err is nil,
	// ErrInjected is used.
	Err error

	// Applied makes the operation take effect before the error is
	// returned, like a driver which reports an error after programming
	// the hardware.
	Applied bool

	// Count is the number of calls which fail.  Zero means that all
	// calls fail until the failure is cleared.
	Count int
}

// Call records one call to the driver.
type Call struct {
	Op     string
	Output driver.Output
	Err    error
}

func (c Call) String() string {
	if c.Err != nil {
		return fmt.Sprintf("%s(%d): %v", c.Op, c.Output, c.Err)
	}
	return fmt.Sprintf("%s(%d)", c.Op, c.Output)
}

// Output is the state of one simulated output.
type Output struct {
	Path      string
	HDRActive bool
	BitDepth  int
	EDID      []byte

	// Active is true while a colour space conversion is programmed.
	Active bool

	// Matrix is the last matrix set via SetConversion.
	Matrix colorimetry.Matrix

	// Conversion is the last conversion set via SetProfileConversion,
	// or nil if the matrix is in use.
	Conversion *driver.Conversion

	Dither driver.DitherControl
}

// Driver is an in-memory implementation of [driver.Driver] and
// [driver.Enumerator].  It is safe for concurrent use.
type Driver struct {
	mu       sync.Mutex
	outputs  map[driver.Output]*Output
	failures map[string]*Failure
	calls    []Call

	enumErr error
}

var (
	_ driver.Driver     = (*Driver)(nil)
	_ driver.Enumerator = (*Driver)(nil)
)

// New returns a driver without outputs.
func New() *Driver {
	return &Driver{
		outputs:  make(map[driver.Output]*Output),
		failures: make(map[string]*Failure),
	}
}

// DefaultDither is the dither state of a newly added output: dithering is
// left to the driver and all bit depths and modes are supported.
var DefaultDither = driver.DitherControl{
	BitsCaps: 1<<driver.NumDitherBits - 1,
	ModeCaps: 1<<driver.NumDitherModes - 1,
}

// AddOutput adds a simulated output.  If o.Dither is the zero value,
// [DefaultDither] is used.
func (d *Driver) AddOutput(out driver.Output, o Output) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if o.Dither == (driver.DitherControl{}) {
		o.Dither = DefaultDither
	}
	d.outputs[out] = &o
}

// RemoveOutput removes a simulated output, as if the display had been
// unplugged.
func (d *Driver) RemoveOutput(out driver.Output) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.outputs, out)
}

// Output returns a copy of the state of a simulated output.
func (d *Driver) Output(out driver.Output) (Output, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, ok := d.outputs[out]
	if !ok {
		return Output{}, false
	}
	return *o, true
}

// SetActive changes the conversion flag of an output behind the caller's
// back, for example to simulate a driver reset.
func (d *Driver) SetActive(out driver.Output, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if o, ok := d.outputs[out]; ok {
		o.Active = active
	}
}

// Fail makes the named operation fail.  Passing a nil failure clears
// a previously injected failure.
func (d *Driver) Fail(op string, f *Failure) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if f == nil {
		delete(d.failures, op)
		return
	}
	ff := *f
	d.failures[op] = &ff
}

// FailEnumeration makes Displays fail with err.  A nil error clears the
// failure.
func (d *Driver) FailEnumeration(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enumErr = err
}

// Calls returns the calls made so far.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()

	res := make([]Call, len(d.calls))
	copy(res, d.calls)
	return res
}

// Ops returns the names of the operations called so far on the given
// output.
func (d *Driver) Ops(out driver.Output) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res []string
	for _, c := range d.calls {
		if c.Output == out {
			res = append(res, c.Op)
		}
	}
	return res
}

// ResetCalls clears the call log.
func (d *Driver) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = d.calls[:0]
}

// begin looks up the output and any injected failure for op.
// The caller must hold d.mu.
func (d *Driver) begin(op string, out driver.Output) (*Output, *Failure, error) {
	o, ok := d.outputs[out]
	if !ok {
		return nil, nil, d.finish(op, out, fmt.Errorf("unknown output %d", out))
	}

	f := d.failures[op]
	if f == nil {
		return o, nil, nil
	}
	if f.Count > 0 {
		f.Count--
		if f.Count == 0 {
			delete(d.failures, op)
		}
	}
	return o, f, nil
}

// finish records a call.  Errors are wrapped in a *driver.Error.
// The caller must hold d.mu.
func (d *Driver) finish(op string, out driver.Output, err error) error {
	if err != nil {
		err = &driver.Error{Op: op, Output: out, Err: err}
	}
	d.calls = append(d.calls, Call{Op: op, Output: out, Err: err})
	return err
}

func failErr(f *Failure) error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// IsConversionActive implements [driver.Driver].
func (d *Driver) IsConversionActive(out driver.Output) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, f, err := d.begin(OpIsConversionActive, out)
	if err != nil {
		return false, err
	}
	if f != nil {
		return false, d.finish(OpIsConversionActive, out, failErr(f))
	}
	return o.Active, d.finish(OpIsConversionActive, out, nil)
}

// SetConversion implements [driver.Driver].
func (d *Driver) SetConversion(out driver.Output, m colorimetry.Matrix) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, f, err := d.begin(OpSetConversion, out)
	if err != nil {
		return err
	}
	if f == nil || f.Applied {
		o.Active = true
		o.Matrix = m
		o.Conversion = nil
	}
	if f != nil {
		return d.finish(OpSetConversion, out, failErr(f))
	}
	return d.finish(OpSetConversion, out, nil)
}

// SetProfileConversion implements [driver.Driver].
func (d *Driver) SetProfileConversion(out driver.Output, c driver.Conversion) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, f, err := d.begin(OpSetProfileConversion, out)
	if err != nil {
		return err
	}
	if c.Profile == nil {
		return d.finish(OpSetProfileConversion, out, errors.New("missing profile"))
	}
	if f == nil || f.Applied {
		o.Active = true
		o.Matrix = colorimetry.Matrix{}
		o.Conversion = &c
	}
	if f != nil {
		return d.finish(OpSetProfileConversion, out, failErr(f))
	}
	return d.finish(OpSetProfileConversion, out, nil)
}

// DisableConversion implements [driver.Driver].
func (d *Driver) DisableConversion(out driver.Output) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, f, err := d.begin(OpDisableConversion, out)
	if err != nil {
		return err
	}
	if f == nil || f.Applied {
		o.Active = false
		o.Matrix = colorimetry.Matrix{}
		o.Conversion = nil
	}
	if f != nil {
		return d.finish(OpDisableConversion, out, failErr(f))
	}
	return d.finish(OpDisableConversion, out, nil)
}

// Dither implements [driver.Driver].
func (d *Driver) Dither(out driver.Output) (driver.DitherControl, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, f, err := d.begin(OpDither, out)
	if err != nil {
		return driver.DitherControl{}, err
	}
	if f != nil {
		return driver.DitherControl{}, d.finish(OpDither, out, failErr(f))
	}
	return o.Dither, d.finish(OpDither, out, nil)
}

// SetDither implements [driver.Driver].  Requests for unsupported bit
// depths or modes fall back to the driver default for that field.
func (d *Driver) SetDither(out driver.Output, state, bits, mode int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, f, err := d.begin(OpSetDither, out)
	if err != nil {
		return err
	}
	if state < driver.DitherDefault || state > driver.DitherDisabled {
		return d.finish(OpSetDither, out, fmt.Errorf("invalid dither state %d", state))
	}
	if f == nil || f.Applied {
		o.Dither.State = state
		o.Dither.Bits = 0
		if o.Dither.SupportsBits(bits) {
			o.Dither.Bits = bits
		}
		o.Dither.Mode = 0
		if o.Dither.SupportsMode(mode) {
			o.Dither.Mode = mode
		}
	}
	if f != nil {
		return d.finish(OpSetDither, out, failErr(f))
	}
	return d.finish(OpSetDither, out, nil)
}

// EDID implements [driver.Driver].
func (d *Driver) EDID(out driver.Output) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, f, err := d.begin(OpEDID, out)
	if err != nil {
		return nil, err
	}
	if f != nil {
		return nil, d.finish(OpEDID, out, failErr(f))
	}
	data := make([]byte, len(o.EDID))
	copy(data, o.EDID)
	return data, d.finish(OpEDID, out, nil)
}

// Displays implements [driver.Enumerator].  Displays are returned in order
// of their output handles.  Outputs whose EDID cannot be decoded are
// skipped.
func (d *Driver) Displays() ([]driver.Display, error) {
	d.mu.Lock()
	if d.enumErr != nil {
		err := d.enumErr
		d.mu.Unlock()
		return nil, err
	}
	type entry struct {
		out driver.Output
		o   Output
	}
	var entries []entry
	for out, o := range d.outputs {
		entries = append(entries, entry{out, *o})
	}
	d.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].out < entries[j].out
	})

	var res []driver.Display
	for _, e := range entries {
		disp, err := driver.DisplayFromEDID(d, e.out, e.o.Path, e.o.HDRActive, e.o.BitDepth)
		if err != nil {
			continue
		}
		res = append(res, disp)
	}
	return res, nil
}
