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

package monitor

import (
	"errors"
	"sync"
	"time"

	"github.com/kovidgoyal/go-parallel"

	"seehuhn.de/go/srgbclamp/config"
	"seehuhn.de/go/srgbclamp/driver"
)

// Store loads and saves the settings of all displays.
// [config.FileStore] implements this interface.
type Store interface {
	Load() (*config.File, error)
	Save(*config.File) error
}

// Hotkey is the key combination which toggles clamping on all displays.
// The values are those of the operating system's hotkey API; the zero
// value means that no hotkey is set.
type Hotkey struct {
	Modifiers int
	Key       int
}

// Info is a snapshot of the state of one display.
type Info struct {
	Number       int
	Display      driver.Display
	Status       Status
	ClampIntent  bool
	CanClamp     bool
	Profiles     []Profile
	Selected     int
	Dither       driver.DitherControl
	DitherString string
}

// Fleet holds the states of all connected displays.
//
// All methods are safe for concurrent use.  Operations on the same display
// are serialised; operations on different displays may run in parallel.
type Fleet struct {
	drv   driver.Driver
	enum  driver.Enumerator
	store Store

	// sleep, if set, replaces time.Sleep in the display states.
	sleep func(time.Duration)

	mu       sync.Mutex
	displays []*entry
	hotkey   Hotkey

	// stored holds the settings of displays which are not connected,
	// so that they survive when the file is written.
	stored []config.Monitor

	saveMu sync.Mutex
}

type entry struct {
	mu    sync.Mutex
	state *State
}

func (e *entry) reapply() (Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Reapply()
}

// NewFleet returns a Fleet without displays.  Call [Fleet.Refresh] to
// enumerate the displays.
func NewFleet(drv driver.Driver, enum driver.Enumerator, store Store) *Fleet {
	return &Fleet{
		drv:   drv,
		enum:  enum,
		store: store,
	}
}

// Refresh discards the current display states, enumerates the connected
// displays, and creates new states from the stored settings.  Afterwards
// the clamp state of every display is reapplied.
//
// Refresh must be called after every change of the display configuration
// and after the system resumes from sleep.  If the settings cannot be
// loaded or the displays cannot be enumerated, the previous states are
// kept.
func (f *Fleet) Refresh() error {
	file, err := f.store.Load()
	if err != nil {
		Logger().Error("cannot load settings", "err", err)
		return err
	}
	displays, err := f.enum.Displays()
	if err != nil {
		Logger().Error("cannot enumerate displays", "err", err)
		return err
	}

	var errs []error
	var entries []*entry
	connected := make(map[string]bool)
	for _, disp := range displays {
		s, err := NewState(f.drv, len(entries)+1, disp, file.Monitor(disp.Path))
		if err != nil {
			Logger().Warn("skipping display", "display", disp.Name, "err", err)
			errs = append(errs, err)
			continue
		}
		if f.sleep != nil {
			s.sleep = f.sleep
		}
		entries = append(entries, &entry{state: s})
		connected[disp.Path] = true
	}
	var stored []config.Monitor
	for _, m := range file.Monitors {
		if !connected[m.Path] {
			stored = append(stored, m)
		}
	}

	f.mu.Lock()
	f.displays = entries
	f.stored = stored
	f.hotkey = Hotkey{Modifiers: file.HotkeyModifiers, Key: file.HotkeyKey}
	f.mu.Unlock()
	Logger().Info("displays enumerated", "count", len(entries))

	errs = append(errs, f.ReapplyAll())
	return errors.Join(errs...)
}

// ReapplyAll reapplies the clamp state of all displays, in parallel.
// The settings are saved once at the end, if any display has changed.
// A display whose update panics does not stop the others.
func (f *Fleet) ReapplyAll() error {
	entries := f.entries()
	if len(entries) == 0 {
		return nil
	}

	errs := make([]error, len(entries))
	persist := make([]bool, len(entries))
	// one worker per display
	err := parallel.Run_in_parallel_over_range(len(entries), func(start, limit int) {
		for i := start; i < limit; i++ {
			ch, err := entries[i].reapply()
			errs[i] = err
			persist[i] = ch.Persist
		}
	}, 0, len(entries))
	if err != nil {
		Logger().Error("reapplying displays failed", "err", err)
		errs = append(errs, err)
	}

	for _, p := range persist {
		if p {
			errs = append(errs, f.Save())
			break
		}
	}
	return errors.Join(errs...)
}

// SetClamped switches clamping on or off for one display.
func (f *Fleet) SetClamped(path string, enable bool) (Change, error) {
	return f.with(path, func(s *State) (Change, error) {
		return s.SetClamped(enable)
	})
}

// SelectProfile selects a profile of one display.
func (f *Fleet) SelectProfile(path string, i int) (Change, error) {
	return f.with(path, func(s *State) (Change, error) {
		return s.SelectProfile(i)
	})
}

// ActivateProfile selects a profile of one display and switches clamping
// on.
func (f *Fleet) ActivateProfile(path string, i int) (Change, error) {
	return f.with(path, func(s *State) (Change, error) {
		ch1, err := s.SelectProfile(i)
		if err != nil {
			return ch1, err
		}
		ch2, err := s.SetClamped(true)
		return Change{
			Old:     ch1.Old,
			New:     ch2.New,
			Persist: ch1.Persist || ch2.Persist,
		}, err
	})
}

// ApplyDither changes the dither settings of one display.
func (f *Fleet) ApplyDither(path string, state, bits, mode int) (Change, error) {
	return f.with(path, func(s *State) (Change, error) {
		return s.ApplyDither(state, bits, mode)
	})
}

// UpdateProfile edits profile i of one display.  If i is the current
// profile, the clamp state is reapplied with the new settings; if these
// cannot be used, the edit is undone.
func (f *Fleet) UpdateProfile(path string, i int, edit func(p *Profile)) (Change, error) {
	return f.with(path, func(s *State) (Change, error) {
		old, err := s.Profile(i)
		if err != nil {
			return s.unchanged(), err
		}
		p := old
		edit(&p)
		s.profiles[i] = p

		if i != s.selected {
			ch := s.unchanged()
			ch.Persist = true
			return ch, nil
		}

		ch, err := s.Reapply()
		var derr *driver.Error
		if err != nil && !errors.As(err, &derr) {
			s.profiles[i] = old
			return ch, err
		}
		ch.Persist = true
		return ch, err
	})
}

// RenameProfile changes the name of profile i of one display.
func (f *Fleet) RenameProfile(path string, i int, name string) error {
	_, err := f.with(path, func(s *State) (Change, error) {
		err := s.RenameProfile(i, name)
		if err != nil {
			return s.unchanged(), err
		}
		ch := s.unchanged()
		ch.Persist = true
		return ch, nil
	})
	return err
}

// ToggleAll switches clamping off on all displays if any display is
// clamped, and on for all displays otherwise.  Displays which cannot be
// clamped are left alone.
func (f *Fleet) ToggleAll() error {
	entries := f.entries()

	anyClamped := false
	for _, e := range entries {
		e.mu.Lock()
		clamped := e.state.Clamped()
		e.mu.Unlock()
		if clamped {
			anyClamped = true
			break
		}
	}
	enable := !anyClamped
	Logger().Info("toggling all displays", "enable", enable)

	var errs []error
	persist := false
	for _, e := range entries {
		e.mu.Lock()
		ch, err := e.state.SetClamped(enable)
		e.mu.Unlock()
		if errors.Is(err, ErrCannotClamp) {
			continue
		}
		errs = append(errs, err)
		persist = persist || ch.Persist
	}
	if persist {
		errs = append(errs, f.Save())
	}
	return errors.Join(errs...)
}

// Hotkey returns the stored hotkey.
func (f *Fleet) Hotkey() Hotkey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hotkey
}

// SetHotkey changes the stored hotkey and saves the settings.
func (f *Fleet) SetHotkey(h Hotkey) error {
	f.mu.Lock()
	f.hotkey = h
	f.mu.Unlock()
	return f.Save()
}

// Paths returns the device paths of the connected displays, in enumeration
// order.
func (f *Fleet) Paths() []string {
	entries := f.entries()
	res := make([]string, len(entries))
	for i, e := range entries {
		res[i] = e.state.Display.Path
	}
	return res
}

// Snapshot returns the state of all connected displays.
func (f *Fleet) Snapshot() []Info {
	entries := f.entries()
	res := make([]Info, len(entries))
	for i, e := range entries {
		e.mu.Lock()
		s := e.state
		res[i] = Info{
			Number:       s.Number,
			Display:      s.Display,
			Status:       s.Status(),
			ClampIntent:  s.ClampIntent(),
			CanClamp:     s.CanClamp(),
			Profiles:     s.Profiles(),
			Selected:     s.SelectedProfile(),
			Dither:       s.Dither(),
			DitherString: s.DitherString(),
		}
		e.mu.Unlock()
	}
	return res
}

// Save writes the settings of all displays to the store.
//
// Failures are logged and returned as a *[config.PersistenceError]; the
// in-memory state is not affected.
func (f *Fleet) Save() error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	f.mu.Lock()
	entries := f.displays
	file := &config.File{
		HotkeyModifiers: f.hotkey.Modifiers,
		HotkeyKey:       f.hotkey.Key,
	}
	stored := f.stored
	f.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		file.Monitors = append(file.Monitors, e.state.record())
		e.mu.Unlock()
	}
	file.Monitors = append(file.Monitors, stored...)

	err := f.store.Save(file)
	if err != nil {
		var perr *config.PersistenceError
		if !errors.As(err, &perr) {
			err = &config.PersistenceError{Err: err}
		}
		Logger().Error("cannot save settings", "err", err)
		return err
	}
	return nil
}

func (f *Fleet) entries() []*entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.displays
}

func (f *Fleet) lookup(path string) *entry {
	for _, e := range f.entries() {
		if e.state.Display.Path == path {
			return e
		}
	}
	return nil
}

// with runs fn on the display with the given path, and saves the settings
// if the display asks for it.
func (f *Fleet) with(path string, fn func(s *State) (Change, error)) (Change, error) {
	e := f.lookup(path)
	if e == nil {
		return Change{}, ErrUnknownDisplay
	}

	e.mu.Lock()
	ch, err := fn(e.state)
	e.mu.Unlock()

	if ch.Persist {
		if serr := f.Save(); serr != nil {
			err = errors.Join(err, serr)
		}
	}
	return ch, err
}
