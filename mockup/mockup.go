// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

// Package mockup provides mock sysfs GPIO trees.
//
// This is intended for GPIO testing of gpiosysfs, but could also be used for
// testing by users of their own code that uses gpiosysfs.
//
// A tree contains pin directories, each with direction and value attributes,
// and optionally the export and unexport control files. With WithKernel the
// mockup also plays the part of the kernel, creating and removing pin
// directories in response to writes to the control files.
package mockup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Mockup represents a mocked sysfs GPIO tree.
type Mockup struct {
	// The root of the tree, used as the sysfs GPIO base.
	Base string

	mu     sync.Mutex
	closed bool
	quit   chan struct{}
	done   chan struct{}

	// pins exported via the export file, in order.
	exported []int
}

// Pin represents a single mocked pin directory.
type Pin struct {
	Offset int
	Path   string
}

// New creates a mock tree rooted at base.
//
// The base is created if necessary, and is removed by Close.
func New(base string, options ...Option) (*Mockup, error) {
	if len(base) == 0 {
		return nil, ErrNoBase
	}
	mo := Options{}
	for _, option := range options {
		option.applyOption(&mo)
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, err
	}
	m := Mockup{Base: base}
	if mo.export || mo.kernel {
		for _, ctrl := range []string{"export", "unexport"} {
			if err := os.WriteFile(filepath.Join(base, ctrl), nil, 0644); err != nil {
				return nil, err
			}
		}
	}
	for _, offset := range mo.pins {
		if _, err := m.AddPin(offset); err != nil {
			return nil, err
		}
	}
	if mo.kernel {
		m.quit = make(chan struct{})
		m.done = make(chan struct{})
		go m.emulate(mo.latency)
	}
	return &m, nil
}

// Close stops any kernel emulation and removes the tree.
func (m *Mockup) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.closed = true
	m.mu.Unlock()
	if m.quit != nil {
		close(m.quit)
		<-m.done
	}
	return os.RemoveAll(m.Base)
}

// AddPin creates the directory for a pin, as an input reading low.
//
// Adding a pin that already exists leaves it unaltered.
func (m *Mockup) AddPin(offset int) (*Pin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	p := m.pin(offset)
	if _, err := os.Stat(p.Path); err == nil {
		return p, nil
	}
	if err := os.Mkdir(p.Path, 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(p.Path, "direction"), []byte("in\n"), 0644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(p.Path, "value"), []byte("0\n"), 0644); err != nil {
		return nil, err
	}
	return p, nil
}

// RemovePin removes the directory for a pin.
func (m *Mockup) RemovePin(offset int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return os.RemoveAll(m.pin(offset).Path)
}

// Pin returns the mocked pin, which must already exist.
func (m *Mockup) Pin(offset int) (*Pin, error) {
	p := m.pin(offset)
	fi, err := os.Stat(p.Path)
	if err != nil || !fi.IsDir() {
		return nil, ErrorNoPin{offset}
	}
	return p, nil
}

// Exported returns the pins exported through the emulated kernel.
func (m *Mockup) Exported() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.exported...)
}

// Control returns the current contents of a control file, such as export.
func (m *Mockup) Control(ctrl string) (string, error) {
	b, err := os.ReadFile(filepath.Join(m.Base, ctrl))
	return string(b), err
}

func (m *Mockup) pin(offset int) *Pin {
	return &Pin{
		Offset: offset,
		Path:   filepath.Join(m.Base, fmt.Sprintf("gpio%d", offset)),
	}
}

// emulate services the control files until Close.
func (m *Mockup) emulate(latency time.Duration) {
	defer close(m.done)
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-m.quit:
			return
		case <-t.C:
			if offset, ok := m.consume("export"); ok {
				m.mu.Lock()
				m.exported = append(m.exported, offset)
				m.mu.Unlock()
				// the kernel creates the directory asynchronously.
				time.AfterFunc(latency, func() { m.AddPin(offset) })
			}
			if offset, ok := m.consume("unexport"); ok {
				m.RemovePin(offset)
			}
		}
	}
}

// consume reads and clears a control file, returning the pin written to it.
func (m *Mockup) consume(ctrl string) (int, bool) {
	path := filepath.Join(m.Base, ctrl)
	b, err := os.ReadFile(path)
	if err != nil || len(b) == 0 {
		return 0, false
	}
	os.Truncate(path, 0)
	offset, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, false
	}
	return offset, true
}

// Value returns the value of the pin.
//
// As per the kernel, only a value starting with '1' is high.
func (p *Pin) Value() (int, error) {
	v, err := p.Attr("value")
	if err != nil {
		return 0, err
	}
	if len(v) > 0 && v[0] == '1' {
		return 1, nil
	}
	return 0, nil
}

// SetValue sets the value of the pin, as if driven externally.
func (p *Pin) SetValue(value int) error {
	v := "0\n"
	if value != 0 {
		v = "1\n"
	}
	return p.SetAttr("value", v)
}

// Direction returns the direction of the pin, without the trailing newline.
func (p *Pin) Direction() (string, error) {
	v, err := p.Attr("direction")
	return strings.TrimSpace(v), err
}

// Attr returns the raw contents of a pin attribute.
func (p *Pin) Attr(attr string) (string, error) {
	b, err := os.ReadFile(filepath.Join(p.Path, attr))
	return string(b), err
}

// SetAttr overwrites the raw contents of a pin attribute.
func (p *Pin) SetAttr(attr, content string) error {
	return os.WriteFile(filepath.Join(p.Path, attr), []byte(content), 0644)
}

// Break replaces the attribute with a directory, so any subsequent attempt to
// open it for writing, or to read it, fails.
func (p *Pin) Break(attr string) error {
	path := filepath.Join(p.Path, attr)
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	return os.Mkdir(path, 0755)
}

var (
	// ErrClosed indicates the mockup has already been closed.
	ErrClosed = errors.New("already closed")

	// ErrNoBase indicates no base directory was provided.
	ErrNoBase = errors.New("base must be specified")
)

// ErrorNoPin indicates the requested pin has not been provisioned.
type ErrorNoPin struct {
	Offset int
}

func (e ErrorNoPin) Error() string {
	return fmt.Sprintf("pin %d not provisioned", e.Offset)
}
