// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// Package gpiosysfs is a library for accessing GPIO pins on Linux platforms
// using the sysfs GPIO interface.
//
// Supports:
// - Pin export and unexport
// - Pin direction (input/output)
// - Pin write (high/low)
// - Pin read (high/low)
// - Alternate sysfs roots, such as mock trees used for testing
//
// Example of use:
//
//	p, err := gpiosysfs.NewPin(22)
//	if err != nil {
//		panic(err)
//	}
//	if err = p.EnsureExported(); err != nil {
//		panic(err)
//	}
//	p.SetDirection(gpiosysfs.DirectionOutput)
//	v := gpio.Low
//	for {
//		<-time.After(time.Second)
//		v = !v
//		p.SetValue(v)
//	}
//
// The pin directory is owned by the kernel, so its existence and attributes
// are observed on every call and never cached.
package gpiosysfs

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/warthog618/go-gpiosysfs/sysfs"
	"periph.io/x/conn/v3/gpio"
)

// DefaultBase is the root of the sysfs GPIO interface.
const DefaultBase = "/sys/class/gpio"

// Pin represents a single GPIO pin exposed through sysfs.
//
// A Pin holds no open files, and so requires no Close.
type Pin struct {
	// The sysfs root containing the export file and pin directories.
	base string

	// The global GPIO number of the pin.
	offset int

	// waits for the kernel to create the pin directory after export.
	settler Settler

	// read buffer size for attributes.
	capacity int
}

// Direction indicates the direction of a pin.
type Direction int

const (
	// DirectionUnknown indicates the pin direction is unknown.
	DirectionUnknown Direction = iota

	// DirectionInput indicates the pin is an input.
	DirectionInput

	// DirectionOutput indicates the pin is an output.
	DirectionOutput
)

func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "in"
	case DirectionOutput:
		return "out"
	default:
		return "unknown"
	}
}

// NewPin creates a Pin for the GPIO with the given global number.
//
// The pin is not exported or otherwise touched.
func NewPin(offset int, options ...PinOption) (*Pin, error) {
	if offset < 0 {
		return nil, ErrInvalidOffset
	}
	po := PinOptions{
		base:     DefaultBase,
		settler:  DelaySettler(DefaultSettleDelay),
		capacity: sysfs.DefaultCapacity,
	}
	for _, option := range options {
		option.applyPinOption(&po)
	}
	p := Pin{
		base:     po.base,
		offset:   offset,
		settler:  po.settler,
		capacity: po.capacity,
	}
	return &p, nil
}

// Offset returns the global GPIO number of the pin.
func (p *Pin) Offset() int {
	return p.offset
}

// Base returns the sysfs root used by the pin.
func (p *Pin) Base() string {
	return p.base
}

// Path returns the path of the pin directory.
func (p *Pin) Path() string {
	return filepath.Join(p.base, fmt.Sprintf("gpio%d", p.offset))
}

func (p *Pin) attrPath(attr string) string {
	return filepath.Join(p.Path(), attr)
}

func (p *Pin) controlPath(ctrl string) string {
	return filepath.Join(p.base, ctrl)
}

// IsExported returns true if the pin directory currently exists.
func (p *Pin) IsExported() bool {
	return sysfs.Exists(p.Path())
}

// Export requests the kernel export the pin, and waits for the pin directory
// to be created.
//
// Returns ErrExportUnavailable if the export file cannot be opened, and
// ErrSettleTimeout if the directory did not appear after the export was
// written.
func (p *Pin) Export() error {
	s := p.settler.Arm(p.Path())
	err := sysfs.WriteControl(p.controlPath("export"), strconv.Itoa(p.offset))
	if err != nil {
		s.Cancel()
		if sysfs.IsOpenError(err) {
			return fmt.Errorf("%w: %w", ErrExportUnavailable, err)
		}
		return err
	}
	return s.Wait()
}

// EnsureExported exports the pin if it is not already exported.
//
// A missing export file is not an error, as the pin directory may be
// provisioned by other means, such as a mock tree. Similarly the pin directory
// not appearing after the export is left for subsequent operations to report.
// Only a failure to write the export file is returned.
func (p *Pin) EnsureExported() error {
	if p.IsExported() {
		return nil
	}
	err := p.Export()
	if errors.Is(err, ErrExportUnavailable) || errors.Is(err, ErrSettleTimeout) {
		return nil
	}
	return err
}

// Unexport requests the kernel unexport the pin.
//
// Unexporting a pin that is not exported is a no-op.
func (p *Pin) Unexport() error {
	if !p.IsExported() {
		return nil
	}
	err := sysfs.WriteControl(p.controlPath("unexport"), strconv.Itoa(p.offset))
	if sysfs.IsOpenError(err) {
		return fmt.Errorf("%w: %w", ErrExportUnavailable, err)
	}
	return err
}

// SetDirection sets the direction of the pin.
func (p *Pin) SetDirection(d Direction) error {
	if d != DirectionInput && d != DirectionOutput {
		return ErrInvalidDirection
	}
	return sysfs.WriteText(p.attrPath("direction"), d.String())
}

// Direction returns the current direction of the pin.
func (p *Pin) Direction() (Direction, error) {
	s, err := sysfs.ReadText(p.attrPath("direction"), p.capacity)
	if err != nil {
		return DirectionUnknown, err
	}
	s = strings.TrimSpace(s)
	switch s {
	case "in":
		return DirectionInput, nil
	case "out", "high", "low":
		// high and low are written to set the direction and initial level.
		return DirectionOutput, nil
	}
	return DirectionUnknown, ErrInvalidDirection
}

// Value returns the current level of the pin.
//
// Only a value starting with '1' is high. Anything else, including an empty
// value, is low.
func (p *Pin) Value() (gpio.Level, error) {
	s, err := sysfs.ReadText(p.attrPath("value"), p.capacity)
	if err != nil {
		return gpio.Low, err
	}
	return gpio.Level(len(s) > 0 && s[0] == '1'), nil
}

// SetValue sets the level of the pin.
//
// The pin must be an output for the level to be driven.
func (p *Pin) SetValue(l gpio.Level) error {
	v := "0\n"
	if l == gpio.High {
		v = "1\n"
	}
	return sysfs.WriteText(p.attrPath("value"), v)
}

var (
	// ErrExportUnavailable indicates the export or unexport control file
	// could not be opened.
	ErrExportUnavailable = errors.New("export unavailable")

	// ErrInvalidDirection indicates a direction is not valid for a pin.
	ErrInvalidDirection = errors.New("invalid direction")

	// ErrInvalidOffset indicates a pin number is invalid.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrSettleTimeout indicates the pin directory did not appear after an
	// export.
	ErrSettleTimeout = errors.New("timeout waiting for pin directory")
)
