// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package gpiosysfs

import "time"

// PinOption defines the interface required to provide an option for a Pin.
type PinOption interface {
	applyPinOption(*PinOptions)
}

// PinOptions contains the options for a Pin.
type PinOptions struct {
	base     string
	settler  Settler
	capacity int
}

// BaseOption defines the sysfs root for a pin.
type BaseOption string

// WithBase specifies the sysfs root containing the export file and pin
// directories.
//
// An empty base leaves the default, DefaultBase, in place.
func WithBase(base string) BaseOption {
	return BaseOption(base)
}

func (o BaseOption) applyPinOption(p *PinOptions) {
	if len(o) != 0 {
		p.base = string(o)
	}
}

// SettlerOption defines how a pin waits for its directory after an export.
type SettlerOption struct {
	settler Settler
}

// WithSettler specifies how the pin waits for the kernel to create the pin
// directory after an export.
func WithSettler(s Settler) SettlerOption {
	return SettlerOption{s}
}

// WithSettleDelay specifies a fixed delay after an export, in place of the
// default DefaultSettleDelay.
func WithSettleDelay(d time.Duration) SettlerOption {
	return SettlerOption{DelaySettler(d)}
}

func (o SettlerOption) applyPinOption(p *PinOptions) {
	if o.settler != nil {
		p.settler = o.settler
	}
}

// CapacityOption defines the read buffer size for pin attributes.
type CapacityOption int

// WithCapacity specifies the read buffer size for pin attributes, including
// the terminator.
func WithCapacity(n int) CapacityOption {
	return CapacityOption(n)
}

func (o CapacityOption) applyPinOption(p *PinOptions) {
	p.capacity = int(o)
}
