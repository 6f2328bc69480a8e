// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package mockup

import "time"

// Option defines the interface required to provide an option to New.
type Option interface {
	applyOption(*Options)
}

// Options contains the options for a Mockup.
type Options struct {
	pins    []int
	export  bool
	kernel  bool
	latency time.Duration
}

// PinsOption specifies pins present when the mockup is created.
type PinsOption []int

// WithPins creates the pin directories for the given pins, as if already
// exported.
func WithPins(offsets ...int) PinsOption {
	return PinsOption(offsets)
}

func (o PinsOption) applyOption(m *Options) {
	m.pins = append(m.pins, o...)
}

// ExportOption requests the export and unexport control files.
type ExportOption struct{}

// WithExport creates the export and unexport control files.
//
// Writes to them have no effect unless WithKernel is also provided.
func WithExport() ExportOption {
	return ExportOption{}
}

func (o ExportOption) applyOption(m *Options) {
	m.export = true
}

// KernelOption requests kernel emulation.
type KernelOption struct {
	latency time.Duration
}

// WithKernel emulates the kernel servicing the export and unexport control
// files.
//
// Pin directories appear the given latency after the export is written.
func WithKernel(latency time.Duration) KernelOption {
	return KernelOption{latency}
}

func (o KernelOption) applyOption(m *Options) {
	m.kernel = true
	m.latency = o.latency
}
