// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package gpiosysfs

import (
	"time"

	"github.com/warthog618/go-gpiosysfs/sysfs"
)

const (
	// DefaultSettleDelay is the fixed delay applied after an export.
	DefaultSettleDelay = 50 * time.Millisecond

	// DefaultSettleTimeout bounds the polling and udev settlers.
	DefaultSettleTimeout = 500 * time.Millisecond

	// DefaultPollInterval is the period between checks by the PollSettler.
	DefaultPollInterval = 5 * time.Millisecond
)

// Settler waits for the kernel to create a pin directory after an export.
//
// The kernel creates the directory asynchronously, so it may not exist
// immediately after the export is written.
type Settler interface {
	// Arm prepares to wait for the directory, and is called before the
	// export is written so no creation can be missed.
	Arm(dir string) Settlement
}

// Settlement is an armed wait for a pin directory.
//
// Exactly one of Wait or Cancel must be called.
type Settlement interface {
	// Wait blocks until the directory is available.
	Wait() error

	// Cancel releases the settlement without waiting.
	Cancel()
}

// DelaySettler waits a fixed period, irrespective of the directory.
type DelaySettler time.Duration

// Arm returns a settlement that sleeps for the delay.
func (d DelaySettler) Arm(dir string) Settlement {
	return delaySettlement(d)
}

type delaySettlement time.Duration

func (d delaySettlement) Wait() error {
	time.Sleep(time.Duration(d))
	return nil
}

func (d delaySettlement) Cancel() {}

// PollSettler polls for the directory until it appears or the timeout
// expires.
type PollSettler struct {
	// The period between checks. Zero selects DefaultPollInterval.
	Interval time.Duration

	// The maximum time to wait. Zero selects DefaultSettleTimeout.
	Timeout time.Duration
}

// Arm returns a settlement that polls for dir.
func (s PollSettler) Arm(dir string) Settlement {
	ps := pollSettlement{
		dir:      dir,
		interval: s.Interval,
		timeout:  s.Timeout,
	}
	if ps.interval <= 0 {
		ps.interval = DefaultPollInterval
	}
	if ps.timeout <= 0 {
		ps.timeout = DefaultSettleTimeout
	}
	return &ps
}

type pollSettlement struct {
	dir      string
	interval time.Duration
	timeout  time.Duration
}

func (s *pollSettlement) Wait() error {
	deadline := time.Now().Add(s.timeout)
	for {
		if sysfs.Exists(s.dir) {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrSettleTimeout
		}
		time.Sleep(s.interval)
	}
}

func (s *pollSettlement) Cancel() {}
