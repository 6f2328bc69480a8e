// SPDX-License-Identifier: MIT
//
// SPDX-FileCopyrightText: © 2019 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package gpiosysfs

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"
	"github.com/warthog618/go-gpiosysfs/sysfs"
)

// UdevSettler waits for the kernel uevent announcing the pin device.
//
// If the uevent socket is not available, such as when running unprivileged
// in a container, it falls back to polling.
type UdevSettler struct {
	// The maximum time to wait. Zero selects DefaultSettleTimeout.
	Timeout time.Duration
}

// Arm starts monitoring uevents for the pin in dir.
func (s UdevSettler) Arm(dir string) Settlement {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSettleTimeout
	}
	m, err := newUdevMonitor(filepath.Base(dir))
	if err != nil {
		return PollSettler{Timeout: timeout}.Arm(dir)
	}
	return &udevSettlement{m: m, dir: dir, timeout: timeout}
}

type udevSettlement struct {
	m       *udevMonitor
	dir     string
	timeout time.Duration
}

func (s *udevSettlement) Wait() error {
	defer s.m.close()
	if sysfs.Exists(s.dir) {
		return nil
	}
	select {
	case <-s.m.queue:
		return nil
	case <-time.After(s.timeout):
		// the event may be suppressed, though the directory exists.
		if sysfs.Exists(s.dir) {
			return nil
		}
		return ErrSettleTimeout
	}
}

func (s *udevSettlement) Cancel() {
	s.m.close()
}

type udevMonitor struct {
	conn  *netlink.UEventConn
	queue chan netlink.UEvent
	errs  chan error
	quit  chan struct{}
	once  sync.Once
}

// newUdevMonitor watches for the add of the named gpio device, e.g. gpio22.
func newUdevMonitor(name string) (*udevMonitor, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.KernelEvent); err != nil {
		return nil, fmt.Errorf("unable to connect to Netlink Kobject UEvent socket: %w", err)
	}
	action := "add"
	matcher := &netlink.RuleDefinition{Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "gpio",
			"DEVPATH":   "/" + regexp.QuoteMeta(name) + "$",
		}}
	// buffered so the monitor never blocks once nobody is listening.
	queue := make(chan netlink.UEvent, 1)
	errs := make(chan error, 8)
	quit := conn.Monitor(queue, errs, matcher)
	return &udevMonitor{conn: conn, queue: queue, errs: errs, quit: quit}, nil
}

// close stops the monitor.
//
// The monitor goroutine exits once its socket read returns. Until then it
// may hold one further matching event in the queue, so at most one
// goroutine per settlement outlives close, bounded by the process lifetime.
func (m *udevMonitor) close() {
	m.once.Do(func() {
		select {
		case m.quit <- struct{}{}:
		default:
		}
		m.conn.Close()
	})
}
