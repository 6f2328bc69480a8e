// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package gpiosysfs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gpiosysfs "github.com/warthog618/go-gpiosysfs"
	"github.com/warthog618/go-gpiosysfs/mockup"
)

func TestDelaySettler(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gpio22")
	s := gpiosysfs.DelaySettler(20 * time.Millisecond)

	start := time.Now()
	err := s.Arm(dir).Wait()
	assert.Nil(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	// cancel doesn't wait
	start = time.Now()
	s.Arm(dir).Cancel()
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}

func TestPollSettler(t *testing.T) {
	patterns := []struct {
		name  string
		delay time.Duration
		err   error
	}{
		{"existing", 0, nil},
		{"late", 20 * time.Millisecond, nil},
		{"never", -1, gpiosysfs.ErrSettleTimeout},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "gpio22")
			switch {
			case p.delay == 0:
				require.Nil(t, os.Mkdir(dir, 0755))
			case p.delay > 0:
				time.AfterFunc(p.delay, func() { os.Mkdir(dir, 0755) })
			}
			s := gpiosysfs.PollSettler{Interval: time.Millisecond, Timeout: 200 * time.Millisecond}
			err := s.Arm(dir).Wait()
			assert.Equal(t, p.err, err)
		}
		t.Run(p.name, tf)
	}
}

func TestPollSettlerDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gpio22")
	start := time.Now()
	err := gpiosysfs.PollSettler{}.Arm(dir).Wait()
	assert.Equal(t, gpiosysfs.ErrSettleTimeout, err)
	assert.GreaterOrEqual(t, time.Since(start), gpiosysfs.DefaultSettleTimeout)
}

func TestUdevSettler(t *testing.T) {
	// mock trees generate no uevents, so this covers the timeout recheck or
	// the polling fallback, depending on privileges.
	m := newMockup(t, mockup.WithKernel(5*time.Millisecond))
	p := getPin(t, m, 22,
		gpiosysfs.WithSettler(gpiosysfs.UdevSettler{Timeout: 100 * time.Millisecond}))
	err := p.Export()
	assert.Nil(t, err)
	assert.True(t, p.IsExported())

	// never appears
	m = newMockup(t, mockup.WithExport())
	p = getPin(t, m, 22,
		gpiosysfs.WithSettler(gpiosysfs.UdevSettler{Timeout: 10 * time.Millisecond}))
	err = p.Export()
	assert.Equal(t, gpiosysfs.ErrSettleTimeout, err)

	// cancelled on unavailable export
	m = newMockup(t)
	p = getPin(t, m, 22,
		gpiosysfs.WithSettler(gpiosysfs.UdevSettler{Timeout: time.Second}))
	start := time.Now()
	err = p.EnsureExported()
	assert.Nil(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUdevSettlerRelease(t *testing.T) {
	dir := t.TempDir()
	s := gpiosysfs.UdevSettler{Timeout: time.Second}

	// existing directory needs no event
	start := time.Now()
	assert.Nil(t, s.Arm(dir).Wait())
	assert.Less(t, time.Since(start), time.Second)

	// releasing the monitor more than once is harmless
	st := s.Arm(dir)
	assert.NotPanics(t, func() {
		st.Cancel()
		st.Cancel()
	})
}
