// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-gpiosysfs/mockup"
	"periph.io/x/conn/v3/gpio"
)

func newMockup(t *testing.T, options ...mockup.Option) *mockup.Mockup {
	t.Helper()
	m, err := mockup.New(filepath.Join(t.TempDir(), "gpio"), options...)
	require.Nil(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// execute runs the command line with flags not provided reverted to their
// defaults.
func execute(args ...string) (string, string, error) {
	getOpts.AsIs = false
	if f := rootCmd.Flags().Lookup("version"); f != nil {
		f.Value.Set("false")
	}
	rootOpts.Board = "rpi"
	rootOpts.PinBase = 0
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func pinExists(m *mockup.Mockup, offset int) func() bool {
	return func() bool {
		_, err := m.Pin(offset)
		return err == nil
	}
}

func TestExport(t *testing.T) {
	m := newMockup(t, mockup.WithExport(), mockup.WithKernel(0))
	_, _, err := execute("export", "--base", m.Base, "-d", "20ms", "22", "GPIO4")
	assert.Nil(t, err)
	assert.Eventually(t, pinExists(m, 22), time.Second, time.Millisecond)
	assert.Eventually(t, pinExists(m, 4), time.Second, time.Millisecond)
	assert.Equal(t, []int{22, 4}, m.Exported())

	// already exported
	_, _, err = execute("export", "--base", m.Base, "22")
	assert.Nil(t, err)
	assert.Equal(t, []int{22, 4}, m.Exported())

	// bad pin
	_, _, err = execute("export", "--base", m.Base, "nopin")
	assert.NotNil(t, err)

	// no export control
	m = newMockup(t)
	_, _, err = execute("export", "--base", m.Base, "22")
	assert.NotNil(t, err)
}

func TestExportPinBase(t *testing.T) {
	m := newMockup(t, mockup.WithExport(), mockup.WithKernel(0))
	_, _, err := execute("export", "--base", m.Base, "-d", "1ms", "-p", "512", "J8p15")
	assert.Nil(t, err)
	assert.Eventually(t, pinExists(m, 534), time.Second, time.Millisecond)
}

func TestUnexport(t *testing.T) {
	m := newMockup(t, mockup.WithPins(22), mockup.WithExport(), mockup.WithKernel(0))
	_, _, err := execute("unexport", "--base", m.Base, "22", "23")
	assert.Nil(t, err)
	assert.Eventually(t, func() bool { return !pinExists(m, 22)() }, time.Second, time.Millisecond)
}

func TestGet(t *testing.T) {
	m := newMockup(t, mockup.WithPins(4, 17, 22))
	p, err := m.Pin(17)
	require.Nil(t, err)
	require.Nil(t, p.SetValue(1))
	p, err = m.Pin(22)
	require.Nil(t, err)
	require.Nil(t, p.SetAttr("direction", "out\n"))

	out, _, err := execute("get", "--base", m.Base, "4", "GPIO17", "22")
	assert.Nil(t, err)
	assert.Equal(t, "0 1 0\n", out)
	d, err := p.Direction()
	assert.Nil(t, err)
	assert.Equal(t, "in", d)

	// as-is
	require.Nil(t, p.SetAttr("direction", "out\n"))
	out, _, err = execute("get", "--base", m.Base, "--as-is", "22")
	assert.Nil(t, err)
	assert.Equal(t, "0\n", out)
	d, err = p.Direction()
	assert.Nil(t, err)
	assert.Equal(t, "out", d)

	// broken
	require.Nil(t, p.Break("value"))
	_, _, err = execute("get", "--base", m.Base, "22")
	assert.NotNil(t, err)
}

func TestSet(t *testing.T) {
	m := newMockup(t, mockup.WithPins(17, 22))
	_, _, err := execute("set", "--base", m.Base, "22=1", "GPIO17=low")
	assert.Nil(t, err)
	for _, o := range []int{17, 22} {
		p, err := m.Pin(o)
		require.Nil(t, err)
		d, err := p.Direction()
		assert.Nil(t, err)
		assert.Equal(t, "out", d)
	}
	p, err := m.Pin(22)
	require.Nil(t, err)
	v, err := p.Value()
	assert.Nil(t, err)
	assert.Equal(t, 1, v)

	_, _, err = execute("set", "--base", m.Base, "22=floating")
	assert.NotNil(t, err)

	require.Nil(t, p.Break("direction"))
	_, _, err = execute("set", "--base", m.Base, "22=0")
	assert.NotNil(t, err)
	v, err = p.Value()
	assert.Nil(t, err)
	assert.Equal(t, 1, v)
}

func TestParsePinLevel(t *testing.T) {
	patterns := []struct {
		name  string
		arg   string
		pin   int
		level gpio.Level
		err   bool
	}{
		{"one", "22=1", 22, gpio.High, false},
		{"high", "22=high", 22, gpio.High, false},
		{"zero", "4=0", 4, gpio.Low, false},
		{"low", "GPIO4=LOW", 4, gpio.Low, false},
		{"header", "J8p15=1", 22, gpio.High, false},
		{"no level", "22", 0, gpio.Low, true},
		{"extra", "22=1=0", 0, gpio.Low, true},
		{"bad level", "22=2", 0, gpio.Low, true},
		{"bad pin", "x=1", 0, gpio.Low, true},
	}
	rootOpts.Board = "rpi"
	rootOpts.PinBase = 0
	for _, p := range patterns {
		tf := func(t *testing.T) {
			o, l, err := parsePinLevel(p.arg)
			if p.err {
				assert.NotNil(t, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, p.pin, o)
			assert.Equal(t, p.level, l)
		}
		t.Run(p.name, tf)
	}
}

func TestInfo(t *testing.T) {
	m := newMockup(t, mockup.WithPins(4, 22))
	p, err := m.Pin(22)
	require.Nil(t, err)
	require.Nil(t, p.SetAttr("direction", "out\n"))
	require.Nil(t, p.SetValue(1))

	out, _, err := execute("info", "--base", m.Base)
	assert.Nil(t, err)
	assert.Equal(t,
		"\tgpio4       input   low\n"+
			"\tgpio22     output  high\n",
		out)

	out, _, err = execute("info", "--base", m.Base, "5", "22")
	assert.Nil(t, err)
	assert.Equal(t,
		"\tgpio5    unexported\n"+
			"\tgpio22     output  high\n",
		out)

	require.Nil(t, p.Break("value"))
	_, stderr, err := execute("info", "--base", m.Base, "4", "22")
	assert.NotNil(t, err)
	assert.Contains(t, stderr, "gpiosysfs info: error reading gpio22 value")
}

func TestVersion(t *testing.T) {
	out, _, err := execute("--version")
	assert.Nil(t, err)
	assert.Equal(t, "gpiosysfs (gpiosysfs) undefined\n", out)

	// the flag does not stick
	m := newMockup(t, mockup.WithPins(4))
	out, _, err = execute("get", "--base", m.Base, "4")
	assert.Nil(t, err)
	assert.Equal(t, "0\n", out)
}
