// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	gpiosysfs "github.com/warthog618/go-gpiosysfs"
	"periph.io/x/conn/v3/gpio"
)

func init() {
	setCmd.SetHelpTemplate(setCmd.HelpTemplate() + extendedSetHelp)
	rootCmd.AddCommand(setCmd)
}

var extendedSetHelp = `
Levels:
  1, high:      drive the pin high
  0, low:       drive the pin low

Note:
  The pin remains an output at the level set after exit.
`

var setCmd = &cobra.Command{
	Use:                   "set [flags] <pin1>=<level1>...",
	Short:                 "Set the level of a pin or pins",
	Long:                  `Set pins to output and drive them at the given levels, exporting them if necessary.`,
	Args:                  cobra.MinimumNArgs(1),
	RunE:                  set,
	DisableFlagsInUseLine: true,
}

func set(cmd *cobra.Command, args []string) error {
	oo := []int(nil)
	vv := []gpio.Level(nil)
	for _, arg := range args {
		o, v, err := parsePinLevel(arg)
		if err != nil {
			return err
		}
		oo = append(oo, o)
		vv = append(vv, v)
	}
	for i, o := range oo {
		p, err := newPin(o)
		if err != nil {
			return err
		}
		if err = p.EnsureExported(); err != nil {
			return err
		}
		if err = p.SetDirection(gpiosysfs.DirectionOutput); err != nil {
			return fmt.Errorf("error setting gpio%d direction: %w", o, err)
		}
		if err = p.SetValue(vv[i]); err != nil {
			return fmt.Errorf("error setting gpio%d value: %w", o, err)
		}
	}
	return nil
}

func parsePinLevel(arg string) (int, gpio.Level, error) {
	pl := strings.Split(arg, "=")
	if len(pl) != 2 {
		return 0, gpio.Low, fmt.Errorf("invalid pin=level %s", arg)
	}
	o, err := parsePin(pl[0])
	if err != nil {
		return 0, gpio.Low, err
	}
	switch strings.ToLower(pl[1]) {
	case "1", "high":
		return o, gpio.High, nil
	case "0", "low":
		return o, gpio.Low, nil
	}
	return 0, gpio.Low, fmt.Errorf("can't parse level '%s'", pl[1])
}
