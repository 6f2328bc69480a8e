// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// A utility to control GPIO pins through the sysfs GPIO interface.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	gpiosysfs "github.com/warthog618/go-gpiosysfs"
	"github.com/warthog618/go-gpiosysfs/device"
)

var version = "undefined"

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("{{.Name}} (gpiosysfs) {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&rootOpts.Base, "base", "b", defaultBase(), "the sysfs GPIO root")
	rootCmd.PersistentFlags().StringVarP(&rootOpts.Board, "board", "B", "rpi", "the board used to resolve pin names")
	rootCmd.PersistentFlags().IntVarP(&rootOpts.PinBase, "pin-base", "p", 0, "the GPIO number of the first line of named pins")
	rootCmd.PersistentFlags().DurationVarP(&rootOpts.Settle, "settle-delay", "d", gpiosysfs.DefaultSettleDelay, "the delay after an export")
}

var (
	rootCmd = &cobra.Command{
		Use:   "gpiosysfs",
		Short: "gpiosysfs is a utility to control GPIO pins",
		Long:  "gpiosysfs is a utility to control GPIO pins through the Linux sysfs GPIO interface",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootOpts = struct {
		Base    string
		Board   string
		PinBase int
		Settle  time.Duration
	}{}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultBase() string {
	if b := os.Getenv("SYSFS_GPIO_BASE"); len(b) != 0 {
		return b
	}
	return gpiosysfs.DefaultBase
}

func logErr(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "gpiosysfs %s: %s\n", cmd.Name(), err)
}

// parsePin maps a pin argument to a GPIO number.
func parsePin(arg string) (int, error) {
	o, err := device.Pin(rootOpts.Board, arg)
	if err != nil {
		return 0, fmt.Errorf("can't parse pin '%s': %w", arg, err)
	}
	if device.IsName(arg) {
		o += rootOpts.PinBase
	}
	return o, nil
}

func parsePins(args []string) ([]int, error) {
	oo := []int(nil)
	for _, arg := range args {
		o, err := parsePin(arg)
		if err != nil {
			return nil, err
		}
		oo = append(oo, o)
	}
	return oo, nil
}

func newPin(offset int) (*gpiosysfs.Pin, error) {
	return gpiosysfs.NewPin(offset,
		gpiosysfs.WithBase(rootOpts.Base),
		gpiosysfs.WithSettleDelay(rootOpts.Settle))
}
