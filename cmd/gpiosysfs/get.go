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
	getCmd.Flags().BoolVarP(&getOpts.AsIs, "as-is", "a", false, "read the pin as-is rather than as an input")
	rootCmd.AddCommand(getCmd)
}

var (
	getCmd = &cobra.Command{
		Use:                   "get [flags] <pin>...",
		Short:                 "Get the level of a pin or pins",
		Long:                  `Read the level of a pin or pins, exporting them if necessary.`,
		Args:                  cobra.MinimumNArgs(1),
		RunE:                  get,
		DisableFlagsInUseLine: true,
	}
	getOpts = struct {
		AsIs bool
	}{}
)

func get(cmd *cobra.Command, args []string) error {
	oo, err := parsePins(args)
	if err != nil {
		return err
	}
	vv := []string(nil)
	for _, o := range oo {
		p, err := newPin(o)
		if err != nil {
			return err
		}
		if err = p.EnsureExported(); err != nil {
			return err
		}
		if !getOpts.AsIs {
			if err = p.SetDirection(gpiosysfs.DirectionInput); err != nil {
				return fmt.Errorf("error setting gpio%d direction: %w", o, err)
			}
		}
		v, err := p.Value()
		if err != nil {
			return fmt.Errorf("error reading gpio%d value: %w", o, err)
		}
		if v == gpio.High {
			vv = append(vv, "1")
		} else {
			vv = append(vv, "0")
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(vv, " "))
	return nil
}
