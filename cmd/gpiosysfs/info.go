// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	gpiosysfs "github.com/warthog618/go-gpiosysfs"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:                   "info [flags] [pin]...",
	Short:                 "Info about pins",
	Long:                  `Print the direction and level of the specified pins (or all exported pins if none are specified).`,
	RunE:                  info,
	DisableFlagsInUseLine: true,
}

var errInfo = errors.New("info incomplete")

func info(cmd *cobra.Command, args []string) error {
	oo, err := parsePins(args)
	if err != nil {
		return err
	}
	if len(oo) == 0 {
		oo = exportedPins(rootOpts.Base)
	}
	rc := error(nil)
	for _, o := range oo {
		p, err := newPin(o)
		if err != nil {
			logErr(cmd, err)
			rc = errInfo
			continue
		}
		if err = printPinInfo(cmd.OutOrStdout(), p); err != nil {
			logErr(cmd, err)
			rc = errInfo
		}
	}
	return rc
}

// exportedPins returns the GPIO numbers of the pin directories under base.
func exportedPins(base string) []int {
	mm, _ := filepath.Glob(filepath.Join(base, "gpio[0-9]*"))
	oo := []int(nil)
	for _, m := range mm {
		o, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(m), "gpio"))
		if err == nil {
			oo = append(oo, o)
		}
	}
	sort.Ints(oo)
	return oo
}

func printPinInfo(w io.Writer, p *gpiosysfs.Pin) error {
	if !p.IsExported() {
		fmt.Fprintf(w, "\tgpio%-4d unexported\n", p.Offset())
		return nil
	}
	d, err := p.Direction()
	if err != nil {
		return fmt.Errorf("error reading gpio%d direction: %w", p.Offset(), err)
	}
	v, err := p.Value()
	if err != nil {
		return fmt.Errorf("error reading gpio%d value: %w", p.Offset(), err)
	}
	dirn := "input"
	if d == gpiosysfs.DirectionOutput {
		dirn = "output"
	}
	fmt.Fprintf(w, "\tgpio%-4d %8s %5s\n", p.Offset(), dirn, strings.ToLower(v.String()))
	return nil
}
