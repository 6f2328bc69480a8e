// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(unexportCmd)
}

var (
	exportCmd = &cobra.Command{
		Use:                   "export [flags] <pin>...",
		Short:                 "Export pins",
		Long:                  `Export pins to userspace, waiting for the kernel to create each pin directory.`,
		Args:                  cobra.MinimumNArgs(1),
		RunE:                  export,
		DisableFlagsInUseLine: true,
	}
	unexportCmd = &cobra.Command{
		Use:                   "unexport [flags] <pin>...",
		Short:                 "Unexport pins",
		Long:                  `Return pins to the kernel, removing each pin directory.`,
		Args:                  cobra.MinimumNArgs(1),
		RunE:                  unexport,
		DisableFlagsInUseLine: true,
	}
)

func export(cmd *cobra.Command, args []string) error {
	oo, err := parsePins(args)
	if err != nil {
		return err
	}
	for _, o := range oo {
		p, err := newPin(o)
		if err != nil {
			return err
		}
		if p.IsExported() {
			continue
		}
		if err = p.Export(); err != nil {
			return err
		}
	}
	return nil
}

func unexport(cmd *cobra.Command, args []string) error {
	oo, err := parsePins(args)
	if err != nil {
		return err
	}
	for _, o := range oo {
		p, err := newPin(o)
		if err != nil {
			return err
		}
		if err = p.Unexport(); err != nil {
			return err
		}
	}
	return nil
}
