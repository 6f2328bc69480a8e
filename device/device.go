// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
// SPDX-FileCopyrightText: 2023 Alex Bucknall <alex.bucknall@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package device provides convenience mappings from board pin names to GPIO
// numbers.
package device

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// Board describes the pin naming of a board's 40 pin expansion header.
type Board struct {
	// The board name, e.g. rpi.
	Name string

	// The prefix of header pin names, e.g. j8 for J8p7.
	Header string

	// header pin number to GPIO number.
	pins map[int]int
}

// header40 maps the GPIO pins of the Raspberry Pi style 40 pin header to
// their BCM numbers. Pins not listed are power, ground or reserved.
var header40 = map[int]int{
	3: 2, 5: 3, 7: 4, 8: 14, 10: 15,
	11: 17, 12: 18, 13: 27, 15: 22, 16: 23,
	18: 24, 19: 10, 21: 9, 22: 25, 23: 11,
	24: 8, 26: 7, 27: 0, 28: 1, 29: 5,
	31: 6, 32: 12, 33: 13, 35: 19, 36: 16,
	37: 26, 38: 20, 40: 21,
}

const (
	// lowest GPIO addressable by name, as 0 and 1 are reserved for the HAT
	// EEPROM.
	minGPIO = 2

	// highest GPIO addressable by name.
	maxGPIO = 27
)

var boards = map[string]*Board{
	"rpi":        {Name: "rpi", Header: "j8", pins: header40},
	"jetsonnano": {Name: "jetsonnano", Header: "j41", pins: header40},
}

// Boards returns the names of the supported boards.
func Boards() []string {
	bb := make([]string, 0, len(boards))
	for name := range boards {
		bb = append(bb, name)
	}
	sort.Strings(bb)
	return bb
}

// Lookup returns the named board.
func Lookup(name string) (*Board, error) {
	b, ok := boards[strings.ToLower(name)]
	if !ok {
		return nil, ErrUnknownBoard
	}
	return b, nil
}

// Pin maps a pin string name to a GPIO number.
//
// Pin names are case insensitive and may be of the form <header>pX, GPIOX,
// or X, e.g. J8p15, GPIO22 or 22 on a Raspberry Pi.
func (b *Board) Pin(s string) (int, error) {
	s = strings.ToLower(s)
	switch {
	case strings.HasPrefix(s, b.Header+"p"):
		hp, err := strconv.Atoi(s[len(b.Header)+1:])
		if err != nil {
			return 0, ErrInvalid
		}
		v, ok := b.pins[hp]
		if !ok {
			return 0, ErrInvalid
		}
		return v, nil
	case strings.HasPrefix(s, "gpio"):
		s = s[len("gpio"):]
	}
	v, err := strconv.ParseInt(s, 10, 8)
	if err != nil {
		return 0, err
	}
	if v < minGPIO || v > maxGPIO {
		return 0, ErrInvalid
	}
	return int(v), nil
}

// Pin maps a pin string to a GPIO number.
//
// A plain decimal number is taken as is, as it may exceed the range of
// names on the board. Anything else is resolved as a name on the board.
func Pin(board, s string) (int, error) {
	if v, err := strconv.ParseUint(s, 10, 31); err == nil {
		return int(v), nil
	}
	b, err := Lookup(board)
	if err != nil {
		return 0, err
	}
	return b.Pin(s)
}

// IsName returns true if the pin string is a name rather than a plain number.
func IsName(s string) bool {
	_, err := strconv.ParseUint(s, 10, 31)
	return err != nil
}

var (
	// ErrInvalid indicates the pin name does not match a known pin.
	ErrInvalid = errors.New("invalid pin name")

	// ErrUnknownBoard indicates the board name is not supported.
	ErrUnknownBoard = errors.New("unknown board")
)
