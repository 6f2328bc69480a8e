// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

// gpioreport reconfigures a GPIO pin from input to output, drives it, and
// reports the resulting level to an HTTP endpoint.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/warthog618/config"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/keys"
	"github.com/warthog618/config/pflag"
	gpiosysfs "github.com/warthog618/go-gpiosysfs"
	"github.com/warthog618/go-gpiosysfs/control"
	"github.com/warthog618/go-gpiosysfs/device"
	"github.com/warthog618/go-gpiosysfs/report"
	"periph.io/x/conn/v3/gpio"
)

var version = "undefined"

const (
	defaultPin = "22"
	defaultURL = "http://meinserver.de/gpio"
)

func main() {
	cfg, flags := loadConfig()
	ac, err := newAppConfig(cfg, flags.Args())
	if err != nil {
		die(err.Error())
	}
	os.Exit(run(context.Background(), ac, os.Stdout, os.Stderr))
}

// appConfig is the configuration of a run, fixed once loaded.
type appConfig struct {
	pin         int
	base        string
	url         string
	level       gpio.Level
	settle      string
	settleDelay time.Duration
	timeout     time.Duration
	userAgent   string
	logLevel    string
	logFormat   string
	trace       bool
}

func newAppConfig(cfg *config.Config, args []string) (appConfig, error) {
	ac := appConfig{
		base:        cfg.MustGet("base").String(),
		url:         defaultURL,
		settle:      strings.ToLower(cfg.MustGet("settle").String()),
		settleDelay: cfg.MustGet("settle-delay").Duration(),
		timeout:     cfg.MustGet("timeout").Duration(),
		userAgent:   cfg.MustGet("user-agent").String(),
		logLevel:    cfg.MustGet("log-level").String(),
		logFormat:   cfg.MustGet("log-format").String(),
		trace:       cfg.MustGet("trace").Bool(),
	}
	if len(args) > 2 {
		return ac, fmt.Errorf("unexpected argument '%s'", args[2])
	}
	pin := defaultPin
	if len(args) > 0 {
		pin = args[0]
	}
	if len(args) > 1 {
		ac.url = args[1]
	}
	o, err := device.Pin(cfg.MustGet("board").String(), pin)
	if err != nil {
		return ac, fmt.Errorf("can't parse pin '%s': %w", pin, err)
	}
	if device.IsName(pin) {
		o += cfg.MustGet("pin-base").Int()
	}
	ac.pin = o
	switch l := strings.ToLower(cfg.MustGet("level").String()); l {
	case "high", "1":
		ac.level = gpio.High
	case "low", "0":
		ac.level = gpio.Low
	default:
		return ac, fmt.Errorf("can't parse level '%s'", l)
	}
	switch ac.settle {
	case "delay", "poll", "udev":
	default:
		return ac, fmt.Errorf("unknown settle strategy '%s'", ac.settle)
	}
	return ac, nil
}

func (ac appConfig) settler() gpiosysfs.Settler {
	switch ac.settle {
	case "poll":
		return gpiosysfs.PollSettler{Timeout: ac.settleDelay}
	case "udev":
		return gpiosysfs.UdevSettler{Timeout: ac.settleDelay}
	default:
		return gpiosysfs.DelaySettler(ac.settleDelay)
	}
}

// run performs the sequence described by ac and returns the exit status.
func run(ctx context.Context, ac appConfig, stdout, stderr io.Writer) int {
	logger := newLogger(ac.logLevel, ac.logFormat, stderr)
	shutdown, err := setupTracing(ac.trace, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "gpioreport: "+err.Error())
		return 1
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()
	var rep control.Reporter
	rep, err = report.New(ac.url,
		report.WithTimeout(ac.timeout),
		report.WithUserAgent(ac.userAgent),
		report.WithLogger(logger))
	if err != nil {
		// the pin is still driven, the report phase fails instead.
		logger.Warn("reporter unavailable", "url", ac.url, "error", err)
		rep = unavailableReporter{err}
	}
	p, err := gpiosysfs.NewPin(ac.pin,
		gpiosysfs.WithBase(ac.base),
		gpiosysfs.WithSettler(ac.settler()))
	if err != nil {
		fmt.Fprintln(stderr, "gpioreport: "+err.Error())
		return 1
	}
	cfg := control.Config{
		Pin:   ac.pin,
		Base:  p.Base(),
		URL:   ac.url,
		Level: ac.level,
	}
	s := control.New(cfg, p, rep,
		control.WithOutput(stdout),
		control.WithLogger(logger))
	if _, err = s.Run(ctx); err != nil {
		fmt.Fprintln(stderr, "gpioreport: "+err.Error())
		return 1
	}
	return 0
}

// unavailableReporter fails every report with the error that prevented
// creating the reporter.
type unavailableReporter struct {
	err error
}

func (r unavailableReporter) Report(ctx context.Context, pin int, l gpio.Level) error {
	return r.err
}

func configDefaults() map[string]interface{} {
	return map[string]interface{}{
		"help":         false,
		"version":      false,
		"base":         gpiosysfs.DefaultBase,
		"board":        "rpi",
		"pin-base":     0,
		"level":        "high",
		"settle":       "delay",
		"settle-delay": gpiosysfs.DefaultSettleDelay.String(),
		"timeout":      report.DefaultTimeout.String(),
		"user-agent":   report.DefaultUserAgent,
		"log-level":    "info",
		"log-format":   "text",
		"trace":        false,
	}
}

func loadConfig() (*config.Config, *pflag.Getter) {
	ff := []pflag.Flag{
		{Short: 'h', Name: "help", Options: pflag.IsBool},
		{Short: 'v', Name: "version", Options: pflag.IsBool},
		{Short: 'b', Name: "base"},
		{Short: 'B', Name: "board"},
		{Short: 'p', Name: "pin-base"},
		{Short: 'l', Name: "level"},
		{Short: 's', Name: "settle"},
		{Short: 'd', Name: "settle-delay"},
		{Short: 't', Name: "timeout"},
		{Short: 'a', Name: "user-agent"},
		{Short: 'L', Name: "log-level"},
		{Short: 'F', Name: "log-format"},
		{Short: 'T', Name: "trace", Options: pflag.IsBool},
	}
	defaults := dict.New(dict.WithMap(configDefaults()))
	flags := pflag.New(pflag.WithFlags(ff),
		pflag.WithKeyReplacer(keys.NullReplacer()),
	)
	cfg := config.New(
		flags,
		env.New(env.WithEnvPrefix("SYSFS_GPIO_")),
		config.WithDefault(defaults))
	if cfg.MustGet("help").Bool() {
		printHelp()
		os.Exit(0)
	}
	if cfg.MustGet("version").Bool() {
		printVersion()
		os.Exit(0)
	}
	return cfg, flags
}

func die(reason string) {
	fmt.Fprintln(os.Stderr, "gpioreport: "+reason)
	os.Exit(1)
}

func printHelp() {
	fmt.Printf("Usage: %s [OPTIONS] [pin] [url]\n", os.Args[0])
	fmt.Println("Switch a GPIO pin from input to output, drive it, and report its level.")
	fmt.Println()
	fmt.Printf("The pin defaults to %s and the url to %s.\n", defaultPin, defaultURL)
	fmt.Println("The pin may be a GPIO number or a name on the board, e.g. GPIO22 or J8p15.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help:\t\t\tdisplay this message and exit")
	fmt.Println("  -v, --version:\t\tdisplay the version and exit")
	fmt.Println("  -b, --base=PATH:\t\tthe sysfs GPIO root (default /sys/class/gpio)")
	fmt.Println("  -B, --board=NAME:\t\tthe board used to resolve pin names (default rpi)")
	fmt.Println("  -p, --pin-base=NUM:\t\tthe GPIO number of the first line of named pins")
	fmt.Println("  -l, --level=STRING:\t\tthe level driven, high or low (default high)")
	fmt.Println("  -s, --settle=STRING:\t\thow to wait after an export (default delay)")
	fmt.Println("  -d, --settle-delay=PERIOD:\tthe settle delay or timeout (default 50ms)")
	fmt.Println("  -t, --timeout=PERIOD:\t\tthe report timeout (default 5s)")
	fmt.Println("  -a, --user-agent=STRING:\tthe User-Agent sent with the report")
	fmt.Println("  -L, --log-level=STRING:\tdebug, info, warn or error (default info)")
	fmt.Println("  -F, --log-format=STRING:\ttext or json (default text)")
	fmt.Println("  -T, --trace:\t\t\twrite trace spans to stderr")
	fmt.Println()
	fmt.Println("Settle strategies:")
	fmt.Println("  delay:\twait a fixed period")
	fmt.Println("  poll:\t\tpoll for the pin directory until the timeout")
	fmt.Println("  udev:\t\twait for the kernel uevent, polling if uevents are unavailable")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  SYSFS_GPIO_BASE:\toverrides the default sysfs GPIO root")
	fmt.Println("  SYSFS_GPIO_BOARD, SYSFS_GPIO_LEVEL, SYSFS_GPIO_SETTLE, SYSFS_GPIO_TIMEOUT")
	fmt.Println("  and SYSFS_GPIO_TRACE override the matching option.")
	fmt.Println("  Options with a hyphenated name can only be set by flag.")
}

func printVersion() {
	fmt.Printf("%s (gpiosysfs) %s\n", os.Args[0], version)
}
