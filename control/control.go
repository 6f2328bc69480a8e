// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package control sequences the reconfiguration of a GPIO pin from input to
// output, and the report of its resulting state.
//
// The sequence is fixed:
//
//	ensure exported -> set input -> read -> set output -> write -> read back -> report
//
// Failures before the output phase, of the read back, and of the report are
// warnings and the sequence continues. Failing to set the output direction or
// to write the output level aborts the sequence.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	gpiosysfs "github.com/warthog618/go-gpiosysfs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"periph.io/x/conn/v3/gpio"
)

const tracerName = "github.com/warthog618/go-gpiosysfs/control"

// Line is the pin being sequenced.
//
// It is satisfied by *gpiosysfs.Pin.
type Line interface {
	EnsureExported() error
	SetDirection(gpiosysfs.Direction) error
	Value() (gpio.Level, error)
	SetValue(gpio.Level) error
}

// Reporter receives the verified state of the pin at the end of the sequence.
//
// It is satisfied by *report.Reporter.
type Reporter interface {
	Report(ctx context.Context, pin int, l gpio.Level) error
}

// Config is the configuration of a sequence.
//
// It is read once at startup and not altered thereafter.
type Config struct {
	// The global GPIO number of the pin.
	Pin int

	// The sysfs root containing the pin.
	Base string

	// The endpoint receiving the report.
	URL string

	// The level driven in the output phase, typically gpio.High.
	Level gpio.Level
}

// State identifies the progress of a sequence.
type State int

const (
	// StateStart is the state before any operation on the pin.
	StateStart State = iota

	// StateExported indicates the export phase has been attempted.
	StateExported

	// StateInputConfigured indicates setting the input direction has been
	// attempted.
	StateInputConfigured

	// StateInputRead indicates the input read has been attempted.
	StateInputRead

	// StateOutputConfigured indicates the pin has been set to output.
	StateOutputConfigured

	// StateOutputWritten indicates the output level has been written.
	StateOutputWritten

	// StateVerified indicates the read back has been attempted.
	StateVerified

	// StateDone indicates the sequence completed.
	StateDone

	// StateAborted indicates the sequence failed to control the output.
	StateAborted
)

var stateNames = map[State]string{
	StateStart:            "start",
	StateExported:         "exported",
	StateInputConfigured:  "input-configured",
	StateInputRead:        "input-read",
	StateOutputConfigured: "output-configured",
	StateOutputWritten:    "output-written",
	StateVerified:         "verified",
	StateDone:             "done",
	StateAborted:          "aborted",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Phase identifies the operation that failed.
type Phase string

const (
	// PhaseExport is ensuring the pin is exported.
	PhaseExport Phase = "export"

	// PhaseInputDirection is setting the pin to input.
	PhaseInputDirection Phase = "set input direction"

	// PhaseInputRead is reading the pin as an input.
	PhaseInputRead Phase = "read input"

	// PhaseOutputDirection is setting the pin to output.
	PhaseOutputDirection Phase = "set output direction"

	// PhaseOutputWrite is writing the output level.
	PhaseOutputWrite Phase = "write output"

	// PhaseVerify is reading back the output level.
	PhaseVerify Phase = "verify output"

	// PhaseReport is reporting the verified level.
	PhaseReport Phase = "report"
)

// Run is the trace of one sequence.
type Run struct {
	// The final state, either StateDone or StateAborted.
	State State

	// The states passed through, in order.
	States []State

	// The level read in the input phase, valid if InputKnown.
	Input      gpio.Level
	InputKnown bool

	// The level written in the output phase.
	Written gpio.Level

	// The level read back in the output phase, valid if VerifiedKnown.
	// If not known, Low is reported.
	Verified      gpio.Level
	VerifiedKnown bool

	// The report was accepted.
	Reported bool

	// The non-fatal failures, each a *PhaseError.
	Warnings []error
}

func (r *Run) advance(s State) {
	r.State = s
	r.States = append(r.States, s)
}

// Sequencer runs the control sequence on a line.
type Sequencer struct {
	cfg      Config
	line     Line
	reporter Reporter
	out      io.Writer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a Sequencer for the line.
//
// The reporter may be nil, in which case the sequence ends without a report.
func New(cfg Config, line Line, reporter Reporter, options ...Option) *Sequencer {
	so := Options{
		out:    io.Discard,
		logger: slog.Default(),
		tp:     otel.GetTracerProvider(),
	}
	for _, option := range options {
		option.applyOption(&so)
	}
	return &Sequencer{
		cfg:      cfg,
		line:     line,
		reporter: reporter,
		out:      so.out,
		logger:   so.logger,
		tracer:   so.tp.Tracer(tracerName),
	}
}

// Run performs the sequence.
//
// The returned error is non-nil only if the sequence aborted, in which case
// it is a *PhaseError. Non-fatal failures are returned in the Run warnings.
func (s *Sequencer) Run(ctx context.Context) (Run, error) {
	ctx, span := s.tracer.Start(ctx, "control.run", trace.WithAttributes(
		attribute.Int("gpio.pin", s.cfg.Pin),
		attribute.String("gpio.base", s.cfg.Base)))
	defer span.End()

	r := Run{State: StateStart, States: []State{StateStart}}
	pin := s.cfg.Pin
	fmt.Fprintf(s.out, "Using sysfs base: %s | GPIO pin: %d\n", s.cfg.Base, pin)

	err := s.do(ctx, PhaseExport, s.line.EnsureExported)
	if err != nil {
		s.warn(&r, err)
	}
	r.advance(StateExported)

	err = s.do(ctx, PhaseInputDirection, func() error {
		return s.line.SetDirection(gpiosysfs.DirectionInput)
	})
	if err != nil {
		s.warn(&r, err)
	}
	r.advance(StateInputConfigured)

	var v gpio.Level
	err = s.do(ctx, PhaseInputRead, func() (err error) {
		v, err = s.line.Value()
		return
	})
	if err != nil {
		s.warn(&r, err)
	} else {
		r.Input, r.InputKnown = v, true
		fmt.Fprintf(s.out, "gpio%d input value: %s\n", pin, levelName(v))
	}
	r.advance(StateInputRead)

	err = s.do(ctx, PhaseOutputDirection, func() error {
		return s.line.SetDirection(gpiosysfs.DirectionOutput)
	})
	if err != nil {
		return s.abort(&r, span, err)
	}
	r.advance(StateOutputConfigured)

	err = s.do(ctx, PhaseOutputWrite, func() error {
		return s.line.SetValue(s.cfg.Level)
	})
	if err != nil {
		return s.abort(&r, span, err)
	}
	r.Written = s.cfg.Level
	fmt.Fprintf(s.out, "gpio%d output set: %s\n", pin, levelName(s.cfg.Level))
	r.advance(StateOutputWritten)

	err = s.do(ctx, PhaseVerify, func() error {
		v, err := s.line.Value()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrVerificationUnknown, err)
		}
		r.Verified, r.VerifiedKnown = v, true
		return nil
	})
	if err != nil {
		s.warn(&r, err)
		fmt.Fprintf(s.out, "gpio%d output verify value: unknown\n", pin)
	} else {
		fmt.Fprintf(s.out, "gpio%d output verify value: %s\n", pin, levelName(r.Verified))
	}
	r.advance(StateVerified)
	r.advance(StateDone)

	if s.reporter != nil {
		err = s.do(ctx, PhaseReport, func() error {
			return s.reporter.Report(ctx, pin, r.Verified)
		})
		if err != nil {
			s.warn(&r, err)
		} else {
			r.Reported = true
			fmt.Fprintf(s.out, "gpio%d reported: %s\n", pin, strings.ToLower(levelName(r.Verified)))
		}
	}
	span.SetStatus(codes.Ok, "")
	return r, nil
}

// do performs one phase of the sequence in its own span.
func (s *Sequencer) do(ctx context.Context, phase Phase, fn func() error) error {
	_, span := s.tracer.Start(ctx, string(phase))
	defer span.End()
	err := fn()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &PhaseError{Phase: phase, Pin: s.cfg.Pin, Err: err}
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Sequencer) warn(r *Run, err error) {
	r.Warnings = append(r.Warnings, err)
	var pe *PhaseError
	if errors.As(err, &pe) {
		s.logger.Warn("phase failed", "phase", string(pe.Phase), "pin", pe.Pin, "error", pe.Err)
	}
}

func (s *Sequencer) abort(r *Run, span trace.Span, err error) (Run, error) {
	var pe *PhaseError
	if errors.As(err, &pe) {
		pe.Fatal = true
		s.logger.Error("phase failed, aborting", "phase", string(pe.Phase), "pin", pe.Pin, "error", pe.Err)
	}
	r.advance(StateAborted)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return *r, err
}

func levelName(l gpio.Level) string {
	return strings.ToUpper(l.String())
}

// ErrVerificationUnknown indicates the output level could not be read back.
var ErrVerificationUnknown = errors.New("verification unknown")

// PhaseError indicates a phase of the sequence failed.
type PhaseError struct {
	Phase Phase
	Pin   int
	Err   error

	// The failure aborted the sequence.
	Fatal bool
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s gpio%d: %s", e.Phase, e.Pin, e.Err)
}

// Unwrap returns the underlying error.
func (e *PhaseError) Unwrap() error {
	return e.Err
}
