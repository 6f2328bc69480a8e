// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package control

import (
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Option defines the interface required to provide an option to New.
type Option interface {
	applyOption(*Options)
}

// Options contains the options for a Sequencer.
type Options struct {
	out    io.Writer
	logger *slog.Logger
	tp     trace.TracerProvider
}

// OutputOption defines the destination of progress lines.
type OutputOption struct {
	w io.Writer
}

// WithOutput provides the destination for the human readable progress of
// the sequence. By default progress is discarded.
func WithOutput(w io.Writer) OutputOption {
	return OutputOption{w}
}

func (o OutputOption) applyOption(s *Options) {
	s.out = o.w
}

// LoggerOption defines the logger for failures.
type LoggerOption struct {
	logger *slog.Logger
}

// WithLogger provides the logger for failures, in place of slog.Default.
func WithLogger(l *slog.Logger) LoggerOption {
	return LoggerOption{l}
}

func (o LoggerOption) applyOption(s *Options) {
	s.logger = o.logger
}

// TracerProviderOption defines the source of spans for the sequence.
type TracerProviderOption struct {
	tp trace.TracerProvider
}

// WithTracerProvider provides the tracer provider, in place of the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) TracerProviderOption {
	return TracerProviderOption{tp}
}

func (o TracerProviderOption) applyOption(s *Options) {
	s.tp = o.tp
}
