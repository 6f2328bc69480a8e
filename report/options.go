// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package report

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option defines the interface required to provide an option to New.
type Option interface {
	applyOption(*Options)
}

// Options contains the options for a Reporter.
type Options struct {
	timeout time.Duration
	agent   string
	client  *http.Client
	logger  *slog.Logger
	tp      trace.TracerProvider
}

// TimeoutOption defines the timeout for a report.
type TimeoutOption time.Duration

// WithTimeout overrides DefaultTimeout.
//
// Zero or negative values leave the default in place.
func WithTimeout(d time.Duration) TimeoutOption {
	return TimeoutOption(d)
}

func (o TimeoutOption) applyOption(r *Options) {
	if o > 0 {
		r.timeout = time.Duration(o)
	}
}

// UserAgentOption defines the client identifier sent with reports.
type UserAgentOption string

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(agent string) UserAgentOption {
	return UserAgentOption(agent)
}

func (o UserAgentOption) applyOption(r *Options) {
	if len(o) != 0 {
		r.agent = string(o)
	}
}

// ClientOption defines the HTTP client used to send reports.
type ClientOption struct {
	client *http.Client
}

// WithClient provides the HTTP client used to send reports.
//
// The report timeout is still applied to each request.
func WithClient(c *http.Client) ClientOption {
	return ClientOption{c}
}

func (o ClientOption) applyOption(r *Options) {
	r.client = o.client
}

// LoggerOption defines the logger for report results.
type LoggerOption struct {
	logger *slog.Logger
}

// WithLogger provides the logger for report results, in place of
// slog.Default.
func WithLogger(l *slog.Logger) LoggerOption {
	return LoggerOption{l}
}

func (o LoggerOption) applyOption(r *Options) {
	r.logger = o.logger
}

// TracerProviderOption defines the source of report spans.
type TracerProviderOption struct {
	tp trace.TracerProvider
}

// WithTracerProvider provides the tracer provider, in place of the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) TracerProviderOption {
	return TracerProviderOption{tp}
}

func (o TracerProviderOption) applyOption(r *Options) {
	r.tp = o.tp
}
