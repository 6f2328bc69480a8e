// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package report sends the observed state of a pin to an HTTP endpoint.
//
// The state is sent as a single GET request with the pin and state encoded in
// the query, e.g.
//
//	http://myserver.com/gpio?pin=22&state=high
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"periph.io/x/conn/v3/gpio"
)

const (
	// DefaultTimeout bounds the complete request, including redirects.
	DefaultTimeout = 5 * time.Second

	// DefaultUserAgent identifies the reporter to the endpoint.
	DefaultUserAgent = "gpioreport/1.0"

	tracerName = "github.com/warthog618/go-gpiosysfs/report"
)

// Reporter sends pin states to an endpoint.
type Reporter struct {
	base    *url.URL
	client  *http.Client
	agent   string
	timeout time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New creates a Reporter for the endpoint at baseURL.
//
// The baseURL must include a host. A URL without a scheme, such as
// myserver.com/gpio, is taken as http. Any query it contains is preserved.
func New(baseURL string, options ...Option) (*Reporter, error) {
	raw := baseURL
	if len(raw) != 0 && !strings.Contains(raw, "://") && !strings.HasPrefix(raw, "/") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if len(u.Scheme) == 0 || len(u.Host) == 0 {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, baseURL)
	}
	ro := Options{
		timeout: DefaultTimeout,
		agent:   DefaultUserAgent,
	}
	for _, option := range options {
		option.applyOption(&ro)
	}
	r := Reporter{
		base:    u,
		client:  ro.client,
		agent:   ro.agent,
		timeout: ro.timeout,
		logger:  ro.logger,
	}
	if r.client == nil {
		// default policy follows up to 10 redirects.
		r.client = &http.Client{Timeout: r.timeout}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	tp := ro.tp
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	r.tracer = tp.Tracer(tracerName)
	return &r, nil
}

// State returns the name of the level used in reports.
func State(l gpio.Level) string {
	if l == gpio.High {
		return "high"
	}
	return "low"
}

// URL returns the URL reporting the level of the pin.
func (r *Reporter) URL(pin int, l gpio.Level) string {
	u := *r.base
	q := u.Query()
	q.Set("pin", strconv.Itoa(pin))
	q.Set("state", State(l))
	u.RawQuery = q.Encode()
	return u.String()
}

// Report sends the level of the pin to the endpoint.
//
// Returns a StatusError if the endpoint responds with other than a 2xx
// status.
func (r *Reporter) Report(ctx context.Context, pin int, l gpio.Level) error {
	ctx, span := r.tracer.Start(ctx, "report.send")
	defer span.End()
	u := r.URL(pin, l)
	span.SetAttributes(
		attribute.Int("gpio.pin", pin),
		attribute.String("gpio.state", State(l)),
		attribute.String("http.url", u))

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	req.Header.Set("User-Agent", r.agent)
	resp, err := r.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	r.logger.Info("report sent", "url", u, "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = &StatusError{URL: u, Code: resp.StatusCode}
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// ErrInvalidURL indicates the endpoint URL cannot be used.
var ErrInvalidURL = errors.New("invalid url")

// StatusError indicates the endpoint responded with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s -> HTTP %d", e.URL, e.Code)
}
