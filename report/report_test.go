// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package report_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-gpiosysfs/report"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"periph.io/x/conn/v3/gpio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	patterns := []struct {
		name string
		url  string
		ok   bool
	}{
		{"http", "http://meinserver.de/gpio", true},
		{"https", "https://example.com/api/gpio", true},
		{"port", "http://localhost:8000/gpio", true},
		{"query", "http://example.com/gpio?key=abc", true},
		{"relative", "/gpio", false},
		{"no scheme", "example.com/gpio", true},
		{"no host", "http:///gpio", false},
		{"empty", "", false},
		{"junk", "http://[::1", false},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			r, err := report.New(p.url)
			if p.ok {
				assert.Nil(t, err)
				assert.NotNil(t, r)
			} else {
				assert.True(t, errors.Is(err, report.ErrInvalidURL))
				assert.Nil(t, r)
			}
		}
		t.Run(p.name, tf)
	}
}

func TestURL(t *testing.T) {
	patterns := []struct {
		name  string
		base  string
		pin   int
		level gpio.Level
		url   string
	}{
		{"high", "http://meinserver.de/gpio", 22, gpio.High, "http://meinserver.de/gpio?pin=22&state=high"},
		{"low", "http://meinserver.de/gpio", 4, gpio.Low, "http://meinserver.de/gpio?pin=4&state=low"},
		{"query", "http://example.com/gpio?key=abc", 22, gpio.High, "http://example.com/gpio?key=abc&pin=22&state=high"},
		{"override", "http://example.com/gpio?pin=1", 22, gpio.Low, "http://example.com/gpio?pin=22&state=low"},
		{"no scheme", "meinserver.de/gpio", 22, gpio.High, "http://meinserver.de/gpio?pin=22&state=high"},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			r, err := report.New(p.base)
			require.Nil(t, err)
			assert.Equal(t, p.url, r.URL(p.pin, p.level))
		}
		t.Run(p.name, tf)
	}
}

func TestState(t *testing.T) {
	assert.Equal(t, "high", report.State(gpio.High))
	assert.Equal(t, "low", report.State(gpio.Low))
}

func TestReport(t *testing.T) {
	var got url.Values
	var agent string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		got = r.URL.Query()
		agent = r.UserAgent()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	var logs bytes.Buffer
	r, err := report.New(s.URL+"/gpio",
		report.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.Nil(t, err)
	err = r.Report(context.Background(), 22, gpio.High)
	assert.Nil(t, err)
	assert.Equal(t, "22", got.Get("pin"))
	assert.Equal(t, "high", got.Get("state"))
	assert.Equal(t, report.DefaultUserAgent, agent)
	assert.Contains(t, logs.String(), "status=200")

	r, err = report.New(s.URL+"/gpio",
		report.WithUserAgent("test-agent/2.0"),
		report.WithLogger(discardLogger()))
	require.Nil(t, err)
	err = r.Report(context.Background(), 4, gpio.Low)
	assert.Nil(t, err)
	assert.Equal(t, "4", got.Get("pin"))
	assert.Equal(t, "low", got.Get("state"))
	assert.Equal(t, "test-agent/2.0", agent)
}

func TestReportRedirect(t *testing.T) {
	var got url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new?"+r.URL.RawQuery, http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.WriteHeader(http.StatusNoContent)
	})
	s := httptest.NewServer(mux)
	defer s.Close()

	r, err := report.New(s.URL+"/old", report.WithLogger(discardLogger()))
	require.Nil(t, err)
	err = r.Report(context.Background(), 22, gpio.High)
	assert.Nil(t, err)
	assert.Equal(t, "22", got.Get("pin"))
	assert.Equal(t, "high", got.Get("state"))
}

func TestReportStatus(t *testing.T) {
	patterns := []struct {
		name string
		code int
	}{
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
		{"unavailable", http.StatusServiceUnavailable},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(p.code)
			}))
			defer s.Close()
			r, err := report.New(s.URL+"/gpio", report.WithLogger(discardLogger()))
			require.Nil(t, err)
			err = r.Report(context.Background(), 22, gpio.High)
			var se *report.StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, p.code, se.Code)
			assert.Equal(t, s.URL+"/gpio?pin=22&state=high", se.URL)
		}
		t.Run(p.name, tf)
	}
}

func TestReportTimeout(t *testing.T) {
	release := make(chan struct{})
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer s.Close()
	defer close(release)

	r, err := report.New(s.URL+"/gpio",
		report.WithTimeout(20*time.Millisecond),
		report.WithClient(&http.Client{}),
		report.WithLogger(discardLogger()))
	require.Nil(t, err)
	start := time.Now()
	err = r.Report(context.Background(), 22, gpio.High)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestReportTransport(t *testing.T) {
	s := httptest.NewServer(http.NotFoundHandler())
	base := s.URL + "/gpio"
	s.Close()

	r, err := report.New(base, report.WithLogger(discardLogger()))
	require.Nil(t, err)
	err = r.Report(context.Background(), 22, gpio.High)
	assert.NotNil(t, err)
	var se *report.StatusError
	assert.False(t, errors.As(err, &se))
}

func TestReportSpan(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	r, err := report.New(s.URL+"/gpio",
		report.WithLogger(discardLogger()),
		report.WithTracerProvider(tp))
	require.Nil(t, err)
	err = r.Report(context.Background(), 22, gpio.High)
	assert.Nil(t, err)
	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "report.send", spans[0].Name())
}
