/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging wires zap behind the logr API used across the formulator.
package logging

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels for logger.V(...).
const (
	DEFAULT = 2
	VERBOSE = 3
	DEBUG   = 4
	TRACE   = 5
)

var (
	mu sync.RWMutex
	// Log is the process-wide logger. It discards output until SetLogger is called.
	Log = logr.Discard()
)

// SetLogger replaces the process-wide logger.
func SetLogger(l logr.Logger) {
	mu.Lock()
	defer mu.Unlock()
	Log = l
}

// Logger returns the process-wide logger.
func Logger() logr.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Log
}

// Options controls how NewLogger builds the zap core.
type Options struct {
	// Verbosity enables logger.V(n) for every n <= Verbosity.
	Verbosity int
	// Development switches to the console encoder with stack traces on warnings.
	Development bool
	// Encoding overrides the encoder ("json" or "console").
	Encoding string
}

// NewLogger builds a logr.Logger backed by zap.
func NewLogger(opts Options) (logr.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if opts.Encoding != "" {
		cfg.Encoding = opts.Encoding
	}
	// zapr maps V(n) to zap level -n
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-opts.Verbosity))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("failed to build zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// NewTestLogger installs a development logger at DEBUG verbosity and returns it.
func NewTestLogger() logr.Logger {
	zl := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(testWriter{})),
		zapcore.Level(-DEBUG),
	))
	l := zapr.NewLogger(zl)
	SetLogger(l)
	return l
}

// testWriter drops output; suites only need the logger to be non-nil and enabled.
type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }
