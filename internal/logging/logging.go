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

// Package logging holds the process-wide structured logger of the library.
//
// The logger is a logr.Logger backed by zap. Library code logs through Log,
// using verbosity levels for anything below normal operation:
//
//	logging.Log.V(logging.DEBUG).Info("Oversampling retry", "factor", factor)
package logging

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels used with logr's V().
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

var (
	mu sync.RWMutex
	// Log is the logger used by every package of the library. It discards
	// everything until SetLogger or one of the constructors installs a sink.
	Log = logr.Discard()
)

// SetLogger installs l as the process-wide logger.
func SetLogger(l logr.Logger) {
	mu.Lock()
	defer mu.Unlock()
	Log = l
}

// Logger returns the current process-wide logger.
func Logger() logr.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Log
}

// ParseLevel maps a level name ("info", "debug", "trace") to a logr verbosity.
func ParseLevel(level string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	case "trace":
		return TRACE, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger builds a production (JSON) logr.Logger enabled up to verbosity.
func NewLogger(verbosity int) (logr.Logger, error) {
	cfg := zap.NewProductionConfig()
	// zap levels are negated logr verbosities
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	cfg.Sampling = nil
	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("building zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// NewTestLogger installs a development logger writing to stderr at TRACE
// verbosity and returns it. Meant for test suites.
func NewTestLogger() logr.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-TRACE))
	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard()
	}
	l := zapr.NewLogger(zl)
	SetLogger(l)
	return l
}
