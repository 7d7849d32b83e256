/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package modlog is the default logging provider. Output goes through zap;
// filtering is done per module against the levels kept in this package.
package modlog

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/logging/api"
	"github.com/hlf-iot/iot-client-sdk-go/pkg/core/logging/metadata"
)

var rwmutex = &sync.RWMutex{}
var moduleLevels = &metadata.ModuleLevels{}

// Provider is the default logger implementation
type Provider struct {
	base *zap.Logger
}

//LoggerProvider returns logging provider for SDK logger
func LoggerProvider() api.LoggerProvider {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	// module levels decide what is emitted
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.DisableStacktrace = true

	base, err := cfg.Build()
	if err != nil {
		base = zap.NewNop()
	}
	return NewProvider(base)
}

// NewProvider returns a provider writing to the given zap logger.
func NewProvider(base *zap.Logger) *Provider {
	return &Provider{base: base}
}

//GetLogger returns SDK logger implementation
func (p *Provider) GetLogger(module string) api.Logger {
	return &Log{
		module: module,
		sugar:  p.base.Named(module).Sugar(),
	}
}

//SetLevel - setting log level for given module
func SetLevel(module string, level api.Level) {
	rwmutex.Lock()
	defer rwmutex.Unlock()
	moduleLevels.SetLevel(module, level)
}

//GetLevel - getting log level for given module
func GetLevel(module string) api.Level {
	rwmutex.RLock()
	defer rwmutex.RUnlock()
	return moduleLevels.GetLevel(module)
}

//IsEnabledFor - Check if given log level is enabled for given module
func IsEnabledFor(module string, level api.Level) bool {
	rwmutex.RLock()
	defer rwmutex.RUnlock()
	return moduleLevels.IsEnabledFor(module, level)
}

//Log is a standard SDK logger implementation
type Log struct {
	module string
	sugar  *zap.SugaredLogger
}

// Fatal is CRITICAL log followed by a call to os.Exit(1).
func (l *Log) Fatal(args ...interface{}) {
	l.sugar.Fatal(args...)
}

// Fatalf is CRITICAL log formatted followed by a call to os.Exit(1).
func (l *Log) Fatalf(format string, args ...interface{}) {
	l.sugar.Fatalf(format, args...)
}

// Debug is DEBUG log
func (l *Log) Debug(args ...interface{}) {
	if IsEnabledFor(l.module, api.DEBUG) {
		l.sugar.Debug(args...)
	}
}

// Debugf is DEBUG log formatted
func (l *Log) Debugf(format string, args ...interface{}) {
	if IsEnabledFor(l.module, api.DEBUG) {
		l.sugar.Debugf(format, args...)
	}
}

// Info is INFO log
func (l *Log) Info(args ...interface{}) {
	if IsEnabledFor(l.module, api.INFO) {
		l.sugar.Info(args...)
	}
}

// Infof is INFO log formatted
func (l *Log) Infof(format string, args ...interface{}) {
	if IsEnabledFor(l.module, api.INFO) {
		l.sugar.Infof(format, args...)
	}
}

// Warn is WARNING log
func (l *Log) Warn(args ...interface{}) {
	if IsEnabledFor(l.module, api.WARNING) {
		l.sugar.Warn(args...)
	}
}

// Warnf is WARNING log formatted
func (l *Log) Warnf(format string, args ...interface{}) {
	if IsEnabledFor(l.module, api.WARNING) {
		l.sugar.Warnf(format, args...)
	}
}

// Error is ERROR log
func (l *Log) Error(args ...interface{}) {
	if IsEnabledFor(l.module, api.ERROR) {
		l.sugar.Error(args...)
	}
}

// Errorf is ERROR log formatted
func (l *Log) Errorf(format string, args ...interface{}) {
	if IsEnabledFor(l.module, api.ERROR) {
		l.sugar.Errorf(format, args...)
	}
}
