package gologger

import (
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-timebank/pkg/types"
)

// Logger adapts a go-logger logger to the ledger's types.Logger contract.
type Logger struct {
	l glog.Logger
}

var _ types.Logger = (*Logger)(nil)

// New wraps logger. A nil logger resolves to the go-logger no-op.
func New(logger glog.Logger) *Logger {
	_, resolved := glog.Resolve("timebank", nil, logger)
	return &Logger{l: resolved}
}

// FromProvider resolves a named logger, preferring the provider when present.
func FromProvider(name string, provider glog.LoggerProvider) *Logger {
	_, resolved := glog.Resolve(name, provider, nil)
	return &Logger{l: resolved}
}

func (a *Logger) Debug(msg string, args ...any) {
	a.l.Debug(msg, args...)
}

func (a *Logger) Info(msg string, args ...any) {
	a.l.Info(msg, args...)
}

func (a *Logger) Warn(msg string, args ...any) {
	a.l.Warn(msg, args...)
}

func (a *Logger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{"error", err}, args...)
	}
	a.l.Error(msg, args...)
}

// Unwrap returns the underlying go-logger logger.
func (a *Logger) Unwrap() glog.Logger {
	return a.l
}
