// Package logging centralizes zap logger construction so every component
// gets the same structured-logging conventions (a pattern borrowed from
// the rest of the retrieval pack's matching engines, which thread a
// *zap.Logger through their constructors rather than using the global
// package logger).
package logging

import "go.uber.org/zap"

// New builds a production logger (JSON encoding, info level) unless dev
// is true, in which case it builds a development logger (console
// encoding, debug level, caller info on every line).
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Must is New but panics on error, for callers (mainly main.go) that have
// no sensible fallback if logger construction itself fails.
func Must(dev bool) *zap.Logger {
	logger, err := New(dev)
	if err != nil {
		panic(err)
	}
	return logger
}
