package slabpool

import "go.uber.org/zap"

// logger is used by pools built without WithLogger.
var logger = zap.NewNop()

// SetLogger replaces the package logger. A nil l restores the no-op logger.
// Pools capture the logger at construction.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}
