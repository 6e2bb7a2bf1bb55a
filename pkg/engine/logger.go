package engine

import (
	"log"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

func parseLevel(s string) logLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return levelDebug
	case "WARN", "WARNING":
		return levelWarn
	case "ERROR":
		return levelError
	default:
		return levelInfo
	}
}

// stdLogger forwards engine-internal logging to a standard library logger,
// filtered by level.
type stdLogger struct {
	l     *log.Logger
	level logLevel
}

// StdLogger adapts l into the engine's logger interface. level is one of
// DEBUG, INFO, WARN, ERROR; anything else means INFO.
func StdLogger(l *log.Logger, level string) badger.Logger {
	return &stdLogger{l: l, level: parseLevel(level)}
}

func (s *stdLogger) Errorf(format string, args ...interface{}) {
	if s.level <= levelError {
		s.l.Printf("ERROR: "+format, args...)
	}
}

func (s *stdLogger) Warningf(format string, args ...interface{}) {
	if s.level <= levelWarn {
		s.l.Printf("WARN: "+format, args...)
	}
}

func (s *stdLogger) Infof(format string, args ...interface{}) {
	if s.level <= levelInfo {
		s.l.Printf("INFO: "+format, args...)
	}
}

func (s *stdLogger) Debugf(format string, args ...interface{}) {
	if s.level <= levelDebug {
		s.l.Printf("DEBUG: "+format, args...)
	}
}
