package debuglog

import (
	"fmt"
	"log"
	"os"
	"strings"
)

type Level uint8

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelVerbose
	LevelTrace
)

const envKey = "PINDEF_DEBUG"

var GlobalLevel = ParseLevel(os.Getenv(envKey))

// ParseLevel maps a level name to a Level. Unknown names fall back to warn.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return LevelTrace
	case "verbose", "debug":
		return LevelVerbose
	case "info":
		return LevelInfo
	case "error":
		return LevelError
	case "off":
		return LevelOff
	default:
		return LevelWarn
	}
}

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelVerbose:
		return "verbose"
	case LevelTrace:
		return "trace"
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// Enabled reports whether messages at level pass the global threshold.
func Enabled(level Level) bool {
	return level <= GlobalLevel
}

func Log(prefix string, level Level, format string, args ...interface{}) {
	if !Enabled(level) {
		return
	}
	message := fmt.Sprintf(format, args...)
	if prefix != "" {
		log.Printf("[%s] %s", prefix, message)
	} else {
		log.Print(message)
	}
}

// Logger binds a prefix so components don't repeat it on every call.
type Logger struct {
	Prefix string
}

func New(prefix string) Logger { return Logger{Prefix: prefix} }

func (l Logger) Errorf(format string, args ...interface{}) { Log(l.Prefix, LevelError, format, args...) }
func (l Logger) Warnf(format string, args ...interface{})  { Log(l.Prefix, LevelWarn, format, args...) }
func (l Logger) Infof(format string, args ...interface{})  { Log(l.Prefix, LevelInfo, format, args...) }
func (l Logger) Debugf(format string, args ...interface{}) { Log(l.Prefix, LevelVerbose, format, args...) }
func (l Logger) Tracef(format string, args ...interface{}) { Log(l.Prefix, LevelTrace, format, args...) }
