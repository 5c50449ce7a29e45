package types

import (
	"strings"
	"time"
)

// Level is the severity of a log event. Levels are ordered; the numeric
// value is what the LogLevel column renders.
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the friendly name of the level, as rendered by the
// LogLevelFriendly column.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "Trace"
	case LevelDebug:
		return "Debug"
	case LevelInfo:
		return "Info"
	case LevelWarn:
		return "Warn"
	case LevelError:
		return "Error"
	case LevelFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// ParseLevel resolves a level name case-insensitively. Unknown names
// report ok=false and fall back to Info.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "fatal":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// LogEvent is one logging event to be rendered as a CSV row. Events are
// supplied per call and never retained by the renderer.
type LogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ThreadID  int64     `json:"thread_id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}
