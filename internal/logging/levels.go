package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits one step below Debug. The pipeline logs per-section
// extraction detail at this level.
const TraceLevel = zapcore.DebugLevel - 1

const traceName = "trace"

// LevelFromString parses a level name as accepted by --log-level. Names are
// case-insensitive and surrounding whitespace is ignored. An unknown name
// returns InfoLevel with an error.
func LevelFromString(level string) (zapcore.Level, error) {
	level = strings.TrimSpace(level)
	if strings.EqualFold(level, traceName) {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// LevelName returns the lowercase name of l, including "trace".
func LevelName(l zapcore.Level) string {
	if l == TraceLevel {
		return traceName
	}
	return l.String()
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(LevelName(l))
}
