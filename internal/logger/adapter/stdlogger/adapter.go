// Package stdlogger adapts the global zerolog logger to the printf and
// key/value logger interfaces expected by third party clients (cron, amqp, redis).
package stdlogger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger forwards leveled printf calls to zerolog.
type Logger struct {
	component string
}

// New returns a Logger without component field.
func New() *Logger {
	return &Logger{}
}

// NewComponent returns a Logger tagging every line with component.
func NewComponent(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	e := log.WithLevel(level)
	if l.component != "" {
		e = e.Str("component", l.component)
	}

	return e
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, v ...any) {
	l.event(zerolog.DebugLevel).Msgf(format, v...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, v ...any) {
	l.event(zerolog.InfoLevel).Msgf(format, v...)
}

// Warningf logs at warn level.
func (l *Logger) Warningf(format string, v ...any) {
	l.event(zerolog.WarnLevel).Msgf(format, v...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, v ...any) {
	l.event(zerolog.ErrorLevel).Msgf(format, v...)
}

// Printf logs at info level. Satisfies amqp091.Logging.
func (l *Logger) Printf(format string, v ...any) {
	l.Infof(format, v...)
}

// Info satisfies cron.Logger.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.event(zerolog.InfoLevel).Fields(pairs(keysAndValues)).Msg(msg)
}

// Error satisfies cron.Logger.
func (l *Logger) Error(err error, msg string, keysAndValues ...any) {
	l.event(zerolog.ErrorLevel).Err(err).Fields(pairs(keysAndValues)).Msg(msg)
}

// Context returns a view with the context aware Printf go-redis expects.
func (l *Logger) Context() ContextLogger {
	return ContextLogger{l: l}
}

// ContextLogger satisfies the go-redis internal logging interface.
type ContextLogger struct {
	l *Logger
}

// Printf logs at warn level; go-redis only logs on trouble.
func (c ContextLogger) Printf(_ context.Context, format string, v ...any) {
	c.l.Warningf(format, v...)
}

func pairs(kv []any) map[string]any {
	m := make(map[string]any, len(kv)/2) //nolint:mnd

	for i := 0; i+1 < len(kv); i += 2 {
		m[fmt.Sprint(kv[i])] = kv[i+1]
	}

	if len(kv)%2 == 1 {
		m["extra"] = kv[len(kv)-1]
	}

	return m
}
