// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logio

import (
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/vencik/ctxkit/internal/netio"
)

// Level is a log verbosity level. Levels increase in verbosity;
// a message is emitted iff the logger's configured level is >= the
// message's level.
type Level int

const (
	LevelAlways Level = iota
	LevelFatal
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug0
	LevelDebug1
	LevelDebug2
	LevelDebug3
	LevelDebug4
	LevelDebug5
	LevelDebug6
	LevelDebug7
	LevelDebug8
	LevelDebug9
)

func (l Level) tag() string {
	switch l {
	case LevelAlways:
		return "(**)"
	case LevelFatal:
		return "(!!)"
	case LevelError:
		return "(EE)"
	case LevelWarn:
		return "(WW)"
	case LevelInfo:
		return "(II)"
	case LevelDebug0:
		return "(DD)"
	default:
		return fmt.Sprintf("(D%d)", int(l-LevelDebug0))
	}
}

// Logger is the front-end producer API bound to one target (a file
// path, or /dev/stdout, /dev/stderr) and backed by a shared Backend.
type Logger struct {
	backend  *Backend
	target   string
	level    Level
	pid      int
	loggerID string
}

// NewLogger returns a Logger writing through backend to target, at or
// below the given level. loggerID, if non-empty, is appended to the
// pid.tid header so a process running more than one named logger
// instance can tell their lines apart.
func NewLogger(backend *Backend, target string, level Level, loggerID string) *Logger {
	return &Logger{
		backend:  backend,
		target:   target,
		level:    level,
		pid:      netio.Pid(),
		loggerID: loggerID,
	}
}

// NewNamedLogger generates a random logger_id via uuid, for the
// common case of disambiguating multiple loggers without the caller
// having to invent names.
func NewNamedLogger(backend *Backend, target string, level Level) *Logger {
	return NewLogger(backend, target, level, uuid.NewString())
}

// SetLevel changes the logger's verbosity threshold.
func (l *Logger) SetLevel(level Level) { l.level = level }

// Emit formats and enqueues one log line iff level is at or below the
// logger's configured verbosity. Returns ErrClosed if the backend has
// already been shut down.
func (l *Logger) Emit(level Level, function, file string, line int, msg string) error {
	if level > l.level {
		return nil
	}

	buf := l.backend.getLineBuffer()
	ts := time.Now().UTC()
	fmt.Fprintf(buf, "%s %d.%d", level.tag(), l.pid, netio.Tid())
	if l.loggerID != "" {
		fmt.Fprintf(buf, ".%s", l.loggerID)
	}
	fmt.Fprintf(buf, " on %s in %s at %s:%d: %s\n",
		ts.Format("2006/01/02 15:04:05.000000"), function, file, line, msg)

	return l.backend.enqueue(l.target, buf, false)
}

func caller(skip int) (function, file string, line int) {
	pc, file, line, ok := runtime.Caller(skip)
	function = "?"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			function = fn.Name()
		}
	}
	return function, file, line
}

// Always emits at LevelAlways, the level no configured threshold
// suppresses.
func (l *Logger) Always(msg string) {
	function, file, line := caller(2)
	l.Emit(LevelAlways, function, file, line, msg)
}

// Fatal emits at LevelFatal. It does not itself terminate the
// process; pair with a defer or an explicit os.Exit at the call site,
// matching spec's separation of logging from process control.
func (l *Logger) Fatal(msg string) {
	function, file, line := caller(2)
	l.Emit(LevelFatal, function, file, line, msg)
}

func (l *Logger) Error(msg string) {
	function, file, line := caller(2)
	l.Emit(LevelError, function, file, line, msg)
}

func (l *Logger) Warn(msg string) {
	function, file, line := caller(2)
	l.Emit(LevelWarn, function, file, line, msg)
}

func (l *Logger) Info(msg string) {
	function, file, line := caller(2)
	l.Emit(LevelInfo, function, file, line, msg)
}

// Debug emits at LevelDebug0.
func (l *Logger) Debug(msg string) {
	function, file, line := caller(2)
	l.Emit(LevelDebug0, function, file, line, msg)
}

// Debugn emits at LevelDebug0+n, n in [0,9].
func (l *Logger) Debugn(n int, msg string) {
	function, file, line := caller(2)
	l.Emit(LevelDebug0+Level(n), function, file, line, msg)
}

func (l *Logger) emitf(level Level, format string, args ...any) {
	function, file, line := caller(3)
	l.Emit(level, function, file, line, fmt.Sprintf(format, args...))
}

func (l *Logger) Alwaysf(format string, args ...any) { l.emitf(LevelAlways, format, args...) }
func (l *Logger) Fatalf(format string, args ...any)  { l.emitf(LevelFatal, format, args...) }
func (l *Logger) Errorf(format string, args ...any)  { l.emitf(LevelError, format, args...) }
func (l *Logger) Warnf(format string, args ...any)   { l.emitf(LevelWarn, format, args...) }
func (l *Logger) Infof(format string, args ...any)   { l.emitf(LevelInfo, format, args...) }
func (l *Logger) Debugf(format string, args ...any)  { l.emitf(LevelDebug0, format, args...) }
