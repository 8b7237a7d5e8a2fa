// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logio

import "fmt"

// defaultLogger is the package-wide logger used by the free-standing
// convenience functions below. It starts pointed at stderr; call
// SetDefault during process startup to redirect it at a real log
// file.
var defaultLogger = NewLogger(NewBackend(), stderrPath, LevelInfo, "")

// SetDefault replaces the package-wide default logger.
func SetDefault(l *Logger) { defaultLogger = l }

// The free functions below resolve the call site themselves (rather
// than delegating to the Logger methods of the same name) so that
// function/file/line in the emitted line name the actual caller, not
// this forwarding wrapper.

func Always(msg string) { emitDefault(LevelAlways, msg) }
func Fatal(msg string)  { emitDefault(LevelFatal, msg) }
func Error(msg string)  { emitDefault(LevelError, msg) }
func Warn(msg string)   { emitDefault(LevelWarn, msg) }
func Info(msg string)   { emitDefault(LevelInfo, msg) }
func Debug(msg string)  { emitDefault(LevelDebug0, msg) }

func emitDefault(level Level, msg string) {
	function, file, line := caller(3)
	defaultLogger.Emit(level, function, file, line, msg)
}

func Alwaysf(format string, args ...any) { emitDefaultf(LevelAlways, format, args...) }
func Fatalf(format string, args ...any)  { emitDefaultf(LevelFatal, format, args...) }
func Errorf(format string, args ...any)  { emitDefaultf(LevelError, format, args...) }
func Warnf(format string, args ...any)   { emitDefaultf(LevelWarn, format, args...) }
func Infof(format string, args ...any)   { emitDefaultf(LevelInfo, format, args...) }
func Debugf(format string, args ...any)  { emitDefaultf(LevelDebug0, format, args...) }

func emitDefaultf(level Level, format string, args ...any) {
	function, file, line := caller(3)
	defaultLogger.Emit(level, function, file, line, fmt.Sprintf(format, args...))
}
