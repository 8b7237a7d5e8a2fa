// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package netio

// Tid falls back to the process id on platforms without a cheap
// thread-id syscall exposed through golang.org/x/sys/unix; the log
// line header degrades to pid.pid rather than failing to build.
func Tid() int { return Pid() }
