// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package netio

import "golang.org/x/sys/unix"

// Tid returns the calling OS thread's id. Go schedules goroutines
// onto OS threads, so repeated calls from the same goroutine are not
// guaranteed to return the same value unless the goroutine is locked
// to its thread; the logger treats it purely as a diagnostic label,
// per spec.
func Tid() int { return unix.Gettid() }
