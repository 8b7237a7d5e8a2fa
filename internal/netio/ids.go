// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netio

import "os"

// Pid returns the process id, read once and embedded in every log
// line's header.
func Pid() int { return os.Getpid() }
