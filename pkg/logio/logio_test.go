// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logio

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
)

var lineGrammar = regexp.MustCompile(
	`^\([*!EWDI][*!EWDI\d]\) \d+\.\d+(\.[0-9a-f-]+)? on \d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}\.\d{6} in \S+ at .+:\d+: .*\n$`)

func TestEmitMatchesLineGrammarAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	b := NewBackend()
	l := NewLogger(b, path, LevelDebug9, "")

	l.Info("hello world")
	l.Debugn(3, "fine-grained detail")
	b.Shutdown()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	lines := splitLines(string(data))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), lines)
	}
	for _, line := range lines {
		if !lineGrammar.MatchString(line + "\n") {
			t.Fatalf("line %q does not match grammar", line)
		}
	}
}

func TestLevelGatingSuppressesVerboseMessages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	b := NewBackend()
	l := NewLogger(b, path, LevelWarn, "")

	l.Info("suppressed")
	l.Debug("suppressed")
	l.Warn("kept")
	l.Error("kept")
	b.Shutdown()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	lines := splitLines(string(data))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), lines)
	}
}

func TestConcurrentProducersEachLineWellFormed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	b := NewBackend()
	l := NewLogger(b, path, LevelInfo, "")

	const producers, perProducer = 8, 20
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				l.Info("concurrent message")
			}
		}()
	}
	wg.Wait()
	b.Shutdown()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	lines := splitLines(string(data))
	want := producers * perProducer
	if len(lines) != want {
		t.Fatalf("got %d lines, want %d", len(lines), want)
	}
	for _, line := range lines {
		if !lineGrammar.MatchString(line + "\n") {
			t.Fatalf("line %q does not match grammar", line)
		}
	}
}

func TestEmitAfterShutdownReturnsErrClosed(t *testing.T) {
	b := NewBackend()
	l := NewLogger(b, "/dev/stderr", LevelInfo, "")
	b.Shutdown()
	if err := l.Emit(LevelInfo, "fn", "file.go", 1, "too late"); err != ErrClosed {
		t.Fatalf("Emit() after Shutdown error = %v, want ErrClosed", err)
	}
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
