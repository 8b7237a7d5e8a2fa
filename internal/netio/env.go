// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package netio holds process-identity and environment-loading
// helpers shared by the demo server: the documented subset of a
// hand-rolled .env reader, an alternate loader backed by godotenv,
// and pid/tid accessors used by pkg/logio's line header.
package netio

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv is a small, documented .env reader: comments must start a
// line, quoted values support \n \r \t \" escapes, and every
// key=value pair found is applied directly to the process
// environment via os.Setenv.
func LoadEnv(file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	s := bufio.NewScanner(bufio.NewReader(f))
	for s.Scan() {
		line := s.Text()
		if strings.HasPrefix(line, "#") || len(line) == 0 {
			continue
		}
		if strings.Contains(line, "#") {
			return errors.New("ctxkit/netio: '#' is only supported at the start of a line")
		}

		line = strings.TrimPrefix(line, "export ")
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("ctxkit/netio: unsupported line: %#v", line)
		}

		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if strings.HasPrefix(val, "\"") {
			if !strings.HasSuffix(val, "\"") {
				return fmt.Errorf("ctxkit/netio: unsupported line: %#v", line)
			}
			unescaped, err := unescapeQuoted(val[1 : len(val)-1])
			if err != nil {
				return err
			}
			val = unescaped
		}

		os.Setenv(key, val)
	}
	return s.Err()
}

func unescapeQuoted(s string) (string, error) {
	runes := []rune(s)
	var sb strings.Builder
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' {
			sb.WriteRune(runes[i])
			continue
		}
		i++
		if i >= len(runes) {
			return "", fmt.Errorf("ctxkit/netio: trailing backslash in quoted string")
		}
		switch runes[i] {
		case 'n':
			sb.WriteRune('\n')
		case 'r':
			sb.WriteRune('\r')
		case 't':
			sb.WriteRune('\t')
		case '"':
			sb.WriteRune('"')
		default:
			return "", fmt.Errorf("ctxkit/netio: unsupported escape sequence: backslash %#v", runes[i])
		}
	}
	return sb.String(), nil
}

// LoadDotenv loads file using godotenv's parser instead of the
// hand-rolled reader above. The demo server's primary entrypoint uses
// this path; LoadEnv remains available for the documented escape-
// sequence subset callers may depend on directly.
func LoadDotenv(file string) error {
	return godotenv.Load(file)
}
