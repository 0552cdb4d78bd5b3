// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package logging

import (
	"fmt"
	"strings"
)

// maxSanitizedLength bounds client-supplied values written to logs.
const maxSanitizedLength = 256

// SanitizeValue escapes control characters in client-supplied strings so
// they cannot forge log lines, and truncates long values.
func SanitizeValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if n >= maxSanitizedLength {
			b.WriteString("...")
			break
		}
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
		n++
	}
	return b.String()
}

// Tail returns at most the last n bytes of s, prefixed with "..." when
// truncated. Process stderr is logged through it.
func Tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
