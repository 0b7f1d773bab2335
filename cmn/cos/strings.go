// Package cos provides common low-level types and utilities shared by every
// package in this module.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package cos

import "unsafe"

// UnsafeB reinterprets s as a byte slice without copying. Callers must not
// mutate the result, nor retain it past the lifetime of s.
func UnsafeB(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// UnsafeS reinterprets b as a string without copying. Callers must not
// mutate b afterwards.
func UnsafeS(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// IsAlphaNice reports whether s looks like a nice identifier: starts/ends
// with a letter or digit, interior dashes/underscores allowed.
func IsAlphaNice(s string) bool {
	l := len(s)
	if l == 0 {
		return false
	}
	for i := 0; i < l; i++ {
		c := s[i]
		if isAlpha(c) || (c >= '0' && c <= '9') {
			continue
		}
		if c != '-' && c != '_' {
			return false
		}
		if i == 0 || i == l-1 {
			return false
		}
	}
	return true
}

// JoinWords joins path-like words with '/' separators, skipping empties.
func JoinWords(words ...string) string {
	out := make([]byte, 0, 64)
	for _, w := range words {
		if w == "" {
			continue
		}
		if len(out) > 0 {
			out = append(out, '/')
		}
		out = append(out, w...)
	}
	return string(out)
}
