//go:build debug

// Package debug provides build-tag gated assertions: active with
// `-tags=debug`, compiled out (zero cost) otherwise.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package debug

import "fmt"

func ON() bool { return true }

func Assert(cond bool, args ...any) {
	if !cond {
		panic(fmt.Sprintln(append([]any{"assertion failed:"}, args...)...))
	}
}

func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic(fmt.Sprintf("assertion failed: unexpected error: %v", err))
	}
}

func AssertFunc(f func() bool, args ...any) { Assert(f(), args...) }

func Func(f func()) { f() }
