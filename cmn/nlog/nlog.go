// Package nlog is this module's logger: buffered, timestamped, leveled, with
// explicit Flush control — used in place of the standard `log` package by
// every other package here.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package nlog

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/wasi-embed/hostrt/cmn/mono"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevTag = [...]byte{sevInfo: 'I', sevWarn: 'W', sevErr: 'E'}

const maxLineSize = 16 * 1024

var (
	toStderr     = true
	alsoToStderr = false

	mu  sync.Mutex
	buf bytes.Buffer
	out = os.Stderr

	lastFlush int64
)

// SetOutput redirects the logger's sink; primarily for tests. Passing nil
// restores stderr.
func SetOutput(w *os.File) {
	mu.Lock()
	if w == nil {
		w = os.Stderr
	}
	out = w
	mu.Unlock()
}

func header(sev severity, depth int) string {
	_, file, line, ok := runtime.Caller(depth + 2)
	if !ok {
		file, line = "???", 0
	} else {
		for i := len(file) - 1; i >= 0; i-- {
			if file[i] == '/' {
				file = file[i+1:]
				break
			}
		}
	}
	now := time.Now()
	return fmt.Sprintf("%c%02d%02d %02d:%02d:%02d.%06d %s:%d] ",
		sevTag[sev], now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond()/1e3,
		file, line)
}

func log(sev severity, depth int, format string, args ...any) {
	var msg string
	if format == "" {
		msg = fmt.Sprintln(args...)
	} else {
		msg = fmt.Sprintf(format, args...)
		if len(msg) == 0 || msg[len(msg)-1] != '\n' {
			msg += "\n"
		}
	}
	line := header(sev, depth) + msg
	if len(line) > maxLineSize {
		line = line[:maxLineSize]
	}

	if toStderr {
		os.Stderr.WriteString(line)
		return
	}

	mu.Lock()
	buf.WriteString(line)
	lastFlush = mono.NanoTime()
	full := buf.Len() >= 4*cosKiB
	mu.Unlock()

	if alsoToStderr || sev == sevErr {
		os.Stderr.WriteString(line)
	}
	if full {
		Flush()
	}
}

const cosKiB = 1024

func InfoDepth(depth int, args ...any)    { log(sevInfo, depth, "", args...) }
func Infoln(args ...any)                  { log(sevInfo, 0, "", args...) }
func Infof(format string, args ...any)    { log(sevInfo, 0, format, args...) }
func Warningln(args ...any)               { log(sevWarn, 0, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, 0, format, args...) }
func ErrorDepth(depth int, args ...any)   { log(sevErr, depth, "", args...) }
func Errorln(args ...any)                 { log(sevErr, 0, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, 0, format, args...) }

// Flush writes buffered lines to the configured sink. Safe to call
// concurrently; a no-op when nothing is buffered.
func Flush(exit ...bool) {
	mu.Lock()
	if buf.Len() == 0 {
		mu.Unlock()
		return
	}
	b := buf.Bytes()
	cp := make([]byte, len(b))
	copy(cp, b)
	buf.Reset()
	mu.Unlock()

	out.Write(cp)
	if len(exit) > 0 && exit[0] {
		out.Sync()
	}
}

// Since returns the time elapsed since the last buffered write, for callers
// that periodically decide whether a flush is overdue.
func Since() time.Duration {
	mu.Lock()
	last := lastFlush
	mu.Unlock()
	return time.Duration(mono.Since(last))
}
