package device

import "time"

// nanoNow returns the current wall-clock time as WASI-style nanoseconds
// since the Unix epoch, used wherever an *_now fstflag substitutes for an
// explicit timestamp.
func nanoNow() uint64 { return uint64(time.Now().UnixNano()) }

func unixNano(ns uint64) time.Time { return time.Unix(0, int64(ns)) }
