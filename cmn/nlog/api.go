// Package nlog is this module's logger.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package nlog

import "flag"

// InitFlags registers the standard logtostderr/alsologtostderr flags so
// `cmd/hostrtd` (and any other binary in this module) gets consistent
// logging controls for free.
func InitFlags(flset *flag.FlagSet) {
	flset.BoolVar(&toStderr, "logtostderr", true, "log to standard error instead of buffering")
	flset.BoolVar(&alsoToStderr, "alsologtostderr", false, "log to standard error as well as buffering")
}
