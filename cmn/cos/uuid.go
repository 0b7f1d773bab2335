// Package cos provides common low-level types and utilities shared by every
// package in this module.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package cos

import (
	"strconv"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"
)

const (
	uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

	LenShortID = 9

	// MLCG32 is the seed of the xxhash-based Digest64.
	MLCG32 = 2654435761
)

var sid *shortid.Shortid

func InitShortID(seed uint64) { sid = shortid.MustNew(4, uuidABC, seed) }

// GenUUID mints a short, human-typeable request/session/resource id.
func GenUUID() string {
	if sid == nil {
		InitShortID(1)
	}
	return sid.MustGenerate()
}

// Digest64 returns a stable 64-bit hash of s.
func Digest64(s string) uint64 {
	return xxhash.Checksum64S(UnsafeB(s), MLCG32)
}

func DigestStr(s string) string {
	return strconv.FormatUint(Digest64(s), 36)
}
