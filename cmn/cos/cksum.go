// Package cos provides common low-level types and utilities shared by every
// package in this module.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package cos

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Cksum is a named digest: a type tag plus the raw sum, printed as
// "type:hex" the way a cache-miss log line or a descriptor mismatch error
// wants to show it.
type Cksum struct {
	Type  string
	Value [blake2b.Size256]byte
}

const ChecksumBLAKE2b256 = "blake2b256"

// NewCksumBLAKE2b256 sums data with BLAKE2b-256, the digest extension-asset
// caches use to verify a fetched object against its AssetDescriptor.
func NewCksumBLAKE2b256(data []byte) Cksum {
	return Cksum{Type: ChecksumBLAKE2b256, Value: blake2b.Sum256(data)}
}

func (c Cksum) String() string { return fmt.Sprintf("%s:%x", c.Type, c.Value) }

func (c Cksum) Equal(o Cksum) bool { return c.Type == o.Type && c.Value == o.Value }
