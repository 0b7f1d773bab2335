package rpc

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/pierrec/lz4/v3"
)

// compressThreshold is the default size above which result/param payloads
// get compressed. Off below this, since the framing and syscall overhead of
// compressing a handful of bytes isn't worth it.
const compressThreshold = 4 * 1024

// resultCompressedFlag is carried in the unused high bit of the header's
// result-kind word: ResultKind itself only ever needs the low 3 bits
// (0..7), so the top bit is free to use as a capability flag without
// widening the 32-byte header. Off by default: only a Server with
// EnableCompression(true) sets it, for payloads above compressThreshold.
const resultCompressedFlag uint32 = 1 << 31

func withResultCompressed(kind ResultKind, compressed bool) uint32 {
	v := uint32(kind)
	if compressed {
		v |= resultCompressedFlag
	}
	return v
}

func decodeResultKind(raw uint32) (kind ResultKind, compressed bool) {
	return ResultKind(raw &^ resultCompressedFlag), raw&resultCompressedFlag != 0
}

// binCompressedFlag mirrors resultCompressedFlag on the header's
// binary-param-length word: an inline binary param's length never
// approaches 2^31, leaving the top bit free as a compression flag.
const binCompressedFlag uint32 = 1 << 31

func encodeBinLength(n uint32, compressed bool) uint32 {
	if compressed {
		return n | binCompressedFlag
	}
	return n
}

func decodeBinLength(raw uint32) (n uint32, compressed bool) {
	return raw &^ binCompressedFlag, raw&binCompressedFlag != 0
}

// compressLZ4 is used for the server's stored $/fetchResult bodies: fast
// compression suited to a bounded per-request hot path.
func compressLZ4(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(p); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(p []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(p))
	return io.ReadAll(r)
}

// compressGzip/decompressGzip handle inline binary params above threshold,
// compressed client-side before being written into the shared buffer.
func compressGzip(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(p); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressGzip(p []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
