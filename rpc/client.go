package rpc

import (
	"sync/atomic"
	"time"

	"github.com/wasi-embed/hostrt/cmn/cos"
	"github.com/wasi-embed/hostrt/memsys"
)

// Client is the blocking side of the transport: a guest thread calling
// SendRequest parks on the buffer's sync-word until the server (running on
// its own goroutine, reached via Post) resolves it. Calls made from one
// goroutine are therefore strictly in order; calls from concurrent
// goroutines sharing a Client reach the server in the order they are posted.
type Client struct {
	region *memsys.Region
	nextID uint64
	post   func(region *memsys.Region, rng memsys.MemoryRange)

	compress bool
	metrics  Metrics
}

// NewClient builds a client posting requests into region via post (normally
// Server.Dispatch run on its own goroutine, or wrapped to hop across a real
// channel/queue).
func NewClient(region *memsys.Region, post func(*memsys.Region, memsys.MemoryRange)) *Client {
	return &Client{region: region, post: post, metrics: noopMetrics{}}
}

// EnableCompression turns on gzip compression of inline binary params above
// compressThreshold (SPEC_FULL §4.4.a). Off by default.
func (c *Client) EnableCompression(v bool) { c.compress = v }

// SetMetrics installs a Metrics sink (normally a *stats.Registry). Passing
// nil restores the no-op default.
func (c *Client) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	c.metrics = m
}

// Result is what SendRequest hands back to the caller.
type Result struct {
	Errno int32
	// Bytes holds the raw little-endian element bytes for a fixed ResultKind.
	Bytes []byte
	// Value holds the JSON-decoded payload for KindVariable.
	Value any
}

// SendRequest implements the full client-side protocol described in the
// transport's spec: layout, post, block, and (for KindVariable) the second
// $/fetchResult round trip once the byte length is known.
func (c *Client) SendRequest(method string, params map[string]any, binary []byte, kind ResultKind, resultElems uint32) (res Result, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveRequest(method, time.Since(start), res.Errno) }()

	id := atomic.AddUint64(&c.nextID, 1)

	resultBytes := uint32(resultElems) * uint32(kind.elemSize())
	if err := validateResultByteLen(kind, resultBytes); err != nil {
		return Result{}, err
	}

	var compressedBinary bool
	if c.compress && len(binary) > compressThreshold {
		if cb, err := compressGzip(binary); err == nil {
			binary, compressedBinary = cb, true
		}
	}

	msgBytes, err := json.Marshal(Message{ID: id, Method: method, Params: params})
	if err != nil {
		return Result{}, err
	}

	rng := c.layout(msgBytes, binary, kind, resultBytes)
	defer c.region.Free(rng)
	h := newHeader(rng.Bytes())
	h.setBinLength(encodeBinLength(uint32(len(binary)), compressedBinary))

	sig := memsys.NewSignalAt(c.region, rng.Offset()+offSyncWord)
	c.post(c.region, rng)
	sig.Wait(0)

	errno := h.errno()
	res = Result{Errno: errno}
	if errno != ErrnoOK {
		return res, nil
	}

	switch kind {
	case KindNone:
		return res, nil
	case KindVariable:
		return c.fetchVariableResult(id, h)
	default:
		resStart := offBody + h.resultOffset()
		res.Bytes = append([]byte(nil), rng.Bytes()[resStart:resStart+resultBytes]...)
		return res, nil
	}
}

func (c *Client) fetchVariableResult(id uint64, h header) (Result, error) {
	_, compressed := decodeResultKind(h.resultKindRaw())
	byteLen := h.resultByteLen()

	params := map[string]any{"id": float64(id)}
	rng := c.layout(mustMarshal(Message{Method: fetchResultMethod, Params: params}), nil, KindU8, byteLen)
	defer c.region.Free(rng)
	h2 := newHeader(rng.Bytes())

	sig := memsys.NewSignalAt(c.region, rng.Offset()+offSyncWord)
	c.post(c.region, rng)
	sig.Wait(0)

	if errno := h2.errno(); errno != ErrnoOK {
		return Result{Errno: errno}, nil
	}

	resStart := offBody + h2.resultOffset()
	payload := rng.Bytes()[resStart : resStart+byteLen]
	if compressed {
		decompressed, err := decompressLZ4(payload)
		if err != nil {
			return Result{Errno: ErrnoVariableParseError}, nil
		}
		payload = decompressed
	}

	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return Result{Errno: ErrnoVariableParseError}, nil
	}
	return Result{Errno: ErrnoOK, Value: value}, nil
}

func mustMarshal(m Message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		panic(&cos.ErrMemory{Op: "rpc-marshal", Detail: err.Error()})
	}
	return b
}

// layout allocates and lays out one request buffer:
//
//	| sync-word | header | message | binary | padding | result |
//
// with the result area 4-byte aligned, per the transport's wire contract.
func (c *Client) layout(msg, binary []byte, kind ResultKind, resultBytes uint32) memsys.MemoryRange {
	msgLen := uint32(len(msg))
	binLen := uint32(len(binary))

	binOff := msgLen
	resOffUnaligned := binOff + binLen
	resOff := alignUp4(resOffUnaligned)
	total := offBody + resOff + resultBytes

	rng := c.region.Alloc(4, total)
	buf := rng.Bytes()
	h := newHeader(buf)

	h.setMsgOffset(0)
	h.setMsgLength(msgLen)
	h.setBinOffset(binOff)
	h.setBinLength(binLen)
	h.setErrno(0)
	h.setResultKind(kind)
	h.setResultOffset(resOff)
	h.setResultByteLen(resultBytes)

	copy(buf[offBody:offBody+msgLen], msg)
	if binLen > 0 {
		copy(buf[offBody+binOff:offBody+binOff+binLen], binary)
	}
	return rng
}

func alignUp4(v uint32) uint32 { return (v + 3) &^ 3 }
