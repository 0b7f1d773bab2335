package rpc

import (
	"sync"

	"github.com/wasi-embed/hostrt/cmn/debug"
	"github.com/wasi-embed/hostrt/cmn/nlog"
	"github.com/wasi-embed/hostrt/memsys"
)

// Request is a decoded call handed to a registered Handler.
type Request struct {
	ID          uint64
	Method      string
	Params      map[string]any
	Binary      []byte
	ResultKind  ResultKind
	resultBytes uint32 // capacity, in bytes, of the pre-allocated fixed result area
}

// ResultCapacity returns how many bytes a fixed-kind handler may write into
// the pre-allocated result view; 0 for None/Variable kinds.
func (r *Request) ResultCapacity() uint32 { return r.resultBytes }

// Handler services one method. For a fixed ResultKind it must return a
// []byte of exactly ResultCapacity() bytes; for KindVariable any
// JSON-marshalable value; for KindNone the returned value is ignored.
type Handler func(req *Request) (any, error)

const fetchResultMethod = "$/fetchResult"

// Server is the single-event-loop side of the transport: Dispatch is called
// once per posted buffer, in arrival order, matching the FIFO ordering
// guarantee the synchronous client relies on.
type Server struct {
	handlers map[string]Handler

	mu               sync.Mutex
	stored           map[uint64][]byte
	storedCompressed map[uint64]bool

	compress bool
}

func NewServer() *Server {
	return &Server{
		handlers:         make(map[string]Handler),
		stored:           make(map[uint64][]byte),
		storedCompressed: make(map[uint64]bool),
	}
}

// EnableCompression turns on the optional LZ4 compression of large
// $/fetchResult bodies (SPEC_FULL §4.4.a). Off by default.
func (s *Server) EnableCompression(v bool) { s.compress = v }

func (s *Server) Register(method string, h Handler) {
	debug.Assert(method != fetchResultMethod, "fetchResult is a reserved method name")
	s.handlers[method] = h
}

// Dispatch decodes and services one request buffer in place, then resolves
// the buffer's sync-word signal so the blocked client wakes up.
func (s *Server) Dispatch(region *memsys.Region, rng memsys.MemoryRange) {
	buf := rng.Bytes()
	h := newHeader(buf)
	sig := memsys.NewSignalAt(region, rng.Offset()+offSyncWord)

	h.setErrno(s.handle(buf, h))
	sig.Resolve(1)
}

func (s *Server) handle(buf []byte, h header) int32 {
	msgStart := offBody + h.msgOffset()
	msgEnd := msgStart + h.msgLength()
	if int(msgEnd) > len(buf) {
		return ErrnoMalformedRequest
	}
	var msg Message
	if err := json.Unmarshal(buf[msgStart:msgEnd], &msg); err != nil {
		nlog.Warningf("rpc: malformed request: %v", err)
		return ErrnoMalformedRequest
	}

	binLen, binCompressed := decodeBinLength(h.binLength())
	var binary []byte
	if binLen > 0 {
		binStart := offBody + h.binOffset()
		binEnd := binStart + binLen
		if int(binEnd) > len(buf) {
			return ErrnoMalformedRequest
		}
		binary = buf[binStart:binEnd]
		if binCompressed {
			decompressed, err := decompressGzip(binary)
			if err != nil {
				return ErrnoMalformedRequest
			}
			binary = decompressed
		}
	}

	if msg.Method == fetchResultMethod {
		return s.handleFetchResult(msg, buf, h)
	}

	handler, ok := s.handlers[msg.Method]
	if !ok {
		return ErrnoNoHandler
	}

	kind := h.resultKind()
	resultCap := uint32(0)
	if kind != KindVariable && kind != KindNone {
		resultCap = h.resultByteLen()
	}

	req := &Request{ID: msg.ID, Method: msg.Method, Params: msg.Params, Binary: binary, ResultKind: kind, resultBytes: resultCap}
	out, err := handler(req)
	if err != nil {
		nlog.Warningf("rpc: handler %q returned error: %v", msg.Method, err)
		return ErrnoHandlerThrew
	}

	switch kind {
	case KindNone:
		return ErrnoOK
	case KindVariable:
		return s.storeVariableResult(msg.ID, out, h)
	default:
		payload, ok := out.([]byte)
		if !ok || uint32(len(payload)) != resultCap {
			nlog.Warningf("rpc: handler %q returned %d bytes, want %d", msg.Method, len(payload), resultCap)
			return ErrnoHandlerThrew
		}
		resStart := offBody + h.resultOffset()
		copy(buf[resStart:resStart+resultCap], payload)
		return ErrnoOK
	}
}

func (s *Server) storeVariableResult(id uint64, out any, h header) int32 {
	payload, err := json.Marshal(out)
	if err != nil {
		nlog.Warningf("rpc: failed to marshal variable result for request %d: %v", id, err)
		return ErrnoVariableParseError
	}
	compressed := false
	if s.compress && len(payload) > compressThreshold {
		if c, cerr := compressLZ4(payload); cerr == nil {
			payload, compressed = c, true
		}
	}
	s.mu.Lock()
	s.stored[id] = payload
	s.storedCompressed[id] = compressed
	s.mu.Unlock()

	h.setResultKindRaw(withResultCompressed(KindVariable, compressed))
	h.setResultByteLen(uint32(len(payload)))
	return ErrnoOK
}

func (s *Server) handleFetchResult(msg Message, buf []byte, h header) int32 {
	idf, ok := msg.Params["id"]
	if !ok {
		return ErrnoMalformedRequest
	}
	id := uint64(idf.(float64))

	s.mu.Lock()
	payload, ok := s.stored[id]
	if ok {
		delete(s.stored, id)
		delete(s.storedCompressed, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrnoVariableMissing
	}

	// payload is transmitted exactly as stored by storeVariableResult —
	// compressed or not — and decompressed only by the client, which sized
	// its fetch-result buffer against the stored (possibly compressed)
	// length advertised in round one.
	resStart := offBody + h.resultOffset()
	resCap := h.resultByteLen()
	if uint32(len(payload)) != resCap {
		return ErrnoVariableMissing
	}
	copy(buf[resStart:resStart+resCap], payload)
	return ErrnoOK
}
