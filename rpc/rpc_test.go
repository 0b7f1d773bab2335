package rpc

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/wasi-embed/hostrt/memsys"
)

var errBoom = errors.New("boom")

// syncTransport wires a Client directly to a Server on the caller's own
// goroutine: Dispatch runs to completion before Post returns, which is
// enough to exercise the wire protocol without a real event loop.
func syncTransport(t *testing.T, region *memsys.Region, srv *Server) *Client {
	t.Helper()
	return NewClient(region, func(r *memsys.Region, rng memsys.MemoryRange) {
		srv.Dispatch(r, rng)
	})
}

func TestFixedU8Result(t *testing.T) {
	region := memsys.NewRegion(64 * 1024)
	srv := NewServer()
	srv.Register("echo.byte", func(req *Request) (any, error) {
		v, _ := req.Params["value"].(float64)
		return []byte{byte(v) + 1}, nil
	})
	c := syncTransport(t, region, srv)

	res, err := c.SendRequest("echo.byte", map[string]any{"value": float64(41)}, nil, KindU8, 1)
	if err != nil {
		t.Fatalf("SendRequest error: %v", err)
	}
	if res.Errno != ErrnoOK {
		t.Fatalf("errno = %d, want 0", res.Errno)
	}
	if len(res.Bytes) != 1 || res.Bytes[0] != 42 {
		t.Fatalf("result bytes = %v, want [42]", res.Bytes)
	}
}

func TestFixedU32Result(t *testing.T) {
	region := memsys.NewRegion(64 * 1024)
	srv := NewServer()
	srv.Register("sum", func(req *Request) (any, error) {
		a, _ := req.Params["a"].(float64)
		b, _ := req.Params["b"].(float64)
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(a)+uint32(b))
		return out, nil
	})
	c := syncTransport(t, region, srv)

	res, err := c.SendRequest("sum", map[string]any{"a": float64(17), "b": float64(25)}, nil, KindU32, 1)
	if err != nil {
		t.Fatalf("SendRequest error: %v", err)
	}
	if got := binary.LittleEndian.Uint32(res.Bytes); got != 42 {
		t.Fatalf("sum = %d, want 42", got)
	}
}

func TestVariableJSONResult(t *testing.T) {
	region := memsys.NewRegion(64 * 1024)
	srv := NewServer()
	srv.Register("list.dir", func(req *Request) (any, error) {
		return []string{"a.txt", "b.txt", "sub/"}, nil
	})
	c := syncTransport(t, region, srv)

	res, err := c.SendRequest("list.dir", nil, nil, KindVariable, 0)
	if err != nil {
		t.Fatalf("SendRequest error: %v", err)
	}
	if res.Errno != ErrnoOK {
		t.Fatalf("errno = %d, want 0", res.Errno)
	}
	list, ok := res.Value.([]any)
	if !ok || len(list) != 3 {
		t.Fatalf("value = %#v, want a 3-element list", res.Value)
	}
	if list[0] != "a.txt" {
		t.Fatalf("list[0] = %v, want a.txt", list[0])
	}
}

func TestNoHandlerErrno(t *testing.T) {
	region := memsys.NewRegion(64 * 1024)
	srv := NewServer()
	c := syncTransport(t, region, srv)

	res, err := c.SendRequest("does.not.exist", nil, nil, KindNone, 0)
	if err != nil {
		t.Fatalf("SendRequest error: %v", err)
	}
	if res.Errno != ErrnoNoHandler {
		t.Fatalf("errno = %d, want %d", res.Errno, ErrnoNoHandler)
	}
}

func TestHandlerErrorErrno(t *testing.T) {
	region := memsys.NewRegion(64 * 1024)
	srv := NewServer()
	srv.Register("boom", func(req *Request) (any, error) {
		return nil, errBoom
	})
	c := syncTransport(t, region, srv)

	res, _ := c.SendRequest("boom", nil, nil, KindNone, 0)
	if res.Errno != ErrnoHandlerThrew {
		t.Fatalf("errno = %d, want %d", res.Errno, ErrnoHandlerThrew)
	}
}

func TestInlineBinaryParam(t *testing.T) {
	region := memsys.NewRegion(64 * 1024)
	srv := NewServer()
	srv.Register("write", func(req *Request) (any, error) {
		return []byte{byte(len(req.Binary))}, nil
	})
	c := syncTransport(t, region, srv)

	payload := []byte("hello world")
	res, err := c.SendRequest("write", nil, payload, KindU8, 1)
	if err != nil {
		t.Fatalf("SendRequest error: %v", err)
	}
	if res.Bytes[0] != byte(len(payload)) {
		t.Fatalf("handler saw %d binary bytes, want %d", res.Bytes[0], len(payload))
	}
}

// TestServerSingleEventLoopOrdering drives N concurrent callers through one
// dispatcher goroutine that drains a queue and processes one request at a
// time. Every request must get a distinct, never-reused sequence number,
// confirming the server serializes dispatch rather than racing on its
// per-method state.
func TestServerSingleEventLoopOrdering(t *testing.T) {
	region := memsys.NewRegion(256 * 1024)
	srv := NewServer()

	var (
		mu   sync.Mutex
		seen []int
		next int
	)
	srv.Register("seq", func(req *Request) (any, error) {
		mu.Lock()
		want := next
		next++
		seen = append(seen, want)
		mu.Unlock()
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(want))
		return out, nil
	})

	queue := make(chan memsys.MemoryRange, 64)
	var wgServer sync.WaitGroup
	wgServer.Add(1)
	go func() {
		defer wgServer.Done()
		for rng := range queue {
			srv.Dispatch(region, rng)
		}
	}()

	c := NewClient(region, func(_ *memsys.Region, rng memsys.MemoryRange) {
		queue <- rng
	})

	const n = 50
	results := make([]uint32, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			res, _ := c.SendRequest("seq", nil, nil, KindU32, 1)
			results[i] = binary.LittleEndian.Uint32(res.Bytes)
		}()
	}
	wg.Wait()
	close(queue)
	wgServer.Wait()

	assigned := make(map[uint32]bool, n)
	for _, v := range results {
		if assigned[v] {
			t.Fatalf("sequence number %d assigned twice", v)
		}
		assigned[v] = true
	}
	if len(seen) != n {
		t.Fatalf("server processed %d requests, want %d", len(seen), n)
	}
}
