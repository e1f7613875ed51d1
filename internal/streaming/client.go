// Package streaming implements the executor's client to a streaming
// daemon (spec.md §4.7, component C7): a single request/response handle
// started at worker bootstrap, through which File/Object/PSCO streams
// submit typed requests and block on a per-request completion latch.
package streaming

import (
	"errors"
	"fmt"
)

// RequestKind is the typed request every high-level stream submits
// through the Client handle.
type RequestKind int

const (
	RequestRegisterStream RequestKind = iota
	RequestClose
	RequestStatus
	RequestBootstrapServer
	RequestPoll
	RequestPublish
)

// Request is one outstanding call to the streaming daemon. Completed is
// closed by the backend once ErrorCode/Message/Payload are populated —
// the "per-request completion latch" spec.md describes.
type Request struct {
	Kind      RequestKind
	StreamID  string
	Payload   string
	ErrorCode int
	Message   string
	Response  string
	completed chan struct{}
}

func newRequest(kind RequestKind, streamID, payload string) *Request {
	return &Request{Kind: kind, StreamID: streamID, Payload: payload, completed: make(chan struct{})}
}

// WaitProcessed blocks until the backend has completed the request.
func (r *Request) WaitProcessed() { <-r.completed }

// GetErrorCode returns the backend's error code (0 = success).
func (r *Request) GetErrorCode() int { return r.ErrorCode }

// GetResponseMsg returns the backend's optional message.
func (r *Request) GetResponseMsg() string { return r.Message }

func (r *Request) complete(errorCode int, message, response string) {
	r.ErrorCode = errorCode
	r.Message = message
	r.Response = response
	close(r.completed)
}

// Backend is the opaque streaming daemon connection. It is satisfied by
// the real wire client (not in scope per spec.md §1: "we specify only
// the client contract the worker uses") and by a fake for tests.
type Backend interface {
	Submit(req *Request)
}

// Client is the singleton streaming-client handle started during
// executor bootstrap with (master_ip, master_port) and stopped during
// teardown via SetStop.
type Client struct {
	masterIP   string
	masterPort int
	backend    Backend
	stopped    bool
}

// ErrStopped is returned by any call made after SetStop.
var ErrStopped = errors.New("streaming: client stopped")

// NewClient starts a client bound to (masterIP, masterPort) over the
// given backend connection.
func NewClient(masterIP string, masterPort int, backend Backend) *Client {
	return &Client{masterIP: masterIP, masterPort: masterPort, backend: backend}
}

// Address returns the daemon address this client was bootstrapped with.
func (c *Client) Address() string { return fmt.Sprintf("%s:%d", c.masterIP, c.masterPort) }

// Submit dispatches req to the backend and blocks for completion. It is
// the single call-through point every stream variant (File/Object/PSCO)
// uses.
func (c *Client) Submit(req *Request) error {
	if c.stopped {
		return ErrStopped
	}
	c.backend.Submit(req)
	req.WaitProcessed()
	return nil
}

// SetStop marks the client stopped; subsequent Submit calls fail fast
// rather than blocking on a backend that is going away.
func (c *Client) SetStop() { c.stopped = true }
