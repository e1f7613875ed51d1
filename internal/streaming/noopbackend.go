package streaming

import "github.com/compss-go/pipeworker/internal/logging"

// NoopBackend completes every request with a non-zero error code rather
// than dialing anything. It exists so cmd/worker can wire a Client when
// streaming is enabled in config but no real wire backend (the streaming
// daemon connection, explicitly out of scope per spec.md §1) has been
// supplied — the same "thin adapter standing in for an out-of-scope
// collaborator" role the dispatcher's ProcessDispatcher plays for the
// native task registry.
type NoopBackend struct{}

func (NoopBackend) Submit(req *Request) {
	logging.Op().Warn("streaming: no backend wired, failing request", "kind", req.Kind, "stream_id", req.StreamID)
	req.complete(1, "no streaming backend configured", "")
}
