package streaming

import "strings"

// FileStream watches a base directory the streaming server manages
// server-side; Publish is a no-op because the server itself notices new
// files, and Poll returns the newline-split filenames the server reports
// (spec.md §4.7).
type FileStream struct {
	client   *Client
	streamID string
	alias    string
}

// NewFileStream registers a file stream under alias. Non-zero error codes
// on registration raise RegistrationException.
func NewFileStream(client *Client, alias string) (*FileStream, error) {
	req := newRequest(RequestRegisterStream, alias, "")
	if err := client.Submit(req); err != nil {
		return nil, err
	}
	if req.ErrorCode != 0 {
		return nil, &RegistrationException{StreamID: alias, Message: req.Message}
	}
	return &FileStream{client: client, streamID: alias, alias: alias}, nil
}

// Publish is a no-op: the streaming server watches the base directory
// itself, so the worker has nothing to push.
func (f *FileStream) Publish(string) error { return nil }

// Poll returns the filenames the server has observed since the last
// poll. An empty/null response is reported as no filenames, not an
// error.
func (f *FileStream) Poll() ([]string, error) {
	req := newRequest(RequestPoll, f.streamID, "")
	if err := f.client.Submit(req); err != nil {
		return nil, err
	}
	if req.ErrorCode != 0 {
		return nil, &BackendException{StreamID: f.streamID, Op: "poll", Message: req.Message}
	}
	if req.Response == "" || req.Response == "null" {
		return nil, nil
	}
	return strings.Split(req.Response, "\n"), nil
}

// Close releases the stream. Non-zero error codes are logged by the
// caller, not raised (best-effort teardown per spec.md §7.8).
func (f *FileStream) Close() *Request {
	req := newRequest(RequestClose, f.streamID, "")
	_ = f.client.Submit(req)
	return req
}

// Status requests the server's view of this stream. Non-zero error codes
// are best-effort, not raised.
func (f *FileStream) Status() *Request {
	req := newRequest(RequestStatus, f.streamID, "")
	_ = f.client.Submit(req)
	return req
}
