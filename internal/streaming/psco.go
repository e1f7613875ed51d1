package streaming

import (
	"strings"

	"github.com/google/uuid"
)

// Persistable is implemented by a PSCO value: GetID reports whether the
// object already has a stable id, MakePersistent assigns one.
type Persistable interface {
	GetID() (id string, ok bool)
	MakePersistent(id string) error
}

// StorageRehydrator looks up a persistent object by id — the storage API
// Poll rehydrates through. Grounded on the same has_id/get_id contract
// param.PersistentProbe uses for value inference.
type StorageRehydrator interface {
	GetByID(id string) (interface{}, error)
}

// PSCOStream carries persistent-stored-object ids between tasks: publish
// persists the object (assigning a random id if it was not already
// persistent) then registers the id server-side; poll retrieves
// registered ids and rehydrates each through storage (spec.md §4.7).
type PSCOStream struct {
	client     *Client
	streamID   string
	rehydrator StorageRehydrator
}

// NewPSCOStream registers a PSCO stream.
func NewPSCOStream(client *Client, alias string, rehydrator StorageRehydrator) (*PSCOStream, error) {
	req := newRequest(RequestRegisterStream, alias, "")
	if err := client.Submit(req); err != nil {
		return nil, err
	}
	if req.ErrorCode != 0 {
		return nil, &RegistrationException{StreamID: alias, Message: req.Message}
	}
	return &PSCOStream{client: client, streamID: alias, rehydrator: rehydrator}, nil
}

// Publish assigns the object a random id if it is not already persistent,
// then registers that id with the streaming server.
func (p *PSCOStream) Publish(value Persistable) error {
	id, ok := value.GetID()
	if !ok || id == "" {
		id = uuid.NewString()
		if err := value.MakePersistent(id); err != nil {
			return err
		}
	}
	req := newRequest(RequestPublish, p.streamID, id)
	if err := p.client.Submit(req); err != nil {
		return err
	}
	if req.ErrorCode != 0 {
		return &BackendException{StreamID: p.streamID, Op: "publish", Message: req.Message}
	}
	return nil
}

// Poll retrieves the ids the server has registered since the last poll
// and rehydrates each through storage.
func (p *PSCOStream) Poll() ([]interface{}, error) {
	req := newRequest(RequestPoll, p.streamID, "")
	if err := p.client.Submit(req); err != nil {
		return nil, err
	}
	if req.ErrorCode != 0 {
		return nil, &BackendException{StreamID: p.streamID, Op: "poll", Message: req.Message}
	}
	if req.Response == "" || req.Response == "null" {
		return nil, nil
	}
	ids := strings.Split(req.Response, "\n")
	objs := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		obj, err := p.rehydrator.GetByID(id)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// Close releases the stream, best-effort.
func (p *PSCOStream) Close() *Request {
	req := newRequest(RequestClose, p.streamID, "")
	_ = p.client.Submit(req)
	return req
}
