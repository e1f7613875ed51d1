package streaming

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const objectTopicPrefix = "regular-messages-"

// ObjectStream carries serialized in-memory objects between tasks. On
// first Publish it bootstraps the server for connection info and opens a
// publisher bound to topic "regular-messages-<stream-id>"; on first Poll
// it opens a consumer on the same topic. Both are created lazily and
// exactly once (spec.md §4.7).
type ObjectStream struct {
	client     *Client
	streamID   string
	topic      string
	pollWindow time.Duration

	initPub  sync.Once
	initSub  sync.Once
	redis    *redis.Client
	pub      *redis.Client
	sub      *redis.PubSub
	initErr  error
}

// NewObjectStream registers an object stream. redisAddr is the address
// the bootstrap-server response would have returned in a full
// implementation; it is supplied directly here since the wire format of
// BootstrapServer's payload is opaque to this package.
func NewObjectStream(client *Client, alias, redisAddr string, pollWindow time.Duration) (*ObjectStream, error) {
	req := newRequest(RequestRegisterStream, alias, "")
	if err := client.Submit(req); err != nil {
		return nil, err
	}
	if req.ErrorCode != 0 {
		return nil, &RegistrationException{StreamID: alias, Message: req.Message}
	}
	if pollWindow <= 0 {
		pollWindow = 200 * time.Millisecond
	}
	return &ObjectStream{
		client:     client,
		streamID:   alias,
		topic:      objectTopicPrefix + alias,
		pollWindow: pollWindow,
		redis:      redis.NewClient(&redis.Options{Addr: redisAddr}),
	}, nil
}

func (o *ObjectStream) ensurePublisher() error {
	o.initPub.Do(func() {
		boot := newRequest(RequestBootstrapServer, o.streamID, "")
		if err := o.client.Submit(boot); err != nil {
			o.initErr = err
			return
		}
		if boot.ErrorCode != 0 {
			o.initErr = &BackendException{StreamID: o.streamID, Op: "bootstrap", Message: boot.Message}
			return
		}
		o.pub = o.redis
	})
	return o.initErr
}

func (o *ObjectStream) ensureConsumer() error {
	o.initSub.Do(func() {
		o.sub = o.redis.Subscribe(context.Background(), o.topic)
	})
	return nil
}

// Publish serializes and sends value over the object stream's topic.
func (o *ObjectStream) Publish(ctx context.Context, value string) error {
	if err := o.ensurePublisher(); err != nil {
		return err
	}
	req := newRequest(RequestPublish, o.streamID, value)
	if err := o.client.Submit(req); err != nil {
		return err
	}
	if req.ErrorCode != 0 {
		return &BackendException{StreamID: o.streamID, Op: "publish", Message: req.Message}
	}
	return o.pub.Publish(ctx, o.topic, value).Err()
}

// Poll waits up to the stream's poll window for a message and returns it,
// or ("", false) on timeout with no error.
func (o *ObjectStream) Poll(ctx context.Context) (string, bool, error) {
	if err := o.ensureConsumer(); err != nil {
		return "", false, err
	}
	ctx, cancel := context.WithTimeout(ctx, o.pollWindow)
	defer cancel()

	select {
	case msg, ok := <-o.sub.Channel():
		if !ok {
			return "", false, nil
		}
		return msg.Payload, true, nil
	case <-ctx.Done():
		return "", false, nil
	}
}

// Close releases the subscriber and registration, best-effort.
func (o *ObjectStream) Close() error {
	if o.sub != nil {
		_ = o.sub.Close()
	}
	req := newRequest(RequestClose, o.streamID, "")
	_ = o.client.Submit(req)
	return o.redis.Close()
}
