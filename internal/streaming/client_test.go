package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend completes every request immediately with the same scripted
// error code, message and response, whatever its RequestKind.
type fakeBackend struct {
	errorCode int
	message   string
	response  string
}

func (f *fakeBackend) Submit(req *Request) {
	req.complete(f.errorCode, f.message, f.response)
}

func TestSubmitBlocksUntilCompleted(t *testing.T) {
	client := NewClient("127.0.0.1", 49049, &fakeBackend{response: "ok"})
	req := newRequest(RequestStatus, "s1", "")
	require.NoError(t, client.Submit(req))
	assert.Equal(t, "ok", req.Response)
}

func TestSubmitAfterStopFailsFast(t *testing.T) {
	client := NewClient("127.0.0.1", 49049, &fakeBackend{})
	client.SetStop()

	req := newRequest(RequestStatus, "s1", "")
	err := client.Submit(req)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestFileStreamRegistrationFailureRaises(t *testing.T) {
	client := NewClient("127.0.0.1", 49049, &fakeBackend{errorCode: 1, message: "no such alias"})
	_, err := NewFileStream(client, "missing")
	assert.Error(t, err)
	var regErr *RegistrationException
	assert.ErrorAs(t, err, &regErr)
}

func TestFileStreamPollEmptyResponseIsEmptySlice(t *testing.T) {
	client := NewClient("127.0.0.1", 49049, &fakeBackend{response: "null"})
	fs, err := NewFileStream(client, "alias")
	require.NoError(t, err)

	names, err := fs.Poll()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFileStreamPollSplitsNewlines(t *testing.T) {
	client := NewClient("127.0.0.1", 49049, &fakeBackend{response: "a.txt\nb.txt"})
	fs, err := NewFileStream(client, "alias")
	require.NoError(t, err)

	names, err := fs.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
}
