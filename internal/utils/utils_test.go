package utils

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEWriter(t *testing.T) {
	w := httptest.NewRecorder()
	sse := NewSSEWriter(w)

	require.NoError(t, sse.Write("status", "ready"))
	require.NoError(t, sse.WriteJSON("snapshot", map[string]bool{"busy": true}))
	require.NoError(t, sse.Close())

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t,
		"event: status\ndata: ready\n\nevent: snapshot\ndata: {\"busy\":true}\n\ndata: [DONE]\n\n",
		w.Body.String())
	assert.True(t, w.Flushed)
}

func TestSSEWriterStreamContract(t *testing.T) {
	w := httptest.NewRecorder()
	sse := NewSSEWriter(w)

	require.NoError(t, sse.WriteJSON("snapshot", map[string]int{"version": 1}))
	require.NoError(t, sse.WriteJSON("heartbeat", map[string]int64{"timestamp": 1}))
	require.NoError(t, sse.WriteJSON("result", map[string]bool{"accepted": true}))
	require.NoError(t, sse.Close())

	events := strings.Split(strings.TrimSuffix(w.Body.String(), "\n\n"), "\n\n")
	require.Len(t, events, 4)
	assert.True(t, strings.HasPrefix(events[0], "event: snapshot\n"))
	assert.True(t, strings.HasPrefix(events[1], "event: heartbeat\n"))
	assert.Equal(t, "event: result\ndata: {\"accepted\":true}", events[2])
	assert.Equal(t, "data: [DONE]", events[3])
}

func TestSSEWriterRejectsUnmarshalable(t *testing.T) {
	sse := NewSSEWriter(httptest.NewRecorder())
	assert.Error(t, sse.WriteJSON("bad", make(chan int)))
}

func TestNewClipboard(t *testing.T) {
	assert.IsType(t, SystemClipboard{}, NewClipboard("system"))
	assert.IsType(t, DisabledClipboard{}, NewClipboard("none"))
	assert.IsType(t, ClientClipboard{}, NewClipboard("client"))
	assert.IsType(t, ClientClipboard{}, NewClipboard(""))

	assert.NoError(t, ClientClipboard{}.WriteAll("text"))
	assert.ErrorIs(t, DisabledClipboard{}.WriteAll("text"), ErrClipboardUnavailable)
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(5*time.Second, NewTransport())
	assert.Equal(t, 5*time.Second, client.Timeout)
	assert.NotNil(t, client.Transport)
}
