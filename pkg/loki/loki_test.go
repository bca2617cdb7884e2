package loki

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Error(msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func Test_Config_Validation(t *testing.T) {
	assert := assert.New(t)

	_, err := New(context.Background(), Config{}, &mockLogger{})
	assert.Error(err)

	_, err = New(context.Background(), Config{Url: "not a url"}, &mockLogger{})
	assert.Error(err)

	pusher, err := New(context.Background(), Config{Url: "http://localhost:3100/loki/api/v1/push"}, &mockLogger{})
	require.NoError(t, err)
	defer pusher.Stop()

	assert.Equal(500, pusher.config.BatchMaxSize)
	assert.Equal(5*time.Second, pusher.config.BatchMaxWait)
	assert.Equal(map[string]string{}, pusher.config.Labels)
}

func Test_Pusher_Stop_ShouldFlushGroupedStreams(t *testing.T) {
	assert := assert.New(t)

	var mu sync.Mutex
	var received []pushRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("gzip", r.Header.Get("Content-Encoding"))
		user, pass, ok := r.BasicAuth()
		assert.True(ok)
		assert.Equal("user", user)
		assert.Equal("secret", pass)

		gz, err := gzip.NewReader(r.Body)
		require.NoError(t, err)
		var req pushRequest
		require.NoError(t, json.NewDecoder(gz).Decode(&req))

		mu.Lock()
		received = append(received, req)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	logger := &mockLogger{}
	pusher, err := New(context.Background(), Config{
		Url:          server.URL,
		BatchMaxWait: time.Hour,
		Username:     "user",
		Password:     "secret",
		Labels:       map[string]string{"app": "jobs-tracker"},
	}, logger)
	require.NoError(t, err)

	require.NoError(t, pusher.Push(LogEntry{Level: "error", Message: "boom", Source: "TheirStack"}))
	require.NoError(t, pusher.Push(LogEntry{Level: "error", Message: "boom again", Source: "TheirStack"}))
	require.NoError(t, pusher.Push(LogEntry{Level: "info", Message: "done"}))
	pusher.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	require.Len(t, received[0].Streams, 2)

	errorStream := received[0].Streams[0]
	assert.Equal("error", errorStream.Stream["level"])
	assert.Equal("TheirStack", errorStream.Stream["source"])
	assert.Equal("jobs-tracker", errorStream.Stream["app"])
	assert.Len(errorStream.Values, 2)

	infoStream := received[0].Streams[1]
	assert.Equal("info", infoStream.Stream["level"])
	assert.NotContains(infoStream.Stream, "source")
	assert.Empty(logger.errors)
}

func Test_Pusher_PushAfterStop_ShouldFail(t *testing.T) {
	pusher, err := New(context.Background(), Config{Url: "http://localhost:3100/push"}, &mockLogger{})
	require.NoError(t, err)

	pusher.Stop()
	pusher.Stop()

	assert.Error(t, pusher.Push(LogEntry{Level: "info", Message: "late"}))
}
