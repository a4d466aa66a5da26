package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_Send(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/projects/gasra-app/messages:send", r.URL.Path)
		assert.Equal(t, "Bearer access-123", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"projects/gasra-app/messages/0:1234"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "gasra-app", 5*time.Second, zap.NewNop())
	msg := NewMessage("device-token-1", "title", "body", map[string]string{"report_id": "9"})

	name, err := client.Send(context.Background(), "access-123", msg)
	require.NoError(t, err)
	assert.Equal(t, "projects/gasra-app/messages/0:1234", name)

	assert.Equal(t, "device-token-1", got.Message.Token)
	assert.Equal(t, "title", got.Message.Notification.Title)
	assert.Equal(t, "body", got.Message.Notification.Body)
	assert.Equal(t, "9", got.Message.Data["report_id"])
}

func TestClient_Send_GatewayError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "gasra-app", 5*time.Second, zap.NewNop())

	name, err := client.Send(context.Background(), "access-123", NewMessage("stale-token", "t", "b", nil))
	require.Error(t, err)
	assert.Empty(t, name)
	assert.Equal(t, 1, calls, "no retry on non-2xx")

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusNotFound, gwErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", gwErr.Status)
	assert.Equal(t, "Requested entity was not found.", gwErr.Message)
}

func TestClient_Send_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "gasra-app", 5*time.Second, zap.NewNop())

	_, err := client.Send(context.Background(), "access-123", NewMessage("tok", "t", "b", nil))
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.StatusCode)
	assert.Equal(t, "upstream unavailable", gwErr.Message)
}
