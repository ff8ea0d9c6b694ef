package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/lambdapulse/internal/ai/chat"
	"github.com/kiranshivaraju/lambdapulse/internal/ai/ollama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req["model"])
		assert.Equal(t, false, req["stream"])
		w.Write([]byte(`{"message":{"role":"assistant","content":"3 errors"},"done":true}`))
	}))
	defer srv.Close()

	reply, err := ollama.NewProvider(srv.URL).Complete(context.Background(), "llama3",
		[]chat.Message{{Role: chat.RoleUser, Content: "go"}})
	require.NoError(t, err)
	assert.Equal(t, "3 errors", reply)
}

func TestComplete_ErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	_, err := ollama.NewProvider(srv.URL).Complete(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, chat.ErrInvalidResponse)
	assert.Contains(t, err.Error(), "model not found")
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, "ollama", ollama.NewProvider("http://localhost:11434").Client("llama3").Name())
}
