package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/lambdapulse/internal/ai/chat"
	"github.com/kiranshivaraju/lambdapulse/internal/ai/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_SendsConversation(t *testing.T) {
	var got struct {
		Model    string         `json:"model"`
		Messages []chat.Message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  all quiet  "}}]}`))
	}))
	defer srv.Close()

	p := openai.NewProvider("openai", srv.URL+"/v1/", "sk-test")
	reply, err := p.Complete(context.Background(), "gpt-4o-mini", []chat.Message{
		{Role: chat.RoleSystem, Content: "be terse"},
		{Role: chat.RoleUser, Content: "summarize"},
	})

	require.NoError(t, err)
	assert.Equal(t, "all quiet", reply)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chat.RoleSystem, got.Messages[0].Role)
}

func TestComplete_NoAuthHeaderWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	_, err := openai.NewProvider("vllm", srv.URL, "").Complete(context.Background(), "m", nil)
	require.NoError(t, err)
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusBadGateway, `oops`, chat.ErrProviderUnavailable},
		{"rate limited", http.StatusTooManyRequests, `slow down`, chat.ErrProviderUnavailable},
		{"bad request", http.StatusBadRequest, `{"error":"bad model"}`, chat.ErrInvalidResponse},
		{"no choices", http.StatusOK, `{"choices":[]}`, chat.ErrInvalidResponse},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"content":" "}}]}`, chat.ErrInvalidResponse},
		{"not json", http.StatusOK, `<html>`, chat.ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := openai.NewProvider("openai", srv.URL, "k").Complete(context.Background(), "m", nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestComplete_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := openai.NewProvider("openai", url, "k").Complete(context.Background(), "m", nil)
	assert.ErrorIs(t, err, chat.ErrProviderUnavailable)
}

func TestClient_SessionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := openai.NewProvider("github", srv.URL, "tok").Client("openai/gpt-4o-mini")
	assert.Equal(t, "github", client.Name())

	sess, err := client.CreateSession(context.Background(), "", "system")
	require.NoError(t, err)
	defer sess.Destroy(context.Background())

	_, err = sess.SendAndWait(context.Background(), "hi", 50*time.Millisecond)
	assert.ErrorIs(t, err, chat.ErrInferenceTimeout)
}
