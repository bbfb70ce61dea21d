package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAIClientStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.Stream)
		require.Equal(t, "test-model", req.Model)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, text := range []string{"Hello", ", ", "world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", text)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	cli := NewOpenAIClient("Test", srv.URL, "secret", "test-model", 0)
	events := collect(t, cli.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, true))
	require.Len(t, events, 4)
	require.Equal(t, "Hello", events[0].Text)
	require.Equal(t, ", ", events[1].Text)
	require.Equal(t, "world", events[2].Text)
	require.Equal(t, EventDone, events[3].Kind)
}

func TestOpenAIClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"full answer"}}]}`)
	}))
	defer srv.Close()

	cli := NewOpenAIClient("Test", srv.URL, "secret", "test-model", 0)
	events := collect(t, cli.Invoke(context.Background(), nil, false))
	require.Len(t, events, 2)
	require.Equal(t, "full answer", events[0].Text)
	require.Equal(t, EventDone, events[1].Kind)
}

func TestOpenAIClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	cli := NewOpenAIClient("Test", srv.URL, "", "test-model", 0)
	events := collect(t, cli.Invoke(context.Background(), nil, true))
	require.Len(t, events, 1)
	require.Equal(t, EventError, events[0].Kind)
	require.ErrorContains(t, events[0].Err, "boom")
}

func TestOpenAIClientContextLengthPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"context_length_exceeded"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	cli := NewOpenAIClient("Test", srv.URL, "", "test-model", 0)
	events := collect(t, cli.Invoke(context.Background(), nil, false))
	require.Len(t, events, 1)
	var perm *PermanentError
	require.ErrorAs(t, events[0].Err, &perm)
}
