package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/appointment-assistant/internal/api"
	"github.com/hackgods/appointment-assistant/internal/assistant"
)

func TestStreamReply(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range []frame{
			{Type: "token", Text: "Hello "},
			{Type: "token", Text: "Ali."},
			{Type: "done", Text: "Hello Ali.", Kind: "ask"},
		} {
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	conn, err := dial(srv.URL, "abc")
	require.NoError(t, err)
	defer conn.Close()

	var out bytes.Buffer
	require.NoError(t, streamReply(conn, &out))
	assert.Equal(t, "Hello Ali.\n", out.String())
}

func TestPrintHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/abc/transcript", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.TranscriptResponse{
			SessionID: "abc",
			Pairs:     []assistant.Pair{{Input: "hi", Output: "May I have your name?"}},
		})
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, printHistory(srv.Client(), srv.URL, "abc", &out))
	assert.True(t, strings.Contains(out.String(), "you> hi\nassistant> May I have your name?"))
}
