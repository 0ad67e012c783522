package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hackgods/appointment-assistant/internal/assistant"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsTurnQueue = 4
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsInbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type wsOutbound struct {
	Type    string            `json:"type"`
	Text    string            `json:"text,omitempty"`
	Kind    string            `json:"kind,omitempty"`
	Stage   string            `json:"stage,omitempty"`
	Fields  *assistant.Fields `json:"fields,omitempty"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
}

// chatSocket streams each reply as token frames followed by a done frame.
// Turns run one at a time on their own goroutine; the read loop keeps
// serving pongs and pings while a slow turn is in flight.
func (h *chatHandler) chatSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pongWait := h.pongWait
	if pongWait <= 0 {
		pongWait = wsPongWait
	}
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	writeCh := make(chan wsOutbound, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(pongWait * 9 / 10)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	push := func(out wsOutbound) {
		select {
		case writeCh <- out:
		case <-ctx.Done():
		}
	}

	turns := make(chan string, wsTurnQueue)
	turnsDone := make(chan struct{})
	go func() {
		defer close(turnsDone)
		for {
			select {
			case <-ctx.Done():
				return
			case text := <-turns:
				h.socketTurn(ctx, sess, text, push)
			}
		}
	}()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-turnsDone
			<-writerDone
			return
		}

		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			push(wsOutbound{Type: "pong"})
		case "message":
			select {
			case turns <- in.Text:
			default:
				push(wsOutbound{Type: "error", Code: "busy", Message: "too many messages waiting for a reply"})
			}
		default:
			push(wsOutbound{Type: "error", Code: "invalid_argument", Message: "type must be message or ping"})
		}
	}
}

func (h *chatHandler) socketTurn(ctx context.Context, sess *assistant.Session, text string, push func(wsOutbound)) {
	reply, err := h.assistant.Handle(ctx, sess, text, func(tok string) {
		push(wsOutbound{Type: "token", Text: tok})
	})
	if err != nil {
		code := "internal"
		if errors.Is(err, assistant.ErrEmptyMessage) {
			code = "invalid_argument"
		} else if ctx.Err() == nil {
			h.logger.Error("websocket turn failed", "session_id", sess.ID, "error", err)
		}
		push(wsOutbound{Type: "error", Code: code, Message: err.Error()})
		return
	}
	fields := reply.Fields
	push(wsOutbound{
		Type:   "done",
		Text:   reply.Text,
		Kind:   string(reply.Kind),
		Stage:  string(reply.Stage),
		Fields: &fields,
	})
}
