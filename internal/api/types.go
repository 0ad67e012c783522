package api

import (
	"time"

	"github.com/hackgods/appointment-assistant/internal/assistant"
)

type SendMessageRequest struct {
	Text string `json:"text"`
}

type SessionResponse struct {
	ID        string    `json:"id"`
	Stage     string    `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
}

type TranscriptResponse struct {
	SessionID string           `json:"session_id"`
	Stage     string           `json:"stage"`
	Fields    assistant.Fields `json:"fields"`
	Pairs     []assistant.Pair `json:"pairs"`
}

type ReplyResponse struct {
	SessionID string           `json:"session_id"`
	Kind      string           `json:"kind"`
	Stage     string           `json:"stage"`
	Text      string           `json:"text"`
	Fields    assistant.Fields `json:"fields"`
	Sinks     []SinkResponse   `json:"sinks,omitempty"`
}

type SinkResponse struct {
	Sink    string `json:"sink"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func newReplyResponse(sessionID string, reply assistant.Reply) ReplyResponse {
	resp := ReplyResponse{
		SessionID: sessionID,
		Kind:      string(reply.Kind),
		Stage:     string(reply.Stage),
		Text:      reply.Text,
		Fields:    reply.Fields,
	}
	if reply.Commit != nil {
		for _, o := range reply.Commit.Outcomes() {
			resp.Sinks = append(resp.Sinks, SinkResponse{Sink: o.Sink, Status: string(o.Status), Message: o.Message})
		}
	}
	return resp
}
