package assistant

import (
	"sync"
	"time"
)

// Session is one patient conversation. Handle holds turn for the whole turn,
// so a session never processes two messages at once.
type Session struct {
	ID        string
	CreatedAt time.Time

	turn sync.Mutex

	mu       sync.Mutex
	stage    Stage
	fields   Fields
	awaiting string

	transcript *Transcript
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		stage:      StageGathering,
		transcript: NewTranscript(),
	}
}

// Stage reports where the current turn is, or where the last turn ended.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *Session) Fields() Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields
}

func (s *Session) Transcript() *Transcript {
	return s.transcript
}

func (s *Session) snapshot() (Fields, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields, s.awaiting
}

func (s *Session) update(stage Stage, fields Fields, awaiting string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
	s.fields = fields
	s.awaiting = awaiting
}

func (s *Session) setStage(stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
}
