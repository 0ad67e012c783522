package assistant

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hackgods/appointment-assistant/internal/metrics"
	"github.com/hackgods/appointment-assistant/pkg/logging"
)

// SessionStore keeps live sessions in memory. Idle sessions expire after the
// TTL and the least recently used one is dropped once the store is full.
type SessionStore struct {
	cache   *expirable.LRU[string, *Session]
	metrics *metrics.BookingMetrics
	now     func() time.Time
}

func NewSessionStore(size int, ttl time.Duration, m *metrics.BookingMetrics, logger *logging.Logger) *SessionStore {
	if logger == nil {
		logger = logging.Default()
	}
	onEvict := func(id string, _ *Session) {
		logger.Debug("session evicted", "session_id", id)
	}
	return &SessionStore{
		cache:   expirable.NewLRU[string, *Session](size, onEvict, ttl),
		metrics: m,
		now:     time.Now,
	}
}

func (s *SessionStore) Create() *Session {
	sess := NewSession(uuid.NewString(), s.now())
	s.cache.Add(sess.ID, sess)
	s.metrics.SetActiveSessions(s.cache.Len())
	return sess
}

// Get returns the session and restarts its idle timer.
func (s *SessionStore) Get(id string) (*Session, bool) {
	sess, ok := s.cache.Get(id)
	if !ok {
		s.metrics.SetActiveSessions(s.cache.Len())
		return nil, false
	}
	s.cache.Add(id, sess)
	return sess, true
}

func (s *SessionStore) Delete(id string) bool {
	ok := s.cache.Remove(id)
	s.metrics.SetActiveSessions(s.cache.Len())
	return ok
}

func (s *SessionStore) Len() int {
	return s.cache.Len()
}
