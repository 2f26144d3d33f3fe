package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-practice/internal/question"
)

// Session is a learner's chat state: the question awaiting an answer and
// the rest of the current practice batch.
type Session struct {
	Active  *question.Question  `json:"active,omitempty"`
	Queue   []question.Question `json:"queue,omitempty"`
	Subject string              `json:"subject,omitempty"`
}

// SessionStore keeps chat sessions between messages.
type SessionStore interface {
	Get(ctx context.Context, learnerID string) (Session, bool, error)
	Put(ctx context.Context, learnerID string, s Session) error
	Delete(ctx context.Context, learnerID string) error
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

func (s *MemorySessionStore) Get(_ context.Context, learnerID string) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[learnerID]
	return sess, ok, nil
}

func (s *MemorySessionStore) Put(_ context.Context, learnerID string, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[learnerID] = sess
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, learnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, learnerID)
	return nil
}

const (
	sessionKeyPrefix  = "practice:session:"
	defaultSessionTTL = 24 * time.Hour
)

// RedisSessionStore keeps sessions in Redis or Dragonfly so any server
// replica can grade an answer. Sessions expire after ttl of inactivity.
type RedisSessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis-backed store. A non-positive ttl
// uses 24 hours.
func NewRedisSessionStore(client redis.UniversalClient, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) Get(ctx context.Context, learnerID string) (Session, bool, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+learnerID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// A session we cannot read is as good as none; the learner just
		// asks for a new question.
		return Session{}, false, nil
	}
	return sess, true, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, learnerID string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+learnerID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, learnerID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+learnerID).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
