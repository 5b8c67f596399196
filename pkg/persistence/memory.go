package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"debatearena/pkg/debate"
)

// MemoryStore is an in-process Store. Debates are stored as encoded
// documents so callers never share state with the store.
type MemoryStore struct {
	mu      sync.Mutex
	debates map[string][]byte
	ratings map[string]int
	topics  []TopicCategory
	closed  bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		debates: make(map[string][]byte),
		ratings: make(map[string]int),
	}
}

func (s *MemoryStore) checkOpen() error {
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	return nil
}

// LoadDebate returns a copy of the debate with id. A missing record wraps ErrNotFound.
func (s *MemoryStore) LoadDebate(_ context.Context, id string) (*debate.Debate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	body, ok := s.debates[id]
	if !ok {
		return nil, notFound(id)
	}
	var d debate.Debate
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("failed to decode debate %s: %w", id, err)
	}
	return &d, nil
}

// SaveDebate stores a copy of d.
func (s *MemoryStore) SaveDebate(_ context.Context, d *debate.Debate) error {
	if err := validateID(d.ID); err != nil {
		return err
	}
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode debate %s: %w", d.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.debates[d.ID] = body
	return nil
}

// ListDebates summarizes every stored debate in id order.
func (s *MemoryStore) ListDebates(_ context.Context) ([]debate.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	summaries := make([]debate.Summary, 0, len(s.debates))
	for id, body := range s.debates {
		var d debate.Debate
		if err := json.Unmarshal(body, &d); err != nil {
			return nil, fmt.Errorf("failed to decode debate %s: %w", id, err)
		}
		summaries = append(summaries, d.Summary())
	}
	sortSummaries(summaries)
	return summaries, nil
}

// GetEloRatings returns a copy of the rating table.
func (s *MemoryStore) GetEloRatings(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return maps.Clone(s.ratings), nil
}

// SaveEloRatings replaces the rating table with a copy of ratings.
func (s *MemoryStore) SaveEloRatings(_ context.Context, ratings map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.ratings = maps.Clone(ratings)
	if s.ratings == nil {
		s.ratings = make(map[string]int)
	}
	return nil
}

// InitializeDebateTopics seeds DefaultTopics on first use.
func (s *MemoryStore) InitializeDebateTopics(_ context.Context) ([]TopicCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if s.topics == nil {
		s.topics = DefaultTopics()
	}
	out := make([]TopicCategory, len(s.topics))
	for i, c := range s.topics {
		out[i] = TopicCategory{Category: c.Category, Topics: append([]string(nil), c.Topics...)}
	}
	return out, nil
}

// Close marks the store closed; later calls fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
