package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"debatearena/pkg/debate"
	"debatearena/pkg/logx"
	"debatearena/pkg/utils"
)

// FileStore keeps one JSON document per file under a data directory:
//
//	<dir>/debates/<id>.json
//	<dir>/elo-ratings.json
//	<dir>/debate-topics.json
type FileStore struct {
	dir    string
	logger *logx.Logger
	mu     sync.Mutex
}

// NewFileStore creates the data and debates directories if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "debates"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logx.NewLogger("persistence")}, nil
}

func (s *FileStore) debatePath(id string) string {
	return filepath.Join(s.dir, "debates", id+".json")
}

// LoadDebate reads the debate with id. A missing record wraps ErrNotFound.
func (s *FileStore) LoadDebate(_ context.Context, id string) (*debate.Debate, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var d debate.Debate
	if err := utils.ReadJSON(s.debatePath(id), &d); err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("failed to load debate %s: %w", id, err)
	}
	return &d, nil
}

// SaveDebate writes d, replacing any earlier record.
func (s *FileStore) SaveDebate(_ context.Context, d *debate.Debate) error {
	if err := validateID(d.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := utils.WriteJSONAtomic(s.debatePath(d.ID), d); err != nil {
		return fmt.Errorf("failed to save debate %s: %w", d.ID, err)
	}
	s.logger.Debug("Saved debate %s (%d turns)", d.ID, len(d.History))
	return nil
}

// ListDebates summarizes every stored debate in id order. Unreadable files
// are logged and skipped.
func (s *FileStore) ListDebates(_ context.Context) ([]debate.Summary, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "debates"))
	if err != nil {
		if os.IsNotExist(err) {
			return []debate.Summary{}, nil
		}
		return nil, fmt.Errorf("failed to list debates: %w", err)
	}

	summaries := make([]debate.Summary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		var d debate.Debate
		if err := utils.ReadJSON(filepath.Join(s.dir, "debates", name), &d); err != nil {
			s.logger.Warn("Skipping unreadable debate file %s: %v", name, err)
			continue
		}
		summaries = append(summaries, d.Summary())
	}
	sortSummaries(summaries)
	return summaries, nil
}

// GetEloRatings returns the stored rating table, or an empty table.
func (s *FileStore) GetEloRatings(_ context.Context) (map[string]int, error) {
	ratings := map[string]int{}
	if err := utils.ReadJSON(filepath.Join(s.dir, "elo-ratings.json"), &ratings); err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	return ratings, nil
}

// SaveEloRatings replaces the stored rating table.
func (s *FileStore) SaveEloRatings(_ context.Context, ratings map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := utils.WriteJSONAtomic(filepath.Join(s.dir, "elo-ratings.json"), ratings); err != nil {
		return fmt.Errorf("failed to save ratings: %w", err)
	}
	return nil
}

// InitializeDebateTopics writes DefaultTopics on first use and returns the stored catalogue.
func (s *FileStore) InitializeDebateTopics(_ context.Context) ([]TopicCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, "debate-topics.json")
	var topics []TopicCategory
	err := utils.ReadJSON(path, &topics)
	if err == nil {
		return topics, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load topics: %w", err)
	}

	topics = DefaultTopics()
	if err := utils.WriteJSONAtomic(path, topics); err != nil {
		return nil, fmt.Errorf("failed to save default topics: %w", err)
	}
	s.logger.Info("Wrote default debate topics to %s", path)
	return topics, nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }

func sortSummaries(summaries []debate.Summary) {
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i].ID, summaries[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}
