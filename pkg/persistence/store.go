// Package persistence stores debate records, the rating table and the topic
// catalogue as whole JSON documents. The file backend is the default; the
// SQLite backend keeps the same documents in a single table.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"debatearena/pkg/config"
	"debatearena/pkg/debate"
)

// ErrNotFound is returned when a debate id has no stored record.
var ErrNotFound = errors.New("not found")

// Store is the document store used by the orchestrator, the judgment engine
// and the rating engine. SaveDebate overwrites any earlier record with the same id.
type Store interface {
	LoadDebate(ctx context.Context, id string) (*debate.Debate, error)
	SaveDebate(ctx context.Context, d *debate.Debate) error
	ListDebates(ctx context.Context) ([]debate.Summary, error)
	GetEloRatings(ctx context.Context) (map[string]int, error)
	SaveEloRatings(ctx context.Context, ratings map[string]int) error
	InitializeDebateTopics(ctx context.Context) ([]TopicCategory, error)
	Close() error
}

// TopicCategory groups suggested debate topics.
type TopicCategory struct {
	Category string   `json:"category"`
	Topics   []string `json:"topics"`
}

// Document kinds shared by the backends.
const (
	kindDebate  = "debate"
	kindRatings = "elo-ratings"
	kindTopics  = "debate-topics"

	singletonID = "default"
)

// DefaultTopics returns the topic catalogue written on first use.
func DefaultTopics() []TopicCategory {
	return []TopicCategory{
		{
			Category: "Technology",
			Topics: []string{
				"Artificial intelligence will ultimately benefit humanity more than harm it",
				"Social media has a net negative impact on society",
				"Cryptocurrencies should replace traditional banking systems",
				"Governments should regulate big tech companies more strictly",
				"Universal basic income is necessary in an AI-automated future",
			},
		},
		{
			Category: "Ethics",
			Topics: []string{
				"The ends justify the means in ethical decision making",
				"Capital punishment is never morally justified",
				"There are universal moral principles that apply across all cultures",
				"Individual privacy should be prioritized over national security",
				"Wealthy nations have an ethical obligation to accept refugees",
			},
		},
		{
			Category: "Education",
			Topics: []string{
				"Standardized testing should be eliminated from education systems",
				"Liberal arts education is more valuable than technical education",
				"Higher education should be free for all citizens",
				"Homeschooling provides better education outcomes than public schooling",
				"Technology in classrooms enhances the learning experience",
			},
		},
	}
}

// Open returns the backend selected by cfg.Storage.
func Open(cfg config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case "", config.StorageFile:
		return NewFileStore(cfg.DataDir)
	case config.StorageSQLite:
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "debatearena.db")
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// validateID rejects ids that could escape the debates directory.
func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid debate id %q", id)
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("debate %s: %w", id, ErrNotFound)
}
