package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"debatearena/pkg/debate"
	"debatearena/pkg/logx"
)

// CurrentSchemaVersion defines the current schema version for migration support.
const CurrentSchemaVersion = 1

// SQLiteStore keeps every document as a JSON body in one documents table.
type SQLiteStore struct {
	db     *sql.DB
	logger *logx.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and brings
// its schema up to date.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchemaWithMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger := logx.NewLogger("persistence")
	logger.Info("📦 Database initialized: %s", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// initializeSchemaWithMigrations ensures the database schema is at the current version.
func initializeSchemaWithMigrations(db *sql.DB) error {
	currentVersion, err := GetSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	if currentVersion == CurrentSchemaVersion {
		return nil
	}
	if currentVersion > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, CurrentSchemaVersion)
	}

	for version := currentVersion + 1; version <= CurrentSchemaVersion; version++ {
		if err := runMigration(db, version); err != nil {
			return fmt.Errorf("migration to version %d failed: %w", version, err)
		}
		if err := setSchemaVersion(db, version); err != nil {
			return fmt.Errorf("failed to update schema version to %d: %w", version, err)
		}
	}
	return nil
}

func runMigration(db *sql.DB, version int) error {
	switch version {
	case 1:
		return migrateToVersion1(db)
	default:
		return fmt.Errorf("unknown migration version: %d", version)
	}
}

// migrateToVersion1 creates the documents table.
func migrateToVersion1(db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			body TEXT NOT NULL,
			updated_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			PRIMARY KEY (kind, id)
		)`,
		"CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind)",
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute migration: %s: %w", stmt, err)
		}
	}
	return nil
}

// setSchemaVersion records the current schema version.
func setSchemaVersion(db *sql.DB, version int) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version)
	if err != nil {
		return fmt.Errorf("database exec error: %w", err)
	}
	return nil
}

// GetSchemaVersion returns the current schema version from the database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("schema version scan error: %w", err)
	}
	return version, nil
}

func (s *SQLiteStore) put(ctx context.Context, kind, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (kind, id, body, updated_at)
		VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(kind, id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, kind, id, string(body))
	if err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", kind, id, err)
	}
	return nil
}

// get decodes the document into v. It returns sql.ErrNoRows when absent.
func (s *SQLiteStore) get(ctx context.Context, kind, id string, v any) error {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM documents WHERE kind = ? AND id = ?", kind, id).Scan(&body)
	if err != nil {
		return err //nolint:wrapcheck // Callers test sql.ErrNoRows
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("failed to parse %s %s: %w", kind, id, err)
	}
	return nil
}

// LoadDebate reads the debate with id. A missing record wraps ErrNotFound.
func (s *SQLiteStore) LoadDebate(ctx context.Context, id string) (*debate.Debate, error) {
	var d debate.Debate
	if err := s.get(ctx, kindDebate, id, &d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("failed to load debate %s: %w", id, err)
	}
	return &d, nil
}

// SaveDebate upserts d.
func (s *SQLiteStore) SaveDebate(ctx context.Context, d *debate.Debate) error {
	if err := validateID(d.ID); err != nil {
		return err
	}
	return s.put(ctx, kindDebate, d.ID, d)
}

// ListDebates summarizes every stored debate in id order.
func (s *SQLiteStore) ListDebates(ctx context.Context) ([]debate.Summary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, body FROM documents WHERE kind = ?", kindDebate)
	if err != nil {
		return nil, fmt.Errorf("failed to list debates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := []debate.Summary{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan debate row: %w", err)
		}
		var d debate.Debate
		if err := json.Unmarshal([]byte(body), &d); err != nil {
			s.logger.Warn("Skipping unreadable debate %s: %v", id, err)
			continue
		}
		summaries = append(summaries, d.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debates: %w", err)
	}
	sortSummaries(summaries)
	return summaries, nil
}

// GetEloRatings returns the stored rating table, or an empty table.
func (s *SQLiteStore) GetEloRatings(ctx context.Context) (map[string]int, error) {
	ratings := map[string]int{}
	if err := s.get(ctx, kindRatings, singletonID, &ratings); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	return ratings, nil
}

// SaveEloRatings replaces the stored rating table.
func (s *SQLiteStore) SaveEloRatings(ctx context.Context, ratings map[string]int) error {
	return s.put(ctx, kindRatings, singletonID, ratings)
}

// InitializeDebateTopics writes DefaultTopics on first use and returns the stored catalogue.
func (s *SQLiteStore) InitializeDebateTopics(ctx context.Context) ([]TopicCategory, error) {
	var topics []TopicCategory
	err := s.get(ctx, kindTopics, singletonID, &topics)
	if err == nil {
		return topics, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load topics: %w", err)
	}

	topics = DefaultTopics()
	if err := s.put(ctx, kindTopics, singletonID, topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
