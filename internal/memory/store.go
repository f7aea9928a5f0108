package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// PostRecord is one durable post row. Self marks posts authored by the
// agent's own identity.
type PostRecord struct {
	ID             int64
	ConversationID int64
	AuthorID       int64
	AuthorHandle   string
	Body           string
	ParentID       int64
	Self           bool
	CreatedAt      time.Time
}

// Store is the SQLite-backed conversation/post memory. Safe for concurrent
// use.
type Store struct {
	db *sql.DB
}

// Open opens the store at path, creating the file and schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect store: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY,
			conversation_id INTEGER NOT NULL,
			author_id INTEGER NOT NULL,
			author_handle TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			parent_id INTEGER NOT NULL DEFAULT 0,
			is_self INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_posts_conversation ON posts(conversation_id, id);`,
		`CREATE INDEX IF NOT EXISTS idx_posts_self ON posts(is_self, parent_id, id);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY,
			stopped INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// RecordPost inserts a post row, replacing any existing row with the same
// id. Replays of an already-recorded post are harmless.
func (s *Store) RecordPost(ctx context.Context, rec PostRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO posts (id, conversation_id, author_id, author_handle, body, parent_id, is_self, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ConversationID, rec.AuthorID, rec.AuthorHandle, rec.Body, rec.ParentID, rec.Self, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record post %d: %w", rec.ID, err)
	}
	return nil
}

// RecentInteractions returns the newest n posts in a conversation, oldest
// first.
func (s *Store) RecentInteractions(ctx context.Context, conversationID int64, n int) ([]PostRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, author_id, author_handle, body, parent_id, is_self, created_at
		 FROM posts WHERE conversation_id = ? ORDER BY id DESC LIMIT ?`,
		conversationID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query interactions for conversation %d: %w", conversationID, err)
	}
	return scanPosts(rows)
}

// RecentOwnPosts returns the agent's newest n standalone posts, oldest
// first. Replies are excluded.
func (s *Store) RecentOwnPosts(ctx context.Context, n int) ([]PostRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, author_id, author_handle, body, parent_id, is_self, created_at
		 FROM posts WHERE is_self = 1 AND parent_id = 0 ORDER BY id DESC LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query own posts: %w", err)
	}
	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]PostRecord, error) {
	defer rows.Close()

	var recs []PostRecord
	for rows.Next() {
		var rec PostRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.ConversationID, &rec.AuthorID, &rec.AuthorHandle,
			&rec.Body, &rec.ParentID, &rec.Self, &createdAt); err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post rows: %w", err)
	}

	// Newest-first from the query; callers want chronological order.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// EnsureConversation creates the conversation row if it does not exist.
func (s *Store) EnsureConversation(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, created_at) VALUES (?, ?)`,
		id, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("ensure conversation %d: %w", id, err)
	}
	return nil
}

// MarkConversationStopped flags a conversation the gate has closed for good.
// The flag is bookkeeping only; it never blocks future processing.
func (s *Store) MarkConversationStopped(ctx context.Context, id int64) error {
	if err := s.EnsureConversation(ctx, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE conversations SET stopped = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark conversation %d stopped: %w", id, err)
	}
	return nil
}

// ConversationStopped reports whether a conversation carries the stopped flag.
func (s *Store) ConversationStopped(ctx context.Context, id int64) (bool, error) {
	var stopped bool
	err := s.db.QueryRowContext(ctx, `SELECT stopped FROM conversations WHERE id = ?`, id).Scan(&stopped)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query conversation %d: %w", id, err)
	}
	return stopped, nil
}

// PruneOlderThan deletes post rows older than the retention window and
// returns how many were removed.
func (s *Store) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune posts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune posts: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
