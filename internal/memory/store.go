// Package memory is the local SQLite database: a journal of notes and the
// ledger of webhook events already handled.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"linenote/internal/domain"
)

// SQLiteStore implements domain.NoteWriter and the redelivery ledger.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

// CreateNote stores a note and its segments in one transaction.
func (s *SQLiteStore) CreateNote(ctx context.Context, note domain.NoteRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO notes (title, note_type, created_at, digest, source_url, sender_id, media_link)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.Title, note.NoteType, note.CreatedAt.Format(time.RFC3339Nano),
		note.Digest, note.SourceURL, note.SenderID, note.MediaLink,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("note id: %w", err)
	}

	for i, seg := range note.Segments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO note_segments (note_id, position, content) VALUES (?, ?, ?)`,
			id, i, seg,
		); err != nil {
			return fmt.Errorf("insert segment %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// ListNotes returns the most recent notes, newest first, with their segments.
func (s *SQLiteStore) ListNotes(ctx context.Context, limit int) ([]domain.NoteRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, note_type, created_at, digest, source_url, sender_id, media_link
		 FROM notes ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		notes []domain.NoteRecord
		ids   []int64
	)
	for rows.Next() {
		var (
			n       domain.NoteRecord
			id      int64
			created string
		)
		if err := rows.Scan(&id, &n.Title, &n.NoteType, &created, &n.Digest, &n.SourceURL, &n.SenderID, &n.MediaLink); err != nil {
			return nil, err
		}
		if n.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("note %d: bad created_at %q: %w", id, created, err)
		}
		notes = append(notes, n)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		segs, err := s.segments(ctx, id)
		if err != nil {
			return nil, err
		}
		notes[i].Segments = segs
	}
	return notes, nil
}

func (s *SQLiteStore) segments(ctx context.Context, noteID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content FROM note_segments WHERE note_id = ? ORDER BY position`, noteID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segs []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		segs = append(segs, c)
	}
	return segs, rows.Err()
}

// SearchNotes returns notes whose title, digest or body contains query.
func (s *SQLiteStore) SearchNotes(ctx context.Context, query string, limit int) ([]domain.NoteRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListNotes(ctx, limit)
	}
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT n.id FROM notes n LEFT JOIN note_segments g ON g.note_id = n.id
		 WHERE n.title LIKE ? OR n.digest LIKE ? OR g.content LIKE ?
		 ORDER BY n.id DESC LIMIT ?`, pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	notes := make([]domain.NoteRecord, 0, len(ids))
	for _, id := range ids {
		n, err := s.note(ctx, id)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func (s *SQLiteStore) note(ctx context.Context, id int64) (domain.NoteRecord, error) {
	var (
		n       domain.NoteRecord
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT title, note_type, created_at, digest, source_url, sender_id, media_link FROM notes WHERE id = ?`, id,
	).Scan(&n.Title, &n.NoteType, &created, &n.Digest, &n.SourceURL, &n.SenderID, &n.MediaLink)
	if err != nil {
		return n, err
	}
	if n.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return n, fmt.Errorf("note %d: bad created_at %q: %w", id, created, err)
	}
	n.Segments, err = s.segments(ctx, id)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SchemaVersion reports the migration level of the open database.
func (s *SQLiteStore) SchemaVersion() (int, error) {
	return GetSchemaVersion(s.db)
}
