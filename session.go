package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var errSessionMissing = errors.New("session not found")

// Session is one canvas workspace: its entities, its generation
// history and its saved viewport.
type Session struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Generations []Generation   `json:"generations"`
	Entities    []CanvasEntity `json:"entities"`
	View        Viewport       `json:"viewport"`
}

func NewSession(title string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		View:      NewViewport(),
	}
}

// SessionInfo is the listing row for the session picker.
type SessionInfo struct {
	ID          string
	Title       string
	UpdatedAt   time.Time
	Generations int
}

// SessionStore persists session snapshots. The interface is explicitly
// context-threaded: storage may live behind slow IPC or disk.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]SessionInfo, error)
	Delete(ctx context.Context, id string) error
	LoadAllGenerations(ctx context.Context) ([]Generation, error)
	Close() error
}

// SQLiteSessionStore keeps sessions in a single SQLite file. Entity
// and generation lists are stored as JSON columns; the snapshot is
// saved verbatim and reseeded on load.
type SQLiteSessionStore struct {
	db *sql.DB
}

func OpenSessionStore(path string) (*SQLiteSessionStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := &SQLiteSessionStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *SQLiteSessionStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		pan_x REAL NOT NULL DEFAULT 0,
		pan_y REAL NOT NULL DEFAULT 0,
		zoom REAL NOT NULL DEFAULT 1,
		generations TEXT NOT NULL DEFAULT '[]',
		entities TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteSessionStore) Save(ctx context.Context, sess *Session) error {
	gens, err := json.Marshal(sess.Generations)
	if err != nil {
		return fmt.Errorf("encode generations: %w", err)
	}
	entities, err := json.Marshal(sess.Entities)
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}
	sess.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, created_at, updated_at, pan_x, pan_y, zoom, generations, entities)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at,
			pan_x = excluded.pan_x,
			pan_y = excluded.pan_y,
			zoom = excluded.zoom,
			generations = excluded.generations,
			entities = excluded.entities`,
		sess.ID, sess.Title, sess.CreatedAt, sess.UpdatedAt,
		sess.View.Pan.X, sess.View.Pan.Y, sess.View.Zoom,
		string(gens), string(entities))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) Load(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, created_at, updated_at, pan_x, pan_y, zoom, generations, entities
		FROM sessions WHERE id = ?`, id)

	var sess Session
	var gens, entities string
	err := row.Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt,
		&sess.View.Pan.X, &sess.View.Pan.Y, &sess.View.Zoom, &gens, &entities)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errSessionMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if err := json.Unmarshal([]byte(gens), &sess.Generations); err != nil {
		return nil, fmt.Errorf("decode generations: %w", err)
	}
	if err := json.Unmarshal([]byte(entities), &sess.Entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	sess.View.SetZoom(sess.View.Zoom)
	return &sess, nil
}

func (s *SQLiteSessionStore) List(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, updated_at, json_array_length(generations)
		FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.Title, &info.UpdatedAt, &info.Generations); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLiteSessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// LoadAllGenerations merges every session's history in chronological
// order, for the cross-session provenance view.
func (s *SQLiteSessionStore) LoadAllGenerations(ctx context.Context) ([]Generation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT generations FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("load generations: %w", err)
	}
	defer rows.Close()

	var all []Generation
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, err
		}
		var gens []Generation
		if err := json.Unmarshal([]byte(encoded), &gens); err != nil {
			return nil, fmt.Errorf("decode generations: %w", err)
		}
		all = append(all, gens...)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}
