package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chatcal/schedcore/internal/credentials"
	"github.com/chatcal/schedcore/internal/meeting"

	_ "github.com/mattn/go-sqlite3"
)

// Storage is the local sqlite layer: the meeting record of truth for
// cancellation matching, and the key-value secret cache tier.
type Storage struct {
	db *sql.DB
}

// New opens (and creates if needed) the database at dbPath and applies
// migrations.
func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS meetings (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			duration_minutes INTEGER NOT NULL,
			attendee_name TEXT NOT NULL,
			attendee_email TEXT DEFAULT '',
			attendee_phone TEXT DEFAULT '',
			meet_link TEXT DEFAULT '',
			handle TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_meetings_status ON meetings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_meetings_start ON meetings(start_time)`,
		`CREATE TABLE IF NOT EXISTS secrets (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// === Meetings ===

const meetingColumns = `id, title, start_time, duration_minutes, attendee_name, attendee_email, attendee_phone, meet_link, handle, status, created_at, updated_at`

// SaveMeeting inserts or replaces a meeting. Rebooking a slot whose previous
// holder was cancelled reuses the same ID.
func (s *Storage) SaveMeeting(ctx context.Context, m *meeting.Meeting) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meetings (`+meetingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			start_time = excluded.start_time,
			duration_minutes = excluded.duration_minutes,
			attendee_name = excluded.attendee_name,
			attendee_email = excluded.attendee_email,
			attendee_phone = excluded.attendee_phone,
			meet_link = excluded.meet_link,
			handle = excluded.handle,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		m.ID, m.Title, m.Start.UTC(), int(m.Duration.Minutes()),
		m.Attendee.Name, m.Attendee.Email, m.Attendee.Phone,
		m.MeetLink, m.Handle, string(m.Status), m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
	return err
}

// GetMeeting returns the meeting with the given ID, or nil when absent.
func (s *Storage) GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	m, err := scanMeeting(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListMeetingsByStatus returns meetings in the given lifecycle state ordered
// by start time.
func (s *Storage) ListMeetingsByStatus(ctx context.Context, status meeting.Status) ([]*meeting.Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE status = ? ORDER BY start_time ASC`,
		string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMeetings(rows)
}

// ListUpcomingMeetings returns confirmed meetings starting at or after from.
func (s *Storage) ListUpcomingMeetings(ctx context.Context, from time.Time) ([]*meeting.Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE status = ? AND start_time >= ? ORDER BY start_time ASC`,
		string(meeting.StatusConfirmed), from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMeetings(rows)
}

// UpdateMeetingStatus moves a meeting into a new lifecycle state. Cancelled
// meetings stay on record as tombstones.
func (s *Storage) UpdateMeetingStatus(ctx context.Context, id string, status meeting.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no meeting with id %s", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*meeting.Meeting, error) {
	m := &meeting.Meeting{}
	var durationMinutes int
	var status string
	err := row.Scan(&m.ID, &m.Title, &m.Start, &durationMinutes,
		&m.Attendee.Name, &m.Attendee.Email, &m.Attendee.Phone,
		&m.MeetLink, &m.Handle, &status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Duration = time.Duration(durationMinutes) * time.Minute
	m.Status = meeting.Status(status)
	return m, nil
}

func collectMeetings(rows *sql.Rows) ([]*meeting.Meeting, error) {
	var meetings []*meeting.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// === Secrets ===

// GetSecret reads a secret value. Returns credentials.ErrNotFound for an
// unknown key so the vault falls through to its next tier.
func (s *Storage) GetSecret(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM secrets WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, credentials.ErrNotFound
	}
	return value, err
}

// SetSecret writes a secret value, replacing any existing one.
func (s *Storage) SetSecret(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO secrets (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	return err
}
