package storage

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/identity"
)

var (
	ErrNotFound = errors.New("not found")
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// New creates a new Storage instance and initializes the database
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS links (
			chat_id INTEGER PRIMARY KEY,
			user_code TEXT NOT NULL,
			tier TEXT NOT NULL,
			linked_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_user_code ON links(user_code)`,

		`CREATE TABLE IF NOT EXISTS scans (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id INTEGER NOT NULL,
			user_code TEXT NOT NULL,
			encoding TEXT NOT NULL,
			scanned_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_chat_id ON scans(chat_id, scanned_at)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// --- Links ---

// LinkAccount binds a chat to an account, replacing any previous link
func (s *Storage) LinkAccount(chatID int64, code identity.Identity, tier features.Tier) (*Link, error) {
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO links (chat_id, user_code, tier, linked_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
			user_code = excluded.user_code,
			tier = excluded.tier,
			linked_at = excluded.linked_at,
			updated_at = excluded.updated_at`,
		chatID, string(code), string(tier), now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, err
	}

	return &Link{
		ChatID:    chatID,
		UserCode:  code,
		Tier:      tier,
		LinkedAt:  time.Unix(now.Unix(), 0),
		UpdatedAt: time.Unix(now.Unix(), 0),
	}, nil
}

// GetLink returns the link of a chat
func (s *Storage) GetLink(chatID int64) (*Link, error) {
	row := s.db.QueryRow(
		"SELECT chat_id, user_code, tier, linked_at, updated_at FROM links WHERE chat_id = ?",
		chatID,
	)

	l, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GetLinksByUserCode returns every chat linked to an account
func (s *Storage) GetLinksByUserCode(code identity.Identity) ([]Link, error) {
	return s.queryLinks(
		"SELECT chat_id, user_code, tier, linked_at, updated_at FROM links WHERE user_code = ? ORDER BY chat_id",
		string(code),
	)
}

// GetAllLinks returns every link
func (s *Storage) GetAllLinks() ([]Link, error) {
	return s.queryLinks("SELECT chat_id, user_code, tier, linked_at, updated_at FROM links ORDER BY chat_id")
}

// UpdateTier sets the tier of every link of an account, returns affected chats
func (s *Storage) UpdateTier(code identity.Identity, tier features.Tier) (int64, error) {
	result, err := s.db.Exec(
		"UPDATE links SET tier = ?, updated_at = ? WHERE user_code = ? AND tier != ?",
		string(tier), time.Now().Unix(), string(code), string(tier),
	)
	if err != nil {
		return 0, err
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// Unlink removes the link of a chat
func (s *Storage) Unlink(chatID int64) error {
	result, err := s.db.Exec("DELETE FROM links WHERE chat_id = ?", chatID)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Storage) queryLinks(query string, args ...interface{}) ([]Link, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}

	return links, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(row rowScanner) (*Link, error) {
	var (
		l                   Link
		code, tier          string
		linkedAt, updatedAt int64
	)
	if err := row.Scan(&l.ChatID, &code, &tier, &linkedAt, &updatedAt); err != nil {
		return nil, err
	}

	l.UserCode = identity.Identity(code)
	l.Tier = features.ParseTier(tier)
	l.LinkedAt = time.Unix(linkedAt, 0)
	l.UpdatedAt = time.Unix(updatedAt, 0)
	return &l, nil
}

// --- Scans ---

// RecordScan stores a resolved scan for the chat's history
func (s *Storage) RecordScan(chatID int64, code identity.Identity, enc identity.Encoding) error {
	_, err := s.db.Exec(
		"INSERT INTO scans (chat_id, user_code, encoding, scanned_at) VALUES (?, ?, ?, ?)",
		chatID, string(code), string(enc), time.Now().Unix(),
	)
	return err
}

// RecentScans returns the latest distinct scanned accounts of a chat
func (s *Storage) RecentScans(chatID int64, limit int) ([]Scan, error) {
	rows, err := s.db.Query(
		`SELECT user_code, encoding, MAX(scanned_at) AS last_scan
		 FROM scans WHERE chat_id = ?
		 GROUP BY user_code
		 ORDER BY last_scan DESC, MAX(id) DESC
		 LIMIT ?`,
		chatID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		var (
			code, enc string
			at        int64
		)
		if err := rows.Scan(&code, &enc, &at); err != nil {
			return nil, err
		}
		scans = append(scans, Scan{
			ChatID:    chatID,
			UserCode:  identity.Identity(code),
			Encoding:  identity.Encoding(enc),
			ScannedAt: time.Unix(at, 0),
		})
	}

	return scans, rows.Err()
}
