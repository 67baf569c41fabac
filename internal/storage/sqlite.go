// internal/storage/sqlite.go
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStorage is a durable string key/value store. Every Edit runs in a
// single transaction, so a failed edit leaves the previous values intact.
type SQLiteStorage struct {
	db *sql.DB

	mu       sync.Mutex
	watchers map[int]*watcher
	nextID   int
}

type watcher struct {
	keys map[string]bool
	ch   chan struct{}
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db, watchers: make(map[int]*watcher)}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	for id, w := range s.watchers {
		close(w.ch)
		delete(s.watchers, id)
	}
	s.mu.Unlock()
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS prefs (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        updated_at DATETIME NOT NULL
    );
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Snapshot returns a consistent copy of every stored value.
func (s *SQLiteStorage) Snapshot() (*Prefs, error) {
	rows, err := s.db.Query(`SELECT key, value FROM prefs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prefs: %w", err)
	}
	defer rows.Close()

	values, err := scanPrefs(rows)
	if err != nil {
		return nil, err
	}
	return newPrefs(values), nil
}

// Edit loads the current values, applies fn and commits every change fn made
// together. If fn returns an error nothing is written.
func (s *SQLiteStorage) Edit(fn func(p *Prefs) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT key, value FROM prefs`)
	if err != nil {
		return fmt.Errorf("failed to query prefs: %w", err)
	}
	values, err := scanPrefs(rows)
	rows.Close()
	if err != nil {
		return err
	}

	p := newPrefs(values)
	if err := fn(p); err != nil {
		return err
	}

	changed := p.changedKeys()
	if len(changed) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, key := range changed {
		value, ok := p.values[key]
		if !ok {
			if _, err := tx.Exec(`DELETE FROM prefs WHERE key = ?`, key); err != nil {
				return fmt.Errorf("failed to delete pref %q: %w", key, err)
			}
			continue
		}
		_, err := tx.Exec(`
        INSERT INTO prefs (key, value, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
    `, key, value, now)
		if err != nil {
			return fmt.Errorf("failed to write pref %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prefs: %w", err)
	}

	s.notify(changed)
	return nil
}

// Watch returns a channel that receives a signal after each committed edit
// touching any of keys (any key at all when keys is empty). Signals are
// coalesced; the channel is closed by cancel or Close.
func (s *SQLiteStorage) Watch(keys ...string) (<-chan struct{}, func()) {
	w := &watcher{ch: make(chan struct{}, 1)}
	if len(keys) > 0 {
		w.keys = make(map[string]bool, len(keys))
		for _, k := range keys {
			w.keys[k] = true
		}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = w
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[id]; ok {
			close(w.ch)
			delete(s.watchers, id)
		}
	}
	return w.ch, cancel
}

func (s *SQLiteStorage) notify(changed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers {
		if !w.matches(changed) {
			continue
		}
		select {
		case w.ch <- struct{}{}:
		default:
		}
	}
}

func (w *watcher) matches(changed []string) bool {
	if w.keys == nil {
		return true
	}
	for _, k := range changed {
		if w.keys[k] {
			return true
		}
	}
	return false
}

func scanPrefs(rows *sql.Rows) (map[string]string, error) {
	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan pref: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prefs: %w", err)
	}
	return values, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
