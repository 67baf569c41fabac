// internal/daystore/store.go

// Package daystore owns today's working set of food entries and the bounded
// history of archived days.
package daystore

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"mcp-kcal-log/internal/models"
	"mcp-kcal-log/internal/profile"
	"mcp-kcal-log/internal/storage"
)

const (
	KeyCurrentDate  = "current_date"
	KeyTodayEntries = "today_entries"
	KeyHistory      = "history"
	KeyFirstLaunch  = "first_launch"
)

// HistoryLimit is the maximum number of archived days kept.
const HistoryLimit = 30

// KV is the durable store the day store writes through.
type KV interface {
	Snapshot() (*storage.Prefs, error)
	Edit(fn func(p *storage.Prefs) error) error
	Watch(keys ...string) (<-chan struct{}, func())
}

type Store struct {
	kv KV
	// mu serializes AddEntry, RemoveEntry and CheckAndRollover, which all
	// read-modify-write the date key and the working set.
	mu sync.Mutex
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

func loadEntries(p *storage.Prefs) ([]models.FoodEntry, error) {
	var entries []models.FoodEntry
	if _, err := p.JSON(KeyTodayEntries, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.FoodEntry{}
	}
	return entries, nil
}

func loadHistory(p *storage.Prefs) ([]models.DayRecord, error) {
	var history []models.DayRecord
	if _, err := p.JSON(KeyHistory, &history); err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.DayRecord{}
	}
	return history, nil
}

// CurrentEntries returns the working set stored under the current date key.
// It never rolls over.
func (s *Store) CurrentEntries() ([]models.FoodEntry, error) {
	p, err := s.kv.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return loadEntries(p)
}

func (s *Store) CurrentDateKey() (string, error) {
	p, err := s.kv.Snapshot()
	if err != nil {
		return "", fmt.Errorf("failed to read current date: %w", err)
	}
	return p.String(KeyCurrentDate, ""), nil
}

// History returns archived days, most recent first.
func (s *Store) History() ([]models.DayRecord, error) {
	p, err := s.kv.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return loadHistory(p)
}

// AddEntry appends entry to the working set and stamps the date key with
// today, so a missed rollover cannot leave the set under a stale date.
func (s *Store) AddEntry(entry models.FoodEntry, today string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.kv.Edit(func(p *storage.Prefs) error {
		entries, err := loadEntries(p)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		if err := p.SetJSON(KeyTodayEntries, entries); err != nil {
			return err
		}
		p.Set(KeyCurrentDate, today)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add entry: %w", err)
	}
	return nil
}

// RemoveEntry drops the entry with the given id. Removing an unknown id is
// not an error.
func (s *Store) RemoveEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.kv.Edit(func(p *storage.Prefs) error {
		entries, err := loadEntries(p)
		if err != nil {
			return err
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(entries) {
			return nil
		}
		return p.SetJSON(KeyTodayEntries, kept)
	})
	if err != nil {
		return fmt.Errorf("failed to remove entry: %w", err)
	}
	return nil
}

// CheckAndRollover archives the working set when the stored date differs
// from today and re-anchors the store on today. It reports whether a
// rollover happened. Archive and clear commit together or not at all.
func (s *Store) CheckAndRollover(today string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rolled := false
	var archived *models.DayRecord
	err := s.kv.Edit(func(p *storage.Prefs) error {
		stored := p.String(KeyCurrentDate, "")
		if stored == "" || stored == today {
			return nil
		}

		entries, err := loadEntries(p)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			history, err := loadHistory(p)
			if err != nil {
				return err
			}
			// Targets are read as they are now, inside the same transaction.
			prof := profile.Decode(p)
			rec := models.NewDayRecord(stored, entries, prof.TargetCalories, prof.TargetProtein)
			if err := p.SetJSON(KeyHistory, archive(history, rec)); err != nil {
				return err
			}
			archived = &rec
		}

		if err := p.SetJSON(KeyTodayEntries, []models.FoodEntry{}); err != nil {
			return err
		}
		p.Set(KeyCurrentDate, today)
		rolled = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rollover failed: %w", err)
	}

	if archived != nil {
		log.Printf("daystore: archived %s (%d entries, %d kcal, %dg protein)",
			archived.Date, len(archived.Entries), archived.TotalCalories, archived.TotalProtein)
	} else if rolled {
		log.Printf("daystore: advanced to %s with nothing to archive", today)
	}
	return rolled, nil
}

// archive puts rec into history, replacing any record for the same date,
// keeps the list newest first and drops the oldest beyond HistoryLimit.
func archive(history []models.DayRecord, rec models.DayRecord) []models.DayRecord {
	out := make([]models.DayRecord, 0, len(history)+1)
	out = append(out, rec)
	for _, h := range history {
		if h.Date != rec.Date {
			out = append(out, h)
		}
	}
	// Date keys are YYYY-MM-DD, so string order is calendar order. This only
	// reorders anything when the clock moved backwards.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if len(out) > HistoryLimit {
		out = out[:HistoryLimit]
	}
	return out
}

func (s *Store) FirstLaunchDone() (bool, error) {
	p, err := s.kv.Snapshot()
	if err != nil {
		return false, fmt.Errorf("failed to read first launch flag: %w", err)
	}
	return !p.Bool(KeyFirstLaunch, true), nil
}

func (s *Store) CompleteFirstLaunch() error {
	err := s.kv.Edit(func(p *storage.Prefs) error {
		p.SetBool(KeyFirstLaunch, false)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to complete first launch: %w", err)
	}
	return nil
}

// Watch signals after each committed change to the working set, the date
// key or the history.
func (s *Store) Watch() (<-chan struct{}, func()) {
	return s.kv.Watch(KeyCurrentDate, KeyTodayEntries, KeyHistory)
}
