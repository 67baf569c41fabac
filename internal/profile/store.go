// internal/profile/store.go

// Package profile keeps the singleton user profile: one durable copy in the
// key/value store and one cached in memory, updated together on Save.
package profile

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"mcp-kcal-log/internal/models"
	"mcp-kcal-log/internal/storage"
)

const (
	KeyGender         = "gender"
	KeyHeightCm       = "height_cm"
	KeyWeightKg       = "weight_kg"
	KeyTargetCalories = "target_calories"
	KeyTargetProtein  = "target_protein"
	KeyAPIKey         = "api_key"
	KeyModel          = "ai_model"
)

// KV is the subset of the durable store the profile needs.
type KV interface {
	Snapshot() (*storage.Prefs, error)
	Edit(fn func(p *storage.Prefs) error) error
}

type Store struct {
	kv KV

	mu     sync.RWMutex
	cached models.UserProfile
	subs   map[int]chan models.UserProfile
	nextID int
}

func NewStore(kv KV) (*Store, error) {
	s := &Store{kv: kv, subs: make(map[int]chan models.UserProfile)}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Decode reads a profile out of p, filling gaps with the defaults.
func Decode(p *storage.Prefs) models.UserProfile {
	def := models.DefaultProfile()

	gender, err := models.ParseGender(p.String(KeyGender, string(def.Gender)))
	if err != nil {
		gender = def.Gender
	}
	weight := p.Float(KeyWeightKg, def.WeightKg)

	return models.UserProfile{
		Gender:         gender,
		HeightCm:       p.Int(KeyHeightCm, def.HeightCm),
		WeightKg:       weight,
		TargetCalories: p.Int(KeyTargetCalories, def.TargetCalories),
		TargetProtein:  p.Int(KeyTargetProtein, models.ProteinTarget(weight)),
		APIKey:         p.String(KeyAPIKey, ""),
		Model:          p.String(KeyModel, def.Model),
	}
}

func encode(p *storage.Prefs, prof models.UserProfile) {
	p.Set(KeyGender, string(prof.Gender))
	p.SetInt(KeyHeightCm, prof.HeightCm)
	p.SetFloat(KeyWeightKg, prof.WeightKg)
	p.SetInt(KeyTargetCalories, prof.TargetCalories)
	p.SetInt(KeyTargetProtein, prof.TargetProtein)
	p.Set(KeyAPIKey, prof.APIKey)
	p.Set(KeyModel, prof.Model)
}

// Get returns the cached profile.
func (s *Store) Get() models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached
}

// Reload replaces the cached copy with what is currently stored.
func (s *Store) Reload() error {
	p, err := s.kv.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	prof := Decode(p)

	s.mu.Lock()
	s.cached = prof
	s.mu.Unlock()
	return nil
}

// Save derives the protein target from the weight, validates and persists
// the profile. The cache is only updated once the write has committed.
func (s *Store) Save(prof models.UserProfile) (models.UserProfile, error) {
	prof.TargetProtein = models.ProteinTarget(prof.WeightKg)
	prof.APIKey = strings.TrimSpace(prof.APIKey)
	prof.Model = strings.TrimSpace(prof.Model)
	if prof.Model == "" {
		prof.Model = models.DefaultModel
	}
	if err := prof.Validate(); err != nil {
		return models.UserProfile{}, fmt.Errorf("invalid profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Edit(func(p *storage.Prefs) error {
		encode(p, prof)
		return nil
	}); err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to save profile: %w", err)
	}
	s.cached = prof

	keyState := "EMPTY"
	if prof.HasAPIKey() {
		keyState = "SET"
	}
	log.Printf("profile: saved (api key %s, model %s, target protein %dg)", keyState, prof.Model, prof.TargetProtein)

	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- prof
	}
	return prof, nil
}

// Subscribe delivers the latest profile after each Save. Only the most recent
// value is buffered; slow readers skip intermediate saves.
func (s *Store) Subscribe() (<-chan models.UserProfile, func()) {
	ch := make(chan models.UserProfile, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}
