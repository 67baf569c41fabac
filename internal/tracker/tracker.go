// internal/tracker/tracker.go

// Package tracker orchestrates the user-facing operations: logging food by
// description, removing entries, saving settings and triggering rollover.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mcp-kcal-log/internal/daystore"
	"mcp-kcal-log/internal/estimator"
	"mcp-kcal-log/internal/models"
	"mcp-kcal-log/internal/profile"
)

const DefaultErrorTTL = 3 * time.Second

// Estimator turns a food description into calories and protein.
type Estimator interface {
	Estimate(ctx context.Context, food string) (estimator.Estimate, error)
	Ping(ctx context.Context) (bool, error)
}

// EstimatorFactory builds an estimator for the credential and model saved
// in the profile at the time of the call.
type EstimatorFactory func(apiKey, model string) Estimator

// State is the transient, non-persisted request state.
type State struct {
	Loading   bool   `json:"loading"`
	LastError string `json:"last_error,omitempty"`
}

type Tracker struct {
	days       *daystore.Store
	profiles   *profile.Store
	estimators EstimatorFactory
	now        func() time.Time
	loc        *time.Location
	errorTTL   time.Duration

	mu         sync.Mutex
	loading    bool
	lastError  string
	errorSetAt time.Time
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the zone whose calendar date keys the working set.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

func WithErrorTTL(d time.Duration) Option {
	return func(t *Tracker) { t.errorTTL = d }
}

func New(days *daystore.Store, profiles *profile.Store, estimators EstimatorFactory, opts ...Option) *Tracker {
	t := &Tracker{
		days:       days,
		profiles:   profiles,
		estimators: estimators,
		now:        time.Now,
		loc:        time.Local,
		errorTTL:   DefaultErrorTTL,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Today returns the date key for the current instant.
func (t *Tracker) Today() string {
	return t.now().In(t.loc).Format("2006-01-02")
}

// OnAppBecomesActive runs the rollover check. A failure is logged and left
// for the next activation or tick.
func (t *Tracker) OnAppBecomesActive() bool {
	today := t.Today()
	rolled, err := t.days.CheckAndRollover(today)
	if err != nil {
		log.Printf("tracker: rollover check for %s failed: %v", today, err)
		return false
	}
	return rolled
}

// AddFoodByDescription estimates food and logs it for today.
func (t *Tracker) AddFoodByDescription(ctx context.Context, text string) (models.FoodEntry, error) {
	name := strings.TrimSpace(text)

	prof := t.profiles.Get()
	if !prof.HasAPIKey() {
		t.setError("Please set your GitHub token in settings")
		return models.FoodEntry{}, fmt.Errorf("%w: no GitHub token in profile", estimator.ErrNotConfigured)
	}
	if name == "" {
		t.setError("Please enter a food description")
		return models.FoodEntry{}, fmt.Errorf("%w: empty food description", estimator.ErrNotConfigured)
	}

	t.mu.Lock()
	t.loading = true
	t.lastError = ""
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.loading = false
		t.mu.Unlock()
	}()

	// The network call runs before, and outside, the day store's lock.
	est, err := t.estimators(prof.APIKey, prof.Model).Estimate(ctx, name)
	if err != nil {
		log.Printf("tracker: estimate for %q failed: %v", name, err)
		t.setError(userMessage(err))
		return models.FoodEntry{}, err
	}

	now := t.now()
	entry := models.FoodEntry{
		ID:        uuid.NewString(),
		Name:      name,
		Calories:  est.Calories,
		Protein:   est.Protein,
		CreatedAt: now,
	}
	today := now.In(t.loc).Format("2006-01-02")
	// AddEntry re-anchors the date key, so a working set still under an
	// earlier date is archived first instead of merging into today.
	if _, err := t.days.CheckAndRollover(today); err != nil {
		log.Printf("tracker: %v", err)
		t.setError("Could not save entry. Please try again.")
		return models.FoodEntry{}, err
	}
	if err := t.days.AddEntry(entry, today); err != nil {
		log.Printf("tracker: %v", err)
		t.setError("Could not save entry. Please try again.")
		return models.FoodEntry{}, err
	}
	return entry, nil
}

// RemoveFoodEntry removes from today's set. An entry from a day that has
// since ended is already archived and is left alone.
func (t *Tracker) RemoveFoodEntry(id string) error {
	t.OnAppBecomesActive()
	return t.days.RemoveEntry(id)
}

// UpdateProfile saves settings. The first successful save also completes
// first launch.
func (t *Tracker) UpdateProfile(p models.UserProfile) (models.UserProfile, error) {
	saved, err := t.profiles.Save(p)
	if err != nil {
		return models.UserProfile{}, err
	}
	done, err := t.days.FirstLaunchDone()
	if err == nil && !done {
		err = t.days.CompleteFirstLaunch()
	}
	if err != nil {
		log.Printf("tracker: first launch flag: %v", err)
	}
	return saved, nil
}

func (t *Tracker) Profile() models.UserProfile {
	return t.profiles.Get()
}

// TestConnection is the settings diagnostic. It returns a status line.
func (t *Tracker) TestConnection(ctx context.Context) string {
	prof := t.profiles.Get()
	if !prof.HasAPIKey() {
		return "Set GitHub token first"
	}
	ok, err := t.estimators(prof.APIKey, prof.Model).Ping(ctx)
	switch {
	case err != nil:
		return "AI test error: " + err.Error()
	case ok:
		return "AI reachable"
	default:
		return "AI test failed"
	}
}

// TodaySummary reports today's entries with totals against the targets.
// It does not roll over; a working set stored under an earlier date is not
// today's and reads as empty until the next rollover archives it.
func (t *Tracker) TodaySummary() (models.DaySummary, error) {
	today := t.Today()
	date, err := t.days.CurrentDateKey()
	if err != nil {
		return models.DaySummary{}, err
	}
	var entries []models.FoodEntry
	if date == "" || date == today {
		if entries, err = t.days.CurrentEntries(); err != nil {
			return models.DaySummary{}, err
		}
	}
	return models.NewDaySummary(today, entries, t.profiles.Get()), nil
}

// History returns up to limit archived days, newest first. A limit of zero
// or less returns all of them.
func (t *Tracker) History(limit int) ([]models.DayRecord, error) {
	history, err := t.days.History()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastError != "" && t.errorTTL > 0 && t.now().Sub(t.errorSetAt) >= t.errorTTL {
		t.lastError = ""
	}
	return State{Loading: t.loading, LastError: t.lastError}
}

func (t *Tracker) ClearError() {
	t.mu.Lock()
	t.lastError = ""
	t.mu.Unlock()
}

func (t *Tracker) setError(msg string) {
	t.mu.Lock()
	t.lastError = msg
	t.errorSetAt = t.now()
	t.mu.Unlock()
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, estimator.ErrNotConfigured):
		return "Please set a valid GitHub token (github_pat_...) in settings"
	case errors.Is(err, estimator.ErrRequestFailed):
		return "Could not reach the AI service. Please try again."
	case errors.Is(err, estimator.ErrEmptyResponse), errors.Is(err, estimator.ErrParseFailed):
		return "Could not estimate calories. Try describing the food differently."
	case errors.Is(err, estimator.ErrOutOfRange):
		return "The estimate looked wrong and was discarded. Please try again."
	default:
		return "Could not estimate calories. Check your GitHub token or try again."
	}
}

// ClientFactory builds GitHub Models clients sharing opts.
func ClientFactory(opts ...estimator.Option) EstimatorFactory {
	return func(apiKey, model string) Estimator {
		return estimator.NewClient(apiKey, model, opts...)
	}
}
