// internal/tracker/tracker_test.go
package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mcp-kcal-log/internal/daystore"
	"mcp-kcal-log/internal/estimator"
	"mcp-kcal-log/internal/models"
	"mcp-kcal-log/internal/profile"
	"mcp-kcal-log/internal/storage"
	"mcp-kcal-log/internal/tracker"
)

type fakeEstimator struct {
	mu     sync.Mutex
	calls  int
	est    estimator.Estimate
	err    error
	pingOK bool
	keys   []string
}

func (f *fakeEstimator) Estimate(ctx context.Context, food string) (estimator.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.est, f.err
}

func (f *fakeEstimator) Ping(ctx context.Context) (bool, error) {
	return f.pingOK, f.err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	tracker  *tracker.Tracker
	days     *daystore.Store
	profiles *profile.Store
	est      *fakeEstimator
	clock    *clock
}

func newFixture(t *testing.T, withKey bool) *fixture {
	t.Helper()
	kv, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "kcal.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	profiles, err := profile.NewStore(kv)
	if err != nil {
		t.Fatal(err)
	}
	if withKey {
		p := models.DefaultProfile()
		p.APIKey = "github_pat_test"
		if _, err := profiles.Save(p); err != nil {
			t.Fatal(err)
		}
	}

	f := &fixture{
		days:     daystore.New(kv),
		profiles: profiles,
		est:      &fakeEstimator{est: estimator.Estimate{Calories: 450, Protein: 25}},
		clock:    &clock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
	}
	factory := func(apiKey, model string) tracker.Estimator {
		f.est.mu.Lock()
		f.est.keys = append(f.est.keys, apiKey)
		f.est.mu.Unlock()
		return f.est
	}
	f.tracker = tracker.New(f.days, profiles, factory,
		tracker.WithClock(f.clock.Now),
		tracker.WithLocation(time.UTC),
	)
	return f
}

func TestAddFoodByDescription(t *testing.T) {
	f := newFixture(t, true)

	entry, err := f.tracker.AddFoodByDescription(context.Background(), "  chicken biryani ")
	if err != nil {
		t.Fatalf("AddFoodByDescription: %v", err)
	}
	if entry.Name != "chicken biryani" || entry.Calories != 450 || entry.Protein != 25 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if !entry.CreatedAt.Equal(f.clock.Now()) {
		t.Errorf("CreatedAt = %v, want %v", entry.CreatedAt, f.clock.Now())
	}

	entries, err := f.days.CurrentEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != entry.ID {
		t.Fatalf("stored entries = %+v", entries)
	}
	if date, _ := f.days.CurrentDateKey(); date != "2024-01-01" {
		t.Errorf("current date = %q, want 2024-01-01", date)
	}
	if st := f.tracker.State(); st.Loading || st.LastError != "" {
		t.Errorf("state after success = %+v", st)
	}
	if f.est.keys[0] != "github_pat_test" {
		t.Errorf("factory key = %q", f.est.keys[0])
	}
}

func TestAddFoodWithoutKeySkipsEstimator(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.tracker.AddFoodByDescription(context.Background(), "rice")
	if !errors.Is(err, estimator.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if f.est.calls != 0 {
		t.Errorf("estimator called %d times, want 0", f.est.calls)
	}
	if st := f.tracker.State(); st.LastError == "" || st.Loading {
		t.Errorf("state = %+v, want error and not loading", st)
	}
	entries, _ := f.days.CurrentEntries()
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestAddFoodEstimationErrorCreatesNothing(t *testing.T) {
	for _, cause := range []error{
		estimator.ErrRequestFailed,
		estimator.ErrEmptyResponse,
		estimator.ErrParseFailed,
		estimator.ErrOutOfRange,
	} {
		t.Run(estimator.Kind(cause), func(t *testing.T) {
			f := newFixture(t, true)
			f.est.err = fmt.Errorf("%w: test", cause)

			_, err := f.tracker.AddFoodByDescription(context.Background(), "rice")
			if !errors.Is(err, cause) {
				t.Fatalf("err = %v, want %v", err, cause)
			}
			entries, _ := f.days.CurrentEntries()
			if len(entries) != 0 {
				t.Errorf("entries = %d, want 0", len(entries))
			}
			st := f.tracker.State()
			if st.Loading {
				t.Error("loading should be cleared")
			}
			if st.LastError == "" {
				t.Error("expected a user-facing error")
			}
		})
	}
}

func TestErrorClearsAfterTTL(t *testing.T) {
	f := newFixture(t, false)
	_, _ = f.tracker.AddFoodByDescription(context.Background(), "rice")

	f.clock.Advance(2 * time.Second)
	if f.tracker.State().LastError == "" {
		t.Fatal("error cleared too early")
	}
	f.clock.Advance(time.Second)
	if msg := f.tracker.State().LastError; msg != "" {
		t.Errorf("error still set after TTL: %q", msg)
	}
}

func TestClearError(t *testing.T) {
	f := newFixture(t, false)
	_, _ = f.tracker.AddFoodByDescription(context.Background(), "rice")
	f.tracker.ClearError()
	if msg := f.tracker.State().LastError; msg != "" {
		t.Errorf("LastError = %q after ClearError", msg)
	}
}

func TestOnAppBecomesActiveRollsOver(t *testing.T) {
	f := newFixture(t, true)
	if _, err := f.tracker.AddFoodByDescription(context.Background(), "rice"); err != nil {
		t.Fatal(err)
	}
	if f.tracker.OnAppBecomesActive() {
		t.Fatal("same-day activation should not roll over")
	}

	f.clock.Advance(24 * time.Hour)
	if !f.tracker.OnAppBecomesActive() {
		t.Fatal("next-day activation should roll over")
	}
	history, err := f.tracker.History(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Date != "2024-01-01" || history[0].TotalCalories != 450 {
		t.Errorf("history = %+v", history)
	}
	summary, err := f.tracker.TodaySummary()
	if err != nil {
		t.Fatal(err)
	}
	if summary.Date != "2024-01-02" || len(summary.Entries) != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestTodayUsesLocation(t *testing.T) {
	f := newFixture(t, true)
	tz := time.FixedZone("UTC+10", 10*60*60)
	tr := tracker.New(f.days, f.profiles, nil,
		tracker.WithClock(func() time.Time { return time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC) }),
		tracker.WithLocation(tz),
	)
	if got := tr.Today(); got != "2024-01-02" {
		t.Errorf("Today() = %q, want 2024-01-02", got)
	}
}

func TestRemoveFoodEntryIsIdempotent(t *testing.T) {
	f := newFixture(t, true)
	entry, err := f.tracker.AddFoodByDescription(context.Background(), "rice")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.tracker.RemoveFoodEntry("nope"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if err := f.tracker.RemoveFoodEntry(entry.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.tracker.RemoveFoodEntry(entry.ID); err != nil {
		t.Fatal(err)
	}
	entries, _ := f.days.CurrentEntries()
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t, false)

	p := models.DefaultProfile()
	p.WeightKg = 68.2
	p.TargetCalories = 1800
	saved, err := f.tracker.UpdateProfile(p)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if saved.TargetProtein != 68 {
		t.Errorf("TargetProtein = %d, want 68", saved.TargetProtein)
	}
	if got := f.tracker.Profile(); got.TargetCalories != 1800 || got.TargetProtein != 68 {
		t.Errorf("Profile() = %+v", got)
	}
	if done, _ := f.days.FirstLaunchDone(); !done {
		t.Error("first save should complete first launch")
	}
}

func TestTestConnection(t *testing.T) {
	f := newFixture(t, false)
	if got := f.tracker.TestConnection(context.Background()); got != "Set GitHub token first" {
		t.Errorf("without key = %q", got)
	}

	f = newFixture(t, true)
	f.est.pingOK = true
	if got := f.tracker.TestConnection(context.Background()); got != "AI reachable" {
		t.Errorf("ping ok = %q", got)
	}
	f.est.pingOK = false
	if got := f.tracker.TestConnection(context.Background()); got != "AI test failed" {
		t.Errorf("ping false = %q", got)
	}
	f.est.err = estimator.ErrRequestFailed
	if got := f.tracker.TestConnection(context.Background()); got == "AI test failed" || got == "AI reachable" {
		t.Errorf("ping error = %q", got)
	}
}

func TestHistoryLimit(t *testing.T) {
	f := newFixture(t, true)
	for i := 0; i < 3; i++ {
		if _, err := f.tracker.AddFoodByDescription(context.Background(), "rice"); err != nil {
			t.Fatal(err)
		}
		f.clock.Advance(24 * time.Hour)
		f.tracker.OnAppBecomesActive()
	}
	history, err := f.tracker.History(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].Date != "2024-01-03" {
		t.Errorf("history = %+v", history)
	}
}

func TestAddFoodAfterMidnightArchivesPreviousDay(t *testing.T) {
	f := newFixture(t, true)
	if _, err := f.tracker.AddFoodByDescription(context.Background(), "rice"); err != nil {
		t.Fatal(err)
	}

	// No activation between the two adds, as with a long-running server.
	f.clock.Advance(16 * time.Hour)
	if _, err := f.tracker.AddFoodByDescription(context.Background(), "eggs"); err != nil {
		t.Fatal(err)
	}

	history, err := f.tracker.History(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Date != "2024-01-01" || len(history[0].Entries) != 1 {
		t.Fatalf("history = %+v", history)
	}
	entries, _ := f.days.CurrentEntries()
	if len(entries) != 1 || entries[0].Name != "eggs" {
		t.Errorf("current entries = %+v", entries)
	}
	if date, _ := f.days.CurrentDateKey(); date != "2024-01-02" {
		t.Errorf("current date = %q, want 2024-01-02", date)
	}
	if f.tracker.OnAppBecomesActive() {
		t.Error("nothing should be left to roll over")
	}
}

func TestRemoveFoodEntryRollsOverFirst(t *testing.T) {
	f := newFixture(t, true)
	entry, err := f.tracker.AddFoodByDescription(context.Background(), "rice")
	if err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(24 * time.Hour)
	if err := f.tracker.RemoveFoodEntry(entry.ID); err != nil {
		t.Fatal(err)
	}
	history, _ := f.tracker.History(0)
	if len(history) != 1 || len(history[0].Entries) != 1 || history[0].Entries[0].ID != entry.ID {
		t.Errorf("history = %+v", history)
	}
}

func TestTodaySummaryHidesStaleDay(t *testing.T) {
	f := newFixture(t, true)
	if _, err := f.tracker.AddFoodByDescription(context.Background(), "rice"); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(24 * time.Hour)
	summary, err := f.tracker.TodaySummary()
	if err != nil {
		t.Fatal(err)
	}
	if summary.Date != "2024-01-02" || len(summary.Entries) != 0 || summary.TotalCalories != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.RemainingCalories != summary.TargetCalories {
		t.Errorf("remaining = %d, want %d", summary.RemainingCalories, summary.TargetCalories)
	}
	// Reading does not archive.
	if history, _ := f.tracker.History(0); len(history) != 0 {
		t.Errorf("history = %+v", history)
	}
}
