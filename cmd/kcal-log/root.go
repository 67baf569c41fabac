// cmd/kcal-log/root.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcp-kcal-log/internal/config"
	"mcp-kcal-log/internal/daystore"
	"mcp-kcal-log/internal/estimator"
	"mcp-kcal-log/internal/profile"
	"mcp-kcal-log/internal/storage"
	"mcp-kcal-log/internal/tracker"
)

var (
	dbPath  string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "kcal-log",
	Short: "kcal-log logs food and estimates calories and protein with GitHub Models",
	Long: `kcal-log keeps today's food log and a 30 day history in a local SQLite
database. Food descriptions are turned into calorie and protein estimates by
a GitHub Models chat completion. Run "kcal-log serve" to expose the same
operations as MCP tools over HTTP.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides KCAL_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file to load")
}

type app struct {
	cfg     config.Config
	kv      *storage.SQLiteStorage
	days    *daystore.Store
	tracker *tracker.Tracker
}

func (a *app) Close() error {
	return a.kv.Close()
}

// openApp loads config and wires storage, profile, day store and tracker.
// When activate is set the rollover check runs before returning.
func openApp(activate bool) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	kv, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	profiles, err := profile.NewStore(kv)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	days := daystore.New(kv)
	t := tracker.New(days, profiles,
		tracker.ClientFactory(estimator.WithEndpoint(cfg.Endpoint)),
		tracker.WithLocation(loc),
		tracker.WithErrorTTL(cfg.ErrorTTL),
	)
	if activate {
		t.OnAppBecomesActive()
	}
	return &app{cfg: cfg, kv: kv, days: days, tracker: t}, nil
}

func withApp(activate bool, fn func(a *app) error) error {
	a, err := openApp(activate)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
