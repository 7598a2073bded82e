package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/config"
	"github.com/calebmd/radpace/internal/rules"
	"github.com/calebmd/radpace/internal/storage"
	"github.com/calebmd/radpace/internal/tracker"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "radpace", "radpace.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError("Failed to open database", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, common.NewUserError("Failed to migrate database", err)
	}
	return store, nil
}

// initRules loads the classification rules file.
func initRules() (*rules.Store, error) {
	rulesPath := config.ExpandPath(viper.GetString("rules.path"))
	if rulesPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		rulesPath = filepath.Join(home, ".config", "radpace", "rules.yaml")
	}

	store, err := rules.NewStore(rulesPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Failed to load rules from %s", rulesPath), err)
	}
	return store, nil
}

// initTracker builds a tracker persisting through the given storage and
// resumes the active shift if one survives from a previous process.
func initTracker(ctx context.Context, store *storage.SQLiteStorage, ruleStore *rules.Store) (*tracker.Tracker, error) {
	policy, err := config.TrackingPolicy()
	if err != nil {
		return nil, err
	}

	tr := tracker.New(ruleStore, policy, storage.NewSink(store))

	active, err := store.GetActiveShift(ctx)
	switch {
	case err == nil:
		tr.Resume(active)
	case errors.Is(err, common.ErrNotFound):
		// NoShift state
	default:
		return nil, fmt.Errorf("failed to look up active shift: %w", err)
	}
	return tr, nil
}
