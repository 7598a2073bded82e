package rules

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/calebmd/radpace/internal/model"
)

// Store owns the active rule generation. Reloads build a complete new
// RuleSet and swap it in with a single atomic pointer store, so a
// classification call in flight keeps the generation it already holds and
// never sees a half-updated rule set. A failed reload leaves the previous
// generation active.
type Store struct {
	current    atomic.Pointer[model.RuleSet]
	v          *viper.Viper
	path       string
	generation atomic.Int64
}

// NewStore loads the rules file at path and publishes the first generation.
func NewStore(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)

	s := &Store{v: v, path: path}
	rs, err := load(v, s.generation.Add(1))
	if err != nil {
		return nil, err
	}
	s.current.Store(rs)

	slog.Info("Loaded classification rules",
		"path", path,
		"rules", rs.Len(),
		"generation", rs.Generation())
	return s, nil
}

// Current returns the active generation. The returned RuleSet is immutable.
func (s *Store) Current() *model.RuleSet {
	return s.current.Load()
}

// Reload re-reads the rules file and atomically swaps in the new generation.
// On failure the previous generation stays active and classification
// continues uninterrupted.
func (s *Store) Reload() error {
	rs, err := load(s.v, s.generation.Add(1))
	if err != nil {
		return fmt.Errorf("rules reload failed, keeping generation %d: %w",
			s.Current().Generation(), err)
	}
	s.current.Store(rs)

	slog.Info("Reloaded classification rules",
		"path", s.path,
		"rules", rs.Len(),
		"generation", rs.Generation())
	return nil
}

// Watch reloads the rules whenever the file changes on disk. Reload
// failures are logged and the previous generation stays active.
func (s *Store) Watch() {
	s.v.OnConfigChange(func(_ fsnotify.Event) {
		if err := s.Reload(); err != nil {
			slog.Error("Rules file changed but reload failed", "error", err)
		}
	})
	s.v.WatchConfig()
}
