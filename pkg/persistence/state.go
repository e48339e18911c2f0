package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ctlm-ground/ctlm-go/pkg/catalog"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// LimitsState is the saved limits configuration of a catalog.
type LimitsState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// LimitsSet is the limits set selected for checking.
	LimitsSet string `json:"limits_set,omitempty"`

	// Items holds the monitoring settings of each limits item.
	Items []ItemLimits `json:"items,omitempty"`
}

// ItemLimits is the saved monitoring setting of one telemetry item.
type ItemLimits struct {
	Target      string `json:"target"`
	Packet      string `json:"packet"`
	Item        string `json:"item"`
	Enabled     bool   `json:"enabled"`
	Persistence int    `json:"persistence,omitempty"`
}

// Capture reads the current limits configuration of cat.
func Capture(cat *catalog.Catalog) *LimitsState {
	settings := cat.Telemetry.LimitsSettings()
	state := &LimitsState{
		Version:   StateVersion,
		LimitsSet: cat.Telemetry.LimitsSet(),
		Items:     make([]ItemLimits, 0, len(settings)),
	}
	for _, s := range settings {
		state.Items = append(state.Items, ItemLimits{
			Target:      s.Target,
			Packet:      s.Packet,
			Item:        s.Item,
			Enabled:     s.Enabled,
			Persistence: s.Persistence,
		})
	}
	return state
}

// Restore applies a saved configuration to cat. Entries naming items or
// limits sets the definitions no longer have are skipped and reported as
// warnings.
func Restore(cat *catalog.Catalog, state *LimitsState) ([]string, error) {
	if state == nil {
		return nil, nil
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("unsupported state version %d", state.Version)
	}

	var warnings []string
	if state.LimitsSet != "" {
		if err := cat.Telemetry.SetLimitsSet(state.LimitsSet); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	for _, it := range state.Items {
		var err error
		if it.Enabled {
			err = cat.Telemetry.EnableLimits(it.Target, it.Packet, it.Item)
		} else {
			err = cat.Telemetry.DisableLimits(it.Target, it.Packet, it.Item)
		}
		if err == nil && it.Persistence > 0 {
			err = cat.Telemetry.SetLimitsPersistence(it.Target, it.Packet, it.Item, it.Persistence)
		}
		if err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	return warnings, nil
}

// LimitsStateStore manages persistence of limits state to a JSON file.
type LimitsStateStore struct {
	mu   sync.Mutex
	path string
}

// NewLimitsStateStore creates a new limits state store.
func NewLimitsStateStore(path string) *LimitsStateStore {
	return &LimitsStateStore{path: path}
}

// Path returns the state file location.
func (s *LimitsStateStore) Path() string { return s.path }

// Save persists the limits state to disk.
func (s *LimitsStateStore) Save(state *LimitsState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// Load reads the limits state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *LimitsStateStore) Load() (*LimitsState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &LimitsState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return state, nil
}

// Clear removes the state file.
func (s *LimitsStateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
