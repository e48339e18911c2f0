package persistence

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ctlm-ground/ctlm-go/pkg/catalog"
	"github.com/ctlm-ground/ctlm-go/pkg/defparse"
)

const healthDefs = `
target: INST
telemetry:
  - name: HEALTH
    items:
      - { name: CCSDS_ID, bitSize: 8, dataType: UINT, id: 1 }
      - name: TEMP1
        bitSize: 16
        dataType: INT
        limits:
          - { set: DEFAULT, redLow: -80, yellowLow: -70, yellowHigh: 60, redHigh: 80 }
          - { set: TVAC, redLow: -110, yellowLow: -90, yellowHigh: 90, redHigh: 110 }
      - name: MODE
        bitSize: 8
        dataType: UINT
        states:
          - { label: SAFE, value: 0, color: GREEN }
          - { label: FAULT, value: 1, color: RED }
`

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	def, err := defparse.ParseTargetDef([]byte(healthDefs))
	if err != nil {
		t.Fatalf("ParseTargetDef() error = %v", err)
	}
	cat := catalog.New(catalog.Config{})
	if _, err := defparse.Apply(cat, def); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	return cat
}

func TestLimitsStateStore(t *testing.T) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		dir := t.TempDir()
		store := NewLimitsStateStore(filepath.Join(dir, "sub", "limits.json"))

		state := &LimitsState{
			LimitsSet: "TVAC",
			Items: []ItemLimits{
				{Target: "INST", Packet: "HEALTH", Item: "TEMP1", Enabled: false, Persistence: 3},
			},
		}
		if err := store.Save(state); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Version != StateVersion {
			t.Errorf("Version = %d, want %d", got.Version, StateVersion)
		}
		if got.SavedAt.IsZero() {
			t.Error("SavedAt not set")
		}
		if got.LimitsSet != "TVAC" {
			t.Errorf("LimitsSet = %q, want TVAC", got.LimitsSet)
		}
		if len(got.Items) != 1 || got.Items[0].Persistence != 3 || got.Items[0].Enabled {
			t.Errorf("Items = %+v", got.Items)
		}
	})

	t.Run("KeepsSavedAt", func(t *testing.T) {
		store := NewLimitsStateStore(filepath.Join(t.TempDir(), "limits.json"))
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		if err := store.Save(&LimitsState{SavedAt: at}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !got.SavedAt.Equal(at) {
			t.Errorf("SavedAt = %v, want %v", got.SavedAt, at)
		}
	})

	t.Run("LoadNonExistent", func(t *testing.T) {
		store := NewLimitsStateStore(filepath.Join(t.TempDir(), "nonexistent.json"))

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %v, want nil for non-existent file", got)
		}
	})

	t.Run("LoadCorrupt", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "limits.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := NewLimitsStateStore(path).Load()
		if err == nil || !strings.Contains(err.Error(), "parsing") {
			t.Errorf("Load() error = %v, want parsing error", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		store := NewLimitsStateStore(filepath.Join(t.TempDir(), "limits.json"))
		_ = store.Save(&LimitsState{LimitsSet: "DEFAULT"})

		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() after Clear() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() after Clear() = %v, want nil", got)
		}
		if err := store.Clear(); err != nil {
			t.Errorf("second Clear() error = %v", err)
		}
	})
}

func TestCaptureAndRestore(t *testing.T) {
	src := newCatalog(t)
	if err := src.Telemetry.SetLimitsSet("tvac"); err != nil {
		t.Fatal(err)
	}
	if err := src.Telemetry.DisableLimits("INST", "HEALTH", "MODE"); err != nil {
		t.Fatal(err)
	}
	if err := src.Telemetry.SetLimitsPersistence("INST", "HEALTH", "TEMP1", 4); err != nil {
		t.Fatal(err)
	}

	state := Capture(src)
	if state.LimitsSet != "TVAC" {
		t.Errorf("LimitsSet = %q, want TVAC", state.LimitsSet)
	}
	if len(state.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(state.Items))
	}

	store := NewLimitsStateStore(filepath.Join(t.TempDir(), "limits.json"))
	if err := store.Save(state); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}

	dst := newCatalog(t)
	warnings, err := Restore(dst, loaded)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if dst.Telemetry.LimitsSet() != "TVAC" {
		t.Errorf("restored LimitsSet = %q", dst.Telemetry.LimitsSet())
	}
	for _, s := range dst.Telemetry.LimitsSettings() {
		switch s.Item {
		case "TEMP1":
			if !s.Enabled || s.Persistence != 4 {
				t.Errorf("TEMP1 = %+v", s)
			}
		case "MODE":
			if s.Enabled {
				t.Errorf("MODE still enabled")
			}
		}
	}
}

func TestRestore_StaleEntries(t *testing.T) {
	cat := newCatalog(t)
	warnings, err := Restore(cat, &LimitsState{
		Version:   StateVersion,
		LimitsSet: "FLIGHT",
		Items: []ItemLimits{
			{Target: "INST", Packet: "HEALTH", Item: "GONE", Enabled: true},
			{Target: "INST", Packet: "HEALTH", Item: "TEMP1", Enabled: true, Persistence: 2},
		},
	})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(warnings) != 2 {
		t.Errorf("warnings = %v, want 2", warnings)
	}
	if cat.Telemetry.LimitsSet() != "DEFAULT" {
		t.Errorf("LimitsSet = %q, want DEFAULT", cat.Telemetry.LimitsSet())
	}
}

func TestRestore_NewerVersion(t *testing.T) {
	if _, err := Restore(newCatalog(t), &LimitsState{Version: StateVersion + 1}); err == nil {
		t.Error("Restore() accepted a newer state version")
	}
	if w, err := Restore(newCatalog(t), nil); err != nil || w != nil {
		t.Errorf("Restore(nil) = %v, %v", w, err)
	}
}
