package ctlm_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctlm-ground/ctlm-go/pkg/catalog"
	"github.com/ctlm-ground/ctlm-go/pkg/defparse"
	"github.com/ctlm-ground/ctlm-go/pkg/log"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
	"github.com/ctlm-ground/ctlm-go/pkg/persistence"
	"github.com/ctlm-ground/ctlm-go/pkg/wire"
)

const instDefs = `
version: "1.0"
target: INST
commands:
  - name: COLLECT
    items:
      - { name: OPCODE, bitSize: 8, dataType: UINT, id: 1 }
      - { name: DURATION, bitSize: 16, dataType: UINT, default: 1, min: 0, max: 100 }
  - name: ABORT
    hazardous: true
    items:
      - { name: OPCODE, bitSize: 8, dataType: UINT, id: 2 }
telemetry:
  - name: HEALTH
    items:
      - { name: ID, bitSize: 8, dataType: UINT, id: 1 }
      - name: TEMP1
        bitSize: 16
        dataType: INT
        units: C
        readConversion: { type: polynomial, coeffs: [0, 0.5] }
        limits:
          - { redLow: -80, yellowLow: -70, yellowHigh: 60, redHigh: 80 }
          - { set: TVAC, redLow: -110, yellowLow: -90, yellowHigh: 90, redHigh: 110 }
`

func loadCatalog(t *testing.T, events log.Logger) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "inst.yaml"), []byte(instDefs), 0644); err != nil {
		t.Fatal(err)
	}
	cat, warnings, err := defparse.LoadCatalog(dir, catalog.Config{EventLogger: events})
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	return cat
}

// TestE2E_CaptureReplay builds a command, captures it together with raw
// telemetry and replays the capture into a fresh catalog.
func TestE2E_CaptureReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ground := loadCatalog(t, nil)
	cmd, err := ground.Commands.BuildCmd("INST", "COLLECT", map[string]any{"DURATION": 5}, true, false, true)
	if err != nil {
		t.Fatalf("BuildCmd failed: %v", err)
	}

	var capture bytes.Buffer
	w, err := wire.NewWriter(&capture, ground.SessionID(), "e2e")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	frames := []struct {
		kind wire.RecordKind
		data []byte
	}{
		{wire.KindCommand, cmd.Buffer()},
		{wire.KindTelemetry, []byte{0x01, 0x00, 0x28}}, // 20 C
		{wire.KindTelemetry, []byte{0x01, 0x00, 0xA0}}, // 80 C
		{wire.KindTelemetry, []byte{0x7F}},
	}
	for i, f := range frames {
		if _, err := w.Write(f.kind, "", "", start.Add(time.Duration(i)*time.Second), f.data); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	eventPath := filepath.Join(t.TempDir(), "events.cbor")
	fileLogger, err := log.NewFileLogger(eventPath)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	flight := loadCatalog(t, fileLogger)

	r, err := wire.NewReader(&capture)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.Header().SessionID != ground.SessionID() {
		t.Errorf("capture session = %q, want %q", r.Header().SessionID, ground.SessionID())
	}

	var commands []*packets.Packet
	unidentified := 0
	n, err := wire.Replay(context.Background(), r, func(rec *wire.Record) error {
		if rec.Kind == wire.KindCommand {
			p, ok := flight.Commands.Identify(rec.Data, nil, false)
			if !ok {
				return errors.New("command not identified")
			}
			commands = append(commands, p)
			return nil
		}
		p, ok, err := flight.Telemetry.IdentifyAndSetBuffer(rec.Data, nil, rec.Time)
		if err != nil {
			return err
		}
		if !ok {
			unidentified++
			return nil
		}
		return flight.Telemetry.CheckLimits(p.TargetName(), p.PacketName())
	})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if n != len(frames) {
		t.Errorf("replayed %d records, want %d", n, len(frames))
	}
	if unidentified != 1 {
		t.Errorf("unidentified = %d, want 1", unidentified)
	}

	if len(commands) != 1 || commands[0].PacketName() != "COLLECT" {
		t.Fatalf("commands = %v, want one COLLECT", commands)
	}
	if v, _ := commands[0].Read("DURATION", packets.Converted); v != uint64(5) {
		t.Errorf("DURATION = %v, want 5", v)
	}

	health, err := flight.Telemetry.Packet("INST", "HEALTH")
	if err != nil {
		t.Fatal(err)
	}
	if health.ReceivedCount != 2 {
		t.Errorf("ReceivedCount = %d, want 2", health.ReceivedCount)
	}
	if !health.ReceivedTime.Equal(start.Add(2 * time.Second)) {
		t.Errorf("ReceivedTime = %v", health.ReceivedTime)
	}
	v, err := flight.Telemetry.Value("INST", "HEALTH", "TEMP1", packets.Converted)
	if err != nil || v != 80.0 {
		t.Errorf("TEMP1 = %v (%v), want 80.0", v, err)
	}
	out := flight.Telemetry.OutOfLimits()
	if len(out) != 1 || out[0].State != packets.LimitsRedHigh {
		t.Errorf("OutOfLimits = %+v, want TEMP1 RED_HIGH", out)
	}

	if err := fileLogger.Close(); err != nil {
		t.Fatal(err)
	}
	category := log.CategoryLimits
	reader, err := log.NewFilteredReader(eventPath, log.Filter{Category: &category})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var states []string
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if ev.SessionID != flight.SessionID() {
			t.Errorf("event session = %q, want %q", ev.SessionID, flight.SessionID())
		}
		states = append(states, ev.Limits.OldState+">"+ev.Limits.NewState)
	}
	want := []string{">GREEN", "GREEN>RED_HIGH"}
	if len(states) != len(want) {
		t.Fatalf("limits events = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("limits event %d = %q, want %q", i, states[i], want[i])
		}
	}
}

// TestE2E_HazardousCommand checks that hazard detection and command
// building agree for a hazardous packet.
func TestE2E_HazardousCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cat := loadCatalog(t, nil)
	hazardous, _, err := cat.Commands.CmdHazardous("inst", "abort", nil)
	if err != nil || !hazardous {
		t.Fatalf("CmdHazardous = %v (%v), want true", hazardous, err)
	}
	cmd, err := cat.Commands.BuildCmd("INST", "ABORT", nil, true, false, true)
	if err != nil {
		t.Fatalf("BuildCmd failed: %v", err)
	}
	if ok, _ := catalog.CmdPktHazardous(cmd); !ok {
		t.Error("built ABORT should be hazardous")
	}

	if _, err := cat.Commands.BuildCmd("INST", "COLLECT", map[string]any{"DURATION": 101}, true, false, true); !errors.Is(err, packets.ErrRange) {
		t.Errorf("BuildCmd out of range error = %v, want ErrRange", err)
	}
}

// TestE2E_LimitsStateRestart saves the limits configuration and restores
// it into a catalog loaded from scratch.
func TestE2E_LimitsStateRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store := persistence.NewLimitsStateStore(filepath.Join(t.TempDir(), "state", "limits.json"))

	before := loadCatalog(t, nil)
	if err := before.Telemetry.SetLimitsSet("TVAC"); err != nil {
		t.Fatal(err)
	}
	if err := before.Telemetry.SetLimitsPersistence("INST", "HEALTH", "TEMP1", 3); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(persistence.Capture(before)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	after := loadCatalog(t, nil)
	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	warnings, err := persistence.Restore(after, state)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if got := after.Telemetry.LimitsSet(); got != "TVAC" {
		t.Errorf("LimitsSet = %q, want TVAC", got)
	}

	// 100 C is yellow in TVAC, reported from the third sample on.
	for i := 0; i < 3; i++ {
		if _, _, err := after.Telemetry.IdentifyAndSetBuffer([]byte{0x01, 0x00, 0xC8}, nil, time.Now()); err != nil {
			t.Fatal(err)
		}
		if err := after.Telemetry.CheckLimits("INST", "HEALTH"); err != nil {
			t.Fatal(err)
		}
		wantOut := i == 2
		if got := len(after.Telemetry.OutOfLimits()) == 1; got != wantOut {
			t.Errorf("sample %d: out of limits = %v, want %v", i+1, got, wantOut)
		}
	}
}
