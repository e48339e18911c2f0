package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func newJSONAdapter(buf *bytes.Buffer) *SlogAdapter {
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogAdapter(slog.New(handler))
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON output %q: %v", buf.String(), err)
	}
	return rec
}

func TestSlogAdapterLogsPacketEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := newJSONAdapter(&buf)

	ev := NewEvent(CategoryIdentify, DirectionIn)
	ev.Target = "INST"
	ev.Packet = "HEALTH"
	ev.PacketData = NewPacketEvent([]byte{1, 2, 3, 4})
	ev.PacketData.ReceivedCount = 3
	adapter.Log(ev)

	rec := decodeRecord(t, &buf)
	if rec["msg"] != "catalog" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["level"] != "DEBUG" {
		t.Errorf("level = %v", rec["level"])
	}
	if rec["category"] != "IDENTIFY" || rec["direction"] != "IN" {
		t.Errorf("category/direction = %v/%v", rec["category"], rec["direction"])
	}
	if rec["target"] != "INST" || rec["packet"] != "HEALTH" {
		t.Errorf("target/packet = %v/%v", rec["target"], rec["packet"])
	}
	if rec["size"] != float64(4) {
		t.Errorf("size = %v", rec["size"])
	}
	if rec["received_count"] != float64(3) {
		t.Errorf("received_count = %v", rec["received_count"])
	}
	if _, ok := rec["item"]; ok {
		t.Error("item should be omitted when empty")
	}
}

func TestSlogAdapterLogsCommandEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := newJSONAdapter(&buf)

	ev := NewEvent(CategoryCommand, DirectionOut)
	ev.Target = "INST"
	ev.Packet = "CLEAR"
	ev.Command = &CommandEvent{
		Output:               `cmd("INST CLEAR")`,
		Hazardous:            true,
		HazardousDescription: "Clears counters",
	}
	adapter.Log(ev)

	rec := decodeRecord(t, &buf)
	if rec["command"] != `cmd("INST CLEAR")` {
		t.Errorf("command = %v", rec["command"])
	}
	if rec["hazardous"] != true || rec["hazardous_description"] != "Clears counters" {
		t.Errorf("hazardous attrs = %v/%v", rec["hazardous"], rec["hazardous_description"])
	}
}

func TestSlogAdapterLogsLimitsEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := newJSONAdapter(&buf)

	ev := NewEvent(CategoryLimits, DirectionIn)
	ev.Target = "INST"
	ev.Packet = "HEALTH"
	ev.Item = "TEMP1"
	ev.Limits = &LimitsEvent{OldState: "GREEN", NewState: "YELLOW_HIGH", Value: 81.5}
	adapter.Log(ev)

	rec := decodeRecord(t, &buf)
	if rec["item"] != "TEMP1" {
		t.Errorf("item = %v", rec["item"])
	}
	if rec["old_state"] != "GREEN" || rec["new_state"] != "YELLOW_HIGH" {
		t.Errorf("states = %v/%v", rec["old_state"], rec["new_state"])
	}
	if rec["value"] != 81.5 {
		t.Errorf("value = %v", rec["value"])
	}
}

func TestSlogAdapterLogsErrorAtWarn(t *testing.T) {
	var buf bytes.Buffer
	adapter := newJSONAdapter(&buf)

	ev := NewEvent(CategoryError, DirectionIn)
	ev.Target = "INST"
	ev.Error = &ErrorEvent{Message: "overlap", Context: "add packet"}
	adapter.Log(ev)

	rec := decodeRecord(t, &buf)
	if rec["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", rec["level"])
	}
	if rec["error_msg"] != "overlap" || rec["error_context"] != "add packet" {
		t.Errorf("error attrs = %v/%v", rec["error_msg"], rec["error_context"])
	}
}
