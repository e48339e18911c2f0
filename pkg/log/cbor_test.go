package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

func TestEventCBORRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 45, 123456789, time.UTC)
	event := Event{
		Timestamp: ts,
		ID:        "6f1c5a8e-3d8e-4c2b-9c56-2f0e3b0c9a11",
		SessionID: "session-1",
		Direction: DirectionIn,
		Category:  CategoryIdentify,
		Target:    "INST",
		Packet:    "HEALTH_STATUS",
		PacketData: &PacketEvent{
			Size:          4,
			Data:          []byte{0x01, 0x02, 0x03, 0x04},
			ReceivedCount: 7,
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", decoded.Timestamp, ts)
	}
	if decoded.ID != event.ID || decoded.SessionID != event.SessionID {
		t.Errorf("IDs mismatch: %+v", decoded)
	}
	if decoded.Target != "INST" || decoded.Packet != "HEALTH_STATUS" {
		t.Errorf("names mismatch: %s %s", decoded.Target, decoded.Packet)
	}
	if decoded.PacketData == nil {
		t.Fatal("PacketData is nil")
	}
	if !bytes.Equal(decoded.PacketData.Data, event.PacketData.Data) {
		t.Errorf("Data = %x", decoded.PacketData.Data)
	}
	if decoded.PacketData.ReceivedCount != 7 {
		t.Errorf("ReceivedCount = %d, want 7", decoded.PacketData.ReceivedCount)
	}
	if decoded.Command != nil || decoded.Limits != nil || decoded.Error != nil {
		t.Error("unexpected payload decoded")
	}
}

func TestCommandEventCBORRoundTrip(t *testing.T) {
	event := NewEvent(CategoryCommand, DirectionOut)
	event.Target = "INST"
	event.Packet = "COLLECT"
	event.Command = &CommandEvent{
		Output:               `cmd("INST COLLECT with TYPE 'NORMAL'")`,
		Hazardous:            true,
		HazardousDescription: "Collecting is dangerous",
		Data:                 []byte{0x10, 0x00},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Command == nil {
		t.Fatal("Command is nil")
	}
	if decoded.Command.Output != event.Command.Output {
		t.Errorf("Output = %q", decoded.Command.Output)
	}
	if !decoded.Command.Hazardous || decoded.Command.HazardousDescription != "Collecting is dangerous" {
		t.Errorf("hazardous fields mismatch: %+v", decoded.Command)
	}
	if decoded.Command.Raw {
		t.Error("Raw should be false")
	}
}

func TestLimitsEventCBORRoundTrip(t *testing.T) {
	event := NewEvent(CategoryLimits, DirectionIn)
	event.Item = "TEMP1"
	event.Limits = &LimitsEvent{
		OldState:  "GREEN",
		NewState:  "RED_HIGH",
		Value:     95.5,
		LimitsSet: "DEFAULT",
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Limits == nil {
		t.Fatal("Limits is nil")
	}
	if decoded.Limits.OldState != "GREEN" || decoded.Limits.NewState != "RED_HIGH" {
		t.Errorf("states mismatch: %+v", decoded.Limits)
	}
	if v, ok := decoded.Limits.Value.(float64); !ok || v != 95.5 {
		t.Errorf("Value = %#v, want 95.5", decoded.Limits.Value)
	}
	if decoded.Item != "TEMP1" {
		t.Errorf("Item = %q", decoded.Item)
	}
}

func TestErrorEventCBORRoundTrip(t *testing.T) {
	event := NewEvent(CategoryError, DirectionIn)
	event.Error = &ErrorEvent{
		Message: "Bit definition overlap at bit offset 8",
		Context: "add packet",
		Warning: true,
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Error == nil {
		t.Fatal("Error is nil")
	}
	if *decoded.Error != *event.Error {
		t.Errorf("Error = %+v, want %+v", decoded.Error, event.Error)
	}
}

func TestEventCBORUsesIntegerKeys(t *testing.T) {
	event := Event{
		Timestamp: time.Now(),
		ID:        "id",
		Target:    "INST",
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	var raw map[any]any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for k := range raw {
		if _, ok := k.(uint64); !ok {
			t.Errorf("key %v (%T) is not an integer", k, k)
		}
	}
	if bytes.Contains(data, []byte("Target")) {
		t.Error("encoded data contains field name")
	}
}

func TestLimitsEventMapValueDecodesStringKeys(t *testing.T) {
	event := NewEvent(CategoryLimits, DirectionIn)
	event.Limits = &LimitsEvent{
		NewState: "RED_HIGH",
		Value:    map[string]any{"raw": uint64(160)},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	m, ok := decoded.Limits.Value.(map[string]any)
	if !ok {
		t.Fatalf("Value = %T, want map[string]any", decoded.Limits.Value)
	}
	if m["raw"] != uint64(160) {
		t.Errorf("raw = %v (%T), want 160", m["raw"], m["raw"])
	}
}
