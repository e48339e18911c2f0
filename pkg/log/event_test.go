package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestDirectionString(t *testing.T) {
	tests := []struct {
		dir  Direction
		want string
	}{
		{DirectionIn, "IN"},
		{DirectionOut, "OUT"},
		{Direction(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		got := tt.dir.String()
		if got != tt.want {
			t.Errorf("Direction(%d).String() = %q, want %q", tt.dir, got, tt.want)
		}
	}
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{CategoryIdentify, "IDENTIFY"},
		{CategoryUnidentified, "UNIDENTIFIED"},
		{CategoryCommand, "COMMAND"},
		{CategoryLimits, "LIMITS"},
		{CategoryError, "ERROR"},
		{Category(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		got := tt.cat.String()
		if got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestCategoryValues(t *testing.T) {
	// Values are persisted in .clog files and must not change.
	if CategoryIdentify != 0 || CategoryUnidentified != 1 || CategoryCommand != 2 ||
		CategoryLimits != 3 || CategoryError != 4 {
		t.Error("category values changed")
	}
	if DirectionIn != 0 || DirectionOut != 1 {
		t.Error("direction values changed")
	}
}

func TestNewEvent(t *testing.T) {
	ev := NewEvent(CategoryCommand, DirectionOut)

	if ev.Category != CategoryCommand {
		t.Errorf("Category = %v, want COMMAND", ev.Category)
	}
	if ev.Direction != DirectionOut {
		t.Errorf("Direction = %v, want OUT", ev.Direction)
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
	if _, err := uuid.Parse(ev.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", ev.ID, err)
	}
	if other := NewEvent(CategoryCommand, DirectionOut); other.ID == ev.ID {
		t.Error("events share an ID")
	}
}

func TestNewPacketEvent(t *testing.T) {
	small := []byte{1, 2, 3}
	ev := NewPacketEvent(small)
	if ev.Size != 3 || ev.Truncated || !bytes.Equal(ev.Data, small) {
		t.Errorf("unexpected event for small buffer: %+v", ev)
	}

	small[0] = 9
	if ev.Data[0] != 1 {
		t.Error("PacketEvent shares the caller's buffer")
	}

	large := make([]byte, MaxPacketData+10)
	ev = NewPacketEvent(large)
	if ev.Size != MaxPacketData+10 {
		t.Errorf("Size = %d, want %d", ev.Size, MaxPacketData+10)
	}
	if !ev.Truncated {
		t.Error("expected Truncated")
	}
	if len(ev.Data) != MaxPacketData {
		t.Errorf("len(Data) = %d, want %d", len(ev.Data), MaxPacketData)
	}
}

func TestParseCategory(t *testing.T) {
	for c := CategoryIdentify; c <= CategoryError; c++ {
		got, err := ParseCategory(strings.ToLower(c.String()))
		if err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %v, %v", strings.ToLower(c.String()), got, err)
		}
	}
	if _, err := ParseCategory("telemetry"); err == nil {
		t.Error("expected error for unknown category")
	}
}
