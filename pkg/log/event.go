package log

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event represents one catalog event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ID uniquely identifies the event (UUID).
	ID string `cbor:"2,keyasint"`

	// SessionID groups the events of one catalog instance (UUID).
	SessionID string `cbor:"3,keyasint,omitempty"`

	// Direction is IN for telemetry and OUT for commands.
	Direction Direction `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Target, Packet and Item name what the event is about. Packet and Item
	// may be empty.
	Target string `cbor:"6,keyasint,omitempty"`
	Packet string `cbor:"7,keyasint,omitempty"`
	Item   string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	PacketData *PacketEvent  `cbor:"10,keyasint,omitempty"`
	Command    *CommandEvent `cbor:"11,keyasint,omitempty"`
	Limits     *LimitsEvent  `cbor:"12,keyasint,omitempty"`
	Error      *ErrorEvent   `cbor:"13,keyasint,omitempty"`
}

// NewEvent returns an event stamped with the current time and a fresh ID.
func NewEvent(category Category, direction Direction) Event {
	return Event{
		Timestamp: time.Now(),
		ID:        uuid.NewString(),
		Direction: direction,
		Category:  category,
	}
}

// Direction indicates the direction of packet flow.
type Direction uint8

const (
	// DirectionIn indicates received telemetry.
	DirectionIn Direction = 0
	// DirectionOut indicates a command.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryIdentify indicates a buffer was identified as a packet.
	CategoryIdentify Category = 0
	// CategoryUnidentified indicates no packet matched a buffer.
	CategoryUnidentified Category = 1
	// CategoryCommand indicates a command was built.
	CategoryCommand Category = 2
	// CategoryLimits indicates an item limits state change.
	CategoryLimits Category = 3
	// CategoryError indicates an error or warning.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryIdentify:
		return "IDENTIFY"
	case CategoryUnidentified:
		return "UNIDENTIFIED"
	case CategoryCommand:
		return "COMMAND"
	case CategoryLimits:
		return "LIMITS"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name, ignoring case.
func ParseCategory(s string) (Category, error) {
	for c := CategoryIdentify; c <= CategoryError; c++ {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid category: %s (must be identify, unidentified, command, limits, or error)", s)
}

// PacketEvent captures the buffer of an identified or unidentified packet.
type PacketEvent struct {
	// Size is the buffer size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw buffer (may be truncated for large packets).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// ReceivedCount is the packet's count after this reception.
	ReceivedCount uint64 `cbor:"4,keyasint,omitempty"`
}

// MaxPacketData is the number of buffer bytes kept in a PacketEvent.
const MaxPacketData = 1024

// NewPacketEvent captures buf, truncating it to MaxPacketData bytes.
func NewPacketEvent(buf []byte) *PacketEvent {
	ev := &PacketEvent{Size: len(buf)}
	if len(buf) > MaxPacketData {
		ev.Data = append([]byte(nil), buf[:MaxPacketData]...)
		ev.Truncated = true
	} else {
		ev.Data = append([]byte(nil), buf...)
	}
	return ev
}

// CommandEvent captures a built command.
type CommandEvent struct {
	// Output is the command rendered as cmd("TARGET PACKET with ...").
	Output string `cbor:"1,keyasint"`

	// Raw indicates the parameters were given as raw values.
	Raw bool `cbor:"2,keyasint,omitempty"`

	// Hazardous indicates the command needed confirmation.
	Hazardous bool `cbor:"3,keyasint,omitempty"`

	// HazardousDescription explains why the command is hazardous.
	HazardousDescription string `cbor:"4,keyasint,omitempty"`

	// Data is the command buffer.
	Data []byte `cbor:"5,keyasint,omitempty"`
}

// LimitsEvent captures an item limits state transition.
type LimitsEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state (empty when limits were disabled).
	NewState string `cbor:"2,keyasint,omitempty"`

	// Value is the converted value that caused the change.
	Value any `cbor:"3,keyasint,omitempty"`

	// LimitsSet is the limits set in effect.
	LimitsSet string `cbor:"4,keyasint,omitempty"`
}

// ErrorEvent captures errors and warnings.
type ErrorEvent struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`

	// Warning marks a non-fatal condition.
	Warning bool `cbor:"3,keyasint,omitempty"`
}
