package wire

import (
	"fmt"
	"time"
)

// Format is the value of Header.Format in every capture.
const Format = "ctlm-capture"

// FormatVersion is the capture format version written by Writer.
const FormatVersion uint8 = 1

// CBOR map keys for header and record encoding.
const (
	KeyFormat    = 1
	KeyVersion   = 2
	KeySessionID = 3
	KeyCreated   = 4
	KeyComment   = 5

	KeySequence = 1
	KeyKind     = 2
	KeyTarget   = 3
	KeyPacket   = 4
	KeyTime     = 5
	KeyData     = 6
)

// Header is the first item of a capture.
//
// CBOR encoding:
//
//	{
//	  1: format,     // "ctlm-capture"
//	  2: version,    // uint8
//	  3: sessionId,  // string
//	  4: created,    // RFC 3339 time
//	  5: comment     // optional free text
//	}
type Header struct {
	Format    string    `cbor:"1,keyasint"`
	Version   uint8     `cbor:"2,keyasint"`
	SessionID string    `cbor:"3,keyasint"`
	Created   time.Time `cbor:"4,keyasint"`
	Comment   string    `cbor:"5,keyasint,omitempty"`
}

// Validate checks that the header belongs to a capture this package reads.
func (h *Header) Validate() error {
	if h.Format != Format {
		return fmt.Errorf("not a capture stream: format %q", h.Format)
	}
	if h.Version == 0 || h.Version > FormatVersion {
		return fmt.Errorf("unsupported capture version %d", h.Version)
	}
	return nil
}

// RecordKind tells whether a buffer was received or sent.
type RecordKind uint8

const (
	// KindTelemetry is a buffer received from a target.
	KindTelemetry RecordKind = 1

	// KindCommand is a buffer sent to a target.
	KindCommand RecordKind = 2
)

// String returns the record kind name.
func (k RecordKind) String() string {
	switch k {
	case KindTelemetry:
		return "TLM"
	case KindCommand:
		return "CMD"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if k is a known record kind.
func (k RecordKind) IsValid() bool {
	return k == KindTelemetry || k == KindCommand
}

// Record is one captured buffer.
//
// CBOR encoding:
//
//	{
//	  1: sequence,  // uint64, starts at 1 per capture
//	  2: kind,      // uint8: 1=telemetry, 2=command
//	  3: target,    // optional
//	  4: packet,    // optional
//	  5: time,      // RFC 3339 time the buffer was received or sent
//	  6: data,      // byte string
//	  7: config     // optional digest of the packet definition in use
//	}
type Record struct {
	Sequence   uint64     `cbor:"1,keyasint"`
	Kind       RecordKind `cbor:"2,keyasint"`
	Target     string     `cbor:"3,keyasint,omitempty"`
	Packet     string     `cbor:"4,keyasint,omitempty"`
	Time       time.Time  `cbor:"5,keyasint"`
	Data       []byte     `cbor:"6,keyasint"`
	ConfigName string     `cbor:"7,keyasint,omitempty"`
}

// Validate checks if the record is valid.
func (r *Record) Validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("invalid record kind: %d", r.Kind)
	}
	if r.Packet != "" && r.Target == "" {
		return fmt.Errorf("record names packet %s without a target", r.Packet)
	}
	if r.ConfigName != "" && r.Packet == "" {
		return fmt.Errorf("record carries a definition digest without a packet")
	}
	if len(r.Data) > maxRecordData {
		return fmt.Errorf("record data of %d bytes exceeds %d", len(r.Data), maxRecordData)
	}
	return nil
}

// Identified reports whether the record names its target and packet.
func (r *Record) Identified() bool {
	return r.Target != "" && r.Packet != ""
}
