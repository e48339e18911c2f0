package wire

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Captures use canonical CBOR with integer keys. Times are RFC 3339 with
// nanoseconds so replayed received times match the original ones exactly.
// Decoding tolerates unknown keys so newer minor writers stay readable.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: CBOR encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: CBOR decoder mode: %v", err))
	}
}

// maxRecordData bounds a record's buffer so a corrupt length cannot
// allocate unbounded memory.
const maxRecordData = 1 << 20

func newEncoder(w io.Writer) *cbor.Encoder { return encMode.NewEncoder(w) }

func newDecoder(r io.Reader) *cbor.Decoder { return decMode.NewDecoder(r) }

// EncodeRecord encodes one record outside of a capture stream.
func EncodeRecord(rec *Record) ([]byte, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	return encMode.Marshal(rec)
}

// DecodeRecord decodes and validates one record.
func DecodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	return &rec, nil
}
