package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Writer appends records to a capture stream. It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	enc     *cbor.Encoder
	header  Header
	nextSeq uint64
}

// NewWriter writes a capture header to w and returns a writer for its
// records. An empty sessionID is replaced by a random one.
func NewWriter(w io.Writer, sessionID, comment string) (*Writer, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	cw := &Writer{
		enc: newEncoder(w),
		header: Header{
			Format:    Format,
			Version:   FormatVersion,
			SessionID: sessionID,
			Created:   time.Now().UTC(),
			Comment:   comment,
		},
		nextSeq: 1,
	}
	if err := cw.enc.Encode(cw.header); err != nil {
		return nil, fmt.Errorf("writing capture header: %w", err)
	}
	return cw, nil
}

// Header returns the header written at the start of the stream.
func (w *Writer) Header() Header {
	return w.header
}

// Write appends one buffer. The record's sequence number is assigned by the
// writer and returned.
func (w *Writer) Write(kind RecordKind, target, packet string, t time.Time, data []byte) (uint64, error) {
	return w.WriteRecord(Record{
		Kind:   kind,
		Target: target,
		Packet: packet,
		Time:   t,
		Data:   data,
	})
}

// WriteRecord appends rec, replacing its sequence number with the writer's.
func (w *Writer) WriteRecord(rec Record) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec.Sequence = w.nextSeq
	if err := rec.Validate(); err != nil {
		return 0, fmt.Errorf("invalid record: %w", err)
	}
	if err := w.enc.Encode(rec); err != nil {
		return 0, fmt.Errorf("writing record %d: %w", rec.Sequence, err)
	}
	w.nextSeq++
	return rec.Sequence, nil
}

// Reader reads records from a capture stream.
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and validates the capture header of r.
func NewReader(r io.Reader) (*Reader, error) {
	cr := &Reader{dec: newDecoder(r)}
	if err := cr.dec.Decode(&cr.header); err != nil {
		return nil, fmt.Errorf("reading capture header: %w", err)
	}
	if err := cr.header.Validate(); err != nil {
		return nil, err
	}
	return cr, nil
}

// Header returns the capture header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.Sequence, err)
	}
	return &rec, nil
}

// Replay calls fn for every remaining record of r in stream order and
// returns the number of records handled. It stops at the first error from
// fn or when ctx is done.
func Replay(ctx context.Context, r *Reader, fn func(*Record) error) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := fn(rec); err != nil {
			return n, fmt.Errorf("record %d: %w", rec.Sequence, err)
		}
		n++
	}
}
