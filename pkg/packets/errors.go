package packets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
)

// Error taxonomy. Every error returned by this package wraps one of these.
var (
	ErrConfiguration = accessor.ErrConfiguration
	ErrBounds        = accessor.ErrBounds
	ErrRange         = accessor.ErrRange
	ErrUnknownItem   = errors.New("unknown item")
)

// ItemError adds the item context to a codec or model error.
type ItemError struct {
	Target    string
	Packet    string
	Item      string
	BitOffset int
	BitSize   int
	Err       error
}

func (e *ItemError) Error() string {
	var names []string
	for _, n := range []string{e.Target, e.Packet, e.Item} {
		if n != "" {
			names = append(names, n)
		}
	}
	if errors.Is(e.Err, ErrUnknownItem) {
		return fmt.Sprintf("%s: %v", strings.Join(names, " "), e.Err)
	}
	return fmt.Sprintf("%s (bit_offset %d, bit_size %d): %v",
		strings.Join(names, " "), e.BitOffset, e.BitSize, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

func (s *Structure) itemError(item *Item, err error) error {
	var ie *ItemError
	if errors.As(err, &ie) {
		return err
	}
	return &ItemError{
		Target:    s.targetName,
		Packet:    s.packetName,
		Item:      item.Name,
		BitOffset: item.BitOffset,
		BitSize:   item.BitSize,
		Err:       err,
	}
}

func (s *Structure) unknownItem(name string) error {
	return &ItemError{
		Target: s.targetName,
		Packet: s.packetName,
		Item:   strings.ToUpper(name),
		Err:    fmt.Errorf("%w: %s", ErrUnknownItem, strings.ToUpper(name)),
	}
}
