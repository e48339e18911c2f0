package conversion

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
)

// ErrConversion is wrapped by every conversion failure.
var ErrConversion = errors.New("conversion error")

// Func adapts a plain function to packets.Conversion.
type Func func(value any, p *packets.Packet, buf []byte) (any, error)

// Convert calls f.
func (f Func) Convert(value any, p *packets.Packet, buf []byte) (any, error) {
	return f(value, p, buf)
}

// Polynomial evaluates c0 + c1*x + c2*x^2 + ...
type Polynomial struct {
	Coeffs []float64
}

// NewPolynomial returns a polynomial conversion with the given coefficients
// in ascending order of power.
func NewPolynomial(coeffs ...float64) *Polynomial {
	return &Polynomial{Coeffs: slices.Clone(coeffs)}
}

// Convert implements packets.Conversion.
func (c *Polynomial) Convert(value any, _ *packets.Packet, _ []byte) (any, error) {
	x, err := accessor.ToFloat64(value)
	if err != nil {
		return nil, fmt.Errorf("%w: polynomial: %v", ErrConversion, err)
	}
	return evaluate(c.Coeffs, x), nil
}

func evaluate(coeffs []float64, x float64) float64 {
	// Horner's method
	result := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		result = result*x + coeffs[i]
	}
	return result
}

// Segment is one piece of a SegmentedPolynomial. It applies to values at or
// above LowerBound up to the next segment's bound.
type Segment struct {
	LowerBound float64
	Coeffs     []float64
}

// SegmentedPolynomial applies a different polynomial per value range.
type SegmentedPolynomial struct {
	segments []Segment
}

// NewSegmentedPolynomial returns an empty segmented polynomial.
func NewSegmentedPolynomial() *SegmentedPolynomial {
	return &SegmentedPolynomial{}
}

// AddSegment adds a segment. Segments are kept ordered by descending lower
// bound.
func (c *SegmentedPolynomial) AddSegment(lowerBound float64, coeffs ...float64) {
	c.segments = append(c.segments, Segment{LowerBound: lowerBound, Coeffs: slices.Clone(coeffs)})
	slices.SortStableFunc(c.segments, func(a, b Segment) int {
		switch {
		case a.LowerBound > b.LowerBound:
			return -1
		case a.LowerBound < b.LowerBound:
			return 1
		}
		return 0
	})
}

// Segments returns the segments ordered by descending lower bound.
func (c *SegmentedPolynomial) Segments() []Segment {
	return slices.Clone(c.segments)
}

// Convert implements packets.Conversion. Values below every bound use the
// lowest segment.
func (c *SegmentedPolynomial) Convert(value any, _ *packets.Packet, _ []byte) (any, error) {
	if len(c.segments) == 0 {
		return nil, fmt.Errorf("%w: segmented polynomial has no segments", ErrConversion)
	}
	x, err := accessor.ToFloat64(value)
	if err != nil {
		return nil, fmt.Errorf("%w: segmented polynomial: %v", ErrConversion, err)
	}
	for _, seg := range c.segments {
		if x >= seg.LowerBound {
			return evaluate(seg.Coeffs, x), nil
		}
	}
	return evaluate(c.segments[len(c.segments)-1].Coeffs, x), nil
}

// ReceivedCount returns the packet's received count.
type ReceivedCount struct{}

// Convert implements packets.Conversion.
func (ReceivedCount) Convert(_ any, p *packets.Packet, _ []byte) (any, error) {
	return p.ReceivedCount, nil
}

// ReceivedTimeSeconds returns the received time as float seconds since the
// Unix epoch, or nil when the packet has not been received.
type ReceivedTimeSeconds struct{}

// Convert implements packets.Conversion.
func (ReceivedTimeSeconds) Convert(_ any, p *packets.Packet, _ []byte) (any, error) {
	return timeSeconds(p.ReceivedTime), nil
}

// ReceivedTimeFormatted returns the received time as a local time string.
type ReceivedTimeFormatted struct{}

// Convert implements packets.Conversion.
func (ReceivedTimeFormatted) Convert(_ any, p *packets.Packet, _ []byte) (any, error) {
	return timeFormatted(p.ReceivedTime, "No Packet Received Time"), nil
}

// PacketTimeSeconds returns the packet time as float seconds since the Unix
// epoch.
type PacketTimeSeconds struct{}

// Convert implements packets.Conversion.
func (PacketTimeSeconds) Convert(_ any, p *packets.Packet, _ []byte) (any, error) {
	return timeSeconds(p.PacketTime()), nil
}

// PacketTimeFormatted returns the packet time as a local time string.
type PacketTimeFormatted struct{}

// Convert implements packets.Conversion.
func (PacketTimeFormatted) Convert(_ any, p *packets.Packet, _ []byte) (any, error) {
	return timeFormatted(p.PacketTime(), "No Packet Time"), nil
}

// TimeLayout is the layout of formatted packet times.
const TimeLayout = "2006/01/02 15:04:05.000"

func timeSeconds(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return float64(t.UnixNano()) / 1e9
}

func timeFormatted(t time.Time, missing string) string {
	if t.IsZero() {
		return missing
	}
	return t.Local().Format(TimeLayout)
}

// UnixTime builds a time.Time from a seconds item and an optional
// microseconds item of the same packet.
type UnixTime struct {
	SecondsItem      string
	MicrosecondsItem string
}

// Convert implements packets.Conversion.
func (c UnixTime) Convert(_ any, p *packets.Packet, buf []byte) (any, error) {
	secs, err := readFloat(p, c.SecondsItem, buf)
	if err != nil {
		return nil, err
	}
	var usecs float64
	if c.MicrosecondsItem != "" {
		if usecs, err = readFloat(p, c.MicrosecondsItem, buf); err != nil {
			return nil, err
		}
	}
	whole, frac := math.Modf(secs)
	nanos := int64(math.Round(frac*1e9)) + int64(usecs*1e3)
	return time.Unix(int64(whole), nanos).UTC(), nil
}

func readFloat(p *packets.Packet, name string, buf []byte) (float64, error) {
	item, err := p.Item(name)
	if err != nil {
		return 0, err
	}
	v, err := p.ReadItemFrom(item, packets.Raw, buf)
	if err != nil {
		return 0, err
	}
	f, err := accessor.ToFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrConversion, name, err)
	}
	return f, nil
}

// DefineReservedItems defines the reserved DERIVED items every telemetry
// packet carries.
func DefineReservedItems(p *packets.Packet) error {
	defs := []struct {
		name        string
		format      string
		conversion  packets.Conversion
		description string
	}{
		{packets.ItemPacketTimeSeconds, "%0.6f", PacketTimeSeconds{}, "Packet Time (UTC, Floating point, Unix epoch)"},
		{packets.ItemPacketTimeFormatted, "", PacketTimeFormatted{}, "Packet Time (Local time zone, Formatted string)"},
		{packets.ItemReceivedTimeSeconds, "%0.6f", ReceivedTimeSeconds{}, "Received Time (UTC, Floating point, Unix epoch)"},
		{packets.ItemReceivedTimeFormatted, "", ReceivedTimeFormatted{}, "Received Time (Local time zone, Formatted string)"},
		{packets.ItemReceivedCount, "", ReceivedCount{}, "Packet received count"},
	}
	for _, d := range defs {
		item, err := packets.NewItem(d.name, 0, 0, accessor.DataTypeDerived, p.DefaultEndianness)
		if err != nil {
			return err
		}
		item.FormatString = d.format
		item.ReadConversion = d.conversion
		item.Description = d.description
		if err := p.Define(item); err != nil {
			return err
		}
	}
	return nil
}
