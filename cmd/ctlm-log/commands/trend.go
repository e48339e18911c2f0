package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
	"github.com/ctlm-ground/ctlm-go/pkg/catalog"
	"github.com/ctlm-ground/ctlm-go/pkg/defparse"
	"github.com/ctlm-ground/ctlm-go/pkg/inspect"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
	"github.com/ctlm-ground/ctlm-go/pkg/wire"
)

// ErrNoSamples is returned when a capture holds no values for an item.
var ErrNoSamples = errors.New("no samples")

// Trend summarizes the values one item took over a capture.
type Trend struct {
	Item    string
	Units   string
	Samples int
	Min     float64
	Max     float64
	Mean    float64
	StdDev  float64
	Median  float64

	// States counts the samples per limits state.
	States map[packets.LimitsState]int
}

// ComputeTrend summarizes values. It returns ErrNoSamples for an empty
// slice.
func ComputeTrend(values []float64) (*Trend, error) {
	if len(values) == 0 {
		return nil, ErrNoSamples
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	t := &Trend{
		Samples: len(values),
		Min:     floats.Min(values),
		Max:     floats.Max(values),
		Mean:    stat.Mean(values, nil),
		Median:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
	if len(values) > 1 {
		t.StdDev = stat.StdDev(values, nil)
	}
	return t, nil
}

// RunTrend replays a capture file and summarizes the converted values of
// the item named by itemPath ("TARGET PACKET ITEM").
func RunTrend(ctx context.Context, path, definitions, itemPath string, w io.Writer) error {
	cat, _, err := defparse.LoadCatalog(definitions, catalog.Config{})
	if err != nil {
		return err
	}
	f, reader, err := openCapture(path)
	if err != nil {
		return err
	}
	defer f.Close()

	t, err := trend(ctx, cat, reader, itemPath)
	if err != nil {
		return err
	}
	printTrend(w, t)
	return nil
}

func trend(ctx context.Context, cat *catalog.Catalog, reader *wire.Reader, itemPath string) (*Trend, error) {
	ip, err := inspect.ParsePath(itemPath)
	if err != nil {
		return nil, err
	}
	if ip.IsPartial {
		return nil, fmt.Errorf("%w: %s", inspect.ErrPartialPath, itemPath)
	}
	canonical, err := cat.Telemetry.Packet(ip.Target, ip.Packet)
	if err != nil {
		return nil, err
	}
	item, err := canonical.Item(ip.Item)
	if err != nil {
		return nil, err
	}

	rp := &replayer{cat: cat}
	var values []float64
	states := make(map[packets.LimitsState]int)
	_, err = wire.Replay(ctx, reader, func(rec *wire.Record) error {
		if rec.Kind != wire.KindTelemetry {
			return nil
		}
		p, _ := rp.apply(rec)
		if p != canonical {
			return nil
		}
		v, err := p.ReadItem(item, packets.Converted)
		if err != nil {
			return nil
		}
		x, err := accessor.ToFloat64(v)
		if err != nil {
			return fmt.Errorf("%s is not numeric: %w", ip, err)
		}
		values = append(values, x)
		states[item.Limits.State]++
		return nil
	})
	if err != nil {
		return nil, err
	}

	t, err := ComputeTrend(values)
	if err != nil {
		return nil, fmt.Errorf("%w for %s", err, ip)
	}
	t.Item = ip.String()
	t.Units = item.Units
	t.States = states
	return t, nil
}

func printTrend(w io.Writer, t *Trend) {
	unit := ""
	if t.Units != "" {
		unit = " " + t.Units
	}
	fmt.Fprintf(w, "%s: %d samples\n", t.Item, t.Samples)
	fmt.Fprintf(w, "  Min:    %s%s\n", packets.FormatValue(t.Min), unit)
	fmt.Fprintf(w, "  Max:    %s%s\n", packets.FormatValue(t.Max), unit)
	fmt.Fprintf(w, "  Mean:   %.4g%s\n", t.Mean, unit)
	fmt.Fprintf(w, "  StdDev: %.4g%s\n", t.StdDev, unit)
	fmt.Fprintf(w, "  Median: %s%s\n", packets.FormatValue(t.Median), unit)

	var states []packets.LimitsState
	for s := range t.States {
		if s != packets.LimitsNone {
			states = append(states, s)
		}
	}
	if len(states) == 0 {
		return
	}
	slices.Sort(states)
	fmt.Fprint(w, "  Limits:")
	for _, s := range states {
		fmt.Fprintf(w, " %s=%d", s, t.States[s])
	}
	fmt.Fprintln(w)
}
