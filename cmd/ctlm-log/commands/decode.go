package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ctlm-ground/ctlm-go/pkg/catalog"
	"github.com/ctlm-ground/ctlm-go/pkg/defparse"
	"github.com/ctlm-ground/ctlm-go/pkg/inspect"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
	"github.com/ctlm-ground/ctlm-go/pkg/wire"
)

// DecodeOptions configures the decode command.
type DecodeOptions struct {
	// Definitions is the directory of target definition files.
	Definitions string

	// Items prints the converted item values of each telemetry packet.
	Items bool

	// Raw prints raw instead of converted item values.
	Raw bool
}

// replayer feeds capture records through a catalog.
type replayer struct {
	cat *catalog.Catalog
}

// apply identifies rec against the catalog. Telemetry updates the current
// value table and is checked against its limits. The returned packet is
// nil when nothing matched.
func (r *replayer) apply(rec *wire.Record) (*packets.Packet, error) {
	var targets []string
	if rec.Target != "" {
		targets = []string{rec.Target}
	}

	switch rec.Kind {
	case wire.KindCommand:
		if rec.Identified() {
			cmd, err := r.cat.Commands.Packet(rec.Target, rec.Packet)
			if err != nil {
				return nil, err
			}
			cmd = cmd.Clone()
			return cmd, cmd.SetBuffer(rec.Data)
		}
		cmd, _ := r.cat.Commands.Identify(rec.Data, targets, false)
		return cmd, nil

	default:
		var (
			p   *packets.Packet
			err error
		)
		if rec.Identified() {
			p, err = r.cat.Telemetry.Update(rec.Target, rec.Packet, rec.Data, rec.Time)
		} else {
			var ok bool
			p, ok, err = r.cat.Telemetry.IdentifyAndSetBuffer(rec.Data, targets, rec.Time)
			if !ok {
				return nil, nil
			}
		}
		if p == nil {
			return nil, err
		}
		// A length mismatch still leaves the buffer in place.
		if lerr := r.cat.Telemetry.CheckLimits(p.TargetName(), p.PacketName()); lerr != nil && err == nil {
			err = lerr
		}
		return p, err
	}
}

func openCapture(path string) (*os.File, *wire.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open capture: %w", err)
	}
	r, err := wire.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, r, nil
}

// RunDecode replays a capture file against the definitions and prints
// each record with the packet it identifies as.
func RunDecode(ctx context.Context, path string, opts DecodeOptions, w io.Writer) error {
	cat, warnings, err := defparse.LoadCatalog(opts.Definitions, catalog.Config{})
	if err != nil {
		return err
	}
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}

	f, reader, err := openCapture(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return decode(ctx, cat, reader, opts, w)
}

func decode(ctx context.Context, cat *catalog.Catalog, reader *wire.Reader, opts DecodeOptions, w io.Writer) error {
	h := reader.Header()
	fmt.Fprintf(w, "Capture %s (session %s, created %s)\n", h.Format, shortenID(h.SessionID), h.Created.UTC().Format(timestampLayout))
	if h.Comment != "" {
		fmt.Fprintf(w, "  %s\n", h.Comment)
	}
	fmt.Fprintln(w)

	vt := packets.Converted
	if opts.Raw {
		vt = packets.Raw
	}
	rp := &replayer{cat: cat}
	in := inspect.NewInspector(cat)
	formatter := inspect.NewFormatter()
	formatter.ShowMetadata = false

	unknown := 0
	n, err := wire.Replay(ctx, reader, func(rec *wire.Record) error {
		p, err := rp.apply(rec)
		fmt.Fprintf(w, "#%d %s %s ", rec.Sequence, rec.Time.UTC().Format(timestampLayout), rec.Kind)
		if p == nil {
			unknown++
			fmt.Fprintf(w, "UNKNOWN (%d bytes)\n", len(rec.Data))
			return nil
		}
		fmt.Fprintf(w, "%s %s (%d bytes)\n", p.TargetName(), p.PacketName(), len(rec.Data))
		if err != nil {
			fmt.Fprintf(w, "  warning: %v\n", err)
		}
		if rec.ConfigName != "" && rec.ConfigName != p.ConfigName() {
			fmt.Fprintf(w, "  warning: captured with definition %s, decoding with %s\n",
				shortenID(rec.ConfigName), shortenID(p.ConfigName()))
		}

		if rec.Kind == wire.KindCommand {
			var ids []string
			for _, item := range p.IDItems() {
				ids = append(ids, item.Name)
			}
			out, ferr := cat.Commands.Format(p, ids...)
			if ferr == nil {
				fmt.Fprintf(w, "  %s\n", out)
			}
			return nil
		}
		if opts.Items {
			info, ierr := in.InspectTelemetry(p.TargetName(), p.PacketName(), vt)
			if ierr != nil {
				return ierr
			}
			fmt.Fprint(w, formatter.FormatItemTable(inspect.ItemRows(info, formatter)))
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d records, %d unidentified\n", n, unknown)
	return nil
}
