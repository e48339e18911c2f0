package interactive

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
	"github.com/ctlm-ground/ctlm-go/pkg/catalog"
	"github.com/ctlm-ground/ctlm-go/pkg/inspect"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
	"github.com/ctlm-ground/ctlm-go/pkg/persistence"
	"github.com/ctlm-ground/ctlm-go/pkg/wire"
)

// splitFlags separates "-flag" words from the positional arguments.
func splitFlags(args []string) ([]string, map[string]bool) {
	var pos []string
	flags := map[string]bool{}
	for _, a := range args {
		if strings.HasPrefix(a, "-") && len(a) > 1 && !isNumber(a) {
			flags[strings.ToLower(strings.TrimLeft(a, "-"))] = true
			continue
		}
		pos = append(pos, a)
	}
	return pos, flags
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func valueType(flags map[string]bool) packets.ValueType {
	if flags["raw"] {
		return packets.Raw
	}
	return packets.Converted
}

// parseValue parses a typed console value: a decimal integer, a float, a
// 0x hex number (or block when longer than 64 bits), or else a string with
// surrounding quotes stripped.
func parseValue(s string) any {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if digits, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok && digits != "" {
		if len(digits) <= 16 {
			if v, err := strconv.ParseUint(digits, 16, 64); err == nil {
				return v
			}
		} else if b, err := hex.DecodeString(digits); err == nil {
			return b
		}
	}
	return strings.Trim(s, "\"'")
}

// parseHex decodes a buffer typed as hex, allowing a 0x prefix and spaces.
func parseHex(args []string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, errors.New("empty buffer")
	}
	return hex.DecodeString(s)
}

func (c *Console) cmdLoad(args []string) {
	dir := c.config.Definitions
	if len(args) > 0 {
		dir = args[0]
	}
	if err := c.load(dir); err != nil {
		fmt.Fprintf(c.out, "Load failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Loaded %s\n", dir)
}

// cmdInspect shows the catalog, a target's packets or one telemetry packet.
func (c *Console) cmdInspect(args []string) {
	args, flags := splitFlags(args)
	if len(args) == 0 {
		fmt.Fprint(c.out, c.inspector.FormatCatalog(c.inspector.InspectCatalog(), c.formatter))
		return
	}

	path, err := inspect.ParsePath(strings.Join(args, " "))
	if err != nil {
		fmt.Fprintf(c.out, "Invalid path: %v\n", err)
		return
	}

	switch {
	case path.Packet == "":
		for _, t := range c.inspector.InspectCatalog() {
			if t.Name == path.Target {
				fmt.Fprint(c.out, c.inspector.FormatCatalog([]inspect.TargetInfo{t}, c.formatter))
				return
			}
		}
		fmt.Fprintf(c.out, "Error: %v: %s\n", catalog.ErrUnknownTarget, path.Target)
	case path.IsPartial:
		info, err := c.inspector.InspectTelemetry(path.Target, path.Packet, valueType(flags))
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		fmt.Fprint(c.out, c.inspector.FormatPacket(info, c.formatter))
	default:
		c.cmdRead(append(args, flagArgs(flags)...))
	}
}

func flagArgs(flags map[string]bool) []string {
	var out []string
	for f := range flags {
		out = append(out, "-"+f)
	}
	return out
}

// cmdParams shows the parameters of a command.
func (c *Console) cmdParams(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: params <target> <packet>")
		return
	}
	info, err := c.inspector.InspectCommand(args[0], args[1])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprint(c.out, c.inspector.FormatPacket(info, c.formatter))

	items, err := c.cat.Commands.Params(args[0], args[1])
	if err != nil {
		return
	}
	for _, item := range items {
		if len(item.States) > 0 {
			fmt.Fprintf(c.out, "  %s states: %s\n", item.Name, strings.Join(item.StateLabels(), ", "))
		} else if item.Minimum != nil && item.Maximum != nil {
			fmt.Fprintf(c.out, "  %s range: %s to %s\n", item.Name,
				packets.FormatValue(item.Minimum), packets.FormatValue(item.Maximum))
		}
	}
}

// cmdCommand builds a command from ITEM=VALUE parameters.
func (c *Console) cmdCommand(args []string) {
	args, flags := splitFlags(args)
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: cmd <target> <packet> [ITEM=VALUE ...] [-raw] [-norange]")
		fmt.Fprintln(c.out, "  Example: cmd INST COLLECT TYPE=NORMAL DURATION=5")
		return
	}
	target, packet := args[0], args[1]

	params := make(map[string]any)
	for _, kv := range args[2:] {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			fmt.Fprintf(c.out, "Invalid parameter %q (want ITEM=VALUE)\n", kv)
			return
		}
		params[strings.ToUpper(name)] = parseValue(value)
	}
	raw := flags["raw"]

	hazardous, description, err := c.cat.Commands.CmdHazardous(target, packet, params)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if hazardous {
		def, _ := c.cat.Commands.Packet(target, packet)
		prompt := fmt.Sprintf("%s is hazardous", catalog.BuildCmdOutputString(target, packet, params, def, raw))
		if description != "" {
			prompt += ": " + description
		}
		prompt += ". Send?"
		if !c.Confirm(prompt) {
			fmt.Fprintln(c.out, "Cancelled")
			return
		}
	}

	cmd, err := c.cat.Commands.BuildCmd(target, packet, params, !flags["norange"], raw, true)
	if err != nil {
		fmt.Fprintf(c.out, "Build failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, catalog.BuildCmdOutputString(target, packet, params, cmd, raw))
	fmt.Fprintf(c.out, "  %s\n", inspect.FormatHex(cmd.Buffer()))
	c.record(wire.KindCommand, cmd, cmd.Buffer())
}

// cmdTelemetry identifies a typed buffer as telemetry.
func (c *Console) cmdTelemetry(args []string) {
	buf, err := parseHex(args)
	if err != nil {
		fmt.Fprintln(c.out, "Usage: tlm <hex>")
		return
	}
	p, err := c.ingest(buf, time.Now())
	c.record(wire.KindTelemetry, p, buf)
	if p == nil {
		fmt.Fprintf(c.out, "Unidentified (%d bytes)\n", len(buf))
		return
	}
	fmt.Fprintf(c.out, "%s %s (received %d)\n", p.TargetName(), p.PacketName(), p.ReceivedCount)
	if err != nil {
		fmt.Fprintf(c.out, "  warning: %v\n", err)
	}
}

// ingest stores an unidentified telemetry buffer and checks its limits.
func (c *Console) ingest(buf []byte, t time.Time) (*packets.Packet, error) {
	p, ok, err := c.cat.Telemetry.IdentifyAndSetBuffer(buf, nil, t)
	if !ok {
		return nil, nil
	}
	if lerr := c.cat.Telemetry.CheckLimits(p.TargetName(), p.PacketName()); lerr != nil && err == nil {
		err = lerr
	}
	return p, err
}

// cmdRead reads one telemetry item.
func (c *Console) cmdRead(args []string) {
	args, flags := splitFlags(args)
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: read <target> <packet> <item> [-raw]")
		fmt.Fprintln(c.out, "  Example: read INST HEALTH TEMP1")
		return
	}
	path, err := inspect.ParsePath(strings.Join(args, " "))
	if err != nil {
		fmt.Fprintf(c.out, "Invalid path: %v\n", err)
		return
	}
	value, item, err := c.inspector.ReadItem(path, valueType(flags))
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	units := item.Units
	if flags["raw"] {
		units = ""
	}
	line := fmt.Sprintf("%s = %s", path, c.formatter.FormatValue(value, units))
	if s := inspect.FormatLimitsState(item.Limits.State); s != "" {
		line += " [" + s + "]"
	}
	fmt.Fprintln(c.out, line)
}

// cmdWrite overwrites one telemetry item.
func (c *Console) cmdWrite(args []string) {
	args, flags := splitFlags(args)
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: write <target> <packet> <item> <value> [-raw]")
		return
	}
	path, err := inspect.ParsePath(strings.Join(args[:len(args)-1], " "))
	if err != nil {
		fmt.Fprintf(c.out, "Invalid path: %v\n", err)
		return
	}
	if err := c.inspector.WriteItem(path, parseValue(args[len(args)-1]), valueType(flags)); err != nil {
		fmt.Fprintf(c.out, "Write failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

// cmdLimits handles the limits subcommands.
func (c *Console) cmdLimits(args []string) {
	tlm := c.cat.Telemetry
	if len(args) == 0 {
		out := tlm.OutOfLimits()
		if len(out) == 0 {
			fmt.Fprintf(c.out, "All items within limits (set %s)\n", tlm.LimitsSet())
			return
		}
		for _, o := range out {
			fmt.Fprintf(c.out, "  %s %s %s: %s\n", o.Target, o.Packet, o.Item, o.State)
		}
		return
	}

	sub := strings.ToLower(args[0])
	rest := args[1:]
	var err error
	switch sub {
	case "sets":
		for _, s := range tlm.LimitsSets() {
			marker := " "
			if s == tlm.LimitsSet() {
				marker = "*"
			}
			fmt.Fprintf(c.out, " %s %s\n", marker, s)
		}
		return
	case "set":
		if len(rest) != 1 {
			fmt.Fprintln(c.out, "Usage: limits set <name>")
			return
		}
		err = tlm.SetLimitsSet(rest[0])
	case "enable", "disable":
		var path *inspect.Path
		path, err = itemPath(rest)
		if err == nil && sub == "enable" {
			err = tlm.EnableLimits(path.Target, path.Packet, path.Item)
		} else if err == nil {
			err = tlm.DisableLimits(path.Target, path.Packet, path.Item)
		}
	case "persistence":
		if len(rest) < 2 {
			fmt.Fprintln(c.out, "Usage: limits persistence <path> <n>")
			return
		}
		var n int
		n, err = strconv.Atoi(rest[len(rest)-1])
		if err == nil {
			var path *inspect.Path
			path, err = itemPath(rest[:len(rest)-1])
			if err == nil {
				err = tlm.SetLimitsPersistence(path.Target, path.Packet, path.Item, n)
			}
		}
	case "save":
		if c.store == nil {
			fmt.Fprintln(c.out, "No state file configured (-state)")
			return
		}
		err = c.store.Save(persistence.Capture(c.cat))
	case "load":
		if c.store == nil {
			fmt.Fprintln(c.out, "No state file configured (-state)")
			return
		}
		var state *persistence.LimitsState
		state, err = c.store.Load()
		if err == nil {
			var warnings []string
			warnings, err = persistence.Restore(c.cat, state)
			for _, w := range warnings {
				fmt.Fprintf(c.out, "warning: %s\n", w)
			}
		}
	default:
		fmt.Fprintf(c.out, "Unknown limits command: %s\n", sub)
		return
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

func itemPath(args []string) (*inspect.Path, error) {
	path, err := inspect.ParsePath(strings.Join(args, " "))
	if err != nil {
		return nil, err
	}
	if path.IsPartial {
		return nil, fmt.Errorf("%w: %s", inspect.ErrPartialPath, path)
	}
	return path, nil
}

// cmdReplay feeds a capture file through the catalog.
func (c *Console) cmdReplay(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: replay <file.ccap>")
		return
	}
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	defer f.Close()
	r, err := wire.NewReader(f)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	tlm, cmds, unknown := 0, 0, 0
	n, err := wire.Replay(ctx, r, func(rec *wire.Record) error {
		if rec.Kind == wire.KindCommand {
			cmds++
			return nil
		}
		var p *packets.Packet
		if rec.Identified() {
			p, _ = c.cat.Telemetry.Update(rec.Target, rec.Packet, rec.Data, rec.Time)
			if p != nil {
				_ = c.cat.Telemetry.CheckLimits(p.TargetName(), p.PacketName())
			}
		} else {
			p, _ = c.ingest(rec.Data, rec.Time)
		}
		if p == nil {
			unknown++
		} else {
			tlm++
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(c.out, "Replay stopped: %v\n", err)
	}
	fmt.Fprintf(c.out, "Replayed %d records: %d telemetry, %d commands, %d unidentified\n", n, tlm, cmds, unknown)
}

// cmdRecord starts or stops recording to a capture file.
func (c *Console) cmdRecord(args []string) {
	if len(args) == 0 {
		if c.recorder == nil {
			fmt.Fprintln(c.out, "Not recording")
		} else {
			h := c.recorder.Header()
			fmt.Fprintf(c.out, "Recording session %s since %s\n", h.SessionID, h.Created.Format(time.RFC3339))
		}
		return
	}
	if strings.EqualFold(args[0], "stop") {
		if c.recorder == nil {
			fmt.Fprintln(c.out, "Not recording")
			return
		}
		c.stopRecording()
		fmt.Fprintln(c.out, "OK")
		return
	}

	c.stopRecording()
	f, err := os.Create(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	w, err := wire.NewWriter(f, c.cat.SessionID(), strings.Join(args[1:], " "))
	if err != nil {
		f.Close()
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.recordFile = f
	c.recorder = w
	fmt.Fprintf(c.out, "Recording to %s\n", args[0])
}

// record captures data, naming p and its definition digest when the buffer
// was identified.
func (c *Console) record(kind wire.RecordKind, p *packets.Packet, data []byte) {
	if c.recorder == nil {
		return
	}
	rec := wire.Record{Kind: kind, Time: time.Now().UTC(), Data: data}
	if p != nil {
		rec.Target = p.TargetName()
		rec.Packet = p.PacketName()
		rec.ConfigName = p.ConfigName()
	}
	if _, err := c.recorder.WriteRecord(rec); err != nil {
		fmt.Fprintf(c.out, "Recording failed: %v\n", err)
		c.stopRecording()
	}
}

func (c *Console) stopRecording() {
	if c.recordFile != nil {
		c.recordFile.Close()
	}
	c.recordFile = nil
	c.recorder = nil
}

// cmdStale marks packets not received within the given number of seconds.
func (c *Console) cmdStale(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: stale <seconds>")
		return
	}
	secs, err := accessor.ToFloat64(parseValue(args[0]))
	if err != nil || secs < 0 {
		fmt.Fprintf(c.out, "Invalid duration: %s\n", args[0])
		return
	}
	before := time.Now().Add(-time.Duration(secs * float64(time.Second)))
	for _, p := range c.cat.Telemetry.MarkStale(before) {
		fmt.Fprintf(c.out, "  %s %s stale\n", p.TargetName(), p.PacketName())
	}
}
