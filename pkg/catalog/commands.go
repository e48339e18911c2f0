package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
	"github.com/ctlm-ground/ctlm-go/pkg/log"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
)

// maxOutputStringLen is where string parameters are cut in output strings.
const maxOutputStringLen = 256

// Commands holds the command definitions.
type Commands struct {
	*PacketSet
}

// Identify returns a copy of the command matching buf with buf as its
// buffer. subpackets searches the subpacket set instead of the regular
// packets. A length mismatch is logged but does not fail identification.
func (c *Commands) Identify(buf []byte, targets []string, subpackets bool) (*packets.Packet, bool) {
	p, ok := c.identifyClone(buf, targets, subpackets)
	if !ok {
		if buf != nil {
			c.cat.logUnidentified(log.DirectionOut, buf)
		}
		return nil, false
	}
	if err := p.SetBuffer(buf); err != nil {
		c.cat.warn(p.TargetName(), p.PacketName(), err.Error(), "identify")
	}
	c.cat.logIdentified(log.DirectionOut, p, buf, p.ReceivedCount)
	return p, true
}

// Params returns the items of a command in layout order.
func (c *Commands) Params(target, packet string) ([]*packets.Item, error) {
	p, err := c.Packet(target, packet)
	if err != nil {
		return nil, err
	}
	return p.SortedItems(), nil
}

// BuildCmd builds a command from the catalog's definition. The copy starts
// from the packet's defaults; params then overwrite individual items. Raw
// params are written as given; otherwise state labels are mapped to their
// values and write conversions are applied. With rangeChecking each given
// value is checked against the item's states or its minimum and maximum.
// With checkRequired every required item must be given.
func (c *Commands) BuildCmd(target, packet string, params map[string]any, rangeChecking, raw, checkRequired bool) (*packets.Packet, error) {
	canonical, err := c.Packet(target, packet)
	if err != nil {
		return nil, err
	}
	cmd := canonical.Clone()

	given, err := normalizeParams(cmd, params)
	if err != nil {
		return nil, err
	}

	if checkRequired {
		for _, item := range cmd.SortedItems() {
			if item.Required && !hasParam(given, item.Name) {
				return nil, fmt.Errorf("%w: Required command parameter '%s %s %s' not given",
					ErrMissingParameter, cmd.TargetName(), cmd.PacketName(), item.Name)
			}
		}
	}

	cmd.Resize(0)
	cmd.Resize(cmd.DefinedLength())
	skip := make([]string, len(given))
	for i, prm := range given {
		skip[i] = prm.item.Name
	}
	if err := cmd.RestoreDefaults(skip...); err != nil {
		return nil, err
	}

	vt := packets.Converted
	if raw {
		vt = packets.Raw
	}
	for _, prm := range given {
		if err := cmd.WriteItem(prm.item, prm.value, vt); err != nil {
			return nil, err
		}
		if rangeChecking {
			if err := checkRange(cmd, prm, raw); err != nil {
				return nil, err
			}
		}
	}

	cmd.Raw = raw
	cmd.GivenValues = maps.Clone(params)
	cmd.Reset()

	c.logBuilt(cmd, given, raw)
	return cmd, nil
}

type param struct {
	item  *packets.Item
	value any
}

// normalizeParams resolves params to items, in layout order.
func normalizeParams(p *packets.Packet, params map[string]any) ([]param, error) {
	out := make([]param, 0, len(params))
	for name, v := range params {
		item, err := p.Item(name)
		if err != nil {
			return nil, err
		}
		out = append(out, param{item: item, value: v})
	}
	slices.SortFunc(out, func(a, b param) int {
		switch {
		case a.item.Less(b.item):
			return -1
		case b.item.Less(a.item):
			return 1
		}
		return strings.Compare(a.item.Name, b.item.Name)
	})
	return out, nil
}

func hasParam(params []param, name string) bool {
	return slices.ContainsFunc(params, func(p param) bool { return p.item.Name == name })
}

// checkRange validates the raw value written for prm.
func checkRange(cmd *packets.Packet, prm param, raw bool) error {
	item := prm.item
	if item.DataType == accessor.DataTypeDerived {
		return nil
	}
	rawValue, err := cmd.ReadItem(item, packets.Raw)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s %s %s", cmd.TargetName(), cmd.PacketName(), item.Name)

	if len(item.States) > 0 {
		if _, ok := item.StateByValue(rawValue); ok {
			return nil
		}
		allowed := item.StateLabels()
		if raw {
			allowed = make([]string, 0, len(item.States))
			for _, v := range item.StateValues() {
				allowed = append(allowed, packets.FormatValue(v))
			}
		}
		return fmt.Errorf("%w: Command parameter '%s' = %s not one of %s",
			packets.ErrRange, name, packets.FormatValue(prm.value), strings.Join(allowed, ", "))
	}

	if item.Minimum == nil || item.Maximum == nil || item.Array {
		return nil
	}
	v, err := accessor.ToFloat64(rawValue)
	if err != nil {
		return nil
	}
	lo, errLo := accessor.ToFloat64(item.Minimum)
	hi, errHi := accessor.ToFloat64(item.Maximum)
	if errLo != nil || errHi != nil {
		return nil
	}
	if v < lo || v > hi {
		return fmt.Errorf("%w: Command parameter '%s' = %s not in valid range of %s to %s",
			packets.ErrRange, name, packets.FormatValue(prm.value),
			packets.FormatValue(item.Minimum), packets.FormatValue(item.Maximum))
	}
	return nil
}

func (c *Commands) logBuilt(cmd *packets.Packet, given []param, raw bool) {
	hazardous, description := CmdPktHazardous(cmd)
	ev := c.cat.newEvent(log.CategoryCommand, log.DirectionOut, cmd.TargetName(), cmd.PacketName())
	ev.Command = &log.CommandEvent{
		Output:               outputString(cmd.TargetName(), cmd.PacketName(), given, raw),
		Raw:                  raw,
		Hazardous:            hazardous,
		HazardousDescription: description,
		Data:                 cmd.Buffer(),
	}
	c.cat.events.Log(ev)
}

// CmdHazardous reports whether sending the command with params needs
// confirmation: either the packet itself is hazardous or a param selects
// a hazardous state. The description of whichever applies is returned.
func (c *Commands) CmdHazardous(target, packet string, params map[string]any) (bool, string, error) {
	p, err := c.Packet(target, packet)
	if err != nil {
		return false, "", err
	}
	if p.Hazardous {
		return true, p.HazardousDescription, nil
	}
	given, err := normalizeParams(p, params)
	if err != nil {
		return false, "", err
	}
	for _, prm := range given {
		if s := paramState(prm); s != nil && s.Hazardous {
			return true, s.HazardousDescription, nil
		}
	}
	return false, "", nil
}

// paramState returns the state a param selects, by label or by value.
func paramState(prm param) *packets.State {
	if len(prm.item.States) == 0 {
		return nil
	}
	if label, ok := prm.value.(string); ok {
		if s, ok := prm.item.StateByLabel(label); ok {
			return s
		}
	}
	if s, ok := prm.item.StateByValue(prm.value); ok {
		return s
	}
	return nil
}

// CmdPktHazardous reports whether a built command is hazardous, checking
// the packet and then the state every item currently reads as.
func CmdPktHazardous(p *packets.Packet) (bool, string) {
	if p.Hazardous {
		return true, p.HazardousDescription
	}
	for _, item := range p.SortedItems() {
		if !item.HasHazardousStates() {
			continue
		}
		v, err := p.ReadItem(item, packets.Raw)
		if err != nil {
			continue
		}
		if s, ok := item.StateByValue(v); ok && s.Hazardous {
			return true, s.HazardousDescription
		}
	}
	return false, ""
}

// BuildCmdOutputString renders a command the way it would be typed:
//
//	cmd("INST COLLECT with TYPE 'NORMAL', DURATION 5.0")
//
// Params are listed in p's layout order. Reserved items are left out and
// obfuscated items are masked.
func BuildCmdOutputString(target, packet string, params map[string]any, p *packets.Packet, raw bool) string {
	given := make([]param, 0, len(params))
	var unknown []string
	for name, v := range params {
		if item, err := p.Item(name); err == nil {
			given = append(given, param{item: item, value: v})
		} else {
			unknown = append(unknown, name)
		}
	}
	slices.SortFunc(given, func(a, b param) int {
		if a.item.Less(b.item) {
			return -1
		}
		if b.item.Less(a.item) {
			return 1
		}
		return 0
	})
	slices.Sort(unknown)
	for _, name := range unknown {
		given = append(given, param{item: &packets.Item{Name: strings.ToUpper(name)}, value: params[name]})
	}
	return outputString(strings.ToUpper(target), strings.ToUpper(packet), given, raw)
}

// Format renders the current contents of a command as an output string,
// leaving out the ignored items.
func (c *Commands) Format(p *packets.Packet, ignored ...string) (string, error) {
	vt := packets.Converted
	if p.Raw {
		vt = packets.Raw
	}
	var given []param
	for _, item := range p.SortedItems() {
		if item.DataType == accessor.DataTypeDerived || slices.ContainsFunc(ignored, func(s string) bool {
			return strings.EqualFold(s, item.Name)
		}) {
			continue
		}
		v, err := p.ReadItem(item, vt)
		if err != nil {
			return "", err
		}
		given = append(given, param{item: item, value: v})
	}
	return outputString(p.TargetName(), p.PacketName(), given, p.Raw), nil
}

func outputString(target, packet string, params []param, raw bool) string {
	var sb strings.Builder
	if raw {
		sb.WriteString(`cmd_raw("`)
	} else {
		sb.WriteString(`cmd("`)
	}
	sb.WriteString(target)
	sb.WriteByte(' ')
	sb.WriteString(packet)

	first := true
	for _, prm := range params {
		if packets.IsReservedItem(prm.item.Name) {
			continue
		}
		if first {
			sb.WriteString(" with ")
			first = false
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(prm.item.Name)
		sb.WriteByte(' ')
		if prm.item.Obfuscate {
			sb.WriteString("*****")
			continue
		}
		sb.WriteString(outputValue(prm.value))
	}
	sb.WriteString(`")`)
	return sb.String()
}

func outputValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return packets.FormatValue(v)
	}
	if !printable(s) {
		return packets.FormatValue([]byte(s))
	}
	if len(s) > maxOutputStringLen {
		s = s[:maxOutputStringLen] + "..."
	}
	return "'" + s + "'"
}

func printable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) && r != '\t' {
			return false
		}
	}
	return true
}
