package inspect

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ctlm-ground/ctlm-go/pkg/catalog"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
)

// Inspector errors.
var (
	ErrPartialPath = errors.New("path does not name an item")
	ErrHiddenItem  = errors.New("item is hidden")
)

// Inspector provides inspection and mutation of a catalog's current value
// table.
type Inspector struct {
	cat *catalog.Catalog
}

// NewInspector creates a new Inspector for the given catalog.
func NewInspector(cat *catalog.Catalog) *Inspector {
	return &Inspector{cat: cat}
}

// Catalog returns the underlying catalog.
func (i *Inspector) Catalog() *catalog.Catalog {
	return i.cat
}

// TargetInfo represents one target's packets for display.
type TargetInfo struct {
	Name      string
	Commands  []string
	Telemetry []string
}

// PacketInfo represents a packet and its items for display.
type PacketInfo struct {
	Target        string
	Packet        string
	Description   string
	Length        int
	Hazardous     bool
	ReceivedCount uint64
	ReceivedTime  time.Time
	Items         []ItemInfo
}

// ItemInfo represents item information for display.
type ItemInfo struct {
	Name        string
	Value       any
	DataType    string
	BitOffset   int
	BitSize     int
	Units       string
	Description string
	LimitsState packets.LimitsState
	Required    bool
}

// InspectCatalog lists every target with its command and telemetry packets.
func (i *Inspector) InspectCatalog() []TargetInfo {
	byName := map[string]*TargetInfo{}
	var order []string
	add := func(set *catalog.PacketSet, pick func(*TargetInfo) *[]string) {
		for _, name := range set.TargetNames() {
			info, ok := byName[name]
			if !ok {
				info = &TargetInfo{Name: name}
				byName[name] = info
				order = append(order, name)
			}
			pkts, _ := set.Packets(name)
			for _, p := range pkts {
				if !p.Hidden {
					*pick(info) = append(*pick(info), p.PacketName())
				}
			}
		}
	}
	add(i.cat.Commands.PacketSet, func(t *TargetInfo) *[]string { return &t.Commands })
	add(i.cat.Telemetry.PacketSet, func(t *TargetInfo) *[]string { return &t.Telemetry })

	slices.Sort(order)
	out := make([]TargetInfo, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}

// InspectTelemetry returns the latest values of a telemetry packet. Hidden
// items are left out.
func (i *Inspector) InspectTelemetry(target, packet string, vt packets.ValueType) (*PacketInfo, error) {
	p, err := i.cat.Telemetry.Snapshot(target, packet)
	if err != nil {
		return nil, err
	}
	info := packetInfo(p)
	for _, item := range p.SortedItems() {
		if item.Hidden {
			continue
		}
		v, err := p.ReadItem(item, vt)
		if err != nil {
			return nil, err
		}
		ii := itemInfo(item)
		ii.Value = v
		ii.LimitsState = item.Limits.State
		info.Items = append(info.Items, ii)
	}
	return info, nil
}

// InspectCommand returns the parameters of a command with their defaults
// as values.
func (i *Inspector) InspectCommand(target, packet string) (*PacketInfo, error) {
	p, err := i.cat.Commands.Packet(target, packet)
	if err != nil {
		return nil, err
	}
	info := packetInfo(p)
	for _, item := range p.SortedItems() {
		if item.Hidden || packets.IsReservedItem(item.Name) {
			continue
		}
		ii := itemInfo(item)
		ii.Value = item.Default
		ii.Required = item.Required
		info.Items = append(info.Items, ii)
	}
	return info, nil
}

func packetInfo(p *packets.Packet) *PacketInfo {
	return &PacketInfo{
		Target:        p.TargetName(),
		Packet:        p.PacketName(),
		Description:   p.Description,
		Length:        p.DefinedLength(),
		Hazardous:     p.Hazardous,
		ReceivedCount: p.ReceivedCount,
		ReceivedTime:  p.ReceivedTime,
	}
}

func itemInfo(item *packets.Item) ItemInfo {
	return ItemInfo{
		Name:        item.Name,
		DataType:    FormatDataType(item),
		BitOffset:   item.BitOffset,
		BitSize:     item.BitSize,
		Units:       item.Units,
		Description: item.Description,
	}
}

// ReadItem reads one telemetry item.
func (i *Inspector) ReadItem(path *Path, vt packets.ValueType) (any, *packets.Item, error) {
	if err := checkItemPath(path); err != nil {
		return nil, nil, err
	}
	_, item, err := i.cat.Telemetry.PacketAndItem(path.Target, path.Packet, path.Item)
	if err != nil {
		return nil, nil, err
	}
	v, err := i.cat.Telemetry.Value(path.Target, path.Packet, path.Item, vt)
	if err != nil {
		return nil, nil, err
	}
	return v, item, nil
}

// WriteItem overwrites one telemetry item of the current value table.
func (i *Inspector) WriteItem(path *Path, value any, vt packets.ValueType) error {
	if err := checkItemPath(path); err != nil {
		return err
	}
	_, item, err := i.cat.Telemetry.PacketAndItem(path.Target, path.Packet, path.Item)
	if err != nil {
		return err
	}
	if item.Hidden {
		return fmt.Errorf("%w: %s", ErrHiddenItem, path)
	}
	return i.cat.Telemetry.SetValue(path.Target, path.Packet, path.Item, value, vt)
}

func checkItemPath(path *Path) error {
	if path == nil {
		return errors.New("path is nil")
	}
	if path.IsPartial {
		return fmt.Errorf("%w: %s", ErrPartialPath, path)
	}
	return nil
}

// FormatCatalog formats the target list for display.
func (i *Inspector) FormatCatalog(targets []TargetInfo, f *Formatter) string {
	if len(targets) == 0 {
		return "(no targets)\n"
	}
	var sb strings.Builder
	for _, t := range targets {
		sb.WriteString(t.Name)
		sb.WriteString("\n")
		if len(t.Commands) > 0 {
			sb.WriteString(f.Indent(1, "Commands:  "+strings.Join(t.Commands, ", ")))
			sb.WriteString("\n")
		}
		if len(t.Telemetry) > 0 {
			sb.WriteString(f.Indent(1, "Telemetry: "+strings.Join(t.Telemetry, ", ")))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatPacket formats a packet and its items for display.
func (i *Inspector) FormatPacket(info *PacketInfo, f *Formatter) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s", info.Target, info.Packet))
	if info.Hazardous {
		sb.WriteString(" [HAZARDOUS]")
	}
	sb.WriteString("\n")
	if info.Description != "" {
		sb.WriteString(f.Indent(1, info.Description))
		sb.WriteString("\n")
	}
	if f.ShowMetadata {
		sb.WriteString(f.Indent(1, fmt.Sprintf("Length: %d bytes, received %d", info.Length, info.ReceivedCount)))
		if !info.ReceivedTime.IsZero() {
			sb.WriteString(fmt.Sprintf(" (last %s)", info.ReceivedTime.UTC().Format(time.RFC3339)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(f.FormatItemTable(ItemRows(info, f)))
	return sb.String()
}

// ItemRows converts a packet's items to formatted table rows.
func ItemRows(info *PacketInfo, f *Formatter) []ItemRow {
	rows := make([]ItemRow, 0, len(info.Items))
	for _, item := range info.Items {
		row := ItemRow{
			Name:   item.Name,
			Value:  f.FormatValue(item.Value, item.Units),
			Type:   item.DataType,
			Limits: FormatLimitsState(item.LimitsState),
		}
		if item.Required {
			row.Type += ", required"
		}
		rows = append(rows, row)
	}
	return rows
}
