package catalog

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ctlm-ground/ctlm-go/pkg/packets"
)

// catchAllKey is the index key of a packet without id items.
const catchAllKey = "CATCHALL"

// PacketSet holds the packets of one kind (commands or telemetry) for all
// targets. It is safe for concurrent use.
type PacketSet struct {
	kind string
	cat  *Catalog

	mu      sync.RWMutex
	targets map[string]*targetPackets
}

type targetPackets struct {
	name    string
	packets []*packets.Packet
	byName  map[string]*packets.Packet

	// index[0] covers regular packets, index[1] subpackets.
	index [2]*idIndex

	// forced overrides the computed unique id mode when set.
	forced [2]*bool
}

type idIndex struct {
	byKey    map[string]*packets.Packet
	catchAll *packets.Packet
	// layout is the packet whose id items are read to build a lookup key.
	layout *packets.Packet
	unique bool
	// ordered lists the set's identifiable packets in declaration order.
	ordered []*packets.Packet
}

func newPacketSet(kind string, cat *Catalog) *PacketSet {
	return &PacketSet{
		kind:    kind,
		cat:     cat,
		targets: make(map[string]*targetPackets),
	}
}

// AddPacket adds p to its target, replacing a packet of the same name in
// place. It returns the packet's bit offset overlap warnings.
func (s *PacketSet) AddPacket(p *packets.Packet) []string {
	// Warm the packet's lazy state so concurrent readers never write it.
	p.IDItems()
	p.Length()
	p.ConfigName()

	warnings := p.CheckBitOffsets()

	s.mu.Lock()
	t, ok := s.targets[p.TargetName()]
	if !ok {
		t = &targetPackets{
			name:   p.TargetName(),
			byName: make(map[string]*packets.Packet),
		}
		s.targets[t.name] = t
	}
	if old, ok := t.byName[p.PacketName()]; ok {
		t.packets[slices.Index(t.packets, old)] = p
	} else {
		t.packets = append(t.packets, p)
	}
	t.byName[p.PacketName()] = p
	t.rebuild()
	s.mu.Unlock()

	for _, w := range warnings {
		s.cat.warn(p.TargetName(), p.PacketName(), w, "add packet")
	}
	return warnings
}

// rebuild recomputes both id indexes of the target.
func (t *targetPackets) rebuild() {
	for set := range t.index {
		subpackets := set == 1
		idx := &idIndex{byKey: make(map[string]*packets.Packet)}
		layout := ""
		for _, p := range t.packets {
			if p.Virtual() || p.Subpacket != subpackets {
				continue
			}
			ids := p.IDItems()
			if len(ids) == 0 {
				idx.catchAll = p
				continue
			}
			idx.ordered = append(idx.ordered, p)

			l := idLayout(ids)
			if idx.layout == nil {
				idx.layout = p
				layout = l
			} else if l != layout {
				idx.unique = true
			}

			key, _ := idKey(p.IDValues())
			if prev, ok := idx.byKey[key]; ok && prev != p {
				idx.unique = true
			}
			idx.byKey[key] = p
		}
		t.index[set] = idx
	}
}

// idLayout describes where and how id items are read.
func idLayout(ids []*packets.Item) string {
	parts := make([]string, len(ids))
	for i, item := range ids {
		parts[i] = fmt.Sprintf("%d/%d/%s/%s/%t/%d",
			item.BitOffset, item.BitSize, item.DataType, item.Endianness, item.Array, item.ArraySize)
	}
	return strings.Join(parts, ";")
}

// idKey joins id values into a lookup key. ok is false when a value is
// missing.
func idKey(values []any) (key string, ok bool) {
	parts := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			return "", false
		}
		parts[i] = packets.ValueKey(v)
	}
	return strings.Join(parts, "\x1f"), true
}

func setIndex(subpackets bool) int {
	if subpackets {
		return 1
	}
	return 0
}

// SetUniqueIDMode forces the unique id mode of a target's packets
// (subpackets selects the set). It overrides the mode computed from the
// definitions until ClearUniqueIDMode is called.
func (s *PacketSet) SetUniqueIDMode(target string, subpackets, unique bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.target(target)
	if err != nil {
		return err
	}
	t.forced[setIndex(subpackets)] = &unique
	return nil
}

// ClearUniqueIDMode returns a target to the computed unique id mode.
func (s *PacketSet) ClearUniqueIDMode(target string, subpackets bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.target(target)
	if err != nil {
		return err
	}
	t.forced[setIndex(subpackets)] = nil
	return nil
}

// UniqueIDMode reports whether a target's packets are identified one by
// one instead of through the id value index.
func (s *PacketSet) UniqueIDMode(target string, subpackets bool) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.target(target)
	if err != nil {
		return false, err
	}
	return t.uniqueMode(setIndex(subpackets)), nil
}

func (t *targetPackets) uniqueMode(set int) bool {
	if f := t.forced[set]; f != nil {
		return *f
	}
	return t.index[set].unique
}

// target must be called with s.mu held.
func (s *PacketSet) target(name string) (*targetPackets, error) {
	upper := strings.ToUpper(name)
	t, ok := s.targets[upper]
	if !ok {
		return nil, fmt.Errorf("%w: %s target '%s' does not exist", ErrUnknownTarget, s.kind, upper)
	}
	return t, nil
}

// packet must be called with s.mu held.
func (s *PacketSet) packet(target, name string) (*packets.Packet, error) {
	t, err := s.target(target)
	if err != nil {
		return nil, err
	}
	upper := strings.ToUpper(name)
	p, ok := t.byName[upper]
	if !ok {
		return nil, fmt.Errorf("%w: %s packet '%s %s' does not exist", ErrUnknownPacket, s.kind, t.name, upper)
	}
	return p, nil
}

// TargetNames returns the sorted names of all targets with packets.
func (s *PacketSet) TargetNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.targets))
	for name := range s.targets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Packets returns a target's packets in declaration order.
func (s *PacketSet) Packets(target string) ([]*packets.Packet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.target(target)
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.packets), nil
}

// Packet returns the canonical packet. Names are case-insensitive.
// Telemetry packets are shared with the update path: while updates run,
// read their values through Telemetry.Value or Telemetry.Snapshot.
func (s *PacketSet) Packet(target, name string) (*packets.Packet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.packet(target, name)
}

// PacketAndItem returns the canonical packet and one of its items. The
// packet is shared as described for Packet.
func (s *PacketSet) PacketAndItem(target, packet, item string) (*packets.Packet, *packets.Item, error) {
	p, err := s.Packet(target, packet)
	if err != nil {
		return nil, nil, err
	}
	it, err := p.Item(item)
	if err != nil {
		return nil, nil, err
	}
	return p, it, nil
}

// All returns every packet grouped by target.
func (s *PacketSet) All() map[string][]*packets.Packet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]*packets.Packet, len(s.targets))
	for name, t := range s.targets {
		out[name] = slices.Clone(t.packets)
	}
	return out
}

// identify returns the canonical packet matching buf. targets limits the
// search; nil searches every target in name order.
func (s *PacketSet) identify(buf []byte, targets []string, subpackets bool) (*packets.Packet, bool) {
	if buf == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identifyLocked(buf, targets, subpackets)
}

// identifyClone is identify returning a copy of the packet taken before the
// lock is released, so a concurrent store cannot change it mid-copy.
func (s *PacketSet) identifyClone(buf []byte, targets []string, subpackets bool) (*packets.Packet, bool) {
	if buf == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.identifyLocked(buf, targets, subpackets)
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// identifyLocked must be called with s.mu held.
func (s *PacketSet) identifyLocked(buf []byte, targets []string, subpackets bool) (*packets.Packet, bool) {
	if targets == nil {
		targets = make([]string, 0, len(s.targets))
		for name := range s.targets {
			targets = append(targets, name)
		}
		slices.Sort(targets)
	}

	set := setIndex(subpackets)
	for _, name := range targets {
		t, ok := s.targets[strings.ToUpper(name)]
		if !ok {
			continue
		}
		if p, ok := t.identify(buf, set); ok {
			return p, true
		}
	}
	return nil, false
}

func (t *targetPackets) identify(buf []byte, set int) (*packets.Packet, bool) {
	idx := t.index[set]
	if t.uniqueMode(set) {
		for _, p := range idx.ordered {
			if p.Identify(buf) && lengthFits(p, buf) {
				return p, true
			}
		}
	} else if idx.layout != nil {
		if key, ok := idKey(idx.layout.ReadIDValues(buf)); ok {
			if p, ok := idx.byKey[key]; ok {
				return p, true
			}
		}
	}
	if idx.catchAll != nil {
		return idx.catchAll, true
	}
	return nil, false
}

// lengthFits reports whether buf can hold p: exactly the defined length
// for fixed size packets, at least the defined length otherwise.
func lengthFits(p *packets.Packet, buf []byte) bool {
	if p.FixedSize() {
		return len(buf) == p.DefinedLength()
	}
	return len(buf) >= p.DefinedLength()
}
