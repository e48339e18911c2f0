package catalog

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ctlm-ground/ctlm-go/pkg/log"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
)

// Telemetry holds the telemetry definitions. Its canonical packets double
// as the current value table: Update and IdentifyAndSetBuffer store the
// latest buffer of each packet.
type Telemetry struct {
	*PacketSet

	limitsSet string
}

// AddPacket adds p and routes its limits changes through the catalog.
func (t *Telemetry) AddPacket(p *packets.Packet) []string {
	p.SetLimitsChangeCallback(t.limitsChanged)
	return t.PacketSet.AddPacket(p)
}

// Identify returns the canonical packet matching buf without touching it.
// The packet is shared with the update path; use IdentifyAndDefine for a
// private copy while updates run.
func (t *Telemetry) Identify(buf []byte, targets []string, subpackets bool) (*packets.Packet, bool) {
	return t.identify(buf, targets, subpackets)
}

// IdentifyAndSetBuffer identifies buf and stores it as the latest buffer of
// the matching packet, bumping its received count. A length mismatch is
// returned together with the packet.
func (t *Telemetry) IdentifyAndSetBuffer(buf []byte, targets []string, receivedTime time.Time) (*packets.Packet, bool, error) {
	p, ok := t.identify(buf, targets, false)
	if !ok {
		if buf != nil {
			t.cat.logUnidentified(log.DirectionIn, buf)
		}
		return nil, false, nil
	}
	err := t.store(p, buf, receivedTime)
	return p, true, err
}

// IdentifyAndDefine returns a copy of the packet matching buf holding buf.
// The canonical packet is left untouched.
func (t *Telemetry) IdentifyAndDefine(buf []byte, targets []string, subpackets bool) (*packets.Packet, bool) {
	p, ok := t.identifyClone(buf, targets, subpackets)
	if !ok {
		return nil, false
	}
	if err := p.SetBuffer(buf); err != nil {
		t.cat.warn(p.TargetName(), p.PacketName(), err.Error(), "identify")
	}
	return p, true
}

// Update stores buf as the latest buffer of a known packet.
func (t *Telemetry) Update(target, packet string, buf []byte, receivedTime time.Time) (*packets.Packet, error) {
	t.mu.RLock()
	p, err := t.packet(target, packet)
	t.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return p, t.store(p, buf, receivedTime)
}

func (t *Telemetry) store(p *packets.Packet, buf []byte, receivedTime time.Time) error {
	t.mu.Lock()
	err := p.SetBuffer(buf)
	p.ReceivedTime = receivedTime
	p.ReceivedCount++
	count := p.ReceivedCount
	t.mu.Unlock()

	if err != nil {
		t.cat.warn(p.TargetName(), p.PacketName(), err.Error(), "update")
	}
	t.cat.logIdentified(log.DirectionIn, p, buf, count)
	return err
}

// Value reads an item of the latest telemetry.
func (t *Telemetry) Value(target, packet, item string, vt packets.ValueType) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, err := t.packet(target, packet)
	if err != nil {
		return nil, err
	}
	return p.Read(item, vt)
}

// SetValue overwrites an item of the latest telemetry.
func (t *Telemetry) SetValue(target, packet, item string, value any, vt packets.ValueType) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.packet(target, packet)
	if err != nil {
		return err
	}
	return p.Write(item, value, vt)
}

// Snapshot returns a copy of a packet's latest telemetry, including the
// limits state of its items.
func (t *Telemetry) Snapshot(target, packet string) (*packets.Packet, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, err := t.packet(target, packet)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// ItemNames returns a packet's item names in sorted order.
func (t *Telemetry) ItemNames(target, packet string) ([]string, error) {
	p, err := t.Packet(target, packet)
	if err != nil {
		return nil, err
	}
	return p.ItemNames(), nil
}

// CheckLimits evaluates the limits of one packet's latest telemetry in the
// current limits set.
func (t *Telemetry) CheckLimits(target, packet string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.packet(target, packet)
	if err != nil {
		return err
	}
	return p.CheckLimits(t.limitsSet, false)
}

// OutOfLimits lists every enabled item that is currently yellow or red.
func (t *Telemetry) OutOfLimits() []packets.OutOfLimitsItem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []packets.OutOfLimitsItem
	for _, name := range t.sortedTargets() {
		for _, p := range t.targets[name].packets {
			out = append(out, p.OutOfLimits()...)
		}
	}
	return out
}

// EnableLimits turns on limits checking for an item.
func (t *Telemetry) EnableLimits(target, packet, item string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.packet(target, packet)
	if err != nil {
		return err
	}
	return p.EnableLimits(item)
}

// DisableLimits turns off limits checking for an item.
func (t *Telemetry) DisableLimits(target, packet, item string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.packet(target, packet)
	if err != nil {
		return err
	}
	return p.DisableLimits(item)
}

// LimitsSetting is the monitoring configuration of one limits item.
type LimitsSetting struct {
	Target      string
	Packet      string
	Item        string
	Enabled     bool
	Persistence int
}

// LimitsSettings lists the monitoring configuration of every limits item,
// sorted by target and then in packet declaration and layout order.
func (t *Telemetry) LimitsSettings() []LimitsSetting {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []LimitsSetting
	for _, name := range t.sortedTargets() {
		for _, p := range t.targets[name].packets {
			for _, item := range p.LimitsItems() {
				out = append(out, LimitsSetting{
					Target:      p.TargetName(),
					Packet:      p.PacketName(),
					Item:        item.Name,
					Enabled:     item.Limits.Enabled,
					Persistence: item.Limits.PersistenceSetting,
				})
			}
		}
	}
	return out
}

// SetLimitsPersistence sets how many consecutive samples a new limits state
// must be seen before it is reported.
func (t *Telemetry) SetLimitsPersistence(target, packet, item string, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: persistence must be at least 1, got %d", packets.ErrConfiguration, n)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.packet(target, packet)
	if err != nil {
		return err
	}
	it, err := p.Item(item)
	if err != nil {
		return err
	}
	it.Limits.PersistenceSetting = n
	it.Limits.PersistenceCount = 0
	return nil
}

// LimitsSets returns the names of all limits sets defined by any item,
// DEFAULT first.
func (t *Telemetry) LimitsSets() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := map[string]bool{packets.DefaultLimitsSet: true}
	var sets []string
	for _, target := range t.targets {
		for _, p := range target.packets {
			for _, item := range p.LimitsItems() {
				for name := range item.Limits.Values {
					if !seen[name] {
						seen[name] = true
						sets = append(sets, name)
					}
				}
			}
		}
	}
	slices.Sort(sets)
	return append([]string{packets.DefaultLimitsSet}, sets...)
}

// LimitsSet returns the limits set used by CheckLimits.
func (t *Telemetry) LimitsSet() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.limitsSet
}

// SetLimitsSet selects the limits set used by CheckLimits. Items without
// the set fall back to DEFAULT.
func (t *Telemetry) SetLimitsSet(name string) error {
	name = strings.ToUpper(name)
	if !slices.Contains(t.LimitsSets(), name) {
		return fmt.Errorf("%w: %s", ErrUnknownLimitsSet, name)
	}
	t.mu.Lock()
	t.limitsSet = name
	t.mu.Unlock()
	t.cat.debug("limits set changed", "limits_set", name)
	return nil
}

// ResetAll clears the received time and count of every packet.
func (t *Telemetry) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, target := range t.targets {
		for _, p := range target.packets {
			p.Reset()
		}
	}
}

// MarkStale marks the limits items of every packet not received since
// before as stale.
func (t *Telemetry) MarkStale(before time.Time) []*packets.Packet {
	t.mu.Lock()
	defer t.mu.Unlock()
	var stale []*packets.Packet
	for _, name := range t.sortedTargets() {
		for _, p := range t.targets[name].packets {
			if p.Virtual() || len(p.LimitsItems()) == 0 || !p.ReceivedTime.Before(before) {
				continue
			}
			p.SetStale()
			stale = append(stale, p)
		}
	}
	return stale
}

// sortedTargets must be called with t.mu held.
func (t *Telemetry) sortedTargets() []string {
	names := make([]string, 0, len(t.targets))
	for name := range t.targets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// limitsChanged runs with t.mu held by CheckLimits or DisableLimits.
func (t *Telemetry) limitsChanged(p *packets.Packet, item *packets.Item, oldState packets.LimitsState, value any, logChange bool) {
	if logChange {
		ev := t.cat.newEvent(log.CategoryLimits, log.DirectionIn, p.TargetName(), p.PacketName())
		ev.Item = item.Name
		ev.Limits = &log.LimitsEvent{
			OldState:  oldState.String(),
			NewState:  item.Limits.State.String(),
			Value:     value,
			LimitsSet: t.limitsSet,
		}
		t.cat.events.Log(ev)
	}
	if t.cat.limitsChange != nil {
		t.cat.limitsChange(p, item, oldState, value, logChange)
	}
}
