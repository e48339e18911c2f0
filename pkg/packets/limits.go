package packets

import (
	"fmt"
	"maps"
	"strings"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
)

// LimitsState is the limits condition of a telemetry item.
type LimitsState uint8

const (
	LimitsNone LimitsState = iota
	LimitsBlue
	LimitsGreen
	LimitsGreenLow
	LimitsGreenHigh
	LimitsYellow
	LimitsYellowLow
	LimitsYellowHigh
	LimitsRed
	LimitsRedLow
	LimitsRedHigh
	LimitsStale
)

var limitsStateNames = []string{
	"", "BLUE", "GREEN", "GREEN_LOW", "GREEN_HIGH", "YELLOW", "YELLOW_LOW",
	"YELLOW_HIGH", "RED", "RED_LOW", "RED_HIGH", "STALE",
}

// String returns the limits state name, or "" for LimitsNone.
func (s LimitsState) String() string {
	if int(s) < len(limitsStateNames) {
		return limitsStateNames[s]
	}
	return fmt.Sprintf("LIMITS(%d)", uint8(s))
}

// OutOfLimits reports whether the state is one of the yellow or red states.
func (s LimitsState) OutOfLimits() bool {
	switch s {
	case LimitsYellow, LimitsYellowLow, LimitsYellowHigh, LimitsRed, LimitsRedLow, LimitsRedHigh:
		return true
	}
	return false
}

// ParseLimitsState parses a limits state or state color name.
func ParseLimitsState(s string) (LimitsState, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range limitsStateNames {
		if i > 0 && name == up {
			return LimitsState(i), nil
		}
	}
	return LimitsNone, fmt.Errorf("%w: unknown limits state %q", ErrConfiguration, s)
}

// DefaultLimitsSet is the limits set every limited item must define.
const DefaultLimitsSet = "DEFAULT"

// Limits is one set of thresholds. The green band is optional; when present
// values strictly inside it are BLUE.
type Limits struct {
	RedLow     float64
	YellowLow  float64
	YellowHigh float64
	RedHigh    float64

	HasGreen  bool
	GreenLow  float64
	GreenHigh float64
}

// Validate checks that the thresholds are ordered.
func (l Limits) Validate() error {
	if l.RedLow > l.YellowLow || l.YellowLow > l.YellowHigh || l.YellowHigh > l.RedHigh {
		return fmt.Errorf("%w: limits must be ordered red_low <= yellow_low <= yellow_high <= red_high", ErrConfiguration)
	}
	if l.HasGreen && (l.GreenLow < l.YellowLow || l.GreenLow > l.GreenHigh || l.GreenHigh > l.YellowHigh) {
		return fmt.Errorf("%w: green limits must lie within the yellow limits", ErrConfiguration)
	}
	return nil
}

// Evaluate returns the limits state of value against these thresholds.
func (l Limits) Evaluate(value float64) LimitsState {
	switch {
	case value > l.YellowLow && value < l.YellowHigh:
		if !l.HasGreen {
			return LimitsGreen
		}
		switch {
		case value >= l.GreenHigh:
			return LimitsGreenHigh
		case value > l.GreenLow:
			return LimitsBlue
		default:
			return LimitsGreenLow
		}
	case value > l.YellowLow:
		if value < l.RedHigh {
			return LimitsYellowHigh
		}
		return LimitsRedHigh
	case value > l.RedLow:
		return LimitsYellowLow
	default:
		return LimitsRedLow
	}
}

// ItemLimits holds the limits sets and the monitoring state of an item.
type ItemLimits struct {
	// Values maps a limits set name to its thresholds. Nil when the item
	// has no limits.
	Values map[string]Limits

	Enabled bool
	State   LimitsState

	// PersistenceSetting is the number of consecutive samples a new state
	// must be seen before it is reported.
	PersistenceSetting int
	PersistenceCount   int
}

// SetLimits defines the thresholds for a limits set. The DEFAULT set must be
// defined before any other set.
func (i *Item) SetLimits(set string, l Limits) error {
	set = strings.ToUpper(set)
	if set == "" {
		set = DefaultLimitsSet
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("%s: %w", i.Name, err)
	}
	if i.Limits.Values == nil {
		if set != DefaultLimitsSet {
			return fmt.Errorf("%w: DEFAULT limits must be defined for %s before setting limits set %s",
				ErrConfiguration, i.Name, set)
		}
		i.Limits.Values = make(map[string]Limits)
	} else {
		i.Limits.Values = maps.Clone(i.Limits.Values)
	}
	i.Limits.Values[set] = l
	return nil
}

// LimitsFor returns the thresholds for set, falling back to DEFAULT.
func (i *Item) LimitsFor(set string) (Limits, bool) {
	if l, ok := i.Limits.Values[strings.ToUpper(set)]; ok {
		return l, true
	}
	l, ok := i.Limits.Values[DefaultLimitsSet]
	return l, ok
}

// LimitsChangeFunc is called when an item's limits state changes. value is
// nil when limits were disabled.
type LimitsChangeFunc func(p *Packet, item *Item, oldState LimitsState, value any, logChange bool)

// OutOfLimitsItem names an item that is currently out of limits.
type OutOfLimitsItem struct {
	Target string
	Packet string
	Item   string
	State  LimitsState
}

// SetLimitsChangeCallback installs the limits change callback.
func (p *Packet) SetLimitsChangeCallback(fn LimitsChangeFunc) {
	p.limitsChange = fn
}

// EnableLimits turns on limits monitoring for an item.
func (p *Packet) EnableLimits(name string) error {
	item, err := p.Item(name)
	if err != nil {
		return err
	}
	item.Limits.Enabled = true
	return nil
}

// DisableLimits turns off limits monitoring for an item and clears its
// state, notifying the callback unless the item is stale.
func (p *Packet) DisableLimits(name string) error {
	item, err := p.Item(name)
	if err != nil {
		return err
	}
	item.Limits.Enabled = false
	if item.Limits.State != LimitsStale {
		old := item.Limits.State
		item.Limits.State = LimitsNone
		if p.limitsChange != nil {
			p.limitsChange(p, item, old, nil, false)
		}
	}
	return nil
}

// LimitsItems returns the items with limits sets or state colors in layout
// order.
func (p *Packet) LimitsItems() []*Item {
	var items []*Item
	for _, item := range p.sorted {
		if item.Limits.Values != nil || item.HasStateColors() {
			items = append(items, item)
		}
	}
	return items
}

// OutOfLimits lists the enabled items currently in a yellow or red state.
func (p *Packet) OutOfLimits() []OutOfLimitsItem {
	var out []OutOfLimitsItem
	for _, item := range p.LimitsItems() {
		if item.Limits.Enabled && item.Limits.State.OutOfLimits() {
			out = append(out, OutOfLimitsItem{
				Target: p.targetName,
				Packet: p.packetName,
				Item:   item.Name,
				State:  item.Limits.State,
			})
		}
	}
	return out
}

// SetStale marks every limits item stale, as when the packet stops arriving.
func (p *Packet) SetStale() {
	for _, item := range p.LimitsItems() {
		item.Limits.State = LimitsStale
		item.Limits.PersistenceCount = 0
	}
}

// CheckLimits evaluates every enabled limits item against the current
// buffer using the given limits set, updating states and persistence and
// calling the limits change callback.
func (p *Packet) CheckLimits(set string, ignorePersistence bool) error {
	if set == "" {
		set = DefaultLimitsSet
	}
	for _, item := range p.LimitsItems() {
		if !item.Limits.Enabled {
			continue
		}
		value, err := p.ReadItem(item, Converted)
		if err != nil {
			return err
		}
		if item.HasStateColors() {
			p.handleLimitsStates(item, value)
		} else if item.Limits.Values != nil {
			p.handleLimitsValues(item, value, set, ignorePersistence)
		}
	}
	return nil
}

func (p *Packet) handleLimitsStates(item *Item, value any) {
	state := LimitsNone
	if label, ok := value.(string); ok {
		if s, ok := item.StateByLabel(label); ok {
			state = s.Color
		}
	}
	if item.Limits.State == state {
		return
	}
	old := item.Limits.State
	item.Limits.State = state
	if p.limitsChange != nil {
		p.limitsChange(p, item, old, value, state != LimitsNone)
	}
}

func (p *Packet) handleLimitsValues(item *Item, value any, set string, ignorePersistence bool) {
	limits, ok := item.LimitsFor(set)
	if !ok {
		return
	}
	if _, isString := value.(string); isString || value == nil {
		return
	}
	f, err := accessor.ToFloat64(value)
	if err != nil {
		return
	}
	state := limits.Evaluate(f)

	if item.Limits.State == state {
		item.Limits.PersistenceCount = 0
		return
	}
	item.Limits.PersistenceCount++
	if item.Limits.PersistenceCount >= item.Limits.PersistenceSetting || ignorePersistence {
		old := item.Limits.State
		item.Limits.State = state
		if p.limitsChange != nil {
			p.limitsChange(p, item, old, value, true)
		}
		item.Limits.PersistenceCount = 0
	}
}
