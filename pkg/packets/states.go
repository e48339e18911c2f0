package packets

import "strings"

// AnyState is the state value that matches every raw value not claimed by
// another state.
const AnyState = "ANY"

// State is one label of an item's enumerated values.
type State struct {
	Label string
	Value any

	// Hazardous marks a command state that needs confirmation before it is
	// sent. HazardousDescription explains why.
	Hazardous            bool
	HazardousDescription string

	// MessagesDisabled suppresses command log messages for this state.
	MessagesDisabled bool

	// Color is the limits color of the state for telemetry (GREEN, YELLOW or
	// RED). Zero means no color.
	Color LimitsState
}

// AddState appends or replaces a state. The label is upper-cased.
func (i *Item) AddState(s State) {
	s.Label = strings.ToUpper(s.Label)
	for idx := range i.States {
		if i.States[idx].Label == s.Label {
			i.States[idx] = s
			return
		}
	}
	i.States = append(i.States, s)
}

// StateByLabel returns the state with the given label (case-insensitive).
func (i *Item) StateByLabel(label string) (*State, bool) {
	up := strings.ToUpper(label)
	for idx := range i.States {
		if i.States[idx].Label == up {
			return &i.States[idx], true
		}
	}
	return nil, false
}

// StateByValue returns the first state whose value equals v.
func (i *Item) StateByValue(v any) (*State, bool) {
	for idx := range i.States {
		if ValuesEqual(i.States[idx].Value, v) {
			return &i.States[idx], true
		}
	}
	return nil, false
}

// StateLabel maps a value to its state label, falling back to the ANY state
// when one is defined.
func (i *Item) StateLabel(v any) (string, bool) {
	if s, ok := i.StateByValue(v); ok {
		return s.Label, true
	}
	for idx := range i.States {
		if str, ok := i.States[idx].Value.(string); ok && str == AnyState {
			return i.States[idx].Label, true
		}
	}
	return "", false
}

// StateLabels returns the labels in definition order.
func (i *Item) StateLabels() []string {
	labels := make([]string, len(i.States))
	for idx, s := range i.States {
		labels[idx] = s.Label
	}
	return labels
}

// StateValues returns the state values in definition order.
func (i *Item) StateValues() []any {
	values := make([]any, len(i.States))
	for idx, s := range i.States {
		values[idx] = s.Value
	}
	return values
}

// HasHazardousStates reports whether any state is hazardous.
func (i *Item) HasHazardousStates() bool {
	for _, s := range i.States {
		if s.Hazardous {
			return true
		}
	}
	return false
}

// HasStateColors reports whether any state carries a limits color.
func (i *Item) HasStateColors() bool {
	for _, s := range i.States {
		if s.Color != LimitsNone {
			return true
		}
	}
	return false
}
