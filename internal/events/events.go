// Package events defines the fixed usage-event vocabulary the engine consumes
// and the boundary to the external event log.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Type is a normalised usage-event tag.
type Type int

const (
	Unknown Type = iota
	SubjectActiveStart
	SubjectActiveStop
	ScreenOn
	ScreenOff
	Unlock
	Lock
)

var typeNames = map[Type]string{
	SubjectActiveStart: "subject_active_start",
	SubjectActiveStop:  "subject_active_stop",
	ScreenOn:           "screen_on",
	ScreenOff:          "screen_off",
	Unlock:             "unlock",
	Lock:               "lock",
}

// Platform spellings accepted at the ingest boundary.
var typeAliases = map[string]Type{
	"activity_resumed":       SubjectActiveStart,
	"move_to_foreground":     SubjectActiveStart,
	"activity_paused":        SubjectActiveStop,
	"move_to_background":     SubjectActiveStop,
	"screen_interactive":     ScreenOn,
	"screen_non_interactive": ScreenOff,
	"keyguard_hidden":        Unlock,
	"keyguard_shown":         Lock,
}

// String returns the canonical name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsSubjectEvent reports whether the type carries a subject identifier.
func (t Type) IsSubjectEvent() bool {
	return t == SubjectActiveStart || t == SubjectActiveStop
}

// MarshalJSON encodes the type as its canonical name.
func (t Type) MarshalJSON() ([]byte, error) {
	if t == Unknown {
		return nil, fmt.Errorf("cannot marshal unknown event type")
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts canonical names and platform aliases.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType resolves a canonical name or platform alias, case-insensitively.
func ParseType(name string) (Type, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for t, canonical := range typeNames {
		if canonical == normalized {
			return t, nil
		}
	}
	if t, ok := typeAliases[normalized]; ok {
		return t, nil
	}
	return Unknown, fmt.Errorf("invalid event type: %q", name)
}

// Platform usage-event codes.
const (
	codeForeground           = 1
	codeBackground           = 2
	codeScreenInteractive    = 15
	codeScreenNonInteractive = 16
	codeKeyguardShown        = 17
	codeKeyguardHidden       = 18

	// DeviceStateAPILevel is the first platform API level that logs screen
	// interactivity and keyguard transitions.
	DeviceStateAPILevel = 28
)

// FromPlatformCode maps a raw platform event code to the engine vocabulary.
// Codes 1 and 2 are MOVE_TO_FOREGROUND/BACKGROUND on older platforms and
// ACTIVITY_RESUMED/PAUSED on newer ones; both normalise to the subject
// start/stop pair. Device-state codes are only trusted from
// DeviceStateAPILevel onwards; apiLevel 0 means unknown and trusts every code.
func FromPlatformCode(code int, apiLevel int) (Type, bool) {
	deviceState := apiLevel == 0 || apiLevel >= DeviceStateAPILevel

	switch code {
	case codeForeground:
		return SubjectActiveStart, true
	case codeBackground:
		return SubjectActiveStop, true
	case codeScreenInteractive:
		return ScreenOn, deviceState
	case codeScreenNonInteractive:
		return ScreenOff, deviceState
	case codeKeyguardHidden:
		return Unlock, deviceState
	case codeKeyguardShown:
		return Lock, deviceState
	default:
		return Unknown, false
	}
}

// Event is one immutable fact from the usage-event log.
type Event struct {
	Type      Type   `json:"type"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
	Subject   string `json:"subject,omitempty"`
}

// Validate checks that the event is well-formed for the engine.
func (e Event) Validate() error {
	if e.Type == Unknown {
		return fmt.Errorf("event at %d has unknown type", e.Timestamp)
	}
	if e.Type.IsSubjectEvent() && e.Subject == "" {
		return fmt.Errorf("%s event at %d is missing a subject", e.Type, e.Timestamp)
	}
	if e.Timestamp < 0 {
		return fmt.Errorf("event has negative timestamp %d", e.Timestamp)
	}
	return nil
}

// Source is the read-only, time-ordered usage-event log.
type Source interface {
	// QueryEvents returns events with from <= timestamp < to in ascending
	// timestamp order.
	QueryEvents(ctx context.Context, from, to int64) ([]Event, error)
}

// SliceSource serves events from memory.
type SliceSource struct {
	events []Event
}

// NewSliceSource returns a Source over a stably time-sorted copy of evs.
func NewSliceSource(evs ...Event) *SliceSource {
	sorted := make([]Event, len(evs))
	copy(sorted, evs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	return &SliceSource{events: sorted}
}

// QueryEvents implements Source.
func (s *SliceSource) QueryEvents(ctx context.Context, from, to int64) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lo := sort.Search(len(s.events), func(i int) bool { return s.events[i].Timestamp >= from })
	hi := sort.Search(len(s.events), func(i int) bool { return s.events[i].Timestamp >= to })
	if hi < lo {
		return []Event{}, nil
	}
	out := make([]Event, hi-lo)
	copy(out, s.events[lo:hi])
	return out, nil
}
