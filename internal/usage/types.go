package usage

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Goal types understood by InclusionForGoal.
const (
	GoalCustomGroup = "custom_group"
	GoalTotalTime   = "total_time"
)

// SubjectSet is a set of subject identifiers.
type SubjectSet map[string]struct{}

// NewSubjectSet builds a set from ids, ignoring empty identifiers.
func NewSubjectSet(ids ...string) SubjectSet {
	return lo.SliceToMap(lo.Compact(ids), func(id string) (string, struct{}) {
		return id, struct{}{}
	})
}

// Has reports whether id is in the set.
func (s SubjectSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// InclusionKind tags which subjects an Inclusion counts.
type InclusionKind int

const (
	// IncludeAllLaunchable counts every launchable subject.
	IncludeAllLaunchable InclusionKind = iota
	// IncludeTrackedOnly counts launchable subjects in Subjects.
	IncludeTrackedOnly
	// IncludeExemptExcluded counts launchable subjects not in Subjects.
	IncludeExemptExcluded
)

func (k InclusionKind) String() string {
	switch k {
	case IncludeTrackedOnly:
		return "tracked_only"
	case IncludeExemptExcluded:
		return "exempt_excluded"
	default:
		return "all_launchable"
	}
}

// Inclusion selects which subjects contribute active time.
type Inclusion struct {
	Kind       InclusionKind
	Launchable SubjectSet
	Subjects   SubjectSet
}

// AllLaunchable counts every launchable subject.
func AllLaunchable(launchable SubjectSet) Inclusion {
	return Inclusion{Kind: IncludeAllLaunchable, Launchable: launchable}
}

// TrackedOnly counts only launchable subjects that are explicitly tracked.
func TrackedOnly(launchable SubjectSet, tracked []string) Inclusion {
	return Inclusion{Kind: IncludeTrackedOnly, Launchable: launchable, Subjects: NewSubjectSet(tracked...)}
}

// ExemptExcluded counts launchable subjects except the exempt ones.
func ExemptExcluded(launchable SubjectSet, exempt []string) Inclusion {
	return Inclusion{Kind: IncludeExemptExcluded, Launchable: launchable, Subjects: NewSubjectSet(exempt...)}
}

// InclusionForGoal picks the inclusion for a goal type tag. Unknown tags
// count all launchable subjects.
func InclusionForGoal(goal Goal, launchable SubjectSet) Inclusion {
	switch strings.ToLower(goal.Type) {
	case GoalCustomGroup:
		return TrackedOnly(launchable, goal.Tracked)
	case GoalTotalTime:
		return ExemptExcluded(launchable, goal.Exempt)
	default:
		return AllLaunchable(launchable)
	}
}

// Includes reports whether subject contributes under this inclusion.
func (i Inclusion) Includes(subject string) bool {
	if !i.Launchable.Has(subject) {
		return false
	}
	switch i.Kind {
	case IncludeTrackedOnly:
		return i.Subjects.Has(subject)
	case IncludeExemptExcluded:
		return !i.Subjects.Has(subject)
	default:
		return true
	}
}

// Goal describes which subjects a pledge counts.
type Goal struct {
	Type    string   `json:"goal_type"`
	Tracked []string `json:"tracked,omitempty"`
	Exempt  []string `json:"exempt,omitempty"`
}

// GateResult is the outcome of gating active time for one window.
type GateResult struct {
	Counted       int64 // milliseconds, already clamped to GateTotal
	GateTotal     int64
	ScreenMissing bool
	UnlockMissing bool
	Clamped       bool
}

// Duration returns the counted time.
func (r GateResult) Duration() time.Duration {
	return time.Duration(r.Counted) * time.Millisecond
}

// RangeUsage holds the usage computed for one window. It is recomputed per
// query and never persisted.
type RangeUsage struct {
	PerSubject  map[string]int64
	DeviceTotal int64
}
