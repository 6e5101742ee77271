package eligibility

import (
	"fmt"
	"sort"
	"strings"
)

// VersionPolicy decides what happens when a plan is versioned but no version covers a cohort.
type VersionPolicy string

// Version policies.
const (
	// PolicyFallback uses the version-agnostic edges.
	PolicyFallback VersionPolicy = "fallback"
	// PolicyStrict resolves no prerequisites and flags the gap.
	PolicyStrict VersionPolicy = "strict"
)

// ParseVersionPolicy validates a policy name, defaulting to fallback.
func ParseVersionPolicy(value string) (VersionPolicy, error) {
	switch VersionPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyFallback:
		return PolicyFallback, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown correlativity version policy %q", value)
	}
}

// Edge is a prerequisite relation between two subjects.
type Edge struct {
	ID             uint
	SubjectID      uint
	PrerequisiteID uint
	Kind           Kind
	// VersionID is nil for version-agnostic edges.
	VersionID *uint
}

// Version is a cohort-scoped overlay of correlativity edges.
type Version struct {
	ID         uint
	PlanID     uint
	Name       string
	CohortFrom int
	// CohortTo is nil for an open-ended range.
	CohortTo *int
	Active   bool
}

// Covers reports whether the version applies to a cohort year.
func (v Version) Covers(cohort int) bool {
	if !v.Active || cohort < v.CohortFrom {
		return false
	}
	return v.CohortTo == nil || cohort <= *v.CohortTo
}

// Graph is the curriculum snapshot of a plan.
type Graph struct {
	Subjects map[uint]Subject
	Edges    []Edge
	Versions []Version
}

// Subject looks up a subject, falling back to an id-only snapshot.
func (g Graph) Subject(id uint) Subject {
	if subject, ok := g.Subjects[id]; ok {
		return subject
	}
	return Subject{ID: id}
}

// SelectVersion returns the single version applying to a cohort of a plan: among the
// active versions covering the cohort, the one starting latest wins, then the highest id.
func SelectVersion(versions []Version, planID uint, cohort int) (Version, bool) {
	var (
		selected Version
		found    bool
	)
	for _, version := range versions {
		if version.PlanID != planID || !version.Covers(cohort) {
			continue
		}
		if !found ||
			version.CohortFrom > selected.CohortFrom ||
			(version.CohortFrom == selected.CohortFrom && version.ID > selected.ID) {
			selected, found = version, true
		}
	}
	return selected, found
}

// Resolution is the effective prerequisite set of a subject for one requirement kind.
type Resolution struct {
	Kind          Kind
	Version       *Version
	Prerequisites []Subject
	// Unresolved is set under the strict policy when the plan is versioned but no
	// version covers the cohort.
	Unresolved bool
}

// ResolveCorrelativities applies the cohort-version overlay to a subject's edges. A nil
// cohort means the student's cohort for the plan is unknown, so no version can apply.
func ResolveCorrelativities(g Graph, subject Subject, kind Kind, cohort *int, policy VersionPolicy) Resolution {
	resolution := Resolution{Kind: kind}

	var version Version
	var versioned bool
	if cohort != nil {
		version, versioned = SelectVersion(g.Versions, subject.PlanID, *cohort)
	}

	if versioned {
		resolution.Version = &version
	} else if policy == PolicyStrict && planIsVersioned(g.Versions, subject.PlanID) {
		resolution.Unresolved = true
		return resolution
	}

	seen := map[uint]struct{}{}
	for _, edge := range g.Edges {
		if edge.SubjectID != subject.ID || edge.Kind != kind {
			continue
		}
		if versioned {
			if edge.VersionID == nil || *edge.VersionID != version.ID {
				continue
			}
		} else if edge.VersionID != nil {
			continue
		}
		if _, dup := seen[edge.PrerequisiteID]; dup {
			continue
		}
		seen[edge.PrerequisiteID] = struct{}{}
		resolution.Prerequisites = append(resolution.Prerequisites, g.Subject(edge.PrerequisiteID))
	}

	sort.Slice(resolution.Prerequisites, func(i, j int) bool {
		return resolution.Prerequisites[i].ID < resolution.Prerequisites[j].ID
	})

	return resolution
}

func planIsVersioned(versions []Version, planID uint) bool {
	for _, version := range versions {
		if version.PlanID == planID && version.Active {
			return true
		}
	}
	return false
}
