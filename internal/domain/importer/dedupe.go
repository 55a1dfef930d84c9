package importer

import (
	"strings"
	"time"

	"github.com/bioself/bioself/internal/record"
)

// Classification of an extraction candidate relative to existing records.
type Classification string

const (
	ClassNew       Classification = "new"
	ClassDuplicate Classification = "duplicate"
	ClassAmbiguous Classification = "ambiguous"
)

// ambiguousLabWindow is how close two collection dates of the same test must
// be before a non-same-day match counts as ambiguous rather than new.
const ambiguousLabWindow = 7 * 24 * time.Hour

// Match reports one candidate's classification and, when matched, the id of
// the existing record it collided with.
type Match struct {
	Name           string         `json:"name"`
	Classification Classification `json:"classification"`
	MatchedID      string         `json:"matchedId,omitempty"`
}

type CategoryReport struct {
	New        int     `json:"new"`
	Duplicates int     `json:"duplicates"`
	Ambiguous  int     `json:"ambiguous"`
	Matches    []Match `json:"matches"`
}

func (r *CategoryReport) add(m Match) {
	switch m.Classification {
	case ClassDuplicate:
		r.Duplicates++
	case ClassAmbiguous:
		r.Ambiguous++
	default:
		r.New++
	}
	r.Matches = append(r.Matches, m)
}

// DuplicateReport is the per-category result of duplicate detection.
type DuplicateReport struct {
	Labs        CategoryReport `json:"labs"`
	Medications CategoryReport `json:"medications"`
	Conditions  CategoryReport `json:"conditions"`
}

// DetectDuplicates classifies every lab, medication and condition candidate
// against the current graph. A nil graph classifies everything as new.
func DetectDuplicates(g *record.Graph, x *Extraction, fallback time.Time) DuplicateReport {
	var rep DuplicateReport
	rep.Labs.Matches = []Match{}
	rep.Medications.Matches = []Match{}
	rep.Conditions.Matches = []Match{}

	var labs []record.LabResult
	var meds []record.Medication
	var conds []record.Condition
	if g != nil {
		labs, meds, conds = g.LabResults, g.Medications, g.Conditions
	}

	for _, c := range x.Labs {
		rep.Labs.add(classifyLab(c, labs, fallback))
	}
	for _, c := range x.Medications {
		rep.Medications.add(classifyMedication(c, meds))
	}
	for _, c := range x.Conditions {
		rep.Conditions.add(classifyCondition(c, conds))
	}
	return rep
}

// classifyLab: same normalized test name on the same calendar day is a
// duplicate; same name within the ambiguity window is ambiguous.
func classifyLab(c LabCandidate, existing []record.LabResult, fallback time.Time) Match {
	m := Match{Name: c.TestName, Classification: ClassNew}
	date := c.collectedAtOr(fallback)
	name := normalize(c.TestName)

	for _, lr := range existing {
		if normalize(lr.TestName) != name {
			continue
		}
		if sameDay(lr.CollectedAt, date) {
			return Match{Name: c.TestName, Classification: ClassDuplicate, MatchedID: lr.ID}
		}
		if gap := lr.CollectedAt.Sub(date); gap < ambiguousLabWindow && gap > -ambiguousLabWindow {
			m = Match{Name: c.TestName, Classification: ClassAmbiguous, MatchedID: lr.ID}
		}
	}
	return m
}

// classifyMedication: same normalized name with the same dosage is a
// duplicate; same name with a different dosage is ambiguous (could be a
// titration rather than a re-extraction).
func classifyMedication(c MedicationCandidate, existing []record.Medication) Match {
	name := normalize(c.Name)
	m := Match{Name: c.Name, Classification: ClassNew}

	for _, med := range existing {
		if normalize(med.Name) != name {
			continue
		}
		if sameDosage(c.Dosage, med.Dosage) {
			return Match{Name: c.Name, Classification: ClassDuplicate, MatchedID: med.ID}
		}
		m = Match{Name: c.Name, Classification: ClassAmbiguous, MatchedID: med.ID}
	}
	return m
}

// classifyCondition: same normalized name with the same status is a
// duplicate; a status mismatch is ambiguous.
func classifyCondition(c ConditionCandidate, existing []record.Condition) Match {
	name := normalize(c.Name)
	status := "active"
	if c.Status != nil {
		status = *c.Status
	}
	m := Match{Name: c.Name, Classification: ClassNew}

	for _, cond := range existing {
		if normalize(cond.Name) != name {
			continue
		}
		if cond.Status == status {
			return Match{Name: c.Name, Classification: ClassDuplicate, MatchedID: cond.ID}
		}
		m = Match{Name: c.Name, Classification: ClassAmbiguous, MatchedID: cond.ID}
	}
	return m
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func sameDosage(a, b *record.Dosage) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Amount == b.Amount && a.Unit == b.Unit
}
