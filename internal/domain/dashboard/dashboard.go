// Package dashboard derives read-models from a record graph snapshot: the
// summary counts, the vitals snapshot and the full dashboard view. Every
// function here is a pure transform; nothing mutates the graph.
package dashboard

import (
	"sort"
	"time"

	"github.com/bioself/bioself/internal/record"
)

// maxRecent caps the recentLabs and recentSymptoms lists.
const maxRecent = 10

// Summary reports raw collection counts plus the graph's last-write time.
// A nil graph (uninitialized store) yields zero counts and a null
// lastUpdated; that is defined behavior, not an error.
type Summary struct {
	Conditions     int        `json:"conditions"`
	Medications    int        `json:"medications"`
	LabResults     int        `json:"labResults"`
	Symptoms       int        `json:"symptoms"`
	ImagingStudies int        `json:"imagingStudies"`
	Surgeries      int        `json:"surgeries"`
	DeviceRecords  int        `json:"deviceRecords"`
	LastUpdated    *time.Time `json:"lastUpdated"`
}

type ConditionSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Severity *string `json:"severity,omitempty"`
}

type MedicationSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Dosage    *string `json:"dosage,omitempty"`
	Frequency *string `json:"frequency,omitempty"`
	Status    string  `json:"status"`
}

type SymptomSummary struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	Severity     int       `json:"severity"`
	BodyLocation string    `json:"bodyLocation"`
	OnsetDate    time.Time `json:"onsetDate"`
	Status       string    `json:"status"`
}

// LabWithTrend is a lab result's most recent reading annotated with its
// direction relative to the next-older reading of the same test. Trend is
// null for first-ever or categorical readings.
type LabWithTrend struct {
	ID             string    `json:"id"`
	TestName       string    `json:"testName"`
	Value          *float64  `json:"value,omitempty"`
	ValueText      *string   `json:"valueText,omitempty"`
	Unit           *string   `json:"unit,omitempty"`
	Status         *string   `json:"status,omitempty"`
	ReferenceRange *string   `json:"referenceRange,omitempty"`
	CollectedAt    time.Time `json:"collectedAt"`
	Trend          *Trend    `json:"trend"`
	PreviousValue  *float64  `json:"previousValue,omitempty"`
}

// Data is the composed dashboard read-model.
type Data struct {
	ActiveConditions   []ConditionSummary  `json:"activeConditions"`
	CurrentMedications []MedicationSummary `json:"currentMedications"`
	RecentLabs         []LabWithTrend      `json:"recentLabs"`
	Vitals             VitalsSummary       `json:"vitalsSummary"`
	RecentSymptoms     []SymptomSummary    `json:"recentSymptoms"`
	Summary            Summary             `json:"summary"`
}

// Summarize counts each collection. Device records are the two device series
// combined.
func Summarize(g *record.Graph) Summary {
	if g == nil {
		return Summary{}
	}
	ts := g.UpdatedAt
	return Summary{
		Conditions:     len(g.Conditions),
		Medications:    len(g.Medications),
		LabResults:     len(g.LabResults),
		Symptoms:       len(g.Symptoms),
		ImagingStudies: len(g.ImagingStudies),
		Surgeries:      len(g.Surgeries),
		DeviceRecords:  len(g.RecoveryCycles) + len(g.ActivitySummaries),
		LastUpdated:    &ts,
	}
}

// Build composes the dashboard from one graph snapshot. Calling it twice
// with the same snapshot yields identical output.
func Build(g *record.Graph) Data {
	if g == nil {
		return Data{
			ActiveConditions:   []ConditionSummary{},
			CurrentMedications: []MedicationSummary{},
			RecentLabs:         []LabWithTrend{},
			RecentSymptoms:     []SymptomSummary{},
		}
	}
	return Data{
		ActiveConditions:   activeConditions(g.Conditions),
		CurrentMedications: currentMedications(g.Medications),
		RecentLabs:         recentLabs(g.LabResults),
		Vitals:             SummarizeVitals(g.RecoveryCycles, g.ActivitySummaries),
		RecentSymptoms:     recentSymptoms(g.Symptoms),
		Summary:            Summarize(g),
	}
}

func activeConditions(conditions []record.Condition) []ConditionSummary {
	out := []ConditionSummary{}
	for _, c := range conditions {
		if c.Status != "active" && c.Status != "chronic" {
			continue
		}
		out = append(out, ConditionSummary{
			ID:       c.ID,
			Name:     c.Name,
			Status:   c.Status,
			Severity: c.Severity,
		})
	}
	return out
}

func currentMedications(meds []record.Medication) []MedicationSummary {
	out := []MedicationSummary{}
	for _, m := range meds {
		if m.Status != "current" && m.Status != "as-needed" {
			continue
		}
		ms := MedicationSummary{
			ID:        m.ID,
			Name:      m.Name,
			Frequency: m.Frequency,
			Status:    m.Status,
		}
		if m.Dosage != nil {
			d := m.Dosage.Display()
			ms.Dosage = &d
		}
		out = append(out, ms)
	}
	return out
}

// recentLabs emits one entry per distinct test name, most recent reading
// first, trended against that test's next-older reading.
func recentLabs(labs []record.LabResult) []LabWithTrend {
	sorted := make([]record.LabResult, len(labs))
	copy(sorted, labs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CollectedAt.After(sorted[j].CollectedAt)
	})

	out := []LabWithTrend{}
	seen := map[string]bool{}
	for i, lr := range sorted {
		if seen[lr.TestName] {
			continue
		}
		seen[lr.TestName] = true

		entry := LabWithTrend{
			ID:             lr.ID,
			TestName:       lr.TestName,
			Value:          lr.Value,
			ValueText:      lr.ValueText,
			Unit:           lr.Unit,
			Status:         lr.Status,
			ReferenceRange: lr.ReferenceRange,
			CollectedAt:    lr.CollectedAt,
		}
		if prev := nextOlder(sorted[i+1:], lr.TestName); prev != nil && lr.Value != nil && prev.Value != nil {
			trend := ComputeTrend(*lr.Value, *prev.Value)
			entry.Trend = &trend
			entry.PreviousValue = prev.Value
		}
		out = append(out, entry)

		if len(out) == maxRecent {
			break
		}
	}
	return out
}

func nextOlder(older []record.LabResult, testName string) *record.LabResult {
	for i := range older {
		if older[i].TestName == testName {
			return &older[i]
		}
	}
	return nil
}

func recentSymptoms(symptoms []record.Symptom) []SymptomSummary {
	filtered := []SymptomSummary{}
	for _, s := range symptoms {
		if s.Status != "active" && s.Status != "recurring" {
			continue
		}
		filtered = append(filtered, SymptomSummary{
			ID:           s.ID,
			Description:  s.Description,
			Severity:     s.Severity,
			BodyLocation: s.BodyLocation,
			OnsetDate:    s.OnsetDate,
			Status:       s.Status,
		})
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].OnsetDate.After(filtered[j].OnsetDate)
	})
	if len(filtered) > maxRecent {
		filtered = filtered[:maxRecent]
	}
	return filtered
}
