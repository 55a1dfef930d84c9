package timeline

import (
	"testing"
	"time"

	"github.com/bioself/bioself/internal/record"
)

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }
func tp(t time.Time) *time.Time {
	return &t
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testGraph() *record.Graph {
	return &record.Graph{
		LabResults: []record.LabResult{
			{ID: "lab-1", TestName: "Hemoglobin A1c", Value: fp(5.7), Unit: sp("%"), CollectedAt: day(2024, 6, 15)},
			{ID: "lab-2", TestName: "Creatinine", Value: fp(0.9), Unit: sp("mg/dL"), CollectedAt: day(2024, 1, 1)},
		},
		Medications: []record.Medication{
			{ID: "med-1", Name: "Lisinopril", Status: "current", StartDate: tp(day(2025, 1, 1)), Dosage: &record.Dosage{Amount: 20, Unit: "mg"}, Frequency: sp("daily")},
			{ID: "med-2", Name: "Ibuprofen", Status: "as-needed"}, // no start date: skipped
		},
		Conditions: []record.Condition{
			{ID: "cond-1", Name: "Hypertension", Status: "chronic", DiagnosedDate: tp(day(2023, 7, 10))},
			{ID: "cond-2", Name: "GERD", Status: "active"}, // no diagnosed date: skipped
		},
		Symptoms: []record.Symptom{
			{ID: "sym-1", Description: "lower back pain", Severity: 6, BodyLocation: "back.lower-back", OnsetDate: day(2024, 6, 15), Status: "active"},
		},
		ImagingStudies: []record.ImagingStudy{
			{ID: "img-1", Type: "MRI", BodyPart: "Lumbar Spine", Date: day(2024, 6, 15)},
		},
		Surgeries: []record.Surgery{
			{ID: "surg-1", Procedure: "Appendectomy", Date: tp(day(2019, 3, 2)), Hospital: sp("General Hospital")},
			{ID: "surg-2", Procedure: "Unknown-date procedure"}, // skipped
		},
	}
}

func TestAssemble_AllCategoriesAndSkips(t *testing.T) {
	events := Assemble(testGraph(), Filter{})

	// 2 labs + 1 medication + 1 condition + 1 symptom + 1 imaging + 1 surgery;
	// undated medication, condition and surgery records are skipped.
	if len(events) != 7 {
		t.Fatalf("expected 7 events, got %d", len(events))
	}
	for _, e := range events {
		if e.ID == "med-2" || e.ID == "cond-2" || e.ID == "surg-2" {
			t.Errorf("undated record %q must be skipped", e.ID)
		}
	}
}

func TestAssemble_SortDescendingWithTieBreak(t *testing.T) {
	events := Assemble(testGraph(), Filter{})

	for i := 1; i < len(events); i++ {
		if events[i].Date.After(events[i-1].Date) {
			t.Fatalf("events not sorted descending at %d: %v after %v", i, events[i].Date, events[i-1].Date)
		}
	}

	// Three events share 2024-06-15; tie-break is lab, imaging, then symptom.
	if events[1].Type != EventLab || events[2].Type != EventImaging || events[3].Type != EventSymptom {
		t.Errorf("tie-break order wrong: %v %v %v", events[1].Type, events[2].Type, events[3].Type)
	}
	if !events[0].Date.Equal(day(2025, 1, 1)) {
		t.Errorf("expected newest event first, got %v", events[0].Date)
	}
}

func TestAssemble_TypeFilter(t *testing.T) {
	events := Assemble(testGraph(), Filter{Types: []EventType{EventLab}})

	if len(events) != 2 {
		t.Fatalf("expected 2 lab events, got %d", len(events))
	}
	for _, e := range events {
		if e.Type != EventLab {
			t.Errorf("expected only lab events, got %q", e.Type)
		}
	}
}

func TestAssemble_DateFilterInclusive(t *testing.T) {
	g := &record.Graph{LabResults: []record.LabResult{
		{ID: "a", TestName: "T", Value: fp(1), CollectedAt: day(2024, 1, 1)},
		{ID: "b", TestName: "T", Value: fp(2), CollectedAt: day(2024, 6, 15)},
		{ID: "c", TestName: "T", Value: fp(3), CollectedAt: day(2025, 1, 1)},
	}}
	start := day(2024, 1, 1)
	end := day(2024, 12, 31)
	events := Assemble(g, Filter{Start: &start, End: &end})

	if len(events) != 2 {
		t.Fatalf("expected 2 events in range, got %d", len(events))
	}
	if events[0].ID != "b" || events[1].ID != "a" {
		t.Errorf("expected b then a, got %q then %q", events[0].ID, events[1].ID)
	}
}

func TestAssemble_SymptomSubtitle(t *testing.T) {
	events := Assemble(testGraph(), Filter{Types: []EventType{EventSymptom}})

	if len(events) != 1 {
		t.Fatalf("expected 1 symptom event, got %d", len(events))
	}
	want := "Severity: 6/10 - lower back"
	if events[0].Subtitle != want {
		t.Errorf("subtitle = %q, want %q", events[0].Subtitle, want)
	}
}

func TestAssemble_LabSubtitle(t *testing.T) {
	events := Assemble(testGraph(), Filter{Types: []EventType{EventLab}})

	if events[0].Subtitle != "5.7 %" {
		t.Errorf("lab subtitle = %q, want %q", events[0].Subtitle, "5.7 %")
	}
}

func TestAssemble_MedicationSubtitle(t *testing.T) {
	events := Assemble(testGraph(), Filter{Types: []EventType{EventMedication}})

	if len(events) != 1 {
		t.Fatalf("expected 1 medication event, got %d", len(events))
	}
	if events[0].Subtitle != "20mg - daily" {
		t.Errorf("medication subtitle = %q, want %q", events[0].Subtitle, "20mg - daily")
	}
}

func TestAssemble_NilGraph(t *testing.T) {
	events := Assemble(nil, Filter{})
	if events == nil || len(events) != 0 {
		t.Fatalf("expected empty slice for nil graph, got %v", events)
	}
}

func TestAssemble_Idempotent(t *testing.T) {
	g := testGraph()
	a := Assemble(g, Filter{})
	b := Assemble(g, Filter{})

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("order differs at %d: %q vs %q", i, a[i].ID, b[i].ID)
		}
	}
}

func TestParseType(t *testing.T) {
	if _, err := ParseType("lab"); err != nil {
		t.Errorf("unexpected error for lab: %v", err)
	}
	if _, err := ParseType(" surgery "); err != nil {
		t.Errorf("expected whitespace to be trimmed: %v", err)
	}
	if _, err := ParseType("allergy"); err == nil {
		t.Error("expected error for unknown type")
	}
}
