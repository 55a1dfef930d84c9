package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bioself/bioself/internal/record"
)

// =========== Mock Store ===========

type mockStore struct {
	graph  *record.Graph
	nextID int
	failOn string
}

func newMockStore() *mockStore {
	return &mockStore{graph: &record.Graph{}}
}

func (m *mockStore) id() string {
	m.nextID++
	return fmt.Sprintf("id-%d", m.nextID)
}

func (m *mockStore) Get() (*record.Graph, error) {
	return m.graph, nil
}

func (m *mockStore) AddLabResult(lr record.LabResult) (*record.LabResult, error) {
	if m.failOn == lr.TestName {
		return nil, fmt.Errorf("simulated failure")
	}
	lr.ID = m.id()
	m.graph.LabResults = append(m.graph.LabResults, lr)
	return &lr, nil
}

func (m *mockStore) AddMedication(med record.Medication) (*record.Medication, error) {
	med.ID = m.id()
	m.graph.Medications = append(m.graph.Medications, med)
	return &med, nil
}

func (m *mockStore) AddCondition(c record.Condition) (*record.Condition, error) {
	c.ID = m.id()
	m.graph.Conditions = append(m.graph.Conditions, c)
	return &c, nil
}

type uninitializedStore struct{ mockStore }

func (u *uninitializedStore) Get() (*record.Graph, error) { return nil, nil }

// =========== Helpers ===========

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }
func bp(v bool) *bool       { return &v }

func ts(y int, m time.Month, d int) *Timestamp {
	return &Timestamp{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func sampleExtraction() *Extraction {
	return &Extraction{
		DateOfService: ts(2024, 6, 15),
		Labs: []LabCandidate{
			{TestName: "Hemoglobin A1c", Value: fp(5.7), Unit: sp("%"), CollectedAt: ts(2024, 6, 15)},
			{TestName: "Creatinine", Value: fp(0.9), Unit: sp("mg/dL")},
		},
		Medications: []MedicationCandidate{
			{Name: "Lisinopril", Dosage: &record.Dosage{Amount: 20, Unit: "mg"}},
		},
		Conditions: []ConditionCandidate{
			{Name: "Hypertension", Status: sp("chronic")},
		},
	}
}

// =========== Import ===========

func TestImport_InsertsAllWithoutSkip(t *testing.T) {
	st := newMockStore()
	rep, err := Import(st, sampleExtraction(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Imported.Labs != 2 || rep.Imported.Medications != 1 || rep.Imported.Conditions != 1 {
		t.Errorf("wrong imported counts: %+v", rep.Imported)
	}
	if rep.Skipped != (Counts{}) {
		t.Errorf("expected no skips, got %+v", rep.Skipped)
	}
	if len(st.graph.LabResults) != 2 {
		t.Errorf("expected 2 labs in store, got %d", len(st.graph.LabResults))
	}
}

func TestImport_DateOfServiceFallback(t *testing.T) {
	st := newMockStore()
	if _, err := Import(st, sampleExtraction(), Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Creatinine has no collectedAt of its own.
	creatinine := st.graph.LabResults[1]
	want := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if !creatinine.CollectedAt.Equal(want) {
		t.Errorf("expected dateOfService fallback %v, got %v", want, creatinine.CollectedAt)
	}
}

func TestImport_SkipDuplicatesRoundTrip(t *testing.T) {
	st := newMockStore()
	opts := Options{SkipDuplicates: true}

	first, err := Import(st, sampleExtraction(), opts)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if first.Imported.Labs != 2 || first.Imported.Medications != 1 || first.Imported.Conditions != 1 {
		t.Fatalf("first import should insert everything: %+v", first.Imported)
	}

	second, err := Import(st, sampleExtraction(), opts)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if second.Imported != (Counts{}) {
		t.Errorf("second import must insert nothing, got %+v", second.Imported)
	}
	if second.Skipped.Labs != 2 || second.Skipped.Medications != 1 || second.Skipped.Conditions != 1 {
		t.Errorf("wrong skipped counts: %+v", second.Skipped)
	}
	if len(st.graph.LabResults) != 2 {
		t.Errorf("store gained records on duplicate import: %d labs", len(st.graph.LabResults))
	}
}

func TestImport_AmbiguousImportableWhenFlagged(t *testing.T) {
	st := newMockStore()
	st.graph.Medications = []record.Medication{
		{ID: "m1", Name: "Lisinopril", Status: "current", Dosage: &record.Dosage{Amount: 10, Unit: "mg"}},
	}
	// Same name, different dosage: ambiguous.
	x := &Extraction{Medications: []MedicationCandidate{
		{Name: "Lisinopril", Dosage: &record.Dosage{Amount: 20, Unit: "mg"}},
	}}

	rep, err := Import(st, x, Options{SkipDuplicates: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Skipped.Medications != 1 {
		t.Errorf("ambiguous match must be skipped by default: %+v", rep)
	}

	rep, err = Import(st, x, Options{SkipDuplicates: true, SkipAmbiguous: bp(false)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Imported.Medications != 1 {
		t.Errorf("ambiguous match must import when skipAmbiguous=false: %+v", rep)
	}
}

func TestImport_Uninitialized(t *testing.T) {
	st := &uninitializedStore{}
	if _, err := Import(st, sampleExtraction(), Options{}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestImport_PartialFailure(t *testing.T) {
	st := newMockStore()
	st.failOn = "Creatinine"

	rep, err := Import(st, sampleExtraction(), Options{})
	if err == nil {
		t.Fatal("expected error from failing insert")
	}
	if rep.Imported.Labs != 1 {
		t.Errorf("expected first lab to remain imported, got %+v", rep.Imported)
	}
	if len(st.graph.LabResults) != 1 {
		t.Errorf("expected 1 lab in store after partial failure, got %d", len(st.graph.LabResults))
	}
}

// =========== Duplicate detection ===========

func TestDetectDuplicates_LabSameDay(t *testing.T) {
	g := &record.Graph{LabResults: []record.LabResult{
		{ID: "l1", TestName: "Hemoglobin A1c", Value: fp(5.7), CollectedAt: time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)},
	}}
	x := &Extraction{Labs: []LabCandidate{
		{TestName: "hemoglobin  a1c", CollectedAt: ts(2024, 6, 15)},
	}}
	rep := DetectDuplicates(g, x, time.Now())

	if rep.Labs.Duplicates != 1 {
		t.Fatalf("expected duplicate, got %+v", rep.Labs)
	}
	if rep.Labs.Matches[0].MatchedID != "l1" {
		t.Errorf("expected matchedId l1, got %q", rep.Labs.Matches[0].MatchedID)
	}
}

func TestDetectDuplicates_LabNearbyAmbiguous(t *testing.T) {
	g := &record.Graph{LabResults: []record.LabResult{
		{ID: "l1", TestName: "Creatinine", CollectedAt: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
	}}
	x := &Extraction{Labs: []LabCandidate{
		{TestName: "Creatinine", CollectedAt: ts(2024, 6, 18)},
	}}
	rep := DetectDuplicates(g, x, time.Now())

	if rep.Labs.Ambiguous != 1 {
		t.Fatalf("expected ambiguous within window, got %+v", rep.Labs)
	}
}

func TestDetectDuplicates_LabDistantIsNew(t *testing.T) {
	g := &record.Graph{LabResults: []record.LabResult{
		{ID: "l1", TestName: "Creatinine", CollectedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	x := &Extraction{Labs: []LabCandidate{
		{TestName: "Creatinine", CollectedAt: ts(2024, 6, 18)},
	}}
	rep := DetectDuplicates(g, x, time.Now())

	if rep.Labs.New != 1 {
		t.Fatalf("expected new for distant reading, got %+v", rep.Labs)
	}
}

func TestDetectDuplicates_ConditionStatusMismatch(t *testing.T) {
	g := &record.Graph{Conditions: []record.Condition{
		{ID: "c1", Name: "Hypertension", Status: "active"},
	}}
	x := &Extraction{Conditions: []ConditionCandidate{
		{Name: "Hypertension", Status: sp("resolved")},
	}}
	rep := DetectDuplicates(g, x, time.Now())

	if rep.Conditions.Ambiguous != 1 {
		t.Fatalf("expected ambiguous on status mismatch, got %+v", rep.Conditions)
	}
}

func TestDetectDuplicates_NilGraphAllNew(t *testing.T) {
	rep := DetectDuplicates(nil, sampleExtraction(), time.Now())
	if rep.Labs.New != 2 || rep.Medications.New != 1 || rep.Conditions.New != 1 {
		t.Errorf("expected everything new against nil graph: %+v", rep)
	}
}

// =========== Extraction parsing ===========

func TestParseExtraction_FlexibleDates(t *testing.T) {
	raw := `{
		"dateOfService": "2024-06-15",
		"labs": [{"testName": "TSH", "value": 2.1, "collectedAt": "2024-06-15T09:30:00Z"}]
	}`
	x, err := ParseExtraction(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x.DateOfService == nil || !x.DateOfService.Equal(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("wrong dateOfService: %v", x.DateOfService)
	}
	if len(x.Labs) != 1 || x.Labs[0].CollectedAt == nil {
		t.Fatalf("lab not parsed: %+v", x.Labs)
	}
}

func TestParseExtraction_Invalid(t *testing.T) {
	if _, err := ParseExtraction("{not json"); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if _, err := ParseExtraction(`{"dateOfService": "yesterday"}`); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}

func TestTimestamp_MarshalRFC3339(t *testing.T) {
	b, err := json.Marshal(ts(2024, 6, 15))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-06-15T00:00:00Z"` {
		t.Errorf("got %s", b)
	}
}
