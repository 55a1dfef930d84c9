// Package importer mediates bulk import of externally extracted records into
// the store: shape conversion, duplicate classification and per-category
// insert/skip accounting.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bioself/bioself/internal/record"
)

// Timestamp accepts any ISO-8601 date or datetime on input and always emits
// RFC 3339 on output.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := record.ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Extraction is the output of an external document-parsing step: candidate
// records that have not yet been assigned store ids.
type Extraction struct {
	DateOfService *Timestamp            `json:"dateOfService,omitempty"`
	Provider      *string               `json:"provider,omitempty"`
	Facility      *string               `json:"facility,omitempty"`
	Labs          []LabCandidate        `json:"labs,omitempty"`
	Medications   []MedicationCandidate `json:"medications,omitempty"`
	Conditions    []ConditionCandidate  `json:"conditions,omitempty"`
	Imaging       []ImagingCandidate    `json:"imaging,omitempty"`
	Vitals        []VitalCandidate      `json:"vitals,omitempty"`
}

type LabCandidate struct {
	TestName       string     `json:"testName"`
	Value          *float64   `json:"value,omitempty"`
	ValueText      *string    `json:"valueText,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
	Status         *string    `json:"status,omitempty"`
	ReferenceRange *string    `json:"referenceRange,omitempty"`
	CollectedAt    *Timestamp `json:"collectedAt,omitempty"`
}

type MedicationCandidate struct {
	Name          string         `json:"name"`
	Dosage        *record.Dosage `json:"dosage,omitempty"`
	Frequency     *string        `json:"frequency,omitempty"`
	Status        *string        `json:"status,omitempty"`
	StartDate     *Timestamp     `json:"startDate,omitempty"`
	PrescribedFor *string        `json:"prescribedFor,omitempty"`
}

type ConditionCandidate struct {
	Name          string     `json:"name"`
	Status        *string    `json:"status,omitempty"`
	Severity      *string    `json:"severity,omitempty"`
	DiagnosedDate *Timestamp `json:"diagnosedDate,omitempty"`
	ICDCode       *string    `json:"icdCode,omitempty"`
}

// ImagingCandidate and VitalCandidate are surfaced in parse output but are
// not persisted by the import orchestrator.
type ImagingCandidate struct {
	Type       string     `json:"type"`
	BodyPart   string     `json:"bodyPart"`
	Indication *string    `json:"indication,omitempty"`
	Date       *Timestamp `json:"date,omitempty"`
	Findings   *string    `json:"findings,omitempty"`
	Impression *string    `json:"impression,omitempty"`
}

type VitalCandidate struct {
	Name       string     `json:"name"`
	Value      float64    `json:"value"`
	Unit       *string    `json:"unit,omitempty"`
	MeasuredAt *Timestamp `json:"measuredAt,omitempty"`
}

// collectedAtOr returns the candidate's own timestamp or the fallback.
func (c LabCandidate) collectedAtOr(fallback time.Time) time.Time {
	if c.CollectedAt != nil {
		return c.CollectedAt.Time
	}
	return fallback
}

func (c LabCandidate) toRecord(fallback time.Time) record.LabResult {
	return record.LabResult{
		TestName:       c.TestName,
		Value:          c.Value,
		ValueText:      c.ValueText,
		Unit:           c.Unit,
		Status:         c.Status,
		ReferenceRange: c.ReferenceRange,
		CollectedAt:    c.collectedAtOr(fallback),
	}
}

func (c MedicationCandidate) toRecord(fallback time.Time) record.Medication {
	m := record.Medication{
		Name:          c.Name,
		Dosage:        c.Dosage,
		Frequency:     c.Frequency,
		Status:        "current",
		PrescribedFor: c.PrescribedFor,
	}
	if c.Status != nil {
		m.Status = *c.Status
	}
	if c.StartDate != nil {
		t := c.StartDate.Time
		m.StartDate = &t
	} else {
		t := fallback
		m.StartDate = &t
	}
	return m
}

func (c ConditionCandidate) toRecord(fallback time.Time) record.Condition {
	cond := record.Condition{
		Name:     c.Name,
		Status:   "active",
		Severity: c.Severity,
		ICDCode:  c.ICDCode,
	}
	if c.Status != nil {
		cond.Status = *c.Status
	}
	if c.DiagnosedDate != nil {
		t := c.DiagnosedDate.Time
		cond.DiagnosedDate = &t
	} else {
		t := fallback
		cond.DiagnosedDate = &t
	}
	return cond
}

// Extractor produces an Extraction from a document on disk. The extraction
// pipeline itself (OCR/NLP over PDFs) is an external collaborator.
type Extractor interface {
	ExtractFromFile(ctx context.Context, path string) (*Extraction, error)
}

// JSONExtractor reads an extraction document already produced by the
// upstream pipeline.
type JSONExtractor struct{}

func (JSONExtractor) ExtractFromFile(ctx context.Context, path string) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: read %s: %w", path, err)
	}
	var x Extraction
	if err := json.Unmarshal(raw, &x); err != nil {
		return nil, fmt.Errorf("extract: %s is not an extraction document: %w", path, err)
	}
	return &x, nil
}

// ParseExtraction decodes an extraction document supplied inline (as a CLI
// argument or request body).
func ParseExtraction(raw string) (*Extraction, error) {
	var x Extraction
	if err := json.Unmarshal([]byte(raw), &x); err != nil {
		return nil, fmt.Errorf("parse extraction: %w", err)
	}
	return &x, nil
}
