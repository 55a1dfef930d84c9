// Package record defines the health-record value types held by the encrypted
// store. Every entity is an immutable value from the aggregation layer's
// perspective: collections are append-only and ids are assigned by the store
// at insert time.
package record

import "time"

// Graph is the root aggregate: one consistent snapshot of every record
// collection a user owns.
type Graph struct {
	LabResults        []LabResult       `json:"labResults"`
	Medications       []Medication      `json:"medications"`
	Conditions        []Condition       `json:"conditions"`
	Symptoms          []Symptom         `json:"symptoms"`
	ImagingStudies    []ImagingStudy    `json:"imagingStudies"`
	Surgeries         []Surgery         `json:"surgicalHistory"`
	RecoveryCycles    []RecoveryCycle   `json:"recoveryCycles"`
	ActivitySummaries []ActivitySummary `json:"activitySummaries"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// LabResult is a single observation of a named test. Results sharing a
// TestName form an implicit time series ordered by CollectedAt. Exactly one
// of Value (numeric) or ValueText (categorical) is expected to be set.
type LabResult struct {
	ID             string    `json:"id"`
	TestName       string    `json:"testName"`
	Value          *float64  `json:"value,omitempty"`
	ValueText      *string   `json:"valueText,omitempty"`
	Unit           *string   `json:"unit,omitempty"`
	Status         *string   `json:"status,omitempty"`
	ReferenceRange *string   `json:"referenceRange,omitempty"`
	CollectedAt    time.Time `json:"collectedAt"`
}

// Dosage is a medication amount with its unit, e.g. {20, "mg"}.
type Dosage struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Display renders the dosage as "{amount}{unit}" with no separator,
// trimming a trailing ".0" from whole amounts.
func (d Dosage) Display() string {
	s := formatAmount(d.Amount)
	return s + d.Unit
}

type Medication struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Dosage        *Dosage    `json:"dosage,omitempty"`
	Frequency     *string    `json:"frequency,omitempty"`
	Status        string     `json:"status"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	PrescribedFor *string    `json:"prescribedFor,omitempty"`
}

type Condition struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	Severity      *string    `json:"severity,omitempty"`
	DiagnosedDate *time.Time `json:"diagnosedDate,omitempty"`
	ICDCode       *string    `json:"icdCode,omitempty"`
}

// Symptom severity is an integer on a 1-10 scale. BodyLocation is a dotted
// hierarchical path such as "back.lower-back.left-side".
type Symptom struct {
	ID                string     `json:"id"`
	Description       string     `json:"description"`
	Severity          int        `json:"severity"`
	BodyLocation      string     `json:"bodyLocation"`
	OnsetDate         time.Time  `json:"onsetDate"`
	ResolvedDate      *time.Time `json:"resolvedDate,omitempty"`
	Duration          *string    `json:"duration,omitempty"`
	Status            string     `json:"status"`
	Frequency         *string    `json:"frequency,omitempty"`
	TimeOfDay         *string    `json:"timeOfDay,omitempty"`
	AssociatedFactors []string   `json:"associatedFactors,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
}

type ImagingStudy struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	BodyPart   string    `json:"bodyPart"`
	Indication *string   `json:"indication,omitempty"`
	Date       time.Time `json:"date"`
	Findings   *string   `json:"findings,omitempty"`
	Impression *string   `json:"impression,omitempty"`
}

type Surgery struct {
	ID            string     `json:"id"`
	Procedure     string     `json:"procedure"`
	Reason        *string    `json:"reason,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	Outcome       *string    `json:"outcome,omitempty"`
	Complications *string    `json:"complications,omitempty"`
	Hospital      *string    `json:"hospital,omitempty"`
}

// RecoveryCycle is one device-derived physiological cycle (typically one
// sleep/wake period). AsleepDuration is in minutes as reported by the device.
type RecoveryCycle struct {
	CycleStart       time.Time `json:"cycleStart"`
	RestingHeartRate *int      `json:"restingHeartRate,omitempty"`
	HRV              *float64  `json:"hrv,omitempty"`
	RecoveryScore    *int      `json:"recoveryScore,omitempty"`
	AsleepDuration   *int      `json:"asleepDuration,omitempty"`
}

type ActivitySummary struct {
	Date      time.Time `json:"date"`
	StepCount *int      `json:"stepCount,omitempty"`
}
