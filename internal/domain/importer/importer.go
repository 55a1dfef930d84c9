package importer

import (
	"errors"
	"fmt"
	"time"

	"github.com/bioself/bioself/internal/record"
)

// ErrNotInitialized is returned when import is attempted before the store
// has been created.
var ErrNotInitialized = errors.New("health record store is not initialized")

// RecordStore is the subset of the store API the orchestrator needs.
type RecordStore interface {
	Get() (*record.Graph, error)
	AddLabResult(record.LabResult) (*record.LabResult, error)
	AddMedication(record.Medication) (*record.Medication, error)
	AddCondition(record.Condition) (*record.Condition, error)
}

// Options control duplicate handling during import.
//
// SkipDuplicates enables duplicate detection; without it every candidate is
// inserted unconditionally. SkipAmbiguous only applies while detection is
// enabled: ambiguous matches are skipped by default, and imported only when
// it is explicitly set to false.
type Options struct {
	SkipDuplicates bool  `json:"skipDuplicates"`
	SkipAmbiguous  *bool `json:"skipAmbiguous,omitempty"`
}

func (o Options) skipAmbiguous() bool {
	return o.SkipAmbiguous == nil || *o.SkipAmbiguous
}

type Counts struct {
	Labs        int `json:"labs"`
	Medications int `json:"medications"`
	Conditions  int `json:"conditions"`
}

// Report carries inserted and skipped counts per category. Imaging and
// vitals candidates never appear here: they are parsed and surfaced but not
// persisted on import.
type Report struct {
	Imported Counts `json:"imported"`
	Skipped  Counts `json:"skipped"`
}

// Import converts the extraction's labs, medications and conditions into
// store records and inserts them, one store mutation per item. Candidates
// missing their own timestamp fall back to the extraction's dateOfService,
// or to the current time.
//
// Import is not transactional: a failed insert leaves earlier items in
// place, and the returned error reports the item that failed.
func Import(st RecordStore, x *Extraction, opts Options) (*Report, error) {
	g, err := st.Get()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotInitialized
	}

	fallback := time.Now().UTC()
	if x.DateOfService != nil {
		fallback = x.DateOfService.Time
	}

	var rep Report
	var detection *DuplicateReport
	if opts.SkipDuplicates {
		d := DetectDuplicates(g, x, fallback)
		detection = &d
	}

	for i, c := range x.Labs {
		if detection != nil && skip(detection.Labs.Matches[i].Classification, opts) {
			rep.Skipped.Labs++
			continue
		}
		if _, err := st.AddLabResult(c.toRecord(fallback)); err != nil {
			return &rep, fmt.Errorf("import lab %q: %w", c.TestName, err)
		}
		rep.Imported.Labs++
	}

	for i, c := range x.Medications {
		if detection != nil && skip(detection.Medications.Matches[i].Classification, opts) {
			rep.Skipped.Medications++
			continue
		}
		if _, err := st.AddMedication(c.toRecord(fallback)); err != nil {
			return &rep, fmt.Errorf("import medication %q: %w", c.Name, err)
		}
		rep.Imported.Medications++
	}

	for i, c := range x.Conditions {
		if detection != nil && skip(detection.Conditions.Matches[i].Classification, opts) {
			rep.Skipped.Conditions++
			continue
		}
		if _, err := st.AddCondition(c.toRecord(fallback)); err != nil {
			return &rep, fmt.Errorf("import condition %q: %w", c.Name, err)
		}
		rep.Imported.Conditions++
	}

	return &rep, nil
}

func skip(class Classification, opts Options) bool {
	switch class {
	case ClassDuplicate:
		return true
	case ClassAmbiguous:
		return opts.skipAmbiguous()
	default:
		return false
	}
}
