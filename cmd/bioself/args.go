package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bioself/bioself/internal/domain/timeline"
	"github.com/bioself/bioself/internal/record"
)

// parseTimelineArgs interprets the optional positional args
// [types_csv] [start] [end]. An empty or "all" types arg enables every
// category.
func parseTimelineArgs(args []string) (timeline.Filter, error) {
	var f timeline.Filter

	if len(args) >= 1 && args[0] != "" && args[0] != "all" {
		for _, part := range strings.Split(args[0], ",") {
			t, err := timeline.ParseType(part)
			if err != nil {
				return f, err
			}
			f.Types = append(f.Types, t)
		}
	}
	if len(args) >= 2 && args[1] != "" {
		t, err := record.ParseTime(args[1])
		if err != nil {
			return f, fmt.Errorf("start date: %w", err)
		}
		f.Start = &t
	}
	if len(args) >= 3 && args[2] != "" {
		t, err := record.ParseTime(args[2])
		if err != nil {
			return f, fmt.Errorf("end date: %w", err)
		}
		f.End = &t
	}
	return f, nil
}

// symptomInput is the add-symptom argv payload: ISO date strings at the
// boundary, converted to native timestamps before insert.
type symptomInput struct {
	Description       string   `json:"description"`
	Severity          int      `json:"severity"`
	BodyLocation      string   `json:"bodyLocation"`
	OnsetDate         string   `json:"onsetDate"`
	ResolvedDate      *string  `json:"resolvedDate,omitempty"`
	Duration          *string  `json:"duration,omitempty"`
	Status            string   `json:"status"`
	Frequency         *string  `json:"frequency,omitempty"`
	TimeOfDay         *string  `json:"timeOfDay,omitempty"`
	AssociatedFactors []string `json:"associatedFactors,omitempty"`
	Notes             *string  `json:"notes,omitempty"`
}

var validSymptomStatuses = map[string]bool{
	"active": true, "resolved": true, "recurring": true,
}

func parseSymptom(raw string) (*record.Symptom, error) {
	var in symptomInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, fmt.Errorf("parse symptom: %w", err)
	}

	if in.Description == "" {
		return nil, fmt.Errorf("description is required")
	}
	if in.Severity < 1 || in.Severity > 10 {
		return nil, fmt.Errorf("severity must be between 1 and 10, got %d", in.Severity)
	}
	if in.BodyLocation == "" {
		return nil, fmt.Errorf("bodyLocation is required")
	}
	if in.OnsetDate == "" {
		return nil, fmt.Errorf("onsetDate is required")
	}
	if in.Status == "" {
		return nil, fmt.Errorf("status is required")
	}
	if !validSymptomStatuses[in.Status] {
		return nil, fmt.Errorf("invalid status: %s", in.Status)
	}

	onset, err := record.ParseTime(in.OnsetDate)
	if err != nil {
		return nil, fmt.Errorf("onsetDate: %w", err)
	}

	sym := &record.Symptom{
		Description:       in.Description,
		Severity:          in.Severity,
		BodyLocation:      in.BodyLocation,
		OnsetDate:         onset,
		Duration:          in.Duration,
		Status:            in.Status,
		Frequency:         in.Frequency,
		TimeOfDay:         in.TimeOfDay,
		AssociatedFactors: in.AssociatedFactors,
		Notes:             in.Notes,
	}
	if in.ResolvedDate != nil {
		resolved, err := record.ParseTime(*in.ResolvedDate)
		if err != nil {
			return nil, fmt.Errorf("resolvedDate: %w", err)
		}
		sym.ResolvedDate = &resolved
	}
	return sym, nil
}
