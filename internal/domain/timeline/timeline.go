// Package timeline projects the six record categories onto a single
// chronological event list. Events are derived fresh on every call and never
// persisted.
package timeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bioself/bioself/internal/record"
)

type EventType string

const (
	EventLab        EventType = "lab"
	EventMedication EventType = "medication"
	EventCondition  EventType = "condition"
	EventSymptom    EventType = "symptom"
	EventImaging    EventType = "imaging"
	EventSurgery    EventType = "surgery"
)

// AllTypes is the default category set, in tie-break priority order.
var AllTypes = []EventType{EventLab, EventImaging, EventCondition, EventMedication, EventSurgery, EventSymptom}

var typePriority = map[EventType]int{
	EventLab:        0,
	EventImaging:    1,
	EventCondition:  2,
	EventMedication: 3,
	EventSurgery:    4,
	EventSymptom:    5,
}

// ParseType validates a category name from the CLI/HTTP boundary.
func ParseType(s string) (EventType, error) {
	t := EventType(strings.TrimSpace(s))
	if _, ok := typePriority[t]; !ok {
		return "", fmt.Errorf("unknown timeline type %q", s)
	}
	return t, nil
}

// Event is a display-ready projection of one underlying record.
type Event struct {
	ID       string            `json:"id"`
	Type     EventType         `json:"type"`
	Date     time.Time         `json:"date"`
	Title    string            `json:"title"`
	Subtitle string            `json:"subtitle,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}

// Data is the timeline response shape.
type Data struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
}

// Filter bounds are inclusive on both ends; either may be nil.
type Filter struct {
	Types []EventType
	Start *time.Time
	End   *time.Time
}

// Assemble merges the enabled categories into one list sorted by date
// descending. Records without a usable date for their category are skipped.
// Equal dates order by category priority, then record id, so output is
// stable across runs.
func Assemble(g *record.Graph, f Filter) []Event {
	if g == nil {
		return []Event{}
	}

	types := f.Types
	if len(types) == 0 {
		types = AllTypes
	}
	enabled := map[EventType]bool{}
	for _, t := range types {
		enabled[t] = true
	}

	events := []Event{}
	add := func(e Event) {
		if f.Start != nil && e.Date.Before(*f.Start) {
			return
		}
		if f.End != nil && e.Date.After(*f.End) {
			return
		}
		events = append(events, e)
	}

	if enabled[EventLab] {
		for _, lr := range g.LabResults {
			add(labEvent(lr))
		}
	}
	if enabled[EventMedication] {
		for _, m := range g.Medications {
			if m.StartDate == nil {
				continue
			}
			add(medicationEvent(m))
		}
	}
	if enabled[EventCondition] {
		for _, c := range g.Conditions {
			if c.DiagnosedDate == nil {
				continue
			}
			add(conditionEvent(c))
		}
	}
	if enabled[EventSymptom] {
		for _, s := range g.Symptoms {
			add(symptomEvent(s))
		}
	}
	if enabled[EventImaging] {
		for _, is := range g.ImagingStudies {
			add(imagingEvent(is))
		}
	}
	if enabled[EventSurgery] {
		for _, s := range g.Surgeries {
			if s.Date == nil {
				continue
			}
			add(surgeryEvent(s))
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.After(events[j].Date)
		}
		if typePriority[events[i].Type] != typePriority[events[j].Type] {
			return typePriority[events[i].Type] < typePriority[events[j].Type]
		}
		return events[i].ID < events[j].ID
	})
	return events
}

func labEvent(lr record.LabResult) Event {
	details := map[string]string{}
	if lr.Status != nil {
		details["status"] = *lr.Status
	}
	if lr.ReferenceRange != nil {
		details["referenceRange"] = *lr.ReferenceRange
	}
	return Event{
		ID:       lr.ID,
		Type:     EventLab,
		Date:     lr.CollectedAt,
		Title:    lr.TestName,
		Subtitle: record.FormatLabValue(lr),
		Details:  compact(details),
	}
}

func medicationEvent(m record.Medication) Event {
	var parts []string
	if m.Dosage != nil {
		parts = append(parts, m.Dosage.Display())
	}
	if m.Frequency != nil {
		parts = append(parts, *m.Frequency)
	}
	details := map[string]string{"status": m.Status}
	if m.PrescribedFor != nil {
		details["prescribedFor"] = *m.PrescribedFor
	}
	return Event{
		ID:       m.ID,
		Type:     EventMedication,
		Date:     *m.StartDate,
		Title:    m.Name,
		Subtitle: strings.Join(parts, " - "),
		Details:  details,
	}
}

func conditionEvent(c record.Condition) Event {
	details := map[string]string{"status": c.Status}
	if c.Severity != nil {
		details["severity"] = *c.Severity
	}
	if c.ICDCode != nil {
		details["icdCode"] = *c.ICDCode
	}
	return Event{
		ID:       c.ID,
		Type:     EventCondition,
		Date:     *c.DiagnosedDate,
		Title:    c.Name,
		Subtitle: c.Status,
		Details:  details,
	}
}

// symptomEvent renders the subtitle as "Severity: N/10 - <location>", where
// location is the last segment of the dotted bodyLocation path with dashes
// replaced by spaces.
func symptomEvent(s record.Symptom) Event {
	details := map[string]string{"status": s.Status}
	if s.Duration != nil {
		details["duration"] = *s.Duration
	}
	if s.Frequency != nil {
		details["frequency"] = *s.Frequency
	}
	if s.Notes != nil {
		details["notes"] = *s.Notes
	}
	return Event{
		ID:       s.ID,
		Type:     EventSymptom,
		Date:     s.OnsetDate,
		Title:    s.Description,
		Subtitle: fmt.Sprintf("Severity: %d/10 - %s", s.Severity, locationLabel(s.BodyLocation)),
		Details:  details,
	}
}

func imagingEvent(is record.ImagingStudy) Event {
	details := map[string]string{}
	if is.Indication != nil {
		details["indication"] = *is.Indication
	}
	if is.Findings != nil {
		details["findings"] = *is.Findings
	}
	if is.Impression != nil {
		details["impression"] = *is.Impression
	}
	return Event{
		ID:       is.ID,
		Type:     EventImaging,
		Date:     is.Date,
		Title:    is.Type,
		Subtitle: is.BodyPart,
		Details:  compact(details),
	}
}

func surgeryEvent(s record.Surgery) Event {
	details := map[string]string{}
	if s.Reason != nil {
		details["reason"] = *s.Reason
	}
	if s.Outcome != nil {
		details["outcome"] = *s.Outcome
	}
	if s.Complications != nil {
		details["complications"] = *s.Complications
	}
	var subtitle string
	if s.Hospital != nil {
		subtitle = *s.Hospital
	}
	return Event{
		ID:       s.ID,
		Type:     EventSurgery,
		Date:     *s.Date,
		Title:    s.Procedure,
		Subtitle: subtitle,
		Details:  compact(details),
	}
}

func locationLabel(bodyLocation string) string {
	segments := strings.Split(bodyLocation, ".")
	last := segments[len(segments)-1]
	return strings.ReplaceAll(last, "-", " ")
}

func compact(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}
