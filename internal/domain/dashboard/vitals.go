package dashboard

import (
	"math"
	"time"

	"github.com/bioself/bioself/internal/record"
)

// VitalsSummary is the latest-known-value snapshot across the two
// device-derived series. Only fields with a known value are present.
type VitalsSummary struct {
	RestingHeartRate *int       `json:"restingHeartRate,omitempty"`
	HRV              *float64   `json:"hrv,omitempty"`
	RecoveryScore    *int       `json:"recoveryScore,omitempty"`
	SleepHours       *float64   `json:"sleepHours,omitempty"`
	StepCount        *int       `json:"stepCount,omitempty"`
	LastUpdated      *time.Time `json:"lastUpdated,omitempty"`
}

// SummarizeVitals reduces the recovery-cycle and daily-activity series to a
// single snapshot. The two series are read independently: an empty one never
// prevents the other from contributing fields.
func SummarizeVitals(cycles []record.RecoveryCycle, activity []record.ActivitySummary) VitalsSummary {
	var out VitalsSummary

	if latest := latestCycle(cycles); latest != nil {
		out.RestingHeartRate = latest.RestingHeartRate
		out.HRV = latest.HRV
		out.RecoveryScore = latest.RecoveryScore
		if latest.AsleepDuration != nil {
			hours := math.Round(float64(*latest.AsleepDuration)/60*10) / 10
			out.SleepHours = &hours
		}
		ts := latest.CycleStart
		out.LastUpdated = &ts
	}

	if latest := latestActivity(activity); latest != nil {
		out.StepCount = latest.StepCount
		if out.LastUpdated == nil {
			ts := latest.Date
			out.LastUpdated = &ts
		}
	}

	return out
}

func latestCycle(cycles []record.RecoveryCycle) *record.RecoveryCycle {
	var latest *record.RecoveryCycle
	for i := range cycles {
		if latest == nil || cycles[i].CycleStart.After(latest.CycleStart) {
			latest = &cycles[i]
		}
	}
	return latest
}

func latestActivity(activity []record.ActivitySummary) *record.ActivitySummary {
	var latest *record.ActivitySummary
	for i := range activity {
		if latest == nil || activity[i].Date.After(latest.Date) {
			latest = &activity[i]
		}
	}
	return latest
}
