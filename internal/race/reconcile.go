package race

import (
	"math"
	"time"

	"github.com/georace/georace/internal/database/models"
	"github.com/georace/georace/internal/geo"
)

// DayLayout is the canonical format for daily distance keys (UTC calendar day).
const DayLayout = "2006-01-02"

// Batch size bounds for one sync submission.
const (
	MinBatchSize = 1
	MaxBatchSize = 60
)

// Sample is one day's distance report from a wearable or health data source.
// Samples may arrive out of order, duplicated, or under-reported.
type Sample struct {
	Day        string  `json:"day" binding:"required"`
	DistanceKm float64 `json:"distance_km"`
}

// MergeResult reports the effect of applying one sample batch to a participant.
type MergeResult struct {
	GainedKm     float64 `json:"gained_km"`
	TotalKm      float64 `json:"total_km"`
	DaysAccepted int     `json:"days_accepted"`
	DaysSkipped  int     `json:"days_skipped"`
	// Completed is set when this merge pushed the participant over the
	// race distance and flipped their status.
	Completed bool `json:"completed"`
}

// Distance returns the race's geodesic distance in kilometers, the
// authoritative completion threshold. Computed on demand, never stored.
func Distance(r *models.Race) float64 {
	return geo.Haversine(r.StartLat, r.StartLng, r.EndLat, r.EndLng)
}

func validSample(s Sample) bool {
	if math.IsNaN(s.DistanceKm) || math.IsInf(s.DistanceKm, 0) || s.DistanceKm < 0 {
		return false
	}
	if _, err := time.Parse(DayLayout, s.Day); err != nil {
		return false
	}
	return true
}

// MergeSamples applies a sample batch to a participant's daily history.
// A day's value may only increase, so duplicated or stale samples are
// harmless and reapplying an identical batch yields a zero gain. The
// participant's total is recomputed from scratch from the daily entries.
// Malformed samples are skipped individually.
//
// When the recomputed total reaches raceDistanceKm and the participant is
// still active, they transition to completed and CompletedAt is stamped
// with now, the moment the server observed the crossing.
func MergeSamples(p *models.Participant, samples []Sample, raceDistanceKm float64, now time.Time) MergeResult {
	var res MergeResult

	for _, s := range samples {
		if !validSample(s) {
			res.DaysSkipped++
			continue
		}
		res.DaysAccepted++

		found := false
		for i := range p.Entries {
			if p.Entries[i].Day == s.Day {
				found = true
				if s.DistanceKm > p.Entries[i].DistanceKm {
					res.GainedKm += s.DistanceKm - p.Entries[i].DistanceKm
					p.Entries[i].DistanceKm = s.DistanceKm
				}
				break
			}
		}
		if !found {
			p.Entries = append(p.Entries, models.DailyDistance{
				ParticipantID: p.ID,
				Day:           s.Day,
				DistanceKm:    s.DistanceKm,
			})
			res.GainedKm += s.DistanceKm
		}
	}

	// Recompute rather than trusting the previous total; this keeps
	// retried submissions idempotent and self-heals partial failures.
	var total float64
	for i := range p.Entries {
		total += p.Entries[i].DistanceKm
	}
	p.TotalDistanceKm = total
	res.TotalKm = total

	if p.Status == models.StatusActive && total >= raceDistanceKm {
		p.Status = models.StatusCompleted
		completedAt := now
		p.CompletedAt = &completedAt
		res.Completed = true
	}

	return res
}
