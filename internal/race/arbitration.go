package race

import (
	"time"

	"github.com/georace/georace/internal/database/models"
)

// DefaultConfirmationWindow is the grace period after a provisional finish
// during which a late correction may still change the winner. It is short
// on purpose: it absorbs near-simultaneous finishes and minor clock skew,
// it does not gate normal UX.
const DefaultConfirmationWindow = 90 * time.Second

type FinishStatus string

const (
	FinishNone        FinishStatus = "none"
	FinishProvisional FinishStatus = "provisional"
	FinishFinal       FinishStatus = "final"
)

// FinishState is the projection of a race's finish resolution served to
// API consumers.
type FinishState struct {
	Status               FinishStatus `json:"status"`
	WinnerUserID         string       `json:"winner_user_id"`
	ProvisionalWinnerID  string       `json:"provisional_winner_user_id"`
	ProvisionalAt        *time.Time   `json:"provisional_at"`
	WindowEndsAt         *time.Time   `json:"confirmation_window_ends_at"`
	FinalWinnerID        string       `json:"final_winner_user_id"`
	FinalizedAt          *time.Time   `json:"finalized_at"`
	ConfirmationWindowMs int64        `json:"confirmation_window_ms"`
}

// EarliestFinisher picks the completed participant with the smallest
// completion timestamp, ties broken by user ID in ascending order. The
// result is a pure function of the input; nil when nobody has completed.
func EarliestFinisher(participants []models.Participant) *models.Participant {
	var best *models.Participant
	for i := range participants {
		p := &participants[i]
		if p.Status != models.StatusCompleted || p.CompletedAt == nil {
			continue
		}
		if best == nil {
			best = p
			continue
		}
		if p.CompletedAt.Before(*best.CompletedAt) ||
			(p.CompletedAt.Equal(*best.CompletedAt) && p.UserID < best.UserID) {
			best = p
		}
	}
	return best
}

// StatusOf classifies a stored resolution.
func StatusOf(res models.FinishResolution) FinishStatus {
	switch {
	case res.FinalWinnerID != "":
		return FinishFinal
	case res.ProvisionalWinnerID != "":
		return FinishProvisional
	default:
		return FinishNone
	}
}

// ReconcileFinish recomputes the finish resolution from current participant
// data and "now". It never errors; the worst case is the empty resolution.
// The second return value reports whether the resolution differs from the
// stored one and therefore needs persisting.
//
// Transitions:
//   - nobody completed: clear everything back to the empty state;
//   - earliest finisher differs from the recorded winner: revoke any final
//     decision, reset the provisional winner and restart the window;
//   - same winner with a corrected completion time: track the new time
//     without restarting the window;
//   - window elapsed with no final decision: commit the provisional winner.
func ReconcileFinish(res models.FinishResolution, participants []models.Participant, now time.Time, window time.Duration) (models.FinishResolution, bool) {
	if window <= 0 {
		window = DefaultConfirmationWindow
	}

	earliest := EarliestFinisher(participants)
	if earliest == nil {
		return models.FinishResolution{}, !resolutionEqual(res, models.FinishResolution{})
	}

	next := res
	if next.ProvisionalWinnerID != earliest.UserID ||
		(next.FinalWinnerID != "" && next.FinalWinnerID != earliest.UserID) {
		windowEnd := now.Add(window)
		next = models.FinishResolution{
			ProvisionalWinnerID: earliest.UserID,
			ProvisionalAt:       earliest.CompletedAt,
			WindowEndsAt:        &windowEnd,
		}
	} else if next.ProvisionalAt == nil || !next.ProvisionalAt.Equal(*earliest.CompletedAt) {
		next.ProvisionalAt = earliest.CompletedAt
	}

	// The final decision, if any, must match the recomputed earliest
	// finisher; a mismatched final was already discarded above.
	if next.FinalWinnerID == "" && next.WindowEndsAt != nil && !now.Before(*next.WindowEndsAt) {
		finalizedAt := now
		next.FinalWinnerID = next.ProvisionalWinnerID
		next.FinalizedAt = &finalizedAt
	}

	return next, !resolutionEqual(res, next)
}

// ProjectFinishState builds the API projection for a resolution.
func ProjectFinishState(res models.FinishResolution, window time.Duration) FinishState {
	if window <= 0 {
		window = DefaultConfirmationWindow
	}
	state := FinishState{
		Status:               StatusOf(res),
		ProvisionalWinnerID:  res.ProvisionalWinnerID,
		ProvisionalAt:        res.ProvisionalAt,
		WindowEndsAt:         res.WindowEndsAt,
		FinalWinnerID:        res.FinalWinnerID,
		FinalizedAt:          res.FinalizedAt,
		ConfirmationWindowMs: window.Milliseconds(),
	}
	switch state.Status {
	case FinishFinal:
		state.WinnerUserID = res.FinalWinnerID
	case FinishProvisional:
		state.WinnerUserID = res.ProvisionalWinnerID
	}
	return state
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func resolutionEqual(a, b models.FinishResolution) bool {
	return a.ProvisionalWinnerID == b.ProvisionalWinnerID &&
		a.FinalWinnerID == b.FinalWinnerID &&
		timesEqual(a.ProvisionalAt, b.ProvisionalAt) &&
		timesEqual(a.WindowEndsAt, b.WindowEndsAt) &&
		timesEqual(a.FinalizedAt, b.FinalizedAt)
}
