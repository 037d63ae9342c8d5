package race

import (
	"math"
	"sort"
	"time"

	"github.com/georace/georace/internal/database/models"
)

// LeaderboardRow is one participant's row in a per-race leaderboard.
type LeaderboardRow struct {
	Rank                int                      `json:"rank"`
	UserID              string                   `json:"user_id"`
	Username            string                   `json:"username"`
	Nickname            string                   `json:"nickname"`
	Status              models.ParticipantStatus `json:"status"`
	TotalDistanceKm     float64                  `json:"total_distance_km"`
	Progress            float64                  `json:"progress"`
	DistanceRemainingKm float64                  `json:"distance_remaining_km"`
	CompletedAt         *time.Time               `json:"completed_at"`
	JoinedAt            time.Time                `json:"joined_at"`
}

// GlobalRow aggregates one user across all races.
type GlobalRow struct {
	Rank            int     `json:"rank"`
	UserID          string  `json:"user_id"`
	Username        string  `json:"username"`
	Nickname        string  `json:"nickname"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	Races           int     `json:"races"`
	Wins            int     `json:"wins"`
}

// UserStats is the global aggregation scoped to one user.
type UserStats struct {
	Races           int     `json:"races"`
	Wins            int     `json:"wins"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	WinRate         float64 `json:"win_rate"`
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func displayName(u models.User) string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// timeOrMax treats a missing timestamp as +infinity so that participants
// without the value sort last on ascending keys.
func timeOrMax(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return time.Unix(1<<62, 0)
	}
	return *t
}

// rowLess is the comparator chain for per-race rankings: total distance
// descending, completed before active, completion time ascending, join
// time ascending, display name ascending. The chain yields a deterministic
// total order for equal inputs.
func rowLess(a, b LeaderboardRow) bool {
	if a.TotalDistanceKm != b.TotalDistanceKm {
		return a.TotalDistanceKm > b.TotalDistanceKm
	}
	aDone := a.Status == models.StatusCompleted
	bDone := b.Status == models.StatusCompleted
	if aDone != bDone {
		return aDone
	}
	ac, bc := timeOrMax(a.CompletedAt), timeOrMax(b.CompletedAt)
	if !ac.Equal(bc) {
		return ac.Before(bc)
	}
	aj, bj := a.JoinedAt, b.JoinedAt
	if aj.IsZero() || bj.IsZero() {
		aj = timeOrMax(&aj)
		bj = timeOrMax(&bj)
	}
	if !aj.Equal(bj) {
		return aj.Before(bj)
	}
	return a.Nickname < b.Nickname
}

// Leaderboard ranks a race's participants. Withdrawn participants are not
// listed. Ranks are 1-based.
func Leaderboard(r *models.Race) []LeaderboardRow {
	dist := Distance(r)

	rows := make([]LeaderboardRow, 0, len(r.Participants))
	for i := range r.Participants {
		p := &r.Participants[i]
		if p.Status == models.StatusWithdrawn {
			continue
		}

		progress := 0.0
		if dist > 0 {
			progress = p.TotalDistanceKm / dist
		}
		if progress > 1 {
			progress = 1
		}
		remaining := dist - p.TotalDistanceKm
		if remaining < 0 {
			remaining = 0
		}

		rows = append(rows, LeaderboardRow{
			UserID:              p.UserID,
			Username:            p.User.Username,
			Nickname:            displayName(p.User),
			Status:              p.Status,
			TotalDistanceKm:     p.TotalDistanceKm,
			Progress:            roundTo(progress, 4),
			DistanceRemainingKm: roundTo(remaining, 3),
			CompletedAt:         p.CompletedAt,
			JoinedAt:            p.JoinedAt,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rowLess(rows[i], rows[j]) })
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// GlobalLeaderboard aggregates every user's participations across all
// races. A win counts only when the user is the race's final winner; a
// provisional winner never counts.
func GlobalLeaderboard(races []models.Race) []GlobalRow {
	byUser := make(map[string]*GlobalRow)
	for i := range races {
		r := &races[i]
		for j := range r.Participants {
			p := &r.Participants[j]
			row, ok := byUser[p.UserID]
			if !ok {
				row = &GlobalRow{
					UserID:   p.UserID,
					Username: p.User.Username,
					Nickname: displayName(p.User),
				}
				byUser[p.UserID] = row
			}
			row.TotalDistanceKm += p.TotalDistanceKm
			row.Races++
			if r.Finish.FinalWinnerID == p.UserID {
				row.Wins++
			}
		}
	}

	rows := make([]GlobalRow, 0, len(byUser))
	for _, row := range byUser {
		row.TotalDistanceKm = roundTo(row.TotalDistanceKm, 2)
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.TotalDistanceKm != b.TotalDistanceKm {
			return a.TotalDistanceKm > b.TotalDistanceKm
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.Nickname < b.Nickname
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// StatsForUser computes one user's race statistics across all races.
func StatsForUser(races []models.Race, userID string) UserStats {
	var stats UserStats
	for i := range races {
		r := &races[i]
		for j := range r.Participants {
			p := &r.Participants[j]
			if p.UserID != userID {
				continue
			}
			stats.Races++
			stats.TotalDistanceKm += p.TotalDistanceKm
			if r.Finish.FinalWinnerID == userID {
				stats.Wins++
			}
		}
	}
	stats.TotalDistanceKm = roundTo(stats.TotalDistanceKm, 2)
	if stats.Races > 0 {
		stats.WinRate = roundTo(float64(stats.Wins)/float64(stats.Races)*100, 1)
	}
	return stats
}
