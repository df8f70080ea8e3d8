package domain

import "time"

// Snapshot is the fully-materialized view of a retro at one instant. It is
// derived, never stored: every read recomputes it from the aggregate and the
// current time. The same value serves query responses and realtime pushes,
// and receivers replace their whole local state with it.
type Snapshot struct {
	Retro       *Retro         `json:"retro"`
	Phase       Phase          `json:"phase"`
	RemainingMs *int64         `json:"remainingMs"`
	EndTime     *time.Time     `json:"endTime"`
	VoteCounts  map[string]int `json:"voteCounts"`
}

// AssembleSnapshot combines the aggregate, the computed phase and the vote
// tallies into one immutable view. The input retro is cloned, never mutated.
func AssembleSnapshot(r *Retro, now time.Time) *Snapshot {
	phase, remainingMs, endTime := ComputePhase(r, now)
	return &Snapshot{
		Retro:       r.Clone(),
		Phase:       phase,
		RemainingMs: remainingMs,
		EndTime:     endTime,
		VoteCounts:  VoteCounts(r),
	}
}

// VoteCounts tallies active votes per note. Every existing note id appears in
// the result, zero-initialized, so notes without votes still render a count.
func VoteCounts(r *Retro) map[string]int {
	counts := make(map[string]int, len(r.Notes))
	for i := range r.Notes {
		counts[r.Notes[i].ID] = 0
	}
	for _, noteIDs := range r.UserVotes {
		for _, noteID := range noteIDs {
			if _, ok := counts[noteID]; ok {
				counts[noteID]++
			}
		}
	}
	return counts
}
