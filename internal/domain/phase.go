package domain

import "time"

// Phase is the time-derived stage of a retro session.
type Phase string

const (
	PhasePlanning Phase = "planning"
	PhaseWriting  Phase = "writing"
	PhaseVoting   Phase = "voting"
	PhaseIdeas    Phase = "ideas"
)

// votingWindow is the tail of the session reserved for voting.
const votingWindow = 5 * time.Minute

// ComputePhase derives the session phase from the retro's timing fields and
// the given observation time. It has no side effects and no stored state:
// both server and clients evaluate it independently on the same inputs, so
// phase transitions need no scheduler or pushed "phase changed" event.
//
// Before the session starts the phase is planning and remainingMs/endTime are
// nil. Once remaining time hits zero the phase is ideas; as long as callers
// never decrease their clock reference the phase is monotonically
// non-decreasing along planning, writing, voting, ideas.
func ComputePhase(r *Retro, now time.Time) (phase Phase, remainingMs *int64, endTime *time.Time) {
	if r.StartTime == nil || r.DurationMinutes == 0 {
		return PhasePlanning, nil, nil
	}
	end := r.StartTime.Add(time.Duration(r.DurationMinutes) * time.Minute)
	remaining := end.Sub(now).Milliseconds()
	if remaining < 0 {
		remaining = 0
	}
	switch {
	case remaining == 0:
		phase = PhaseIdeas
	case remaining <= votingWindow.Milliseconds():
		phase = PhaseVoting
	default:
		phase = PhaseWriting
	}
	return phase, &remaining, &end
}
