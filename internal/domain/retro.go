package domain

import "time"

// MaxVotesPerUser is the cap on active votes a single user may hold in one retro.
const MaxVotesPerUser = 6

// Column identifies one of the three fixed note categories on the board.
type Column string

const (
	ColumnGood  Column = "good"
	ColumnBad   Column = "bad"
	ColumnIdeas Column = "ideas"
)

// Valid reports whether the column is one of the three known categories.
func (c Column) Valid() bool {
	switch c {
	case ColumnGood, ColumnBad, ColumnIdeas:
		return true
	}
	return false
}

// Note is a single card on the board. Notes are append-only: once created
// they are never edited or removed.
type Note struct {
	ID         string    `json:"id"`
	RetroID    string    `json:"retroId"`
	Column     Column    `json:"column"`
	Text       string    `json:"text"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Participant is a roster entry for a user who joined the retro.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Retro is the aggregate root for a single retrospective session.
//
// The timing fields (StartTime, DurationMinutes, StarterUserID) are either
// all unset or all set; they are assigned together exactly once when the
// session starts and never change afterwards.
type Retro struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Team            string                 `json:"team"`
	DateISO         string                 `json:"dateISO"`
	CreatedAt       time.Time              `json:"createdAt"`
	DurationMinutes int                    `json:"durationMinutes,omitempty"`
	StartTime       *time.Time             `json:"startTime,omitempty"`
	StarterUserID   string                 `json:"starterUserId,omitempty"`
	Participants    map[string]Participant `json:"participants,omitempty"`
	Notes           []Note                 `json:"notes"`
	UserVotes       map[string][]string    `json:"userVotes"`
}

// Started reports whether the session timer has been started.
func (r *Retro) Started() bool {
	return r.StartTime != nil
}

// HasNote reports whether a note with the given id exists on the board.
func (r *Retro) HasNote(noteID string) bool {
	for i := range r.Notes {
		if r.Notes[i].ID == noteID {
			return true
		}
	}
	return false
}

// HasVote reports whether the user currently holds an active vote on the note.
func (r *Retro) HasVote(userID, noteID string) bool {
	for _, id := range r.UserVotes[userID] {
		if id == noteID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the retro so that stored aggregates and
// published snapshots never alias live mutable state.
func (r *Retro) Clone() *Retro {
	clone := *r
	if r.StartTime != nil {
		t := *r.StartTime
		clone.StartTime = &t
	}
	clone.Notes = make([]Note, len(r.Notes))
	copy(clone.Notes, r.Notes)
	clone.UserVotes = make(map[string][]string, len(r.UserVotes))
	for userID, noteIDs := range r.UserVotes {
		clone.UserVotes[userID] = append(make([]string, 0, len(noteIDs)), noteIDs...)
	}
	if r.Participants != nil {
		clone.Participants = make(map[string]Participant, len(r.Participants))
		for id, p := range r.Participants {
			clone.Participants[id] = p
		}
	}
	return &clone
}

// RetroListItem is the board-list projection returned by the list query.
type RetroListItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Team    string `json:"team"`
	DateISO string `json:"dateISO"`
	Phase   Phase  `json:"phase"`
}
