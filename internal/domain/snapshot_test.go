package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boardWithVotes() *Retro {
	start := time.UnixMilli(0)
	retro := startedRetro(start, 15)
	retro.Notes = []Note{
		{ID: "n1", RetroID: "r1", Column: ColumnGood, Text: "pairing", AuthorID: "u1", CreatedAt: start},
		{ID: "n2", RetroID: "r1", Column: ColumnBad, Text: "flaky ci", AuthorID: "u2", CreatedAt: start},
	}
	retro.UserVotes = map[string][]string{
		"u1": {"n1"},
		"u2": {"n1", "n2"},
	}
	return retro
}

func TestVoteCounts(t *testing.T) {
	retro := boardWithVotes()

	counts := VoteCounts(retro)

	assert.Equal(t, map[string]int{"n1": 2, "n2": 1}, counts)
}

func TestVoteCounts_ZeroInitialized(t *testing.T) {
	retro := boardWithVotes()
	retro.UserVotes = map[string][]string{}

	counts := VoteCounts(retro)

	assert.Equal(t, map[string]int{"n1": 0, "n2": 0}, counts)
}

func TestVoteCounts_IgnoresVotesOnUnknownNotes(t *testing.T) {
	retro := boardWithVotes()
	retro.UserVotes["u3"] = []string{"ghost"}

	counts := VoteCounts(retro)

	assert.Equal(t, map[string]int{"n1": 2, "n2": 1}, counts)
}

func TestAssembleSnapshot_Deterministic(t *testing.T) {
	retro := boardWithVotes()
	now := time.UnixMilli(1000)

	first := AssembleSnapshot(retro, now)
	second := AssembleSnapshot(retro, now)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestAssembleSnapshot_DoesNotMutateInput(t *testing.T) {
	retro := boardWithVotes()
	before := retro.Clone()

	AssembleSnapshot(retro, time.UnixMilli(1000))
	AssembleSnapshot(retro, time.UnixMilli(2_000_000))

	assert.Equal(t, before, retro)
}

func TestAssembleSnapshot_CopiesRetro(t *testing.T) {
	retro := boardWithVotes()

	snapshot := AssembleSnapshot(retro, time.UnixMilli(1000))

	// Mutating the aggregate afterwards must not leak into the snapshot
	retro.Notes = append(retro.Notes, Note{ID: "n3", RetroID: "r1", Column: ColumnIdeas, Text: "later", AuthorID: "u1"})
	retro.UserVotes["u1"] = append(retro.UserVotes["u1"], "n2")

	assert.Len(t, snapshot.Retro.Notes, 2)
	assert.Equal(t, []string{"n1"}, snapshot.Retro.UserVotes["u1"])
}

func TestAssembleSnapshot_PlanningFields(t *testing.T) {
	retro := &Retro{ID: "r1", Notes: []Note{}, UserVotes: map[string][]string{}}

	snapshot := AssembleSnapshot(retro, time.Now())

	assert.Equal(t, PhasePlanning, snapshot.Phase)
	assert.Nil(t, snapshot.RemainingMs)
	assert.Nil(t, snapshot.EndTime)
	assert.Empty(t, snapshot.VoteCounts)
}

func TestRetroClone_Isolation(t *testing.T) {
	retro := boardWithVotes()

	clone := retro.Clone()
	clone.Notes[0].Text = "changed"
	clone.UserVotes["u1"] = append(clone.UserVotes["u1"], "n2")
	clone.Participants = map[string]Participant{"u9": {ID: "u9", Name: "x", Avatar: "🦉"}}

	assert.Equal(t, "pairing", retro.Notes[0].Text)
	assert.Equal(t, []string{"n1"}, retro.UserVotes["u1"])
	assert.Nil(t, retro.Participants)
}
