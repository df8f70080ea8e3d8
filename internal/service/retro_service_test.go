package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"retroboard/internal/domain"
	"retroboard/internal/repository"
	"retroboard/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingBroadcaster captures published snapshots for assertions.
type recordingBroadcaster struct {
	mu        sync.Mutex
	published []*domain.Snapshot
}

func (b *recordingBroadcaster) Publish(_ context.Context, _ string, snapshot *domain.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, snapshot)
	return nil
}

func (b *recordingBroadcaster) Subscribe(_ context.Context, _ string) (<-chan *domain.Snapshot, func(), error) {
	ch := make(chan *domain.Snapshot)
	return ch, func() { close(ch) }, nil
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

func newTestService(t *testing.T) (*RetroService, *recordingBroadcaster) {
	t.Helper()
	broadcaster := &recordingBroadcaster{}
	svc := NewRetroService(repository.NewMemoryRetroRepository(), broadcaster, zap.NewNop())
	return svc, broadcaster
}

func createTestRetro(t *testing.T, svc *RetroService) *domain.Retro {
	t.Helper()
	retro, err := svc.Create(context.Background(), "platform", "2024-06-01", "")
	require.NoError(t, err)
	return retro
}

func addTestNote(t *testing.T, svc *RetroService, retroID, text string) string {
	t.Helper()
	snapshot, err := svc.AddNote(context.Background(), retroID, domain.ColumnGood, text, "author", "")
	require.NoError(t, err)
	notes := snapshot.Retro.Notes
	return notes[len(notes)-1].ID
}

func appErrType(t *testing.T, err error) errors.ErrorType {
	t.Helper()
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok, "expected *errors.AppError, got %T", err)
	return appErr.Type
}

func TestCreate_DefaultsNameFromTeamAndDate(t *testing.T) {
	svc, _ := newTestService(t)

	retro, err := svc.Create(context.Background(), "Platform", "2024-06-01", "")
	require.NoError(t, err)

	assert.Equal(t, "platform-2024-06-01", retro.Name)
	assert.NotEmpty(t, retro.ID)
	assert.False(t, retro.Started())
	assert.Empty(t, retro.Notes)
	assert.Empty(t, retro.UserVotes)
}

func TestCreate_IdempotentByName(t *testing.T) {
	svc, broadcaster := newTestService(t)

	first, err := svc.Create(context.Background(), "platform", "2024-06-01", "sprint-42")
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), "other-team", "2024-07-01", "Sprint-42")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "platform", second.Team)
	assert.Zero(t, broadcaster.count(), "create must not publish")
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "", "2024-06-01", "")
	assert.Equal(t, errors.ErrorTypeValidation, appErrType(t, err))

	_, err = svc.Create(context.Background(), "platform", "  ", "")
	assert.Equal(t, errors.ErrorTypeValidation, appErrType(t, err))
}

func TestStart_SetsTimingOnce(t *testing.T) {
	svc, broadcaster := newTestService(t)
	retro := createTestRetro(t, svc)

	started := time.UnixMilli(1_000_000)
	svc.now = func() time.Time { return started }

	snapshot, err := svc.Start(context.Background(), retro.ID, 15, "u1")
	require.NoError(t, err)

	require.NotNil(t, snapshot.Retro.StartTime)
	assert.Equal(t, started.UnixMilli(), snapshot.Retro.StartTime.UnixMilli())
	assert.Equal(t, 15, snapshot.Retro.DurationMinutes)
	assert.Equal(t, "u1", snapshot.Retro.StarterUserID)
	assert.Equal(t, domain.PhaseWriting, snapshot.Phase)
	assert.Equal(t, 1, broadcaster.count())

	// Starting again is a silent no-op: timing unchanged, nothing published
	svc.now = func() time.Time { return started.Add(time.Minute) }
	again, err := svc.Start(context.Background(), retro.ID, 30, "u2")
	require.NoError(t, err)

	assert.Equal(t, started.UnixMilli(), again.Retro.StartTime.UnixMilli())
	assert.Equal(t, 15, again.Retro.DurationMinutes)
	assert.Equal(t, "u1", again.Retro.StarterUserID)
	assert.Equal(t, 1, broadcaster.count())
}

func TestStart_DurationBounds(t *testing.T) {
	svc, _ := newTestService(t)
	retro := createTestRetro(t, svc)

	for _, minutes := range []int{0, 4, 61, -5} {
		_, err := svc.Start(context.Background(), retro.ID, minutes, "u1")
		assert.Equal(t, errors.ErrorTypeValidation, appErrType(t, err), "durationMinutes=%d", minutes)
	}

	for _, minutes := range []int{5, 60} {
		svc, _ := newTestService(t)
		retro := createTestRetro(t, svc)
		_, err := svc.Start(context.Background(), retro.ID, minutes, "u1")
		assert.NoError(t, err, "durationMinutes=%d", minutes)
	}
}

func TestStart_UnknownRetro(t *testing.T) {
	svc, broadcaster := newTestService(t)

	_, err := svc.Start(context.Background(), "missing", 15, "u1")
	assert.Equal(t, errors.ErrorTypeNotFound, appErrType(t, err))
	assert.Zero(t, broadcaster.count())
}

func TestAddNote_AppendsAndPublishes(t *testing.T) {
	svc, broadcaster := newTestService(t)
	retro := createTestRetro(t, svc)

	snapshot, err := svc.AddNote(context.Background(), retro.ID, domain.ColumnIdeas, "rotate on-call", "u1", "Ada")
	require.NoError(t, err)

	require.Len(t, snapshot.Retro.Notes, 1)
	note := snapshot.Retro.Notes[0]
	assert.Equal(t, domain.ColumnIdeas, note.Column)
	assert.Equal(t, "rotate on-call", note.Text)
	assert.Equal(t, "u1", note.AuthorID)
	assert.Equal(t, "Ada", note.AuthorName)
	assert.Equal(t, retro.ID, note.RetroID)
	assert.Equal(t, 0, snapshot.VoteCounts[note.ID])
	assert.Equal(t, 1, broadcaster.count())
}

func TestAddNote_EmptyTextRejectedAndNothingPublished(t *testing.T) {
	svc, broadcaster := newTestService(t)
	retro := createTestRetro(t, svc)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := svc.AddNote(context.Background(), retro.ID, domain.ColumnGood, text, "u1", "")
		assert.Equal(t, errors.ErrorTypeValidation, appErrType(t, err))
	}

	snapshot, err := svc.Snapshot(context.Background(), retro.ID)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Retro.Notes)
	assert.Zero(t, broadcaster.count())
}

func TestAddNote_InvalidColumn(t *testing.T) {
	svc, _ := newTestService(t)
	retro := createTestRetro(t, svc)

	_, err := svc.AddNote(context.Background(), retro.ID, domain.Column("meh"), "text", "u1", "")
	assert.Equal(t, errors.ErrorTypeValidation, appErrType(t, err))
}

func TestToggleVote_Involution(t *testing.T) {
	svc, _ := newTestService(t)
	retro := createTestRetro(t, svc)
	noteID := addTestNote(t, svc, retro.ID, "note")

	// add
	snapshot, err := svc.ToggleVote(context.Background(), retro.ID, noteID, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{noteID}, snapshot.Retro.UserVotes["u1"])
	assert.Equal(t, 1, snapshot.VoteCounts[noteID])

	// retract
	snapshot, err = svc.ToggleVote(context.Background(), retro.ID, noteID, "u1")
	require.NoError(t, err)
	assert.Empty(t, snapshot.Retro.UserVotes["u1"])
	assert.Equal(t, 0, snapshot.VoteCounts[noteID])
}

func TestToggleVote_CapEnforced(t *testing.T) {
	svc, broadcaster := newTestService(t)
	retro := createTestRetro(t, svc)

	noteIDs := make([]string, 0, domain.MaxVotesPerUser+1)
	for i := 0; i <= domain.MaxVotesPerUser; i++ {
		noteIDs = append(noteIDs, addTestNote(t, svc, retro.ID, "note"))
	}

	for _, noteID := range noteIDs[:domain.MaxVotesPerUser] {
		_, err := svc.ToggleVote(context.Background(), retro.ID, noteID, "u1")
		require.NoError(t, err)
	}

	publishedBefore := broadcaster.count()

	// Seventh distinct vote is rejected and the existing six are untouched
	_, err := svc.ToggleVote(context.Background(), retro.ID, noteIDs[domain.MaxVotesPerUser], "u1")
	assert.Equal(t, errors.ErrorTypeVoteLimit, appErrType(t, err))
	assert.Equal(t, publishedBefore, broadcaster.count())

	snapshot, err := svc.Snapshot(context.Background(), retro.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, noteIDs[:domain.MaxVotesPerUser], snapshot.Retro.UserVotes["u1"])

	// Retraction at the cap always succeeds
	_, err = svc.ToggleVote(context.Background(), retro.ID, noteIDs[0], "u1")
	assert.NoError(t, err)
}

func TestToggleVote_ConcurrentAddsRespectCap(t *testing.T) {
	svc, _ := newTestService(t)
	retro := createTestRetro(t, svc)

	const attempts = 12
	noteIDs := make([]string, 0, attempts)
	for i := 0; i < attempts; i++ {
		noteIDs = append(noteIDs, addTestNote(t, svc, retro.ID, "note"))
	}

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for _, noteID := range noteIDs {
		wg.Add(1)
		go func(noteID string) {
			defer wg.Done()
			_, err := svc.ToggleVote(context.Background(), retro.ID, noteID, "u1")
			results <- err
		}(noteID)
	}
	wg.Wait()
	close(results)

	var succeeded, limited int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.Equal(t, errors.ErrorTypeVoteLimit, appErrType(t, err))
		limited++
	}

	assert.Equal(t, domain.MaxVotesPerUser, succeeded)
	assert.Equal(t, attempts-domain.MaxVotesPerUser, limited)

	snapshot, err := svc.Snapshot(context.Background(), retro.ID)
	require.NoError(t, err)
	assert.Len(t, snapshot.Retro.UserVotes["u1"], domain.MaxVotesPerUser)
}

func TestToggleVote_UnknownNote(t *testing.T) {
	svc, broadcaster := newTestService(t)
	retro := createTestRetro(t, svc)

	_, err := svc.ToggleVote(context.Background(), retro.ID, "ghost", "u1")
	assert.Equal(t, errors.ErrorTypeNotFound, appErrType(t, err))
	assert.Zero(t, broadcaster.count())
}

func TestJoin_RegistersParticipant(t *testing.T) {
	svc, broadcaster := newTestService(t)
	retro := createTestRetro(t, svc)

	snapshot, err := svc.Join(context.Background(), retro.ID, domain.Participant{ID: "u1", Name: "Ada", Avatar: "🦊"})
	require.NoError(t, err)

	assert.Equal(t, "Ada", snapshot.Retro.Participants["u1"].Name)
	assert.Equal(t, 1, broadcaster.count())
}

func TestJoin_AvatarCollision(t *testing.T) {
	svc, broadcaster := newTestService(t)
	retro := createTestRetro(t, svc)

	_, err := svc.Join(context.Background(), retro.ID, domain.Participant{ID: "u1", Name: "Ada", Avatar: "🦊"})
	require.NoError(t, err)

	publishedBefore := broadcaster.count()

	_, err = svc.Join(context.Background(), retro.ID, domain.Participant{ID: "u2", Name: "Grace", Avatar: "🦊"})
	assert.Equal(t, errors.ErrorTypeAvatarTaken, appErrType(t, err))
	assert.Equal(t, publishedBefore, broadcaster.count())

	// The same user re-joining with their own avatar never collides
	_, err = svc.Join(context.Background(), retro.ID, domain.Participant{ID: "u1", Name: "Ada L.", Avatar: "🦊"})
	assert.NoError(t, err)
}

func TestSnapshot_UnknownRetro(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Snapshot(context.Background(), "missing")
	assert.Equal(t, errors.ErrorTypeNotFound, appErrType(t, err))
}

func TestList_NewestFirst(t *testing.T) {
	svc, _ := newTestService(t)

	base := time.UnixMilli(1_000_000)
	for i, name := range []string{"alpha", "beta", "gamma"} {
		created := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return created }
		_, err := svc.Create(context.Background(), "team", "2024-06-01", name)
		require.NoError(t, err)
	}

	items, err := svc.List(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, "gamma", items[0].Name)
	assert.Equal(t, "beta", items[1].Name)
	assert.Equal(t, "alpha", items[2].Name)
	for _, item := range items {
		assert.Equal(t, domain.PhasePlanning, item.Phase)
	}
}

func TestIDByName_CaseInsensitive(t *testing.T) {
	svc, _ := newTestService(t)

	retro, err := svc.Create(context.Background(), "team", "2024-06-01", "Sprint-42")
	require.NoError(t, err)

	id, err := svc.IDByName(context.Background(), "sPrInT-42")
	require.NoError(t, err)
	assert.Equal(t, retro.ID, id)

	_, err = svc.IDByName(context.Background(), "unknown")
	assert.Equal(t, errors.ErrorTypeNotFound, appErrType(t, err))
}

func TestMutationsPublishToTheRetroChannel(t *testing.T) {
	svc, broadcaster := newTestService(t)
	retro := createTestRetro(t, svc)

	noteID := addTestNote(t, svc, retro.ID, "note")
	_, err := svc.ToggleVote(context.Background(), retro.ID, noteID, "u1")
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), retro.ID, 15, "u1")
	require.NoError(t, err)

	// addNote + toggleVote + start, one snapshot each
	assert.Equal(t, 3, broadcaster.count())
}
