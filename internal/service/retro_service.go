package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"retroboard/internal/broadcast"
	"retroboard/internal/domain"
	"retroboard/internal/repository"
	"retroboard/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minDurationMinutes = 5
	maxDurationMinutes = 60
)

// RetroService owns the retro aggregate: every mutation runs a serialized
// read-modify-write cycle against the entity store and, on success, publishes
// exactly one freshly-assembled snapshot to the retro's channel. Queries read
// the store directly and never block on mutations.
type RetroService struct {
	repo        repository.RetroRepository
	broadcaster broadcast.Broadcaster
	logger      *zap.Logger

	// locks holds one mutex per retro id so mutations against the same retro
	// observe a strict total order while different retros proceed in parallel.
	locks sync.Map

	// createMu serializes creations, which happen before an id exists to
	// lock on, so two concurrent creates cannot race on the same name.
	createMu sync.Mutex

	// now is the clock reference, injectable for deterministic tests.
	now func() time.Time
}

func NewRetroService(repo repository.RetroRepository, broadcaster broadcast.Broadcaster, logger *zap.Logger) *RetroService {
	return &RetroService{
		repo:        repo,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// lockFor returns the serialization mutex for a retro id.
func (s *RetroService) lockFor(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Create creates a new retro with empty notes, ledger and roster and timing
// unset. When name is empty it defaults to lowercase team-dateISO. Creation
// is idempotent by name: a second create with an existing name returns the
// existing retro unchanged.
func (s *RetroService) Create(ctx context.Context, team, dateISO, name string) (*domain.Retro, error) {
	team = strings.TrimSpace(team)
	dateISO = strings.TrimSpace(dateISO)
	if team == "" {
		return nil, errors.NewValidationError("team is required", nil)
	}
	if dateISO == "" {
		return nil, errors.NewValidationError("dateISO is required", nil)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.ToLower(fmt.Sprintf("%s-%s", team, dateISO))
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	existingID, err := s.repo.GetIDByName(ctx, name)
	if err != nil {
		return nil, errors.NewInternalError("failed to check retro name", err)
	}
	if existingID != "" {
		existing, err := s.repo.GetByID(ctx, existingID)
		if err != nil {
			return nil, errors.NewInternalError("failed to load existing retro", err)
		}
		if existing != nil {
			s.logger.Debug("create resolved to existing retro",
				zap.String("retro_id", existing.ID),
				zap.String("name", name))
			return existing, nil
		}
	}

	retro := &domain.Retro{
		ID:        uuid.NewString(),
		Name:      name,
		Team:      team,
		DateISO:   dateISO,
		CreatedAt: s.now(),
		Notes:     []domain.Note{},
		UserVotes: map[string][]string{},
	}
	if err := s.repo.Put(ctx, retro); err != nil {
		return nil, errors.NewInternalError("failed to store retro", err)
	}

	s.logger.Info("retro created",
		zap.String("retro_id", retro.ID),
		zap.String("name", retro.Name),
		zap.String("team", retro.Team))
	return retro, nil
}

// Start sets the session timing fields if they are unset. Starting an
// already-started retro is a no-op that returns the current state; the
// timing fields are never reset. durationMinutes must be within [5,60].
func (s *RetroService) Start(ctx context.Context, id string, durationMinutes int, starterUserID string) (*domain.Snapshot, error) {
	if durationMinutes < minDurationMinutes || durationMinutes > maxDurationMinutes {
		return nil, errors.NewValidationError(
			fmt.Sprintf("durationMinutes must be between %d and %d", minDurationMinutes, maxDurationMinutes), nil)
	}
	if starterUserID == "" {
		return nil, errors.NewValidationError("starterUserId is required", nil)
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	retro, err := s.getRetro(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if retro.Started() {
		// Idempotent: no state change, nothing published.
		return domain.AssembleSnapshot(retro, now), nil
	}

	retro.StartTime = &now
	retro.DurationMinutes = durationMinutes
	retro.StarterUserID = starterUserID
	if err := s.repo.Put(ctx, retro); err != nil {
		return nil, errors.NewInternalError("failed to store retro", err)
	}

	s.logger.Info("retro started",
		zap.String("retro_id", id),
		zap.Int("duration_minutes", durationMinutes),
		zap.String("starter_user_id", starterUserID))
	return s.publish(ctx, retro, now), nil
}

// AddNote appends a note to the board. Notes are append-only.
func (s *RetroService) AddNote(ctx context.Context, id string, column domain.Column, text, authorID, authorName string) (*domain.Snapshot, error) {
	if !column.Valid() {
		return nil, errors.NewValidationError("column must be one of good, bad, ideas", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewValidationError("text is required", nil)
	}
	if authorID == "" {
		return nil, errors.NewValidationError("authorId is required", nil)
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	retro, err := s.getRetro(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	retro.Notes = append(retro.Notes, domain.Note{
		ID:         uuid.NewString(),
		RetroID:    retro.ID,
		Column:     column,
		Text:       text,
		AuthorID:   authorID,
		AuthorName: authorName,
		CreatedAt:  now,
	})
	if err := s.repo.Put(ctx, retro); err != nil {
		return nil, errors.NewInternalError("failed to store retro", err)
	}

	s.logger.Debug("note added",
		zap.String("retro_id", id),
		zap.String("column", string(column)),
		zap.String("author_id", authorID))
	return s.publish(ctx, retro, now), nil
}

// ToggleVote flips the user's vote on a note. Retracting an active vote
// always succeeds; adding one fails with a vote-limit rejection once the
// user holds MaxVotesPerUser active votes.
func (s *RetroService) ToggleVote(ctx context.Context, id, noteID, userID string) (*domain.Snapshot, error) {
	if noteID == "" || userID == "" {
		return nil, errors.NewValidationError("noteId and userId are required", nil)
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	retro, err := s.getRetro(ctx, id)
	if err != nil {
		return nil, err
	}
	if !retro.HasNote(noteID) {
		return nil, errors.NewNotFoundError("note not found")
	}

	votes := retro.UserVotes[userID]
	if retro.HasVote(userID, noteID) {
		kept := make([]string, 0, len(votes)-1)
		for _, v := range votes {
			if v != noteID {
				kept = append(kept, v)
			}
		}
		retro.UserVotes[userID] = kept
	} else {
		if len(votes) >= domain.MaxVotesPerUser {
			return nil, errors.NewVoteLimitError(domain.MaxVotesPerUser)
		}
		retro.UserVotes[userID] = append(votes, noteID)
	}
	if err := s.repo.Put(ctx, retro); err != nil {
		return nil, errors.NewInternalError("failed to store retro", err)
	}

	s.logger.Debug("vote toggled",
		zap.String("retro_id", id),
		zap.String("note_id", noteID),
		zap.String("user_id", userID))
	return s.publish(ctx, retro, s.now()), nil
}

// Join registers a participant in the retro's roster. The avatar collision
// check runs under the retro's serialization lock, so two concurrent joins
// racing on the same token cannot both be accepted. Re-joining with the same
// user id updates the roster entry and never collides with itself.
func (s *RetroService) Join(ctx context.Context, id string, participant domain.Participant) (*domain.Snapshot, error) {
	if participant.ID == "" || participant.Name == "" || participant.Avatar == "" {
		return nil, errors.NewValidationError("userId, name and avatar are required", nil)
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	retro, err := s.getRetro(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, other := range retro.Participants {
		if other.ID != participant.ID && other.Avatar == participant.Avatar {
			return nil, errors.NewAvatarTakenError(participant.Avatar)
		}
	}
	if retro.Participants == nil {
		retro.Participants = make(map[string]domain.Participant)
	}
	retro.Participants[participant.ID] = participant
	if err := s.repo.Put(ctx, retro); err != nil {
		return nil, errors.NewInternalError("failed to store retro", err)
	}

	s.logger.Info("participant joined",
		zap.String("retro_id", id),
		zap.String("user_id", participant.ID))
	return s.publish(ctx, retro, s.now()), nil
}

// Snapshot returns the current materialized view of a retro. Reads bypass
// the mutation serializer entirely.
func (s *RetroService) Snapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	retro, err := s.getRetro(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.AssembleSnapshot(retro, s.now()), nil
}

// List returns the board-list projection, newest created first.
func (s *RetroService) List(ctx context.Context) ([]domain.RetroListItem, error) {
	retros, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to list retros", err)
	}
	now := s.now()
	items := make([]domain.RetroListItem, 0, len(retros))
	for _, retro := range retros {
		phase, _, _ := domain.ComputePhase(retro, now)
		items = append(items, domain.RetroListItem{
			ID:      retro.ID,
			Name:    retro.Name,
			Team:    retro.Team,
			DateISO: retro.DateISO,
			Phase:   phase,
		})
	}
	return items, nil
}

// IDByName resolves a retro id from its case-insensitive name.
func (s *RetroService) IDByName(ctx context.Context, name string) (string, error) {
	id, err := s.repo.GetIDByName(ctx, name)
	if err != nil {
		return "", errors.NewInternalError("failed to resolve retro name", err)
	}
	if id == "" {
		return "", errors.NewNotFoundError("retro not found")
	}
	return id, nil
}

// getRetro loads an aggregate, mapping absence to the not-found rejection.
func (s *RetroService) getRetro(ctx context.Context, id string) (*domain.Retro, error) {
	retro, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to load retro", err)
	}
	if retro == nil {
		return nil, errors.NewNotFoundError("retro not found")
	}
	return retro, nil
}

// publish assembles the post-mutation snapshot and fans it out. The mutation
// has already committed, so a broadcast failure is logged and the snapshot is
// still returned to the caller.
func (s *RetroService) publish(ctx context.Context, retro *domain.Retro, now time.Time) *domain.Snapshot {
	snapshot := domain.AssembleSnapshot(retro, now)
	if err := s.broadcaster.Publish(ctx, retro.ID, snapshot); err != nil {
		s.logger.Error("failed to broadcast snapshot",
			zap.String("retro_id", retro.ID),
			zap.Error(err))
	}
	return snapshot
}
