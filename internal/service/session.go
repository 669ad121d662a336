package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/ledger"
	"github.com/skillswap/exchange-server-go/internal/match"
	"github.com/skillswap/exchange-server-go/internal/metrics"
	"github.com/skillswap/exchange-server-go/internal/model"
	redisclient "github.com/skillswap/exchange-server-go/internal/redis"
	"github.com/skillswap/exchange-server-go/internal/repository"
)

const videoRoomPrefix = "skill-ses-"

type SessionConfig struct {
	// AtomicLedger runs the rating writes in one transaction.
	AtomicLedger bool
	VideoBaseURL string
}

type SessionDetail struct {
	model.Session
	Role      model.ParticipantRole `json:"role"`
	VideoLink string                `json:"videoLink"`
}

type RatingResult struct {
	Session     *model.Session     `json:"session"`
	RatedUserID string             `json:"ratedUserId"`
	Profile     *model.UserProfile `json:"profile,omitempty"`
}

type SessionService struct {
	sessionRepo repository.SessionRepository
	profileRepo repository.ProfileRepository
	tx          Transactor
	broker      EventBroker
	metrics     *metrics.Metrics
	cfg         SessionConfig
	now         func() time.Time
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	profileRepo repository.ProfileRepository,
	tx Transactor,
	broker EventBroker,
	m *metrics.Metrics,
	cfg SessionConfig,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		profileRepo: profileRepo,
		tx:          tx,
		broker:      broker,
		metrics:     m,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Connect opens a pending session in which candidate teaches current.
func (s *SessionService) Connect(ctx context.Context, currentID, candidateID string) (*model.Session, error) {
	if currentID == candidateID {
		return nil, apperrors.ValidationError("cannot start a session with yourself")
	}
	current, err := s.loadProfile(ctx, currentID)
	if err != nil {
		return nil, err
	}
	candidate, err := s.loadProfile(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	skill := match.DeriveSkill(*current, *candidate)

	session, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		TeacherID:   candidate.ID,
		StudentID:   current.ID,
		TeacherName: candidate.Name,
		StudentName: current.Name,
		Skill:       skill,
		Mode:        model.SessionModeOnline,
	})
	if err != nil {
		return nil, apperrors.RemoteOperation("create session", err)
	}

	s.metrics.SessionCreated()
	log.Info().
		Str("sessionId", session.ID).
		Str("teacherId", session.TeacherID).
		Str("studentId", session.StudentID).
		Str("skill", skill).
		Msg("session created")

	s.notifyParticipants(ctx, session)
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	if err := requireID(sessionID, "session"); err != nil {
		return nil, err
	}
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.RemoteOperation("load session", err)
	}
	if session == nil {
		return nil, apperrors.NotFound("session")
	}
	return session, nil
}

// GetForParticipant returns the session with the caller's role and the video
// room link. Outsiders get FORBIDDEN.
func (s *SessionService) GetForParticipant(ctx context.Context, userID, sessionID string) (*SessionDetail, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(userID) {
		return nil, apperrors.Forbidden("not a participant of this session")
	}
	return &SessionDetail{
		Session:   *session,
		Role:      session.RoleOf(userID),
		VideoLink: s.VideoLink(session.ID),
	}, nil
}

// ListForUser merges the sessions userID teaches and attends, newest first.
func (s *SessionService) ListForUser(ctx context.Context, userID string) ([]model.SessionView, error) {
	if err := requireID(userID, "profile"); err != nil {
		return nil, err
	}

	var teaching, learning []model.Session
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teaching, err = s.sessionRepo.FindByTeacher(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		learning, err = s.sessionRepo.FindByStudent(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.RemoteOperation("list sessions", err)
	}

	views := make([]model.SessionView, 0, len(teaching)+len(learning))
	for _, sess := range teaching {
		views = append(views, model.SessionView{Session: sess, Role: model.RoleTeacher, OtherName: sess.StudentName})
	}
	for _, sess := range learning {
		views = append(views, model.SessionView{Session: sess, Role: model.RoleStudent, OtherName: sess.TeacherName})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views, nil
}

// Rate records raterID's rating of the other participant and completes the
// session. A session completes exactly once.
func (s *SessionService) Rate(ctx context.Context, raterID, sessionID string, rating int) (*RatingResult, error) {
	if err := ledger.ValidateRating(rating); err != nil {
		return nil, err
	}

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(raterID) {
		return nil, apperrors.Forbidden("not a participant of this session")
	}
	if session.Status == model.SessionStatusCompleted {
		return nil, apperrors.Conflict("session is already completed")
	}

	ratedID := session.Counterpart(raterID)
	completion := model.CompleteSessionParams{
		RatedUserID: ratedID,
		Rating:      rating,
		CompletedAt: s.now().UTC(),
	}

	var profile *model.UserProfile
	if s.cfg.AtomicLedger {
		profile, err = s.rateAtomic(ctx, session.ID, ratedID, rating, completion)
	} else {
		profile, err = s.rateIndependent(ctx, session.ID, ratedID, rating, completion)
	}
	if err != nil {
		return nil, err
	}

	completed := *session
	completed.Status = model.SessionStatusCompleted
	completed.RatedUserID = &completion.RatedUserID
	completed.Rating = &completion.Rating
	completed.CompletedAt = &completion.CompletedAt

	s.metrics.RatingSubmitted(rating)
	log.Info().
		Str("sessionId", session.ID).
		Str("raterId", raterID).
		Str("ratedUserId", ratedID).
		Int("rating", rating).
		Float64("newRate", profile.Rate).
		Int("ratingCount", profile.RatingCount).
		Msg("session rated")

	s.notifyParticipants(ctx, &completed)
	notify(ctx, s.broker, redisclient.ProfilesTopic, map[string]string{"id": ratedID})

	return &RatingResult{Session: &completed, RatedUserID: ratedID, Profile: profile}, nil
}

func (s *SessionService) rateAtomic(ctx context.Context, sessionID, ratedID string, rating int, completion model.CompleteSessionParams) (*model.UserProfile, error) {
	var updated *model.UserProfile
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		profiles := s.profileRepo.WithTx(tx)
		profile, err := profiles.FindByIDForUpdate(ctx, ratedID)
		if err != nil {
			return err
		}
		if profile == nil {
			return apperrors.NotFound("rated user")
		}

		outcome := ledger.Apply(*profile, rating)
		if updated, err = profiles.ApplyRating(ctx, ratedID, outcome.Rate, outcome.RatingCount, outcome.Credits); err != nil {
			return err
		}

		ok, err := s.sessionRepo.WithTx(tx).MarkCompleted(ctx, sessionID, completion)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict("session is already completed")
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.RemoteOperation("rate session", err)
	}
	return updated, nil
}

// rateIndependent attempts both writes even when the first fails and reports
// which of them landed.
func (s *SessionService) rateIndependent(ctx context.Context, sessionID, ratedID string, rating int, completion model.CompleteSessionParams) (*model.UserProfile, error) {
	profile, err := s.profileRepo.FindByID(ctx, ratedID)
	if err != nil {
		return nil, apperrors.RemoteOperation("load rated user", err)
	}
	if profile == nil {
		return nil, apperrors.NotFound("rated user")
	}

	// The aggregate is computed by the store from the row it updates. A value
	// computed from the read above would drop a concurrent rating.
	updated, profileErr := s.profileRepo.IncrementRating(ctx, ratedID, rating, ledger.CreditsPerRating)
	if profileErr == nil && updated == nil {
		profileErr = fmt.Errorf("rated user %s disappeared", ratedID)
	}

	ok, sessionErr := s.sessionRepo.MarkCompleted(ctx, sessionID, completion)
	if sessionErr == nil && !ok {
		sessionErr = errors.New("session was no longer pending")
	}

	switch {
	case profileErr == nil && sessionErr == nil:
		return updated, nil
	case profileErr != nil && sessionErr != nil:
		return nil, apperrors.RemoteOperation("rate session", errors.Join(profileErr, sessionErr))
	}

	s.metrics.PartialCompletion()
	failed := "session"
	if profileErr != nil {
		failed = "profile"
	}
	log.Error().
		Err(errors.Join(profileErr, sessionErr)).
		Str("sessionId", sessionID).
		Str("ratedUserId", ratedID).
		Str("failedWrite", failed).
		Msg("rating partially applied")

	return nil, apperrors.PartialCompletion("rating was only partially applied", map[string]any{
		"profileUpdated":   profileErr == nil,
		"sessionCompleted": sessionErr == nil,
		"failed":           failed,
	})
}

// VideoLink is the shared video room for a session.
func (s *SessionService) VideoLink(sessionID string) string {
	return fmt.Sprintf("%s/%s%s", strings.TrimRight(s.cfg.VideoBaseURL, "/"), videoRoomPrefix, sessionID)
}

// WatchSessions delivers userID's session list now and after every change.
func (s *SessionService) WatchSessions(ctx context.Context, userID string, onSnapshot func([]model.SessionView), onError func(error)) (func(), error) {
	if err := requireID(userID, "profile"); err != nil {
		return nil, err
	}
	load := func(ctx context.Context) ([]model.SessionView, error) {
		return s.ListForUser(ctx, userID)
	}
	return watchTopic(ctx, s.broker, redisclient.UserSessionsTopic(userID), load, onSnapshot, onError), nil
}

func (s *SessionService) loadProfile(ctx context.Context, id string) (*model.UserProfile, error) {
	if err := requireID(id, "profile"); err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.RemoteOperation("load profile", err)
	}
	if profile == nil {
		return nil, apperrors.NotFound("profile")
	}
	return profile, nil
}

func (s *SessionService) notifyParticipants(ctx context.Context, session *model.Session) {
	data := map[string]string{"sessionId": session.ID, "status": string(session.Status)}
	notify(ctx, s.broker, redisclient.UserSessionsTopic(session.TeacherID), data)
	notify(ctx, s.broker, redisclient.UserSessionsTopic(session.StudentID), data)
}
