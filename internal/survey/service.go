package survey

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/restlab/study-backend/internal/chat"
	"gorm.io/gorm"
)

// activityTarget is how many post-activity questionnaires complete the study
// (one per study arm).
const activityTarget = 3

var (
	ErrInvalidType     = errors.New("survey: questionnaire_type must be pre-activity or post-activity")
	ErrSessionRequired = errors.New("survey: session_id is required for post-activity questionnaires")
	ErrBadResponses    = errors.New("survey: responses must be a JSON object")
)

// SessionSource resolves sessions with ownership hiding.
type SessionSource interface {
	SessionForUser(ctx context.Context, userID uint64, sessionID string) (*chat.Session, error)
}

type Service struct {
	repo     *Repo
	sessions SessionSource
}

func NewService(repo *Repo, sessions SessionSource) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Submit validates and stores a questionnaire response. The answers object is
// persisted verbatim.
func (s *Service) Submit(ctx context.Context, userID uint64, sessionID, questionnaireType string, responses json.RawMessage) (*Response, error) {
	if questionnaireType != TypePreActivity && questionnaireType != TypePostActivity {
		return nil, ErrInvalidType
	}
	if questionnaireType == TypePostActivity && sessionID == "" {
		return nil, ErrSessionRequired
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(responses, &obj); err != nil || obj == nil {
		return nil, ErrBadResponses
	}

	var sidPtr *string
	if sessionID != "" {
		if _, err := s.sessions.SessionForUser(ctx, userID, sessionID); err != nil {
			return nil, err
		}
		sidPtr = &sessionID
	}

	resp := &Response{
		UserID:    userID,
		SessionID: sidPtr,
		Type:      questionnaireType,
		Responses: string(responses),
	}
	if err := s.repo.Create(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uint64, questionnaireType, sessionID string) ([]Response, error) {
	return s.repo.ListByUser(ctx, userID, questionnaireType, sessionID)
}

// GetForUser hides other users' responses as not-found.
func (s *Service) GetForUser(ctx context.Context, userID, responseID uint64) (*Response, error) {
	resp, err := s.repo.GetByID(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if resp.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return resp, nil
}

// CheckCompletion reports whether the user already submitted the given
// questionnaire (optionally scoped to a session) and which response it was.
func (s *Service) CheckCompletion(ctx context.Context, userID uint64, questionnaireType, sessionID string) (bool, uint64, error) {
	if questionnaireType != TypePreActivity && questionnaireType != TypePostActivity {
		return false, 0, ErrInvalidType
	}
	resp, err := s.repo.FirstMatching(ctx, userID, questionnaireType, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, resp.ID, nil
}

// Status summarizes a participant's progress through the study.
type Status struct {
	UserID               uint64   `json:"user_id"`
	PreActivityCompleted bool     `json:"pre_activity_completed"`
	CompletedActivities  int      `json:"completed_activities"`
	StudyCompleted       bool     `json:"study_completed"`
	CompletedModels      []string `json:"completed_models"`
}

// CompletedModels returns the model names of sessions with a post-activity
// questionnaire on file.
func (s *Service) CompletedModels(ctx context.Context, userID uint64) ([]string, error) {
	posts, err := s.repo.ListByUser(ctx, userID, TypePostActivity, "")
	if err != nil {
		return nil, err
	}

	models := make([]string, 0, len(posts))
	for _, p := range posts {
		if p.SessionID == nil {
			continue
		}
		sess, err := s.sessions.SessionForUser(ctx, userID, *p.SessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		models = append(models, sess.ModelName)
	}
	return models, nil
}

func (s *Service) StudyStatus(ctx context.Context, userID uint64) (*Status, error) {
	pre, _, err := s.CheckCompletion(ctx, userID, TypePreActivity, "")
	if err != nil {
		return nil, err
	}

	posts, err := s.repo.ListByUser(ctx, userID, TypePostActivity, "")
	if err != nil {
		return nil, err
	}

	completedModels, err := s.CompletedModels(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Status{
		UserID:               userID,
		PreActivityCompleted: pre,
		CompletedActivities:  len(posts),
		StudyCompleted:       len(posts) >= activityTarget,
		CompletedModels:      completedModels,
	}, nil
}
