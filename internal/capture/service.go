package capture

import (
	"context"
	"errors"
	"strings"

	"github.com/restlab/study-backend/internal/chat"
)

const maxTitleLen = 150

var (
	ErrContentRequired = errors.New("capture: content is required")
	ErrTitleTooLong    = errors.New("capture: title must be 150 characters or fewer")

	// ErrBadSourceMessage rejects source references outside the capture's session.
	ErrBadSourceMessage = errors.New("capture: source message must belong to this session")
)

// ChatSource is the slice of the chat service the capture layer needs:
// session ownership and message membership checks.
type ChatSource interface {
	SessionForUser(ctx context.Context, userID uint64, sessionID string) (*chat.Session, error)
	MessageInSession(ctx context.Context, sessionID string, messageID uint64) (bool, error)
}

type Service struct {
	repo *Repo
	chat ChatSource
}

func NewService(repo *Repo, chatSrc ChatSource) *Service {
	return &Service{repo: repo, chat: chatSrc}
}

// Input carries the writable fields of a prompt or concept.
type Input struct {
	Title           string
	Content         string
	SourceMessageID *uint64
}

func (s *Service) validateInput(ctx context.Context, sessionID string, in Input) (*string, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrContentRequired
	}
	title := strings.TrimSpace(in.Title)
	if len(title) > maxTitleLen {
		return nil, ErrTitleTooLong
	}
	if in.SourceMessageID != nil {
		ok, err := s.chat.MessageInSession(ctx, sessionID, *in.SourceMessageID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrBadSourceMessage
		}
	}
	if title == "" {
		return nil, nil
	}
	return &title, nil
}

func (s *Service) ListPrompts(ctx context.Context, userID uint64, sessionID string) ([]Prompt, error) {
	if _, err := s.chat.SessionForUser(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListPromptsBySession(ctx, sessionID)
}

func (s *Service) CreatePrompt(ctx context.Context, userID uint64, sessionID string, in Input) (*Prompt, error) {
	if _, err := s.chat.SessionForUser(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	title, err := s.validateInput(ctx, sessionID, in)
	if err != nil {
		return nil, err
	}

	p := &Prompt{
		SessionID:       sessionID,
		Title:           title,
		Content:         strings.TrimSpace(in.Content),
		SourceMessageID: in.SourceMessageID,
	}
	if err := s.repo.CreatePrompt(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// promptForUser loads a prompt and verifies the owning session belongs to the
// user; foreign prompts surface as not-found.
func (s *Service) promptForUser(ctx context.Context, userID, promptID uint64) (*Prompt, error) {
	p, err := s.repo.GetPromptByID(ctx, promptID)
	if err != nil {
		return nil, err
	}
	if _, err := s.chat.SessionForUser(ctx, userID, p.SessionID); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePrompt applies a partial update. Nil fields are left untouched; an
// empty title clears it; a zero source message ID clears the reference.
func (s *Service) UpdatePrompt(ctx context.Context, userID, promptID uint64, content, title *string, sourceMessageID *uint64) (*Prompt, error) {
	p, err := s.promptForUser(ctx, userID, promptID)
	if err != nil {
		return nil, err
	}

	if content != nil {
		c := strings.TrimSpace(*content)
		if c == "" {
			return nil, ErrContentRequired
		}
		p.Content = c
	}
	if title != nil {
		t := strings.TrimSpace(*title)
		if len(t) > maxTitleLen {
			return nil, ErrTitleTooLong
		}
		if t == "" {
			p.Title = nil
		} else {
			p.Title = &t
		}
	}
	if sourceMessageID != nil {
		if *sourceMessageID == 0 {
			p.SourceMessageID = nil
		} else {
			ok, err := s.chat.MessageInSession(ctx, p.SessionID, *sourceMessageID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrBadSourceMessage
			}
			p.SourceMessageID = sourceMessageID
		}
	}

	if err := s.repo.SavePrompt(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePrompt(ctx context.Context, userID, promptID uint64) error {
	p, err := s.promptForUser(ctx, userID, promptID)
	if err != nil {
		return err
	}
	return s.repo.DeletePrompt(ctx, p.ID)
}

func (s *Service) ListConcepts(ctx context.Context, userID uint64, sessionID string) ([]Concept, error) {
	if _, err := s.chat.SessionForUser(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListConceptsBySession(ctx, sessionID)
}

func (s *Service) CreateConcept(ctx context.Context, userID uint64, sessionID string, in Input) (*Concept, error) {
	if _, err := s.chat.SessionForUser(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	title, err := s.validateInput(ctx, sessionID, in)
	if err != nil {
		return nil, err
	}

	c := &Concept{
		SessionID:       sessionID,
		Title:           title,
		Content:         strings.TrimSpace(in.Content),
		SourceMessageID: in.SourceMessageID,
	}
	if err := s.repo.CreateConcept(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) conceptForUser(ctx context.Context, userID, conceptID uint64) (*Concept, error) {
	c, err := s.repo.GetConceptByID(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	if _, err := s.chat.SessionForUser(ctx, userID, c.SessionID); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateConcept mirrors UpdatePrompt's partial-update semantics.
func (s *Service) UpdateConcept(ctx context.Context, userID, conceptID uint64, content, title *string, sourceMessageID *uint64) (*Concept, error) {
	c, err := s.conceptForUser(ctx, userID, conceptID)
	if err != nil {
		return nil, err
	}

	if content != nil {
		cc := strings.TrimSpace(*content)
		if cc == "" {
			return nil, ErrContentRequired
		}
		c.Content = cc
	}
	if title != nil {
		t := strings.TrimSpace(*title)
		if len(t) > maxTitleLen {
			return nil, ErrTitleTooLong
		}
		if t == "" {
			c.Title = nil
		} else {
			c.Title = &t
		}
	}
	if sourceMessageID != nil {
		if *sourceMessageID == 0 {
			c.SourceMessageID = nil
		} else {
			ok, err := s.chat.MessageInSession(ctx, c.SessionID, *sourceMessageID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrBadSourceMessage
			}
			c.SourceMessageID = sourceMessageID
		}
	}

	if err := s.repo.SaveConcept(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteConcept(ctx context.Context, userID, conceptID uint64) error {
	c, err := s.conceptForUser(ctx, userID, conceptID)
	if err != nil {
		return err
	}
	return s.repo.DeleteConcept(ctx, c.ID)
}

// PromptContent returns the generation text for a prompt, used by the image
// worker which addresses prompts by ID from a job row.
func (s *Service) PromptContent(ctx context.Context, promptID uint64) (string, error) {
	p, err := s.repo.GetPromptByID(ctx, promptID)
	if err != nil {
		return "", err
	}
	return p.Content, nil
}

// PromptIDsBySession lists a session's prompt IDs in creation order, for
// image-generation fan-out.
func (s *Service) PromptIDsBySession(ctx context.Context, sessionID string) ([]uint64, error) {
	prompts, err := s.repo.ListPromptsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(prompts))
	for _, p := range prompts {
		ids = append(ids, p.ID)
	}
	return ids, nil
}
