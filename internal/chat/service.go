package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/restlab/study-backend/internal/ai"
	"github.com/restlab/study-backend/internal/catalog"
	"github.com/restlab/study-backend/internal/common"
	"github.com/restlab/study-backend/internal/logging"
	"gorm.io/gorm"
)

var (
	// ErrEmptyMessage rejects empty or whitespace-only user text.
	ErrEmptyMessage = errors.New("chat: message cannot be empty")

	// ErrChatDisabled rejects turns on a no-assistance session.
	ErrChatDisabled = errors.New("chat: model does not support chat")

	// ErrUnknownModel rejects model names outside the study catalog.
	ErrUnknownModel = errors.New("chat: unknown model")
)

type Service struct {
	repo     *Repo
	registry *ai.Registry
	catalog  *catalog.Catalog
}

func NewService(repo *Repo, registry *ai.Registry, cat *catalog.Catalog) *Service {
	return &Service{repo: repo, registry: registry, catalog: cat}
}

func NewSessionID() (string, error) {
	return common.NewULID()
}

// CreateSession starts a new activity. The context watermark starts at the
// creation instant, so the window is initially empty.
func (s *Service) CreateSession(ctx context.Context, userID uint64, modelName string) (*Session, error) {
	if _, ok := s.catalog.Lookup(modelName); !ok {
		return nil, ErrUnknownModel
	}

	sid, err := NewSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &Session{
		SessionID:      sid,
		UserID:         userID,
		ModelName:      modelName,
		CreatedAt:      now,
		ContextResetAt: now,
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SessionForUser loads a session and hides its existence from other users.
func (s *Service) SessionForUser(ctx context.Context, userID uint64, sessionID string) (*Session, error) {
	session, err := s.repo.GetSessionBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return session, nil
}

func (s *Service) providerForSession(ctx context.Context, sess *Session) (ai.Provider, error) {
	entry, ok := s.catalog.Lookup(sess.ModelName)
	if !ok {
		return nil, ErrUnknownModel
	}
	if entry.Provider == catalog.ProviderNone {
		return nil, ErrChatDisabled
	}
	return s.registry.Get(ctx, entry.Provider, entry.Model)
}

// RecordUserMessage validates and appends one user turn. The row is never
// rolled back by a later backend failure; the participant's utterance is
// preserved even when no reply arrives.
func (s *Service) RecordUserMessage(ctx context.Context, sess *Session, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if s.catalog.ChatDisabled(sess.ModelName) {
		return nil, ErrChatDisabled
	}

	m := &Message{
		SessionID: sess.SessionID,
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ContextWindow returns the messages currently visible to the model, earliest
// first: everything strictly after the session's reset watermark. It is
// recomputed from storage on every call, never cached, because the watermark
// can move between turns.
func (s *Service) ContextWindow(ctx context.Context, sess *Session) ([]Message, error) {
	return s.repo.ListMessagesAfter(ctx, sess.SessionID, sess.contextCutoff())
}

// AppendAssistantMessage appends one assistant turn. Call only after a
// successful backend reply.
func (s *Service) AppendAssistantMessage(ctx context.Context, sess *Session, content string) (*Message, error) {
	m := &Message{
		SessionID: sess.SessionID,
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ResetContext advances the session's watermark to now, mutating the session
// in place. History stays queryable for export but is permanently excluded
// from future context windows. Returns the number of messages that were
// visible immediately before the reset.
//
// Backends holding server-side context get a best-effort drop notification;
// its failure is logged and ignored — the watermark filter alone guarantees
// that no stale history crosses the cutoff.
func (s *Service) ResetContext(ctx context.Context, userID uint64, sessionID string) (int64, error) {
	sess, err := s.SessionForUser(ctx, userID, sessionID)
	if err != nil {
		return 0, err
	}

	cleared, err := s.repo.CountMessagesAfter(ctx, sess.SessionID, sess.contextCutoff())
	if err != nil {
		return 0, err
	}

	if err := s.repo.SetContextResetAt(ctx, sess.SessionID, time.Now().UTC()); err != nil {
		return 0, err
	}

	s.notifyBackendReset(ctx, sess)

	return cleared, nil
}

func (s *Service) notifyBackendReset(ctx context.Context, sess *Session) {
	provider, err := s.providerForSession(ctx, sess)
	if err != nil {
		// No backend to notify (no-assistance arm, or misconfigured model).
		return
	}
	resetter, ok := provider.(ai.ContextResetter)
	if !ok {
		return
	}

	nctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := resetter.ResetContext(nctx); err != nil {
		logging.Warnf("context reset notification failed session_id=%s model=%s err=%v",
			sess.SessionID, sess.ModelName, err)
	}
}

func toProviderMessages(msgs []Message) []ai.Message {
	out := make([]ai.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ai.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// SendMessage processes one turn: persist the user message, compute the
// context window, call the backend, persist the reply. A backend failure
// leaves the user message in history; the caller may retry without
// re-submitting it.
func (s *Service) SendMessage(ctx context.Context, userID uint64, sessionID string, content string) (reply string, assistantMsgID uint64, err error) {
	sess, err := s.SessionForUser(ctx, userID, sessionID)
	if err != nil {
		return "", 0, err
	}

	if _, err := s.RecordUserMessage(ctx, sess, content); err != nil {
		return "", 0, err
	}

	window, err := s.ContextWindow(ctx, sess)
	if err != nil {
		return "", 0, err
	}

	provider, err := s.providerForSession(ctx, sess)
	if err != nil {
		return "", 0, err
	}

	reply, err = provider.Chat(ctx, toProviderMessages(window))
	if err != nil {
		return "", 0, err
	}

	assistantMsg, err := s.AppendAssistantMessage(ctx, sess, reply)
	if err != nil {
		return "", 0, err
	}

	return reply, assistantMsg.ID, nil
}

// SendMessageStream persists the user message immediately, streams assistant
// chunks, and persists the assembled reply once streaming completes.
func (s *Service) SendMessageStream(ctx context.Context, userID uint64, sessionID string, content string) (chunks <-chan string, done <-chan struct{}, assistantMsgID <-chan uint64, errs <-chan error) {
	outChunks := make(chan string, 16)
	outDone := make(chan struct{})
	outMsgID := make(chan uint64, 1)
	outErrs := make(chan error, 1)

	go func() {
		defer close(outChunks)
		defer close(outDone)
		defer close(outMsgID)
		defer close(outErrs)

		sess, err := s.SessionForUser(ctx, userID, sessionID)
		if err != nil {
			outErrs <- err
			return
		}

		if _, err := s.RecordUserMessage(ctx, sess, content); err != nil {
			outErrs <- err
			return
		}

		window, err := s.ContextWindow(ctx, sess)
		if err != nil {
			outErrs <- err
			return
		}

		provider, err := s.providerForSession(ctx, sess)
		if err != nil {
			outErrs <- err
			return
		}

		sp, ok := provider.(ai.StreamProvider)
		if !ok {
			outErrs <- errors.New("provider does not support streaming")
			return
		}

		pChunks, pErrs := sp.StreamChat(ctx, toProviderMessages(window))

		var b strings.Builder
		for c := range pChunks {
			b.WriteString(c)
			outChunks <- c
		}

		select {
		case err := <-pErrs:
			if err != nil {
				outErrs <- err
				return
			}
		default:
			// no error sent
		}

		assistantMsg, err := s.AppendAssistantMessage(ctx, sess, b.String())
		if err != nil {
			outErrs <- err
			return
		}

		outMsgID <- assistantMsg.ID
	}()

	return outChunks, outDone, outMsgID, outErrs
}

// ListSessions returns the user's sessions in creation order.
func (s *Service) ListSessions(ctx context.Context, userID uint64) ([]Session, error) {
	return s.repo.ListSessionsByUser(ctx, userID)
}

// MessageInSession reports whether the message exists and belongs to the
// session. Used by capture validation for source-message references.
func (s *Service) MessageInSession(ctx context.Context, sessionID string, messageID uint64) (bool, error) {
	m, err := s.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.SessionID == sessionID, nil
}

// ListMessages pages through the full message history, resets included.
func (s *Service) ListMessages(ctx context.Context, userID uint64, sessionID string, limit int, beforeID uint64) ([]Message, error) {
	if _, err := s.SessionForUser(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListMessages(ctx, sessionID, limit, beforeID)
}
