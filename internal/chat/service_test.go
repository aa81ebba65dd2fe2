package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/restlab/study-backend/internal/ai"
	"github.com/restlab/study-backend/internal/catalog"
	"gorm.io/gorm"
)

type recordingProvider struct {
	last  []ai.Message
	reply string
}

func (p *recordingProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	// copy to avoid mutations
	p.last = append([]ai.Message(nil), messages...)
	if p.reply == "" {
		return "ok", nil
	}
	return p.reply, nil
}

type failingProvider struct{}

func (failingProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	_ = messages
	return "", ai.ErrUnavailable
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Session{}, &Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	db.Exec("DELETE FROM chat_sessions")
	db.Exec("DELETE FROM chat_messages")
	return db
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Entry{
		{ID: "fake-model", Name: "Fake", Provider: "fake", Model: "default"},
		{ID: "no-assistance", Name: "No Assistance", Provider: catalog.ProviderNone},
	})
}

func newTestService(t *testing.T, prov ai.Provider) (*Service, *Repo) {
	t.Helper()
	repo := NewRepo(openTestDB(t))
	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		_ = model
		return prov, nil
	})
	return NewService(repo, reg, testCatalog()), repo
}

func mustCreateSession(t *testing.T, svc *Service, userID uint64, model string) *Session {
	t.Helper()
	sess, err := svc.CreateSession(context.Background(), userID, model)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func TestSendMessage_WritesUserAndAssistant(t *testing.T) {
	prov := &recordingProvider{}
	svc, repo := newTestService(t, prov)

	sess := mustCreateSession(t, svc, 1, "fake-model")

	reply, assistantID, err := svc.SendMessage(context.Background(), 1, sess.SessionID, "Hello")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if assistantID == 0 {
		t.Fatalf("expected assistant message id to be set")
	}

	msgs, err := repo.ListMessagesAfter(context.Background(), sess.SessionID, sess.CreatedAt)
	if err != nil {
		t.Fatalf("query messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "Hello" {
		t.Fatalf("unexpected user msg: role=%q content=%q", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "ok" {
		t.Fatalf("unexpected assistant msg: role=%q content=%q", msgs[1].Role, msgs[1].Content)
	}
}

func TestSendMessage_ProviderSeesWindowInOrder(t *testing.T) {
	prov := &recordingProvider{}
	svc, _ := newTestService(t, prov)

	sess := mustCreateSession(t, svc, 2, "fake-model")

	if _, _, err := svc.SendMessage(context.Background(), 2, sess.SessionID, "first"); err != nil {
		t.Fatalf("send first: %v", err)
	}
	if _, _, err := svc.SendMessage(context.Background(), 2, sess.SessionID, "second"); err != nil {
		t.Fatalf("send second: %v", err)
	}

	// Second call sees: first user msg, first reply, second user msg.
	if len(prov.last) != 3 {
		t.Fatalf("expected provider to receive 3 messages, got %d", len(prov.last))
	}
	if prov.last[0].Content != "first" || prov.last[1].Content != "ok" || prov.last[2].Content != "second" {
		t.Fatalf("unexpected provider input: %+v", prov.last)
	}
	if prov.last[len(prov.last)-1].Role != RoleUser {
		t.Fatalf("expected last provider msg to be the new user msg")
	}
}

func TestRecordUserMessage_Validation(t *testing.T) {
	svc, repo := newTestService(t, &recordingProvider{})

	sess := mustCreateSession(t, svc, 3, "fake-model")

	if _, err := svc.RecordUserMessage(context.Background(), sess, "   \t\n"); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	unassisted := mustCreateSession(t, svc, 3, "no-assistance")
	if _, err := svc.RecordUserMessage(context.Background(), unassisted, "hello"); !errors.Is(err, ErrChatDisabled) {
		t.Fatalf("expected ErrChatDisabled, got %v", err)
	}

	// Neither rejection wrote a row.
	for _, s := range []*Session{sess, unassisted} {
		n, err := repo.CountMessagesAfter(context.Background(), s.SessionID, s.CreatedAt.Add(-time.Hour))
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected no messages for session %s, got %d", s.SessionID, n)
		}
	}
}

func TestCreateSession_UnknownModel(t *testing.T) {
	svc, _ := newTestService(t, &recordingProvider{})
	if _, err := svc.CreateSession(context.Background(), 1, "not-in-catalog"); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestContextWindow_ScenarioAndIdempotence(t *testing.T) {
	svc, repo := newTestService(t, &recordingProvider{})

	// Session created at T0; messages at T0+1s and T0+2s.
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sess := &Session{SessionID: "01TESTWINDOW00000000000000", UserID: 5, ModelName: "fake-model", CreatedAt: t0, ContextResetAt: t0}
	if err := repo.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	seed := []Message{
		{SessionID: sess.SessionID, Role: RoleUser, Content: "hi", Timestamp: t0.Add(1 * time.Second)},
		{SessionID: sess.SessionID, Role: RoleAssistant, Content: "hello", Timestamp: t0.Add(2 * time.Second)},
	}
	for i := range seed {
		if err := repo.InsertMessage(context.Background(), &seed[i]); err != nil {
			t.Fatalf("seed msg %d: %v", i, err)
		}
	}

	window, err := svc.ContextWindow(context.Background(), sess)
	if err != nil {
		t.Fatalf("context window: %v", err)
	}
	if len(window) != 2 || window[0].Content != "hi" || window[1].Content != "hello" {
		t.Fatalf("unexpected window: %+v", window)
	}

	// Idempotent with no intervening writes.
	again, err := svc.ContextWindow(context.Background(), sess)
	if err != nil {
		t.Fatalf("context window again: %v", err)
	}
	if len(again) != len(window) {
		t.Fatalf("expected identical windows, got %d then %d", len(window), len(again))
	}
	for i := range window {
		if window[i].ID != again[i].ID {
			t.Fatalf("window changed between reads at %d: %d vs %d", i, window[i].ID, again[i].ID)
		}
	}

	// Reset at T0+3s, new message at T0+4s: only the new message is visible.
	if err := repo.SetContextResetAt(context.Background(), sess.SessionID, t0.Add(3*time.Second)); err != nil {
		t.Fatalf("set reset: %v", err)
	}
	late := Message{SessionID: sess.SessionID, Role: RoleUser, Content: "hi again", Timestamp: t0.Add(4 * time.Second)}
	if err := repo.InsertMessage(context.Background(), &late); err != nil {
		t.Fatalf("insert late: %v", err)
	}

	sess, err = repo.GetSessionBySessionID(context.Background(), sess.SessionID)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	window, err = svc.ContextWindow(context.Background(), sess)
	if err != nil {
		t.Fatalf("context window after reset: %v", err)
	}
	if len(window) != 1 || window[0].Content != "hi again" {
		t.Fatalf("expected only the post-reset message, got %+v", window)
	}
}

func TestContextWindow_TimestampTieExcluded(t *testing.T) {
	svc, repo := newTestService(t, &recordingProvider{})

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cutoff := t0.Add(10 * time.Second)
	sess := &Session{SessionID: "01TESTTIE00000000000000000", UserID: 6, ModelName: "fake-model", CreatedAt: t0, ContextResetAt: cutoff}
	if err := repo.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	tie := Message{SessionID: sess.SessionID, Role: RoleUser, Content: "same instant", Timestamp: cutoff}
	if err := repo.InsertMessage(context.Background(), &tie); err != nil {
		t.Fatalf("insert tie: %v", err)
	}
	after := Message{SessionID: sess.SessionID, Role: RoleUser, Content: "later", Timestamp: cutoff.Add(time.Second)}
	if err := repo.InsertMessage(context.Background(), &after); err != nil {
		t.Fatalf("insert later: %v", err)
	}

	window, err := svc.ContextWindow(context.Background(), sess)
	if err != nil {
		t.Fatalf("context window: %v", err)
	}
	// Reset wins the tie: the colliding message stays out of the window.
	if len(window) != 1 || window[0].Content != "later" {
		t.Fatalf("expected tie to be excluded, got %+v", window)
	}
}

func TestResetContext_CountAndSuffix(t *testing.T) {
	svc, repo := newTestService(t, &recordingProvider{})

	sess := mustCreateSession(t, svc, 7, "fake-model")

	for _, c := range []string{"one", "two", "three"} {
		if _, err := svc.RecordUserMessage(context.Background(), sess, c); err != nil {
			t.Fatalf("record %q: %v", c, err)
		}
	}

	cleared, err := svc.ResetContext(context.Background(), 7, sess.SessionID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if cleared != 3 {
		t.Fatalf("expected 3 cleared messages, got %d", cleared)
	}

	sess, err = repo.GetSessionBySessionID(context.Background(), sess.SessionID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	window, err := svc.ContextWindow(context.Background(), sess)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 0 {
		t.Fatalf("expected empty window after reset, got %d messages", len(window))
	}

	// History is intact; only visibility changed.
	all, err := repo.ListMessages(context.Background(), sess.SessionID, 50, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected full history of 3, got %d", len(all))
	}

	// New messages become visible; old ones never do.
	if _, err := svc.RecordUserMessage(context.Background(), sess, "fresh"); err != nil {
		t.Fatalf("record fresh: %v", err)
	}
	window, err = svc.ContextWindow(context.Background(), sess)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 1 || window[0].Content != "fresh" {
		t.Fatalf("expected only the fresh message, got %+v", window)
	}
}

func TestResetContext_Twice(t *testing.T) {
	svc, repo := newTestService(t, &recordingProvider{})

	sess := mustCreateSession(t, svc, 8, "fake-model")
	if _, err := svc.RecordUserMessage(context.Background(), sess, "before"); err != nil {
		t.Fatalf("record: %v", err)
	}

	first, err := svc.ResetContext(context.Background(), 8, sess.SessionID)
	if err != nil {
		t.Fatalf("first reset: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first reset to clear 1, got %d", first)
	}

	second, err := svc.ResetContext(context.Background(), 8, sess.SessionID)
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if second != 0 {
		t.Fatalf("expected second reset to clear 0, got %d", second)
	}

	afterFirst, err := repo.GetSessionBySessionID(context.Background(), sess.SessionID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if afterFirst.ContextResetAt.Before(sess.CreatedAt) {
		t.Fatalf("watermark moved backwards")
	}

	window, err := svc.ContextWindow(context.Background(), afterFirst)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 0 {
		t.Fatalf("expected empty window after double reset, got %d", len(window))
	}
}

func TestResetContext_HidesForeignSessions(t *testing.T) {
	svc, _ := newTestService(t, &recordingProvider{})

	sess := mustCreateSession(t, svc, 9, "fake-model")
	if _, err := svc.ResetContext(context.Background(), 10, sess.SessionID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found for foreign user, got %v", err)
	}
}

func TestSendMessage_BackendFailureKeepsUserMessage(t *testing.T) {
	svc, repo := newTestService(t, failingProvider{})

	sess := mustCreateSession(t, svc, 11, "fake-model")

	_, _, err := svc.SendMessage(context.Background(), 11, sess.SessionID, "still here?")
	if !errors.Is(err, ai.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	// The user turn is committed before the backend call and survives it.
	all, err := repo.ListMessages(context.Background(), sess.SessionID, 50, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(all) != 1 || all[0].Role != RoleUser || all[0].Content != "still here?" {
		t.Fatalf("expected the lone user message, got %+v", all)
	}

	window, err := svc.ContextWindow(context.Background(), sess)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 1 || window[0].Content != "still here?" {
		t.Fatalf("expected user message to stay visible, got %+v", window)
	}
}
