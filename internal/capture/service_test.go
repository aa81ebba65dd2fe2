package capture

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/restlab/study-backend/internal/chat"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeChat struct {
	ownerID   uint64
	sessionID string
	messages  map[uint64]string // messageID -> sessionID
}

func (f *fakeChat) SessionForUser(_ context.Context, userID uint64, sessionID string) (*chat.Session, error) {
	if userID != f.ownerID || sessionID != f.sessionID {
		return nil, gorm.ErrRecordNotFound
	}
	return &chat.Session{SessionID: sessionID, UserID: userID}, nil
}

func (f *fakeChat) MessageInSession(_ context.Context, sessionID string, messageID uint64) (bool, error) {
	sid, ok := f.messages[messageID]
	return ok && sid == sessionID, nil
}

func newTestService(t *testing.T, chatSrc ChatSource) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Prompt{}, &Concept{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.Exec("DELETE FROM prompts")
	db.Exec("DELETE FROM concepts")
	return NewService(NewRepo(db), chatSrc)
}

func TestCreatePrompt_Validation(t *testing.T) {
	fc := &fakeChat{ownerID: 1, sessionID: "SESSA", messages: map[uint64]string{10: "SESSA", 11: "SESSB"}}
	svc := newTestService(t, fc)
	ctx := context.Background()

	if _, err := svc.CreatePrompt(ctx, 1, "SESSA", Input{Content: "   "}); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("blank content: got %v, want ErrContentRequired", err)
	}

	long := strings.Repeat("x", 151)
	if _, err := svc.CreatePrompt(ctx, 1, "SESSA", Input{Title: long, Content: "a chair"}); !errors.Is(err, ErrTitleTooLong) {
		t.Fatalf("long title: got %v, want ErrTitleTooLong", err)
	}

	foreign := uint64(11)
	if _, err := svc.CreatePrompt(ctx, 1, "SESSA", Input{Content: "a chair", SourceMessageID: &foreign}); !errors.Is(err, ErrBadSourceMessage) {
		t.Fatalf("foreign source: got %v, want ErrBadSourceMessage", err)
	}

	if _, err := svc.CreatePrompt(ctx, 2, "SESSA", Input{Content: "a chair"}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign session: got %v, want ErrRecordNotFound", err)
	}

	src := uint64(10)
	p, err := svc.CreatePrompt(ctx, 1, "SESSA", Input{Title: "  Chair v1  ", Content: "  an oak chair  ", SourceMessageID: &src})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Title == nil || *p.Title != "Chair v1" {
		t.Fatalf("title not trimmed: %v", p.Title)
	}
	if p.Content != "an oak chair" {
		t.Fatalf("content not trimmed: %q", p.Content)
	}
}

func TestUpdatePrompt_PartialSemantics(t *testing.T) {
	fc := &fakeChat{ownerID: 1, sessionID: "SESSA", messages: map[uint64]string{10: "SESSA"}}
	svc := newTestService(t, fc)
	ctx := context.Background()

	src := uint64(10)
	p, err := svc.CreatePrompt(ctx, 1, "SESSA", Input{Title: "v1", Content: "an oak chair", SourceMessageID: &src})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// nil fields untouched
	got, err := svc.UpdatePrompt(ctx, 1, p.ID, nil, nil, nil)
	if err != nil {
		t.Fatalf("noop update: %v", err)
	}
	if got.Title == nil || *got.Title != "v1" || got.Content != "an oak chair" || got.SourceMessageID == nil {
		t.Fatalf("noop update changed fields: %+v", got)
	}

	// empty title clears it, zero source message clears the reference
	empty := ""
	var zero uint64
	got, err = svc.UpdatePrompt(ctx, 1, p.ID, nil, &empty, &zero)
	if err != nil {
		t.Fatalf("clearing update: %v", err)
	}
	if got.Title != nil || got.SourceMessageID != nil {
		t.Fatalf("fields not cleared: title=%v src=%v", got.Title, got.SourceMessageID)
	}

	// blank content rejected on update too
	blank := "  "
	if _, err := svc.UpdatePrompt(ctx, 1, p.ID, &blank, nil, nil); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("blank content update: got %v, want ErrContentRequired", err)
	}

	// foreign user sees not-found
	if _, err := svc.UpdatePrompt(ctx, 2, p.ID, nil, nil, nil); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign update: got %v, want ErrRecordNotFound", err)
	}
}

func TestConceptLifecycle(t *testing.T) {
	fc := &fakeChat{ownerID: 1, sessionID: "SESSA", messages: map[uint64]string{}}
	svc := newTestService(t, fc)
	ctx := context.Background()

	c1, err := svc.CreateConcept(ctx, 1, "SESSA", Input{Title: "Resting form", Content: "a chair that discourages sitting"})
	if err != nil {
		t.Fatalf("create concept: %v", err)
	}
	if _, err := svc.CreateConcept(ctx, 1, "SESSA", Input{Content: "untitled idea"}); err != nil {
		t.Fatalf("create untitled concept: %v", err)
	}

	list, err := svc.ListConcepts(ctx, 1, "SESSA")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d concepts, want 2", len(list))
	}
	untitled := 0
	for _, c := range list {
		if c.Title == nil {
			untitled++
		}
	}
	if untitled != 1 {
		t.Fatalf("got %d untitled concepts, want 1", untitled)
	}

	if err := svc.DeleteConcept(ctx, 2, c1.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign delete: got %v, want ErrRecordNotFound", err)
	}
	if err := svc.DeleteConcept(ctx, 1, c1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	list, err = svc.ListConcepts(ctx, 1, "SESSA")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d concepts after delete, want 1", len(list))
	}
}

func TestPromptIDsBySession(t *testing.T) {
	fc := &fakeChat{ownerID: 1, sessionID: "SESSA", messages: map[uint64]string{}}
	svc := newTestService(t, fc)
	ctx := context.Background()

	p1, err := svc.CreatePrompt(ctx, 1, "SESSA", Input{Content: "first"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p2, err := svc.CreatePrompt(ctx, 1, "SESSA", Input{Content: "second"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ids, err := svc.PromptIDsBySession(ctx, "SESSA")
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != p1.ID || ids[1] != p2.ID {
		t.Fatalf("ids=%v, want [%d %d]", ids, p1.ID, p2.ID)
	}

	content, err := svc.PromptContent(ctx, p1.ID)
	if err != nil || content != "first" {
		t.Fatalf("content: got %q err=%v", content, err)
	}
}
