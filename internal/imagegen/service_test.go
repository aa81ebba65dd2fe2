package imagegen

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/restlab/study-backend/internal/chat"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeGenerator struct {
	prompts []string
	fail    bool
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) ([]byte, error) {
	if g.fail {
		return nil, ErrGeneration
	}
	g.prompts = append(g.prompts, prompt)
	return []byte("png-bytes"), nil
}

type fakeSessions struct {
	userID    uint64
	sessionID string
}

func (f *fakeSessions) SessionForUser(_ context.Context, userID uint64, sessionID string) (*chat.Session, error) {
	if userID != f.userID || sessionID != f.sessionID {
		return nil, gorm.ErrRecordNotFound
	}
	return &chat.Session{SessionID: sessionID, UserID: userID}, nil
}

type fakePrompts struct {
	content map[uint64]string
	order   []uint64
}

func (f *fakePrompts) PromptContent(_ context.Context, promptID uint64) (string, error) {
	c, ok := f.content[promptID]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakePrompts) PromptIDsBySession(_ context.Context, _ string) ([]uint64, error) {
	return f.order, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Job{}, &GeneratedImage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.Exec("DELETE FROM image_jobs")
	db.Exec("DELETE FROM generated_images")
	return db
}

func TestEnqueue_InlineGeneratesAndSkipsDone(t *testing.T) {
	gen := &fakeGenerator{}
	prompts := &fakePrompts{
		content: map[uint64]string{1: "an oak chair", 2: "a glass table"},
		order:   []uint64{1, 2},
	}
	sessions := &fakeSessions{userID: 7, sessionID: "SESSA"}
	svc := NewService(NewRepo(openTestDB(t)), gen, prompts, sessions, nil, t.TempDir(), "Catalog photo")
	ctx := context.Background()

	jobs, err := svc.Enqueue(ctx, 7, "SESSA")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}

	for _, j := range jobs {
		got, err := svc.JobForUser(ctx, 7, j.ID)
		if err != nil {
			t.Fatalf("job lookup: %v", err)
		}
		if got.Status != JobSucceeded {
			t.Fatalf("job %s status=%s, want succeeded", j.ID, got.Status)
		}
		if got.ImageID == nil {
			t.Fatalf("job %s has no image id", j.ID)
		}
	}

	// Style prefix goes in front of the prompt text.
	if len(gen.prompts) != 2 || !strings.HasPrefix(gen.prompts[0], "Catalog photo. ") {
		t.Fatalf("generator prompts: %v", gen.prompts)
	}

	imgs, err := svc.ListImages(ctx, 7, "SESSA")
	if err != nil {
		t.Fatalf("list images: %v", err)
	}
	if len(imgs) != 2 {
		t.Fatalf("got %d images, want 2", len(imgs))
	}
	for _, img := range imgs {
		if _, err := os.Stat(img.ImagePath); err != nil {
			t.Fatalf("image file missing: %v", err)
		}
	}

	// Everything already has an image; nothing new to do.
	again, err := svc.Enqueue(ctx, 7, "SESSA")
	if err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("re-enqueue created %d jobs, want 0", len(again))
	}
}

func TestEnqueue_BackendFailureMarksJobFailed(t *testing.T) {
	gen := &fakeGenerator{fail: true}
	prompts := &fakePrompts{content: map[uint64]string{1: "a lamp"}, order: []uint64{1}}
	sessions := &fakeSessions{userID: 7, sessionID: "SESSA"}
	svc := NewService(NewRepo(openTestDB(t)), gen, prompts, sessions, nil, t.TempDir(), "")
	ctx := context.Background()

	jobs, err := svc.Enqueue(ctx, 7, "SESSA")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}

	j, err := svc.JobForUser(ctx, 7, jobs[0].ID)
	if err != nil {
		t.Fatalf("job lookup: %v", err)
	}
	if j.Status != JobFailed {
		t.Fatalf("status=%s, want failed", j.Status)
	}
	if j.Error == nil || !strings.Contains(*j.Error, "generation failed") {
		t.Fatalf("error not recorded: %v", j.Error)
	}

	// A failed job is no longer active, so the prompt can be retried.
	gen.fail = false
	retry, err := svc.Enqueue(ctx, 7, "SESSA")
	if err != nil {
		t.Fatalf("retry enqueue: %v", err)
	}
	if len(retry) != 1 {
		t.Fatalf("retry created %d jobs, want 1", len(retry))
	}
	got, err := svc.JobForUser(ctx, 7, retry[0].ID)
	if err != nil {
		t.Fatalf("retry job lookup: %v", err)
	}
	if got.Status != JobSucceeded {
		t.Fatalf("retry status=%s, want succeeded", got.Status)
	}
}

func TestJobForUser_HidesForeignJobs(t *testing.T) {
	gen := &fakeGenerator{}
	prompts := &fakePrompts{content: map[uint64]string{1: "a desk"}, order: []uint64{1}}
	sessions := &fakeSessions{userID: 7, sessionID: "SESSA"}
	svc := NewService(NewRepo(openTestDB(t)), gen, prompts, sessions, nil, t.TempDir(), "")
	ctx := context.Background()

	jobs, err := svc.Enqueue(ctx, 7, "SESSA")
	if err != nil || len(jobs) != 1 {
		t.Fatalf("enqueue: jobs=%d err=%v", len(jobs), err)
	}
	if _, err := svc.JobForUser(ctx, 8, jobs[0].ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign job lookup: got %v, want ErrRecordNotFound", err)
	}
	if _, err := svc.Enqueue(ctx, 8, "SESSA"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign enqueue: got %v, want ErrRecordNotFound", err)
	}
}
