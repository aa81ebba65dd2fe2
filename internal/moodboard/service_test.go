package moodboard

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Image{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.Exec("DELETE FROM moodboard_images")
	return NewService(NewRepo(db), t.TempDir())
}

func TestUpload_RejectsBadExtension(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Upload(context.Background(), 1, "notes.txt", 10, strings.NewReader("hello"))
	if !errors.Is(err, ErrBadExtension) {
		t.Fatalf("got %v, want ErrBadExtension", err)
	}
}

func TestUpload_RejectsOversize(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Upload(context.Background(), 1, "big.png", maxUploadBytes+1, bytes.NewReader(nil))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("got %v, want ErrTooLarge", err)
	}
}

func TestUploadListDeleteClear(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	img1, err := svc.Upload(ctx, 1, "chair.jpg", 5, strings.NewReader("12345"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if img1.OriginalFilename != "chair.jpg" {
		t.Fatalf("original filename: got %q", img1.OriginalFilename)
	}
	if strings.Contains(img1.ImagePath, "chair") {
		t.Fatalf("stored path leaks original name: %s", img1.ImagePath)
	}
	if _, err := os.Stat(img1.ImagePath); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}

	if _, err := svc.Upload(ctx, 1, "sofa.webp", 4, strings.NewReader("abcd")); err != nil {
		t.Fatalf("upload 2: %v", err)
	}
	if _, err := svc.Upload(ctx, 2, "lamp.png", 4, strings.NewReader("wxyz")); err != nil {
		t.Fatalf("upload other user: %v", err)
	}

	mine, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("list: got %d images, want 2", len(mine))
	}

	if _, err := svc.PathForUser(ctx, 2, img1.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign path lookup: got %v, want ErrRecordNotFound", err)
	}

	if err := svc.Delete(ctx, 1, img1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(img1.ImagePath); !os.IsNotExist(err) {
		t.Fatalf("file still on disk after delete: %v", err)
	}

	n, err := svc.Clear(ctx, 1)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 1 {
		t.Fatalf("clear: got %d removed, want 1", n)
	}

	theirs, err := svc.List(ctx, 2)
	if err != nil {
		t.Fatalf("list other user: %v", err)
	}
	if len(theirs) != 1 {
		t.Fatalf("other user's images affected: got %d, want 1", len(theirs))
	}
}
