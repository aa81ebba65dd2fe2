package moodboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/restlab/study-backend/internal/logging"
	"gorm.io/gorm"
)

// maxUploadBytes caps a single moodboard upload at 10 MB.
const maxUploadBytes = 10 << 20

var (
	ErrBadExtension = errors.New("moodboard: file type not allowed")
	ErrTooLarge     = errors.New("moodboard: file exceeds 10MB limit")
)

var allowedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

type Service struct {
	repo    *Repo
	dataDir string
}

func NewService(repo *Repo, dataDir string) *Service {
	return &Service{repo: repo, dataDir: dataDir}
}

func (s *Service) userDir(userID uint64) string {
	return filepath.Join(s.dataDir, "moodboard", fmt.Sprintf("user_%d", userID))
}

// Upload stores one image on disk under a random name and records it. The
// original filename is kept only as metadata.
func (s *Service) Upload(ctx context.Context, userID uint64, originalName string, size int64, src io.Reader) (*Image, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExts[ext] {
		return nil, ErrBadExtension
	}
	if size > maxUploadBytes {
		return nil, ErrTooLarge
	}

	dir := s.userDir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create moodboard dir: %w", err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create image file: %w", err)
	}
	// Enforce the cap while copying too; the declared size can lie.
	written, err := io.Copy(f, io.LimitReader(src, maxUploadBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > maxUploadBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	img := &Image{
		UserID:           userID,
		ImagePath:        path,
		OriginalFilename: originalName,
	}
	if err := s.repo.Create(ctx, img); err != nil {
		os.Remove(path)
		return nil, err
	}
	return img, nil
}

func (s *Service) List(ctx context.Context, userID uint64) ([]Image, error) {
	return s.repo.ListByUser(ctx, userID)
}

// PathForUser resolves an image to its on-disk path, hiding foreign images.
func (s *Service) PathForUser(ctx context.Context, userID, imageID uint64) (string, error) {
	img, err := s.repo.GetByID(ctx, imageID)
	if err != nil {
		return "", err
	}
	if img.UserID != userID {
		return "", gorm.ErrRecordNotFound
	}
	return img.ImagePath, nil
}

func (s *Service) Delete(ctx context.Context, userID, imageID uint64) error {
	img, err := s.repo.GetByID(ctx, imageID)
	if err != nil {
		return err
	}
	if img.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	if err := s.repo.Delete(ctx, img.ID); err != nil {
		return err
	}
	if err := os.Remove(img.ImagePath); err != nil && !os.IsNotExist(err) {
		logging.Warnf("remove moodboard file %s: %v", img.ImagePath, err)
	}
	return nil
}

// Clear removes every moodboard image for the user, rows first, then files.
func (s *Service) Clear(ctx context.Context, userID uint64) (int, error) {
	imgs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return 0, err
	}
	for _, img := range imgs {
		if err := os.Remove(img.ImagePath); err != nil && !os.IsNotExist(err) {
			logging.Warnf("remove moodboard file %s: %v", img.ImagePath, err)
		}
	}
	return len(imgs), nil
}
