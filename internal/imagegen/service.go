package imagegen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/restlab/study-backend/internal/chat"
	"github.com/restlab/study-backend/internal/common"
	"github.com/restlab/study-backend/internal/logging"
	"gorm.io/gorm"
)

// SessionSource resolves sessions with ownership hiding.
type SessionSource interface {
	SessionForUser(ctx context.Context, userID uint64, sessionID string) (*chat.Session, error)
}

// PromptSource is the slice of the capture layer the generator needs.
type PromptSource interface {
	PromptContent(ctx context.Context, promptID uint64) (string, error)
	PromptIDsBySession(ctx context.Context, sessionID string) ([]uint64, error)
}

// Publisher hands a job ID to the queue for a worker to pick up.
type Publisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

type Service struct {
	repo     *Repo
	gen      Generator
	prompts  PromptSource
	sessions SessionSource
	queue    Publisher // nil runs jobs inline

	dataDir     string
	stylePrefix string
}

func NewService(repo *Repo, gen Generator, prompts PromptSource, sessions SessionSource, queue Publisher, dataDir, stylePrefix string) *Service {
	return &Service{
		repo:        repo,
		gen:         gen,
		prompts:     prompts,
		sessions:    sessions,
		queue:       queue,
		dataDir:     dataDir,
		stylePrefix: stylePrefix,
	}
}

// Enqueue creates one job per prompt in the session that has neither a
// generated image nor a job already in flight. Without a queue the jobs run
// inline before returning.
func (s *Service) Enqueue(ctx context.Context, userID uint64, sessionID string) ([]Job, error) {
	sess, err := s.sessions.SessionForUser(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	promptIDs, err := s.prompts.PromptIDsBySession(ctx, sess.SessionID)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.ActivePromptIDs(ctx, sess.SessionID)
	if err != nil {
		return nil, err
	}

	var jobs []Job
	for _, pid := range promptIDs {
		if active[pid] {
			continue
		}
		if _, err := s.repo.GetImageByPromptID(ctx, pid); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		jid, err := common.NewULID()
		if err != nil {
			return nil, err
		}
		j := Job{
			ID:        jid,
			UserID:    userID,
			SessionID: sess.SessionID,
			PromptID:  pid,
			Status:    JobQueued,
		}
		if err := s.repo.CreateJob(ctx, &j); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}

	for i := range jobs {
		if s.queue != nil {
			if err := s.queue.PublishJob(ctx, jobs[i].ID); err != nil {
				// Job row stays queued; a worker sweep or retry can pick it up.
				logging.Errorf("publish image job %s: %v", jobs[i].ID, err)
				return jobs, err
			}
			continue
		}
		if err := s.RunJob(ctx, jobs[i].ID); err != nil {
			logging.Warnf("inline image job %s: %v", jobs[i].ID, err)
		}
	}
	return jobs, nil
}

// RunJob executes one queued job to completion, recording success or failure
// on the job row. Called by the queue worker.
func (s *Service) RunJob(ctx context.Context, jobID string) error {
	if err := s.repo.UpdateJobStatusRunning(ctx, jobID); err != nil {
		return err
	}
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	img, err := s.generate(ctx, j)
	if err != nil {
		_ = s.repo.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}
	return s.repo.MarkJobSucceeded(ctx, jobID, img.ID)
}

func (s *Service) generate(ctx context.Context, j *Job) (*GeneratedImage, error) {
	content, err := s.prompts.PromptContent(ctx, j.PromptID)
	if err != nil {
		return nil, err
	}

	prompt := content
	if s.stylePrefix != "" {
		prompt = s.stylePrefix + ". " + content
	}

	data, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.dataDir, "images", "session_"+j.SessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("prompt_%d.png", j.PromptID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	img := &GeneratedImage{
		SessionID: j.SessionID,
		PromptID:  j.PromptID,
		ImagePath: path,
	}
	if err := s.repo.CreateImage(ctx, img); err != nil {
		os.Remove(path)
		return nil, err
	}
	return img, nil
}

// JobForUser hides other users' jobs as not-found.
func (s *Service) JobForUser(ctx context.Context, userID uint64, jobID string) (*Job, error) {
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return j, nil
}

func (s *Service) ListImages(ctx context.Context, userID uint64, sessionID string) ([]GeneratedImage, error) {
	if _, err := s.sessions.SessionForUser(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListImagesBySession(ctx, sessionID)
}

// ImagePathForUser resolves a generated image to its file for serving.
func (s *Service) ImagePathForUser(ctx context.Context, userID, imageID uint64) (string, error) {
	img, err := s.repo.GetImageByID(ctx, imageID)
	if err != nil {
		return "", err
	}
	if _, err := s.sessions.SessionForUser(ctx, userID, img.SessionID); err != nil {
		return "", err
	}
	if !strings.HasPrefix(filepath.Clean(img.ImagePath), filepath.Clean(s.dataDir)) {
		return "", gorm.ErrRecordNotFound
	}
	return img.ImagePath, nil
}
