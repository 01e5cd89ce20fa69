package assignments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-results/internal/apperr"
	"github.com/mind-engage/mindengage-results/internal/rbac"
	"github.com/mind-engage/mindengage-results/internal/storage"
	syncx "github.com/mind-engage/mindengage-results/internal/sync"
)

type Service struct {
	store  *SQLStore
	blobs  storage.BlobStore
	events syncx.Recorder
	now    func() time.Time
}

func NewService(store *SQLStore, blobs storage.BlobStore, events syncx.Recorder) *Service {
	if events == nil {
		events = syncx.Discard{}
	}
	return &Service{store: store, blobs: blobs, events: events, now: func() time.Time { return time.Now().UTC() }}
}

func check(id rbac.Identity, perms ...string) error {
	if id.IsZero() {
		return apperr.New(apperr.ErrUnauthenticated, "authentication required")
	}
	for _, p := range perms {
		if id.Can(p) {
			return nil
		}
	}
	return apperr.Forbidden("forbidden")
}

// Submit stores a submission and its optional file under
// submissions/<id>/<file name>.
func (s *Service) Submit(ctx context.Context, id rbac.Identity, in SubmitInput) (Submission, error) {
	if err := check(id, "submission:create"); err != nil {
		return Submission{}, err
	}
	task := strings.TrimSpace(in.TaskName)
	if task == "" {
		return Submission{}, apperr.Validation("task_name is required")
	}
	sub := Submission{
		ID:          uuid.NewString(),
		UserID:      id.UserID,
		Username:    id.Username,
		TaskName:    task,
		Note:        strings.TrimSpace(in.Note),
		SubmittedAt: s.now().Truncate(time.Second),
	}

	if in.File != nil {
		name := cleanFileName(in.File.Name)
		if name == "" {
			return Submission{}, apperr.Validation("file name is invalid")
		}
		key := "submissions/" + sub.ID + "/" + name
		if _, err := s.blobs.Put(ctx, key, in.File.Body); err != nil {
			if errors.Is(err, storage.ErrBadKey) {
				return Submission{}, apperr.Wrap(apperr.ErrValidation, "file name is invalid", err)
			}
			return Submission{}, err
		}
		sub.FileKey, sub.FileName = key, name
	}

	if err := s.store.Insert(ctx, sub); err != nil {
		if sub.HasFile() {
			if derr := s.blobs.Delete(ctx, sub.FileKey); derr != nil {
				slog.WarnContext(ctx, "remove orphaned upload", "key", sub.FileKey, "err", derr)
			}
		}
		return Submission{}, err
	}
	s.record(ctx, syncx.EventSubmissionAdded, sub.ID, map[string]string{"user_id": sub.UserID, "task_name": task})
	return sub, nil
}

// List returns the caller's own submissions, or everyone's for graders.
func (s *Service) List(ctx context.Context, id rbac.Identity) ([]Submission, error) {
	if err := check(id, "submission:view-own", "submission:view-all"); err != nil {
		return nil, err
	}
	owner := id.UserID
	if id.Can("submission:view-all") {
		owner = ""
	}
	return s.store.List(ctx, owner)
}

func (s *Service) Grade(ctx context.Context, id rbac.Identity, subID string, score int) (Submission, error) {
	if err := check(id, "submission:grade"); err != nil {
		return Submission{}, err
	}
	if score < 0 || score > MaxScore {
		return Submission{}, apperr.Validation("score must be between 0 and 100")
	}
	if err := s.store.SetScore(ctx, subID, score, id.UserID, s.now()); err != nil {
		return Submission{}, err
	}
	sub, err := s.store.Get(ctx, subID)
	if err != nil {
		return Submission{}, err
	}
	s.record(ctx, syncx.EventSubmissionGraded, sub.ID, map[string]any{"user_id": sub.UserID, "score": score})
	return sub, nil
}

// Open returns the stored file of a submission for its owner or a grader.
func (s *Service) Open(ctx context.Context, id rbac.Identity, subID string) (Submission, io.ReadCloser, error) {
	if err := check(id, "submission:view-own", "submission:view-all"); err != nil {
		return Submission{}, nil, err
	}
	sub, err := s.store.Get(ctx, subID)
	if err != nil {
		return Submission{}, nil, err
	}
	if sub.UserID != id.UserID && !id.Can("submission:view-all") {
		return Submission{}, nil, apperr.Forbidden("submission belongs to another user")
	}
	if !sub.HasFile() {
		return Submission{}, nil, apperr.NotFound("submission has no file")
	}
	rc, err := s.blobs.Get(ctx, sub.FileKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Submission{}, nil, apperr.Wrap(apperr.ErrNotFound, "file not found", err)
	}
	if err != nil {
		return Submission{}, nil, err
	}
	return sub, rc, nil
}

func (s *Service) record(ctx context.Context, typ, key string, data any) {
	if err := s.events.Record(ctx, typ, key, data); err != nil {
		slog.WarnContext(ctx, "record event", "type", typ, "key", key, "err", err)
	}
}

// cleanFileName keeps the base name of an uploaded file.
func cleanFileName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." || strings.HasPrefix(name, ".") {
		return ""
	}
	return name
}
