package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/demonically2004/ziota/internal/apperrors"
	"github.com/demonically2004/ziota/internal/models"
	"github.com/demonically2004/ziota/internal/storage"
	"github.com/demonically2004/ziota/internal/userdata"
	"github.com/demonically2004/ziota/internal/users"
	"github.com/demonically2004/ziota/pkg/logger"
	"github.com/demonically2004/ziota/pkg/metrics"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

var ErrMediaNotConfigured = errors.New("media host is not configured")

// MediaStore uploads bytes to the media host and returns their public URL.
type MediaStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Service defines the user-data operations used by the handler layer.
type Service interface {
	GetUserData(ctx context.Context, userID string) (*userdata.UserData, error)
	UpdateUserData(ctx context.Context, userID string, p userdata.Patch) error
	ClearImages(ctx context.Context, userID string) error
	AddImage(ctx context.Context, userID string, up userdata.Upload) (string, error)

	GetSubject(ctx context.Context, userID, subjectID string) (*userdata.SubjectData, error)
	PutSubject(ctx context.Context, userID, subjectID string, upd userdata.SubjectUpdate) error
	DeleteSubjectFile(ctx context.Context, userID, subjectID, fileID string) error
	AttachSubjectFile(ctx context.Context, userID, subjectID string, up userdata.Upload) (*models.FileMeta, error)
	ListAllFiles(ctx context.Context, userID string) ([]userdata.SubjectFile, error)
}

// New returns a Service over the user repository. media may be nil, in which
// case uploads fail with ErrMediaNotConfigured.
func New(repo users.UserRepository, media MediaStore) Service {
	return &service{repo: repo, media: media, clock: time.Now}
}

type service struct {
	repo  users.UserRepository
	media MediaStore
	clock func() time.Time
}

// now is truncated to the millisecond precision BSON datetimes keep.
func (s *service) now() time.Time { return s.clock().UTC().Truncate(time.Millisecond) }

func (s *service) load(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load user data", err)
	}
	if u == nil {
		return nil, apperrors.NotFound("User not found")
	}
	return u, nil
}

func (s *service) save(ctx context.Context, u *models.User, failMsg string) error {
	if err := s.repo.Save(ctx, u); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return apperrors.NotFound("User not found")
		}
		return apperrors.Internal(failMsg, err)
	}
	return nil
}

func (s *service) GetUserData(ctx context.Context, userID string) (*userdata.UserData, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := userdata.Project(u)
	return &d, nil
}

// UpdateUserData writes the present allow-listed fields with one $set. A patch
// naming no allowed field still checks that the user exists.
func (s *service) UpdateUserData(ctx context.Context, userID string, p userdata.Patch) error {
	fields := bson.M{}
	if p.GeneralNotes != nil {
		fields["generalNotes"] = *p.GeneralNotes
	}
	if p.SubjectNotes != nil {
		fields["subjectNotes"] = *p.SubjectNotes
	}
	if p.Subjects != nil {
		fields["subjects"] = *p.Subjects
	}
	if p.SubjectFiles != nil {
		fields["subjectFiles"] = *p.SubjectFiles
	}
	if p.Images != nil {
		fields["images"] = *p.Images
	}
	if p.SavedFiles != nil {
		fields["savedFiles"] = stampSavedFiles(*p.SavedFiles, s.now())
	}
	if p.IsDarkMode != nil {
		fields["isDarkMode"] = *p.IsDarkMode
	}
	if len(fields) == 0 {
		_, err := s.load(ctx, userID)
		return err
	}
	if err := s.repo.UpdateFields(ctx, userID, fields); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return apperrors.NotFound("User not found")
		}
		return apperrors.Internal("Failed to update user data", err)
	}
	return nil
}

// stampSavedFiles gives entries sent without an upload date the time of the write.
func stampSavedFiles(files []models.SavedFile, now time.Time) []models.SavedFile {
	out := make([]models.SavedFile, len(files))
	for i, f := range files {
		if f.UploadDate.IsZero() {
			f.UploadDate = now
		}
		out[i] = f
	}
	return out
}

func (s *service) ClearImages(ctx context.Context, userID string) error {
	if err := s.repo.UpdateFields(ctx, userID, bson.M{"images": []string{}}); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return apperrors.NotFound("User not found")
		}
		return apperrors.Internal("Failed to delete images", err)
	}
	return nil
}

func (s *service) AddImage(ctx context.Context, userID string, up userdata.Upload) (string, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	url, err := s.upload(ctx, storage.ObjectKey(userID, storage.ScopeImages, "", up.Name), storage.ScopeImages, up)
	if err != nil {
		return "", err
	}
	u.Images = append(u.Images, url)
	if err := s.save(ctx, u, "Failed to save image"); err != nil {
		return "", err
	}
	return url, nil
}

func (s *service) GetSubject(ctx context.Context, userID, subjectID string) (*userdata.SubjectData, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	subj, ok := u.SubjectByID(subjectID)
	if !ok {
		subj = models.Subject{ID: subjectID, Name: subjectID, Icon: models.DefaultSubjectIcon}
	}
	files := u.SubjectFiles[subjectID]
	if files == nil {
		files = []models.FileMeta{}
	}
	return &userdata.SubjectData{Subject: subj, Notes: u.SubjectNotes[subjectID], Files: files}, nil
}

// PutSubject replaces each present field and saves the document once.
func (s *service) PutSubject(ctx context.Context, userID, subjectID string, upd userdata.SubjectUpdate) error {
	if upd.Subject != nil {
		if upd.Subject.ID == "" {
			upd.Subject.ID = subjectID
		}
		if upd.Subject.ID != subjectID {
			return apperrors.Validation("Subject id does not match the path")
		}
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if upd.Notes != nil {
		if u.SubjectNotes == nil {
			u.SubjectNotes = models.DefaultSubjectNotes()
		}
		u.SubjectNotes[subjectID] = *upd.Notes
	}
	if upd.Files != nil {
		if u.SubjectFiles == nil {
			u.SubjectFiles = map[string][]models.FileMeta{}
		}
		u.SubjectFiles[subjectID] = *upd.Files
	}
	if upd.Subject != nil {
		u.UpsertSubject(*upd.Subject)
	}
	return s.save(ctx, u, "Failed to update subject data")
}

// DeleteSubjectFile removes the file with fileID. Unknown subjects and files
// are a successful no-op and skip the write.
func (s *service) DeleteSubjectFile(ctx context.Context, userID, subjectID, fileID string) error {
	u, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	files, ok := u.SubjectFiles[subjectID]
	if !ok {
		return nil
	}
	kept := make([]models.FileMeta, 0, len(files))
	for _, f := range files {
		if f.ID != models.FileID(fileID) {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(files) {
		return nil
	}
	u.SubjectFiles[subjectID] = kept
	return s.save(ctx, u, "Failed to delete file")
}

func (s *service) AttachSubjectFile(ctx context.Context, userID, subjectID string, up userdata.Upload) (*models.FileMeta, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	key := storage.ObjectKey(userID, storage.ScopeSubjects, subjectID, up.Name)
	url, err := s.upload(ctx, key, storage.ScopeSubjects, up)
	if err != nil {
		return nil, err
	}
	meta := models.FileMeta{
		ID:         models.FileID(uuid.NewString()),
		Name:       up.Name,
		URL:        url,
		PublicID:   key,
		Type:       up.ContentType,
		Size:       up.Size,
		UploadDate: s.now(),
	}
	if u.SubjectFiles == nil {
		u.SubjectFiles = map[string][]models.FileMeta{}
	}
	u.SubjectFiles[subjectID] = append(u.SubjectFiles[subjectID], meta)
	if err := s.save(ctx, u, "Failed to save file"); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ListAllFiles flattens subjectFiles, ordered by subject id then upload order.
func (s *service) ListAllFiles(ctx context.Context, userID string) ([]userdata.SubjectFile, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(u.SubjectFiles))
	for id := range u.SubjectFiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := []userdata.SubjectFile{}
	for _, id := range ids {
		for _, f := range u.SubjectFiles[id] {
			out = append(out, userdata.SubjectFile{FileMeta: f, SubjectID: id})
		}
	}
	return out, nil
}

func (s *service) upload(ctx context.Context, key, scope string, up userdata.Upload) (string, error) {
	if s.media == nil {
		return "", apperrors.Upstream("Media upload is not configured", ErrMediaNotConfigured)
	}
	url, err := s.media.Upload(ctx, key, up.Body, up.Size, up.ContentType)
	if err != nil {
		metrics.MediaUploads.WithLabelValues(scope, "error").Inc()
		return "", apperrors.Upstream("Media upload failed", err)
	}
	metrics.MediaUploads.WithLabelValues(scope, "ok").Inc()
	logger.Debugf("uploaded %s (%d bytes)", key, up.Size)
	return url, nil
}
