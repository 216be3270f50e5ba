package userdata

import (
	"io"

	"github.com/demonically2004/ziota/internal/models"
)

// UserData is the client-visible projection of a user document. Identity and
// credential fields never appear here.
type UserData struct {
	GeneralNotes string                       `json:"generalNotes"`
	SubjectNotes map[string]string            `json:"subjectNotes"`
	Subjects     []models.Subject             `json:"subjects"`
	SubjectFiles map[string][]models.FileMeta `json:"subjectFiles"`
	Images       []string                     `json:"images"`
	SavedFiles   []models.SavedFile           `json:"savedFiles"`
	IsDarkMode   bool                         `json:"isDarkMode"`
}

// Project builds the projection with defaults for absent fields.
func Project(u *models.User) UserData {
	d := UserData{
		GeneralNotes: u.GeneralNotes,
		SubjectNotes: u.SubjectNotes,
		Subjects:     u.Subjects,
		SubjectFiles: u.SubjectFiles,
		Images:       u.Images,
		SavedFiles:   u.SavedFiles,
		IsDarkMode:   u.IsDarkMode,
	}
	if d.SubjectNotes == nil {
		d.SubjectNotes = models.DefaultSubjectNotes()
	}
	if d.Subjects == nil {
		d.Subjects = []models.Subject{}
	}
	if d.SubjectFiles == nil {
		d.SubjectFiles = map[string][]models.FileMeta{}
	}
	if d.Images == nil {
		d.Images = []string{}
	}
	if d.SavedFiles == nil {
		d.SavedFiles = []models.SavedFile{}
	}
	return d
}

// Patch is a partial update of the allow-listed fields. A nil field was absent
// from the request and is left untouched; anything else replaces the stored value.
type Patch struct {
	GeneralNotes *string                       `json:"generalNotes"`
	SubjectNotes *map[string]string            `json:"subjectNotes"`
	Subjects     *[]models.Subject             `json:"subjects"`
	SubjectFiles *map[string][]models.FileMeta `json:"subjectFiles"`
	Images       *[]string                     `json:"images"`
	SavedFiles   *[]models.SavedFile           `json:"savedFiles"`
	IsDarkMode   *bool                         `json:"isDarkMode"`
}

// Empty reports whether the patch names no allow-listed field.
func (p Patch) Empty() bool {
	return p.GeneralNotes == nil && p.SubjectNotes == nil && p.Subjects == nil &&
		p.SubjectFiles == nil && p.Images == nil && p.SavedFiles == nil && p.IsDarkMode == nil
}

// SubjectData is the view of one subject bucket.
type SubjectData struct {
	Subject models.Subject    `json:"subject"`
	Notes   string            `json:"notes"`
	Files   []models.FileMeta `json:"files"`
}

// SubjectUpdate replaces each present field of one subject bucket.
type SubjectUpdate struct {
	Notes   *string            `json:"notes"`
	Files   *[]models.FileMeta `json:"files"`
	Subject *models.Subject    `json:"subject"`
}

// SubjectFile is a file listed across all subjects.
type SubjectFile struct {
	models.FileMeta
	SubjectID string `json:"subjectId"`
}

// Upload is a file received from a client, on its way to the media host.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}
