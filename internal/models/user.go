package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// DefaultSubjectIcon is used for subjects the user never described.
const DefaultSubjectIcon = "https://cdn-icons-png.flaticon.com/512/2104/2104069.png"

// DefaultSubjectNoteKeys are the subject-note buckets every account starts with.
var DefaultSubjectNoteKeys = []string{"ANN", "Python", "Java", "AI", "Statistics", "WT"}

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrCredentialRequired = errors.New("a password or an external identity is required")
	ErrUsernameRequired   = errors.New("username is required for password accounts")
)

// User is the per-account document: identity plus every piece of study data.
type User struct {
	ID           string `bson:"_id,omitempty" json:"id"`
	Username     string `bson:"username,omitempty" json:"username,omitempty"`
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"password,omitempty" json:"-"`
	FirebaseUID  string `bson:"firebaseUID,omitempty" json:"firebaseUID,omitempty"` // external identity subject
	Name         string `bson:"name,omitempty" json:"name,omitempty"`

	GeneralNotes string                `bson:"generalNotes" json:"generalNotes"`
	SubjectNotes map[string]string     `bson:"subjectNotes" json:"subjectNotes,omitempty"`
	Subjects     []Subject             `bson:"subjects,omitempty" json:"subjects,omitempty"`
	SubjectFiles map[string][]FileMeta `bson:"subjectFiles,omitempty" json:"subjectFiles,omitempty"`
	Images       []string              `bson:"images,omitempty" json:"images,omitempty"`
	SavedFiles   []SavedFile           `bson:"savedFiles,omitempty" json:"savedFiles,omitempty"`
	IsDarkMode   bool                  `bson:"isDarkMode" json:"isDarkMode"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Subject struct {
	ID          string `bson:"id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Icon        string `bson:"icon" json:"icon"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

// FileMeta describes a file held by the media host; the backend keeps only this
// record. PublicID is the media host's identifier for the object.
type FileMeta struct {
	ID         FileID    `bson:"id" json:"id"`
	Name       string    `bson:"name" json:"name"`
	URL        string    `bson:"url" json:"url"`
	PublicID   string    `bson:"publicId,omitempty" json:"publicId,omitempty"`
	Type       string    `bson:"type" json:"type"`
	Size       int64     `bson:"size" json:"size"`
	UploadDate time.Time `bson:"uploadDate" json:"uploadDate"`
}

// FileID identifies a file entry. Browsers mint ids as JSON numbers
// (timestamp plus fraction) while uploads get uuids, so both forms decode and
// the id is always kept as the number's decimal text.
type FileID string

func (id *FileID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FileID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("file id must be a string or a number: %w", err)
	}
	text := n.String()
	if strings.ContainsAny(text, "eE") {
		f, err := n.Float64()
		if err != nil {
			return err
		}
		text = strconv.FormatFloat(f, 'f', -1, 64)
	}
	*id = FileID(text)
	return nil
}

// UnmarshalBSONValue reads ids stored as strings or as numbers.
func (id *FileID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	if s, ok := rv.StringValueOK(); ok {
		*id = FileID(s)
		return nil
	}
	if f, ok := rv.DoubleOK(); ok {
		*id = FileID(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	if n, ok := rv.Int32OK(); ok {
		*id = FileID(strconv.FormatInt(int64(n), 10))
		return nil
	}
	if n, ok := rv.Int64OK(); ok {
		*id = FileID(strconv.FormatInt(n, 10))
		return nil
	}
	if t == bsontype.Null || t == bsontype.Undefined {
		*id = ""
		return nil
	}
	return fmt.Errorf("file id: unsupported bson type %s", t)
}

type SavedFile struct {
	Name       string    `bson:"name" json:"name"`
	URL        string    `bson:"url" json:"url"`
	UploadDate time.Time `bson:"uploadDate" json:"uploadDate"`
}

// PublicUser is what auth endpoints return about an account.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email, Name: u.Name}
}

// Validate checks the identity rules: email always, at least one credential,
// and a username whenever there is no external identity.
func (u *User) Validate() error {
	if u.Email == "" {
		return ErrEmailRequired
	}
	if u.PasswordHash == "" && u.FirebaseUID == "" {
		return ErrCredentialRequired
	}
	if u.FirebaseUID == "" && u.Username == "" {
		return ErrUsernameRequired
	}
	return nil
}

// DefaultSubjectNotes returns a fresh map with every default key set to "".
func DefaultSubjectNotes() map[string]string {
	m := make(map[string]string, len(DefaultSubjectNoteKeys))
	for _, k := range DefaultSubjectNoteKeys {
		m[k] = ""
	}
	return m
}

// SubjectByID returns the subject with the given id and whether it exists.
func (u *User) SubjectByID(id string) (Subject, bool) {
	for _, s := range u.Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

// UpsertSubject replaces the subject with the same id in place, or appends it.
func (u *User) UpsertSubject(s Subject) {
	for i := range u.Subjects {
		if u.Subjects[i].ID == s.ID {
			u.Subjects[i] = s
			return
		}
	}
	u.Subjects = append(u.Subjects, s)
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.SubjectNotes != nil {
		c.SubjectNotes = make(map[string]string, len(u.SubjectNotes))
		for k, v := range u.SubjectNotes {
			c.SubjectNotes[k] = v
		}
	}
	if u.Subjects != nil {
		c.Subjects = append([]Subject(nil), u.Subjects...)
	}
	if u.SubjectFiles != nil {
		c.SubjectFiles = make(map[string][]FileMeta, len(u.SubjectFiles))
		for k, v := range u.SubjectFiles {
			c.SubjectFiles[k] = append([]FileMeta(nil), v...)
		}
	}
	if u.Images != nil {
		c.Images = append([]string(nil), u.Images...)
	}
	if u.SavedFiles != nil {
		c.SavedFiles = append([]SavedFile(nil), u.SavedFiles...)
	}
	return &c
}
