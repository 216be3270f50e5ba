package users

import (
	"context"
	"sort"
	"sync"

	"github.com/demonically2004/ziota/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryRepository is an in-memory UserRepository used by the dev server and
// unit tests. It enforces the same unique fields as the Mongo indexes.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.User)}
}

func (m *MemoryRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnique(u); err != nil {
		return nil, err
	}
	ts := now()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = ts
	}
	u.UpdatedAt = ts
	m.store[u.ID] = u.Clone()
	return u, nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (m *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (m *MemoryRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username != "" && u.Username == username }), nil
}

func (m *MemoryRepository) GetByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.FirebaseUID != "" && u.FirebaseUID == uid }), nil
}

// ListWithPassword returns password accounts ordered by creation time.
func (m *MemoryRepository) ListWithPassword(ctx context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.User{}
	for _, u := range m.store {
		if u.PasswordHash != "" {
			out = append(out, u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) Save(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[u.ID]; !ok {
		return ErrNotFound
	}
	if err := m.checkUnique(u); err != nil {
		return err
	}
	u.UpdatedAt = now()
	m.store[u.ID] = u.Clone()
	return nil
}

// UpdateFields applies fields the way $set would: through a bson round-trip of
// the stored document, so field names match the Mongo schema exactly.
func (m *MemoryRepository) UpdateFields(ctx context.Context, id string, fields bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	raw, err := bson.Marshal(cur)
	if err != nil {
		return err
	}
	doc := bson.M{}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	doc["updatedAt"] = now()
	merged, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	var next models.User
	if err := bson.Unmarshal(merged, &next); err != nil {
		return err
	}
	m.store[id] = &next
	return nil
}

func (m *MemoryRepository) find(match func(*models.User) bool) *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if match(u) {
			return u.Clone()
		}
	}
	return nil
}

// checkUnique must be called with the lock held.
func (m *MemoryRepository) checkUnique(u *models.User) error {
	for id, other := range m.store {
		if id == u.ID {
			continue
		}
		switch {
		case other.Email == u.Email:
			return &DuplicateKeyError{Field: "email"}
		case u.Username != "" && other.Username == u.Username:
			return &DuplicateKeyError{Field: "username"}
		case u.FirebaseUID != "" && other.FirebaseUID == u.FirebaseUID:
			return &DuplicateKeyError{Field: "firebaseUID"}
		}
	}
	return nil
}
