package service_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/notekeeper/backend/internal/domain"
	"github.com/pkordes/notekeeper/backend/internal/repo"
)

// mockTagRepo is a hand-written test double for repo.TagRepo.
// Each method is a function field; set only the ones your test needs.
type mockTagRepo struct {
	getByID        func(ctx context.Context, id uuid.UUID) (*domain.Tag, error)
	create         func(ctx context.Context, tag *domain.Tag) error
	save           func(ctx context.Context, tag *domain.Tag) error
	delete         func(ctx context.Context, id uuid.UUID) error
	listByOwner    func(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]*domain.Tag, int64, error)
	listSharedWith func(ctx context.Context, userID uuid.UUID) ([]*domain.Tag, error)
	nameTaken      func(ctx context.Context, ownerID uuid.UUID, name string, excludeID uuid.UUID) (bool, error)
}

func (m *mockTagRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tag, error) {
	return m.getByID(ctx, id)
}
func (m *mockTagRepo) Create(ctx context.Context, tag *domain.Tag) error {
	return m.create(ctx, tag)
}
func (m *mockTagRepo) Save(ctx context.Context, tag *domain.Tag) error {
	return m.save(ctx, tag)
}
func (m *mockTagRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockTagRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]*domain.Tag, int64, error) {
	return m.listByOwner(ctx, ownerID, p)
}
func (m *mockTagRepo) ListSharedWith(ctx context.Context, userID uuid.UUID) ([]*domain.Tag, error) {
	return m.listSharedWith(ctx, userID)
}
func (m *mockTagRepo) NameTaken(ctx context.Context, ownerID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	return m.nameTaken(ctx, ownerID, name, excludeID)
}

// mockUserRepo is a hand-written test double for repo.UserRepo.
type mockUserRepo struct {
	create     func(ctx context.Context, email string) (domain.User, error)
	getByID    func(ctx context.Context, id uuid.UUID) (domain.User, error)
	getByEmail func(ctx context.Context, email string) (domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, email string) (domain.User, error) {
	return m.create(ctx, email)
}
func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return m.getByID(ctx, id)
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return m.getByEmail(ctx, email)
}

// mockNoteRepo is a hand-written test double for repo.NoteRepo.
type mockNoteRepo struct {
	create     func(ctx context.Context, ownerID uuid.UUID, title, body string) (uuid.UUID, error)
	attachTag  func(ctx context.Context, noteID, tagID uuid.UUID) error
	countByTag func(ctx context.Context, tagID uuid.UUID) (int64, error)
}

func (m *mockNoteRepo) Create(ctx context.Context, ownerID uuid.UUID, title, body string) (uuid.UUID, error) {
	return m.create(ctx, ownerID, title, body)
}
func (m *mockNoteRepo) AttachTag(ctx context.Context, noteID, tagID uuid.UUID) error {
	return m.attachTag(ctx, noteID, tagID)
}
func (m *mockNoteRepo) CountByTag(ctx context.Context, tagID uuid.UUID) (int64, error) {
	return m.countByTag(ctx, tagID)
}

// compile-time checks: the mocks must satisfy the repo interfaces.
var (
	_ repo.TagRepo  = (*mockTagRepo)(nil)
	_ repo.UserRepo = (*mockUserRepo)(nil)
	_ repo.NoteRepo = (*mockNoteRepo)(nil)
)

// ---- in-memory tag store ---------------------------------------------------

// memTags is a tiny versioned tag store with the same load/save contract as
// the Postgres repo. Each GetByID hands out a fresh aggregate, so tests can
// model two writers racing on the same tag.
type memTags struct {
	mu             sync.Mutex
	rows           map[uuid.UUID]memTagRow
	saves          int
	conflictOnSave int // number of upcoming saves to fail with ErrConflict
}

type memTagRow struct {
	ownerID uuid.UUID
	name    string
	access  []domain.TagAccess
	version int64
}

func newMemTags(tags ...*domain.Tag) *memTags {
	m := &memTags{rows: map[uuid.UUID]memTagRow{}}
	for _, t := range tags {
		m.rows[t.ID()] = memTagRow{ownerID: t.OwnerID(), name: t.Name(), access: t.Snapshot(), version: 1}
	}
	return m
}

func (m *memTags) repo() *mockTagRepo {
	return &mockTagRepo{
		getByID: func(_ context.Context, id uuid.UUID) (*domain.Tag, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			row, ok := m.rows[id]
			if !ok {
				return nil, domain.ErrNotFound
			}
			return domain.NewTag(id, row.ownerID, row.name, row.access, domain.WithVersion(row.version))
		},
		save: func(_ context.Context, t *domain.Tag) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.saves++
			if m.conflictOnSave > 0 {
				m.conflictOnSave--
				return domain.ErrConflict
			}
			row, ok := m.rows[t.ID()]
			if !ok || row.version != t.Version() {
				return domain.ErrConflict
			}
			m.rows[t.ID()] = memTagRow{ownerID: row.ownerID, name: t.Name(), access: t.Snapshot(), version: row.version + 1}
			t.MarkSaved(row.version + 1)
			return nil
		},
	}
}

func (m *memTags) access(id uuid.UUID) []domain.TagAccess {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].access
}
