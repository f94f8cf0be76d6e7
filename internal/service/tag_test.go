package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/notekeeper/backend/internal/domain"
	"github.com/pkordes/notekeeper/backend/internal/service"
)

// ---- helpers ---------------------------------------------------------------

func mustTag(t *testing.T, ownerID uuid.UUID, name string) *domain.Tag {
	t.Helper()
	tag, err := domain.NewTag(uuid.New(), ownerID, name, nil)
	require.NoError(t, err)
	return tag
}

func noNotes() *mockNoteRepo {
	return &mockNoteRepo{
		countByTag: func(context.Context, uuid.UUID) (int64, error) { return 0, nil },
	}
}

func freeNames(r *mockTagRepo) *mockTagRepo {
	r.nameTaken = func(context.Context, uuid.UUID, string, uuid.UUID) (bool, error) { return false, nil }
	return r
}

// ---- Create ----------------------------------------------------------------

func TestTagService_Create_Valid(t *testing.T) {
	owner := uuid.New()
	var stored *domain.Tag
	tags := freeNames(&mockTagRepo{
		create: func(_ context.Context, tag *domain.Tag) error {
			stored = tag
			return nil
		},
	})
	svc := service.NewTagService(tags, noNotes())

	got, err := svc.Create(context.Background(), owner, "  Work  ")

	require.NoError(t, err)
	assert.Equal(t, "Work", got.Name(), "name is trimmed")
	assert.Equal(t, owner, got.OwnerID())
	assert.Zero(t, got.AccessCount())
	assert.Same(t, got, stored)
}

func TestTagService_Create_InvalidName(t *testing.T) {
	tests := []struct {
		name    string
		tagName string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"too long", strings.Repeat("x", 65)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := service.NewTagService(&mockTagRepo{}, noNotes())

			_, err := svc.Create(context.Background(), uuid.New(), tc.tagName)

			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestTagService_Create_NameTakenIsConflict(t *testing.T) {
	tags := &mockTagRepo{
		nameTaken: func(context.Context, uuid.UUID, string, uuid.UUID) (bool, error) { return true, nil },
	}
	svc := service.NewTagService(tags, noNotes())

	_, err := svc.Create(context.Background(), uuid.New(), "Work")

	assert.ErrorIs(t, err, domain.ErrConflict)
}

// ---- Get -------------------------------------------------------------------

func TestTagService_Get_Visibility(t *testing.T) {
	owner, grantee, stranger := uuid.New(), uuid.New(), uuid.New()
	tag := mustTag(t, owner, "Family")
	_, err := tag.GrantAccess(grantee, mustEmail(t, "g@example.com"), owner)
	require.NoError(t, err)
	svc := service.NewTagService(&mockTagRepo{
		getByID: func(context.Context, uuid.UUID) (*domain.Tag, error) { return tag, nil },
	}, noNotes())

	_, err = svc.Get(context.Background(), tag.ID(), owner)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), tag.ID(), grantee)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), tag.ID(), stranger)
	assert.ErrorIs(t, err, domain.TagNotFound)
}

// ---- Rename ----------------------------------------------------------------

func TestTagService_Rename_Owner(t *testing.T) {
	owner := uuid.New()
	tag := mustTag(t, owner, "Old")
	var excluded uuid.UUID
	tags := &mockTagRepo{
		getByID: func(context.Context, uuid.UUID) (*domain.Tag, error) { return tag, nil },
		nameTaken: func(_ context.Context, _ uuid.UUID, _ string, excludeID uuid.UUID) (bool, error) {
			excluded = excludeID
			return false, nil
		},
		save: func(context.Context, *domain.Tag) error { return nil },
	}
	svc := service.NewTagService(tags, noNotes())

	got, err := svc.Rename(context.Background(), tag.ID(), owner, "New")

	require.NoError(t, err)
	assert.Equal(t, "New", got.Name())
	assert.Equal(t, tag.ID(), excluded, "the tag's own name must not count as taken")
}

func TestTagService_Rename_ReturnedTagSavesAgain(t *testing.T) {
	owner := uuid.New()
	tag := mustTag(t, owner, "Old")
	store := newMemTags(tag)
	svc := service.NewTagService(freeNames(store.repo()), noNotes())
	ctx := context.Background()

	got, err := svc.Rename(ctx, tag.ID(), owner, "New")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version())

	require.NoError(t, got.UpdateName("Newer", owner))
	require.NoError(t, store.repo().Save(ctx, got), "a saved tag carries the stored version")
}

func TestTagService_Rename_NotOwner(t *testing.T) {
	tag := mustTag(t, uuid.New(), "Old")
	tags := &mockTagRepo{
		getByID: func(context.Context, uuid.UUID) (*domain.Tag, error) { return tag, nil },
		save: func(context.Context, *domain.Tag) error {
			t.Fatal("save must not be called")
			return nil
		},
	}
	svc := service.NewTagService(tags, noNotes())

	_, err := svc.Rename(context.Background(), tag.ID(), uuid.New(), "New")

	assert.ErrorIs(t, err, domain.TagNotOwned)
}

func TestTagService_Rename_Missing(t *testing.T) {
	tags := &mockTagRepo{
		getByID: func(context.Context, uuid.UUID) (*domain.Tag, error) { return nil, domain.ErrNotFound },
	}
	svc := service.NewTagService(tags, noNotes())

	_, err := svc.Rename(context.Background(), uuid.New(), uuid.New(), "New")

	assert.ErrorIs(t, err, domain.TagNotFound)
}

// ---- Delete ----------------------------------------------------------------

func TestTagService_Delete(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name      string
		requester uuid.UUID
		found     bool
		notes     int64
		wantErr   error
		deletes   bool
	}{
		{name: "owner with no notes", requester: owner, found: true, deletes: true},
		{name: "owner with notes", requester: owner, found: true, notes: 2, wantErr: domain.TagHasNotes},
		{name: "not owner", requester: uuid.New(), found: true, wantErr: domain.TagNotFound},
		{name: "missing", requester: owner, found: false, wantErr: domain.TagNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tag := mustTag(t, owner, "Temp")
			deleted := false
			tags := &mockTagRepo{
				getByID: func(context.Context, uuid.UUID) (*domain.Tag, error) {
					if !tc.found {
						return nil, domain.ErrNotFound
					}
					return tag, nil
				},
				delete: func(context.Context, uuid.UUID) error {
					deleted = true
					return nil
				},
			}
			notes := &mockNoteRepo{
				countByTag: func(context.Context, uuid.UUID) (int64, error) { return tc.notes, nil },
			}
			svc := service.NewTagService(tags, notes)

			err := svc.Delete(context.Background(), tag.ID(), tc.requester)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.deletes, deleted)
		})
	}
}

func TestTagService_Delete_NotOwnerIsIndistinguishableFromMissing(t *testing.T) {
	owner := uuid.New()
	tag := mustTag(t, owner, "Secret")
	withTag := service.NewTagService(&mockTagRepo{
		getByID: func(context.Context, uuid.UUID) (*domain.Tag, error) { return tag, nil },
	}, noNotes())
	without := service.NewTagService(&mockTagRepo{
		getByID: func(context.Context, uuid.UUID) (*domain.Tag, error) { return nil, domain.ErrNotFound },
	}, noNotes())

	errNotOwner := withTag.Delete(context.Background(), tag.ID(), uuid.New())
	errMissing := without.Delete(context.Background(), tag.ID(), uuid.New())

	assert.Equal(t, errMissing.Error(), errNotOwner.Error())
}

func TestTagService_Delete_CountErrorPropagates(t *testing.T) {
	owner := uuid.New()
	tag := mustTag(t, owner, "Temp")
	boom := errors.New("db down")
	svc := service.NewTagService(&mockTagRepo{
		getByID: func(context.Context, uuid.UUID) (*domain.Tag, error) { return tag, nil },
	}, &mockNoteRepo{
		countByTag: func(context.Context, uuid.UUID) (int64, error) { return 0, boom },
	})

	err := svc.Delete(context.Background(), tag.ID(), owner)

	assert.ErrorIs(t, err, boom)
}

// ---- Listing ---------------------------------------------------------------

func TestTagService_ListMine_NilBecomesEmpty(t *testing.T) {
	var gotParams domain.PaginationParams
	tags := &mockTagRepo{
		listByOwner: func(_ context.Context, _ uuid.UUID, p domain.PaginationParams) ([]*domain.Tag, int64, error) {
			gotParams = p
			return nil, 0, nil
		},
	}
	svc := service.NewTagService(tags, noNotes())
	p := domain.PaginationParams{Page: 3, Limit: 10}

	got, total, err := svc.ListMine(context.Background(), uuid.New(), p)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, total)
	assert.Equal(t, p, gotParams)
}

func TestTagService_ListShared(t *testing.T) {
	tag := mustTag(t, uuid.New(), "Shared")
	tags := &mockTagRepo{
		listSharedWith: func(context.Context, uuid.UUID) ([]*domain.Tag, error) { return []*domain.Tag{tag}, nil },
	}
	svc := service.NewTagService(tags, noNotes())

	got, err := svc.ListShared(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, []*domain.Tag{tag}, got)
}
