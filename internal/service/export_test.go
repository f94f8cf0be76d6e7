package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/notekeeper/backend/internal/domain"
	"github.com/pkordes/notekeeper/backend/internal/service"
)

// ---- helpers ---------------------------------------------------------------

// sharedTag builds a tag owned by ownerID with one grant per email.
func sharedTag(t *testing.T, ownerID uuid.UUID, name string, emails ...string) *domain.Tag {
	t.Helper()
	granted := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	access := make([]domain.TagAccess, len(emails))
	for i, e := range emails {
		access[i] = domain.TagAccess{
			RecipientID:    uuid.New(),
			RecipientEmail: mustEmail(t, e),
			GrantedAt:      granted.Add(time.Duration(i) * time.Minute),
		}
	}
	tag, err := domain.NewTag(uuid.New(), ownerID, name, access)
	require.NoError(t, err)
	return tag
}

// pagedTags serves tags through ListByOwner, honouring page and limit.
func pagedTags(tags []*domain.Tag, calls *int) *mockTagRepo {
	return &mockTagRepo{
		listByOwner: func(_ context.Context, _ uuid.UUID, p domain.PaginationParams) ([]*domain.Tag, int64, error) {
			*calls++
			start := min(p.Offset(), len(tags))
			end := min(start+p.Limit, len(tags))
			return tags[start:end], int64(len(tags)), nil
		},
	}
}

// ---- Export ----------------------------------------------------------------

func TestExportService_Export_OneRowPerGrantInGrantOrder(t *testing.T) {
	owner := uuid.New()
	work := sharedTag(t, owner, "Work", "bob@example.com", "carol@example.com")
	var calls int

	rows, err := service.NewExportService(pagedTags([]*domain.Tag{work}, &calls)).Export(context.Background(), owner)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	grants := work.Snapshot()
	for i, row := range rows {
		assert.Equal(t, work.ID(), row.TagID)
		assert.Equal(t, "Work", row.TagName)
		assert.Equal(t, grants[i].RecipientID, row.RecipientID)
		assert.Equal(t, grants[i].RecipientEmail.String(), row.RecipientEmail)
		require.NotNil(t, row.GrantedAt)
		assert.True(t, grants[i].GrantedAt.Equal(*row.GrantedAt))
		assert.True(t, row.Shared())
	}
	assert.Equal(t, 1, calls)
}

func TestExportService_Export_UnsharedTagYieldsOneEmptyRow(t *testing.T) {
	owner := uuid.New()
	private := sharedTag(t, owner, "Private")
	var calls int

	rows, err := service.NewExportService(pagedTags([]*domain.Tag{private}, &calls)).Export(context.Background(), owner)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, private.ID(), rows[0].TagID)
	assert.False(t, rows[0].Shared())
	assert.Empty(t, rows[0].RecipientEmail)
	assert.Nil(t, rows[0].GrantedAt)
}

func TestExportService_Export_NoTags_EmptyNotNil(t *testing.T) {
	var calls int

	rows, err := service.NewExportService(pagedTags(nil, &calls)).Export(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestExportService_Export_WalksEveryPage(t *testing.T) {
	owner := uuid.New()
	tags := make([]*domain.Tag, 250)
	for i := range tags {
		tags[i] = sharedTag(t, owner, "tag")
	}
	var calls int

	rows, err := service.NewExportService(pagedTags(tags, &calls)).Export(context.Background(), owner)

	require.NoError(t, err)
	assert.Len(t, rows, 250)
	assert.Equal(t, 3, calls)
	assert.Equal(t, tags[249].ID(), rows[249].TagID)
}

func TestExportService_Export_RepoError(t *testing.T) {
	boom := errors.New("db down")
	tags := &mockTagRepo{
		listByOwner: func(context.Context, uuid.UUID, domain.PaginationParams) ([]*domain.Tag, int64, error) {
			return nil, 0, boom
		},
	}

	_, err := service.NewExportService(tags).Export(context.Background(), uuid.New())

	assert.ErrorIs(t, err, boom)
}
