package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/notekeeper/backend/internal/domain"
	"github.com/pkordes/notekeeper/backend/internal/repo"
)

// exportPageSize is the page size used to walk an owner's tags.
const exportPageSize = 100

// ExportService assembles a flat export of an owner's tags and their grants.
type ExportService struct {
	tags repo.TagRepo
}

// NewExportService constructs an ExportService backed by the tag repo.
func NewExportService(tags repo.TagRepo) *ExportService {
	return &ExportService{tags: tags}
}

// Export returns one ExportRow per grant across all tags owned by ownerID,
// tags in name order and grants in the order they were made.
// Tags with no grants contribute one row with empty recipient fields.
func (s *ExportService) Export(ctx context.Context, ownerID uuid.UUID) ([]domain.ExportRow, error) {
	rows := []domain.ExportRow{}

	for page := 1; ; page++ {
		p := domain.PaginationParams{Page: page, Limit: exportPageSize}
		tags, total, err := s.tags.ListByOwner(ctx, ownerID, p)
		if err != nil {
			return nil, fmt.Errorf("service.ExportService.Export: %w", err)
		}
		for _, t := range tags {
			rows = append(rows, exportRows(t)...)
		}
		if len(tags) < exportPageSize || int64(page*exportPageSize) >= total {
			break
		}
	}
	return rows, nil
}

func exportRows(t *domain.Tag) []domain.ExportRow {
	grants := t.Snapshot()
	if len(grants) == 0 {
		return []domain.ExportRow{{TagID: t.ID(), TagName: t.Name()}}
	}

	out := make([]domain.ExportRow, len(grants))
	for i, g := range grants {
		grantedAt := g.GrantedAt
		out[i] = domain.ExportRow{
			TagID:          t.ID(),
			TagName:        t.Name(),
			RecipientID:    g.RecipientID,
			RecipientEmail: g.RecipientEmail.String(),
			GrantedAt:      &grantedAt,
		}
	}
	return out
}
