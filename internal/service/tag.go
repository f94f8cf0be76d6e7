// Package service contains the business logic for the Notekeeper API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here: services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pkordes/notekeeper/backend/internal/domain"
	"github.com/pkordes/notekeeper/backend/internal/repo"
)

// maxTagNameLen is the longest tag name accepted, in runes.
const maxTagNameLen = 64

// TagService implements the tag lifecycle around the aggregate: creation,
// renaming, listing, and the owner-only delete policy.
type TagService struct {
	tags  repo.TagRepo
	notes repo.NoteRepo
	now   func() time.Time
}

// NewTagService constructs a TagService backed by the provided repos.
func NewTagService(tags repo.TagRepo, notes repo.NoteRepo) *TagService {
	return &TagService{tags: tags, notes: notes, now: time.Now}
}

// Create validates the name, checks it is free for the owner, and persists a
// new tag with no grants.
func (s *TagService) Create(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Tag, error) {
	name, err := normalizeTagName(name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, ownerID, name, uuid.Nil); err != nil {
		return nil, fmt.Errorf("service.TagService.Create: %w", err)
	}

	tag, err := domain.NewTag(uuid.New(), ownerID, name, nil, domain.WithClock(s.now))
	if err != nil {
		return nil, fmt.Errorf("service.TagService.Create: %w", err)
	}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, fmt.Errorf("service.TagService.Create: %w", err)
	}
	return tag, nil
}

// Get returns a tag the requester may read: its owner or a grantee.
// Anyone else gets domain.TagNotFound, the same as for a missing tag.
func (s *TagService) Get(ctx context.Context, tagID, requesterID uuid.UUID) (*domain.Tag, error) {
	tag, err := s.load(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("service.TagService.Get: %w", err)
	}
	if !tag.CanRead(requesterID) {
		return nil, fmt.Errorf("service.TagService.Get: %w", domain.TagNotFound)
	}
	return tag, nil
}

// Rename changes a tag's name. Only the owner may rename.
// Returns domain.ErrConflict if the owner already uses the new name.
func (s *TagService) Rename(ctx context.Context, tagID, requesterID uuid.UUID, name string) (*domain.Tag, error) {
	name, err := normalizeTagName(name)
	if err != nil {
		return nil, err
	}

	tag, err := s.load(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("service.TagService.Rename: %w", err)
	}
	if err := tag.UpdateName(name, requesterID); err != nil {
		return nil, fmt.Errorf("service.TagService.Rename: %w", err)
	}
	if err := s.ensureNameFree(ctx, tag.OwnerID(), name, tag.ID()); err != nil {
		return nil, fmt.Errorf("service.TagService.Rename: %w", err)
	}
	if err := s.tags.Save(ctx, tag); err != nil {
		return nil, fmt.Errorf("service.TagService.Rename: %w", err)
	}
	return tag, nil
}

// Delete removes a tag. Missing and not-owned tags both report
// domain.TagNotFound; a tag with notes attached reports domain.TagHasNotes.
func (s *TagService) Delete(ctx context.Context, tagID, requesterID uuid.UUID) error {
	tag, err := s.load(ctx, tagID)
	if err != nil {
		return fmt.Errorf("service.TagService.Delete: %w", err)
	}
	if !tag.IsOwnedBy(requesterID) {
		return fmt.Errorf("service.TagService.Delete: %w", domain.TagNotFound)
	}

	n, err := s.notes.CountByTag(ctx, tagID)
	if err != nil {
		return fmt.Errorf("service.TagService.Delete: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("service.TagService.Delete: %w", domain.TagHasNotes)
	}

	if err := s.tags.Delete(ctx, tagID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("service.TagService.Delete: %w", domain.TagNotFound)
		}
		return fmt.Errorf("service.TagService.Delete: %w", err)
	}
	return nil
}

// ListMine returns one page of the owner's tags and the total count.
// Always returns a non-nil slice so callers can safely range over it.
func (s *TagService) ListMine(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]*domain.Tag, int64, error) {
	tags, total, err := s.tags.ListByOwner(ctx, ownerID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TagService.ListMine: %w", err)
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return tags, total, nil
}

// ListShared returns the tags other users have shared with userID.
func (s *TagService) ListShared(ctx context.Context, userID uuid.UUID) ([]*domain.Tag, error) {
	tags, err := s.tags.ListSharedWith(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.TagService.ListShared: %w", err)
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return tags, nil
}

// load fetches a tag, reporting a missing one as domain.TagNotFound.
func (s *TagService) load(ctx context.Context, tagID uuid.UUID) (*domain.Tag, error) {
	tag, err := s.tags.GetByID(ctx, tagID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.TagNotFound
	}
	return tag, err
}

func (s *TagService) ensureNameFree(ctx context.Context, ownerID uuid.UUID, name string, excludeID uuid.UUID) error {
	taken, err := s.tags.NameTaken(ctx, ownerID, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: a tag named %q already exists", domain.ErrConflict, name)
	}
	return nil
}

// normalizeTagName trims the name and enforces the length rules.
func normalizeTagName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxTagNameLen {
		return "", fmt.Errorf("%w: name must be at most %d characters", domain.ErrValidation, maxTagNameLen)
	}
	return name, nil
}
