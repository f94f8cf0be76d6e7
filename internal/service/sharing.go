package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/notekeeper/backend/internal/domain"
	"github.com/pkordes/notekeeper/backend/internal/repo"
)

// saveAttempts bounds the reload-and-retry loop when a concurrent writer
// bumps the tag version between our load and save.
const saveAttempts = 2

// SharingService grants, revokes and lists read access on tags.
// All access rules live in domain.Tag; this service resolves the recipient,
// loads the aggregate and persists the result.
type SharingService struct {
	tags  repo.TagRepo
	users repo.UserRepo
	log   *slog.Logger
}

// NewSharingService constructs a SharingService. A nil logger uses slog.Default.
func NewSharingService(tags repo.TagRepo, users repo.UserRepo, log *slog.Logger) *SharingService {
	if log == nil {
		log = slog.Default()
	}
	return &SharingService{tags: tags, users: users, log: log}
}

// Grant shares tagID with the registered user behind rawEmail.
// The requester must own the tag. Errors, in the order they are checked:
// domain.ErrInvalidEmailFormat, domain.TagNotFound, domain.TagNotOwned,
// domain.ErrRecipientNotFound, domain.CannotShareWithSelf, domain.DuplicateAccess.
func (s *SharingService) Grant(ctx context.Context, tagID, requesterID uuid.UUID, rawEmail string) (domain.TagAccess, error) {
	email, err := domain.NewRecipientEmail(rawEmail)
	if err != nil {
		return domain.TagAccess{}, fmt.Errorf("service.SharingService.Grant: %w", err)
	}

	var grant domain.TagAccess
	err = s.mutate(ctx, tagID, func(tag *domain.Tag) error {
		// Ownership is checked before the user lookup so non-owners cannot
		// probe which emails are registered.
		if !tag.IsOwnedBy(requesterID) {
			return domain.TagNotOwned
		}
		recipient, err := s.users.GetByEmail(ctx, email.String())
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrRecipientNotFound
			}
			return err
		}
		grant, err = tag.GrantAccess(recipient.ID, email, requesterID)
		return err
	})
	if err != nil {
		return domain.TagAccess{}, fmt.Errorf("service.SharingService.Grant: %w", err)
	}

	s.log.InfoContext(ctx, "tag shared",
		"tag_id", tagID,
		"recipient_id", grant.RecipientID,
	)
	return grant, nil
}

// Revoke removes recipientID's grant on tagID. The requester must own the tag.
func (s *SharingService) Revoke(ctx context.Context, tagID, requesterID, recipientID uuid.UUID) error {
	err := s.mutate(ctx, tagID, func(tag *domain.Tag) error {
		return tag.RevokeAccess(recipientID, requesterID)
	})
	if err != nil {
		return fmt.Errorf("service.SharingService.Revoke: %w", err)
	}

	s.log.InfoContext(ctx, "tag access revoked",
		"tag_id", tagID,
		"recipient_id", recipientID,
	)
	return nil
}

// List returns the tag's grants in grant order. Only the owner may list them.
func (s *SharingService) List(ctx context.Context, tagID, requesterID uuid.UUID) ([]domain.TagAccess, error) {
	tag, err := s.load(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("service.SharingService.List: %w", err)
	}
	access, err := tag.AccessList(requesterID)
	if err != nil {
		return nil, fmt.Errorf("service.SharingService.List: %w", err)
	}
	return access, nil
}

// mutate loads the tag, applies fn and saves it. When the save loses a version
// race the whole cycle runs again on fresh state, up to saveAttempts times.
func (s *SharingService) mutate(ctx context.Context, tagID uuid.UUID, fn func(*domain.Tag) error) error {
	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		var tag *domain.Tag
		tag, err = s.load(ctx, tagID)
		if err != nil {
			return err
		}
		if err = fn(tag); err != nil {
			return err
		}
		err = s.tags.Save(ctx, tag)
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		s.log.DebugContext(ctx, "tag save conflict", "tag_id", tagID, "attempt", attempt)
	}
	return err
}

func (s *SharingService) load(ctx context.Context, tagID uuid.UUID) (*domain.Tag, error) {
	tag, err := s.tags.GetByID(ctx, tagID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.TagNotFound
	}
	return tag, err
}
