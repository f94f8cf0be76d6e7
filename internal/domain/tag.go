package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// TagAccess is a single read grant on a tag: who received it and when.
// Grants have no lifecycle of their own; they live and die with their Tag.
type TagAccess struct {
	RecipientID    uuid.UUID
	RecipientEmail RecipientEmail
	GrantedAt      time.Time
}

// Tag is the aggregate root for a user's label and the set of users it has
// been shared with. Notes attached to a tag are visible to every grantee.
//
// All state is unexported: the only way to change a Tag is through
// GrantAccess, RevokeAccess and UpdateName, each of which checks ownership
// before touching anything. A Tag is not safe for concurrent mutation;
// the repo layer serializes writers with the version token and advances it
// through MarkSaved.
type Tag struct {
	id        uuid.UUID
	ownerID   uuid.UUID
	name      string
	access    []TagAccess // grant order
	createdAt time.Time
	updatedAt time.Time
	version   int64

	now func() time.Time
}

// TagOption customizes a Tag at construction time.
type TagOption func(*Tag)

// WithClock overrides the time source used to stamp grants and updates.
func WithClock(now func() time.Time) TagOption {
	return func(t *Tag) { t.now = now }
}

// WithVersion sets the optimistic-concurrency token loaded from storage.
func WithVersion(v int64) TagOption {
	return func(t *Tag) { t.version = v }
}

// WithTimestamps restores the persisted creation and update times.
func WithTimestamps(createdAt, updatedAt time.Time) TagOption {
	return func(t *Tag) {
		t.createdAt = createdAt
		t.updatedAt = updatedAt
	}
}

// NewTag builds a Tag. existing carries grants rehydrated from storage and is
// copied, never aliased. A repeated recipient in existing fails with
// DuplicateAccess.
func NewTag(id, ownerID uuid.UUID, name string, existing []TagAccess, opts ...TagOption) (*Tag, error) {
	t := &Tag{
		id:      id,
		ownerID: ownerID,
		name:    name,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	seen := make(map[uuid.UUID]struct{}, len(existing))
	for _, a := range existing {
		if _, dup := seen[a.RecipientID]; dup {
			return nil, DuplicateAccess
		}
		seen[a.RecipientID] = struct{}{}
	}
	t.access = slices.Clone(existing)

	if t.createdAt.IsZero() {
		t.createdAt = t.now()
	}
	if t.updatedAt.IsZero() {
		t.updatedAt = t.createdAt
	}
	return t, nil
}

func (t *Tag) ID() uuid.UUID        { return t.id }
func (t *Tag) OwnerID() uuid.UUID   { return t.ownerID }
func (t *Tag) Name() string         { return t.name }
func (t *Tag) CreatedAt() time.Time { return t.createdAt }
func (t *Tag) UpdatedAt() time.Time { return t.updatedAt }
func (t *Tag) Version() int64       { return t.version }

// MarkSaved records the version storage assigned on a successful save, so the
// same aggregate can be saved again without reloading it.
func (t *Tag) MarkSaved(version int64) {
	t.version = version
}

// IsOwnedBy reports whether userID owns the tag.
func (t *Tag) IsOwnedBy(userID uuid.UUID) bool {
	return t.ownerID == userID
}

// HasAccess reports whether userID holds a grant on the tag.
// The owner is never a grantee, so HasAccess(owner) is false.
func (t *Tag) HasAccess(userID uuid.UUID) bool {
	return t.indexOf(userID) >= 0
}

// CanRead reports whether userID may see the tag's notes.
func (t *Tag) CanRead(userID uuid.UUID) bool {
	return t.IsOwnedBy(userID) || t.HasAccess(userID)
}

// AccessCount returns the number of grants.
func (t *Tag) AccessCount() int {
	return len(t.access)
}

// AccessList returns the grants in grant order. Only the owner may list them.
// The returned slice is a copy; modifying it does not affect the Tag.
func (t *Tag) AccessList(requesterID uuid.UUID) ([]TagAccess, error) {
	if !t.IsOwnedBy(requesterID) {
		return nil, TagNotOwned
	}
	return t.Snapshot(), nil
}

// Snapshot returns a copy of the grants without an ownership check.
// It exists for persistence adapters that must write the full state.
func (t *Tag) Snapshot() []TagAccess {
	out := make([]TagAccess, len(t.access))
	copy(out, t.access)
	return out
}

// GrantAccess shares the tag with recipientID.
// Checks run in a fixed order so the reported error is deterministic:
// ownership, then self-share, then duplicate.
func (t *Tag) GrantAccess(recipientID uuid.UUID, email RecipientEmail, requesterID uuid.UUID) (TagAccess, error) {
	if !t.IsOwnedBy(requesterID) {
		return TagAccess{}, TagNotOwned
	}
	if recipientID == t.ownerID {
		return TagAccess{}, CannotShareWithSelf
	}
	if t.HasAccess(recipientID) {
		return TagAccess{}, DuplicateAccess
	}

	now := t.now()
	grant := TagAccess{RecipientID: recipientID, RecipientEmail: email, GrantedAt: now}
	t.access = append(t.access, grant)
	t.updatedAt = now
	return grant, nil
}

// RevokeAccess removes the grant held by recipientID, keeping the order of
// the remaining grants.
func (t *Tag) RevokeAccess(recipientID, requesterID uuid.UUID) error {
	if !t.IsOwnedBy(requesterID) {
		return TagNotOwned
	}
	i := t.indexOf(recipientID)
	if i < 0 {
		return AccessNotFound
	}

	t.access = slices.Delete(t.access, i, i+1)
	t.updatedAt = t.now()
	return nil
}

// UpdateName renames the tag. Name uniqueness per owner is enforced by the
// service layer, not here.
func (t *Tag) UpdateName(newName string, requesterID uuid.UUID) error {
	if !t.IsOwnedBy(requesterID) {
		return TagNotOwned
	}
	t.name = newName
	t.updatedAt = t.now()
	return nil
}

func (t *Tag) indexOf(userID uuid.UUID) int {
	return slices.IndexFunc(t.access, func(a TagAccess) bool {
		return a.RecipientID == userID
	})
}
