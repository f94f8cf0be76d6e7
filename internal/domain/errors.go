// Package domain contains the core types of the Notekeeper API: the Tag
// aggregate with its sharing grants, the RecipientEmail value object, and the
// error taxonomy every other internal package (repo, service, handler) uses.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. blank tag name, malformed email address).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a write loses an optimistic-concurrency race
// or would violate a uniqueness rule enforced outside the aggregate
// (e.g. two tags with the same name for one owner).
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrRecipientNotFound is returned when a share targets an email address that
// does not belong to a registered user.
var ErrRecipientNotFound = fmt.Errorf("%w: no user with that email", ErrNotFound)

// TagErrorKind enumerates the ways a tag operation can be refused.
// A kind is itself an error, so callers can test with errors.Is(err, domain.TagNotOwned)
// or recover the kind with errors.As and switch over it exhaustively.
type TagErrorKind int

const (
	// TagNotOwned: the requester is not the tag owner.
	TagNotOwned TagErrorKind = iota + 1
	// CannotShareWithSelf: the owner tried to grant access to themselves.
	CannotShareWithSelf
	// DuplicateAccess: the recipient already holds a grant on the tag.
	DuplicateAccess
	// AccessNotFound: no grant exists for the recipient.
	AccessNotFound
	// TagNotFound: the tag is missing, or not visible to the requester.
	TagNotFound
	// TagHasNotes: the tag still has notes attached and cannot be deleted.
	TagHasNotes
)

// Code returns the stable machine-readable code for the kind.
func (k TagErrorKind) Code() string {
	switch k {
	case TagNotOwned:
		return "TAG_NOT_OWNED"
	case CannotShareWithSelf:
		return "CANNOT_SHARE_WITH_SELF"
	case DuplicateAccess:
		return "DUPLICATE_ACCESS"
	case AccessNotFound:
		return "ACCESS_NOT_FOUND"
	case TagNotFound:
		return "TAG_NOT_FOUND"
	case TagHasNotes:
		return "TAG_HAS_NOTES"
	default:
		return "UNKNOWN"
	}
}

// Error implements error with a human-readable message.
func (k TagErrorKind) Error() string {
	switch k {
	case TagNotOwned:
		return "you do not own this tag"
	case CannotShareWithSelf:
		return "cannot share a tag with yourself"
	case DuplicateAccess:
		return "user already has access to this tag"
	case AccessNotFound:
		return "user does not have access to this tag"
	case TagNotFound:
		return "tag not found"
	case TagHasNotes:
		return "tag still has notes attached"
	default:
		return "unknown tag error"
	}
}
