package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExportRow is a single row in an owner's sharing export.
// It is a flat, denormalized view: one row per grant, with the tag fields
// repeated for every grant on that tag. Tags with no grants yield one row
// with zero values for the recipient fields.
type ExportRow struct {
	// Tag fields, repeated for every grant on the tag.
	TagID   uuid.UUID
	TagName string

	// Grant fields. RecipientID is uuid.Nil and GrantedAt is nil when the
	// tag is not shared.
	RecipientID    uuid.UUID
	RecipientEmail string
	GrantedAt      *time.Time
}

// Shared reports whether the row describes a grant.
func (r ExportRow) Shared() bool {
	return r.RecipientID != uuid.Nil
}
