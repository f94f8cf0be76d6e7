package handler

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ErrorDetail is the machine-readable part of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Tag is the API view of a tag. AccessCount is only reported to the owner;
// Shared is true when the caller sees the tag through a grant.
type Tag struct {
	Id          openapi_types.UUID `json:"id"`
	OwnerId     openapi_types.UUID `json:"owner_id"`
	Name        string             `json:"name"`
	Shared      bool               `json:"shared"`
	AccessCount *int               `json:"access_count,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// TagInput is the body of POST /tags and PUT /tags/{tagId}.
type TagInput struct {
	Name string `json:"name"`
}

// Pagination describes which slice of a list was returned.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TagList is the body of GET /tags.
type TagList struct {
	Data       []Tag      `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// TagAccess is one grant as seen by the tag owner.
type TagAccess struct {
	RecipientId    openapi_types.UUID  `json:"recipient_id"`
	RecipientEmail openapi_types.Email `json:"recipient_email"`
	GrantedAt      time.Time           `json:"granted_at"`
}

// GrantAccessInput is the body of POST /tags/{tagId}/access.
// Email is validated by the domain, not by the decoder, so every malformed
// address gets the same error response.
type GrantAccessInput struct {
	Email string `json:"email"`
}

// SummaryInput is the body of POST /summaries.
type SummaryInput struct {
	Text string `json:"text"`
}

// SummaryResponse is the body returned by POST /summaries.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// ExportRow is one row of GET /tags/export. Recipient fields are absent for
// tags with no grants.
type ExportRow struct {
	TagId          openapi_types.UUID   `json:"tag_id"`
	TagName        string               `json:"tag_name"`
	RecipientId    *openapi_types.UUID  `json:"recipient_id,omitempty"`
	RecipientEmail *openapi_types.Email `json:"recipient_email,omitempty"`
	GrantedAt      *time.Time           `json:"granted_at,omitempty"`
}
