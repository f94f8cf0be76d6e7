// Package handler implements the HTTP handlers for the Notekeeper API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, tag.go, access.go, export.go, summary.go) but share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/notekeeper/backend/internal/domain"
)

// TagServicer defines the tag operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type TagServicer interface {
	Create(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Tag, error)
	Get(ctx context.Context, tagID, requesterID uuid.UUID) (*domain.Tag, error)
	Rename(ctx context.Context, tagID, requesterID uuid.UUID, name string) (*domain.Tag, error)
	Delete(ctx context.Context, tagID, requesterID uuid.UUID) error
	ListMine(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]*domain.Tag, int64, error)
	ListShared(ctx context.Context, userID uuid.UUID) ([]*domain.Tag, error)
}

// SharingServicer defines the grant/revoke/list operations on tag access.
type SharingServicer interface {
	Grant(ctx context.Context, tagID, requesterID uuid.UUID, email string) (domain.TagAccess, error)
	Revoke(ctx context.Context, tagID, requesterID, recipientID uuid.UUID) error
	List(ctx context.Context, tagID, requesterID uuid.UUID) ([]domain.TagAccess, error)
}

// Exporter builds the flat sharing export of an owner's tags.
type Exporter interface {
	Export(ctx context.Context, ownerID uuid.UUID) ([]domain.ExportRow, error)
}

// Summarizer is the AI summary function.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Deps bundles everything the Server needs. Auth and RateLimit are
// middleware; nil means pass-through.
type Deps struct {
	Tags      TagServicer
	Sharing   SharingServicer
	Export    Exporter
	Summaries Summarizer

	// Auth must put the verified user id in the request context (see auth.Require).
	Auth func(http.Handler) http.Handler
	// RateLimit guards the sharing writes and the summary endpoint.
	RateLimit func(http.Handler) http.Handler

	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
	// OpenAPI is served verbatim at /openapi.yaml.
	OpenAPI []byte

	Logger *slog.Logger
}

// Server implements every API endpoint.
type Server struct {
	tags      TagServicer
	sharing   SharingServicer
	export    Exporter
	summaries Summarizer
	auth      func(http.Handler) http.Handler
	rateLimit func(http.Handler) http.Handler
	metrics   http.Handler
	openAPI   []byte
	log       *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	s := &Server{
		tags:      d.Tags,
		sharing:   d.Sharing,
		export:    d.Export,
		summaries: d.Summaries,
		auth:      d.Auth,
		rateLimit: d.RateLimit,
		metrics:   d.Metrics,
		openAPI:   d.OpenAPI,
		log:       d.Logger,
	}
	if s.auth == nil {
		s.auth = passThrough
	}
	if s.rateLimit == nil {
		s.rateLimit = passThrough
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Routes builds the chi router for the whole API.
// Health, the OpenAPI document and metrics are public; everything else
// requires a session.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.auth)

		r.Get("/tags", s.ListTags)
		r.Post("/tags", s.CreateTag)
		r.Get("/tags/shared", s.ListSharedTags)
		r.Get("/tags/export", s.GetExport)

		r.Route("/tags/{tagId}", func(r chi.Router) {
			r.Get("/", s.GetTag)
			r.Put("/", s.RenameTag)
			r.Delete("/", s.DeleteTag)

			r.Get("/access", s.ListAccess)
			r.With(s.rateLimit).Post("/access", s.GrantAccess)
			r.With(s.rateLimit).Delete("/access/{userId}", s.RevokeAccess)
		})

		r.With(s.rateLimit).Post("/summaries", s.CreateSummary)
	})

	return r
}

func passThrough(next http.Handler) http.Handler { return next }
