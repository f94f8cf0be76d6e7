package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/notekeeper/backend/internal/auth"
	"github.com/pkordes/notekeeper/backend/internal/domain"
	"github.com/pkordes/notekeeper/backend/internal/handler"
)

// ---- mocks -----------------------------------------------------------------

type mockTagServicer struct {
	create     func(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Tag, error)
	get        func(ctx context.Context, tagID, requesterID uuid.UUID) (*domain.Tag, error)
	rename     func(ctx context.Context, tagID, requesterID uuid.UUID, name string) (*domain.Tag, error)
	delete     func(ctx context.Context, tagID, requesterID uuid.UUID) error
	listMine   func(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]*domain.Tag, int64, error)
	listShared func(ctx context.Context, userID uuid.UUID) ([]*domain.Tag, error)
}

func (m *mockTagServicer) Create(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Tag, error) {
	return m.create(ctx, ownerID, name)
}
func (m *mockTagServicer) Get(ctx context.Context, tagID, requesterID uuid.UUID) (*domain.Tag, error) {
	return m.get(ctx, tagID, requesterID)
}
func (m *mockTagServicer) Rename(ctx context.Context, tagID, requesterID uuid.UUID, name string) (*domain.Tag, error) {
	return m.rename(ctx, tagID, requesterID, name)
}
func (m *mockTagServicer) Delete(ctx context.Context, tagID, requesterID uuid.UUID) error {
	return m.delete(ctx, tagID, requesterID)
}
func (m *mockTagServicer) ListMine(ctx context.Context, ownerID uuid.UUID, p domain.PaginationParams) ([]*domain.Tag, int64, error) {
	return m.listMine(ctx, ownerID, p)
}
func (m *mockTagServicer) ListShared(ctx context.Context, userID uuid.UUID) ([]*domain.Tag, error) {
	return m.listShared(ctx, userID)
}

type mockSharingServicer struct {
	grant  func(ctx context.Context, tagID, requesterID uuid.UUID, email string) (domain.TagAccess, error)
	revoke func(ctx context.Context, tagID, requesterID, recipientID uuid.UUID) error
	list   func(ctx context.Context, tagID, requesterID uuid.UUID) ([]domain.TagAccess, error)
}

func (m *mockSharingServicer) Grant(ctx context.Context, tagID, requesterID uuid.UUID, email string) (domain.TagAccess, error) {
	return m.grant(ctx, tagID, requesterID, email)
}
func (m *mockSharingServicer) Revoke(ctx context.Context, tagID, requesterID, recipientID uuid.UUID) error {
	return m.revoke(ctx, tagID, requesterID, recipientID)
}
func (m *mockSharingServicer) List(ctx context.Context, tagID, requesterID uuid.UUID) ([]domain.TagAccess, error) {
	return m.list(ctx, tagID, requesterID)
}

type mockSummarizer struct {
	summarize func(ctx context.Context, text string) (string, error)
}

func (m *mockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return m.summarize(ctx, text)
}

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.TagServicer     = (*mockTagServicer)(nil)
	_ handler.SharingServicer = (*mockSharingServicer)(nil)
	_ handler.Summarizer      = (*mockSummarizer)(nil)
)

// ---- harness ---------------------------------------------------------------

const testSessionKey = "707172737475767778797a7b7c7d7e7f808182838485868788898a8b8c8d8e8f"

// testAPI wires a Server behind the real session middleware.
type testAPI struct {
	t        *testing.T
	handler  http.Handler
	verifier *auth.Verifier
}

func newTestAPI(t *testing.T, d handler.Deps) *testAPI {
	t.Helper()
	v, err := auth.NewVerifier(testSessionKey, time.Hour)
	require.NoError(t, err)
	d.Auth = v.Require
	return &testAPI{t: t, handler: handler.NewServer(d).Routes(), verifier: v}
}

// do sends a request as userID (uuid.Nil sends no token) and returns the recorder.
func (a *testAPI) do(method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+a.verifier.Issue(userID))
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func mustTag(t *testing.T, ownerID uuid.UUID, name string) *domain.Tag {
	t.Helper()
	tag, err := domain.NewTag(uuid.New(), ownerID, name, nil)
	require.NoError(t, err)
	return tag
}

func mustEmail(t *testing.T, raw string) domain.RecipientEmail {
	t.Helper()
	e, err := domain.NewRecipientEmail(raw)
	require.NoError(t, err)
	return e
}
