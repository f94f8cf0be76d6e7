package handler

import (
	"net/http"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/notekeeper/backend/internal/domain"
)

// ListTags handles GET /tags: one page of the caller's own tags.
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		requestBody(w, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		requestBody(w, err.Error())
		return
	}
	params := domain.NewPaginationParams(page, limit)

	tags, total, err := s.tags.ListMine(r.Context(), userID, params)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data := make([]Tag, len(tags))
	for i, t := range tags {
		data[i] = tagToResponse(t, userID)
	}
	writeJSON(w, http.StatusOK, TagList{
		Data: data,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}

// ListSharedTags handles GET /tags/shared: tags other users shared with the caller.
func (s *Server) ListSharedTags(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	tags, err := s.tags.ListShared(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data := make([]Tag, len(tags))
	for i, t := range tags {
		data[i] = tagToResponse(t, userID)
	}
	writeJSON(w, http.StatusOK, data)
}

// CreateTag handles POST /tags.
func (s *Server) CreateTag(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	var in TagInput
	if err := decodeBody(r, &in); err != nil {
		badBody(w, err)
		return
	}

	tag, err := s.tags.Create(r.Context(), userID, in.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tagToResponse(tag, userID))
}

// GetTag handles GET /tags/{tagId}.
func (s *Server) GetTag(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	tagID, err := pathUUID(r, "tagId")
	if err != nil {
		requestBody(w, err.Error())
		return
	}

	tag, err := s.tags.Get(r.Context(), tagID, userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagToResponse(tag, userID))
}

// RenameTag handles PUT /tags/{tagId}.
func (s *Server) RenameTag(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	tagID, err := pathUUID(r, "tagId")
	if err != nil {
		requestBody(w, err.Error())
		return
	}
	var in TagInput
	if err := decodeBody(r, &in); err != nil {
		badBody(w, err)
		return
	}

	tag, err := s.tags.Rename(r.Context(), tagID, userID, in.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagToResponse(tag, userID))
}

// DeleteTag handles DELETE /tags/{tagId}.
func (s *Server) DeleteTag(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	tagID, err := pathUUID(r, "tagId")
	if err != nil {
		requestBody(w, err.Error())
		return
	}

	if err := s.tags.Delete(r.Context(), tagID, userID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tagToResponse converts a domain.Tag to its API view for viewerID.
func tagToResponse(t *domain.Tag, viewerID uuid.UUID) Tag {
	resp := Tag{
		Id:        openapi_types.UUID(t.ID()),
		OwnerId:   openapi_types.UUID(t.OwnerID()),
		Name:      t.Name(),
		Shared:    !t.IsOwnedBy(viewerID),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
	if t.IsOwnedBy(viewerID) {
		n := t.AccessCount()
		resp.AccessCount = &n
	}
	return resp
}
