package handler

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/notekeeper/backend/internal/domain"
)

// ListAccess handles GET /tags/{tagId}/access. Owner only.
func (s *Server) ListAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	tagID, err := pathUUID(r, "tagId")
	if err != nil {
		requestBody(w, err.Error())
		return
	}

	grants, err := s.sharing.List(r.Context(), tagID, userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := make([]TagAccess, len(grants))
	for i, g := range grants {
		resp[i] = accessToResponse(g)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GrantAccess handles POST /tags/{tagId}/access.
func (s *Server) GrantAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	tagID, err := pathUUID(r, "tagId")
	if err != nil {
		requestBody(w, err.Error())
		return
	}
	var in GrantAccessInput
	if err := decodeBody(r, &in); err != nil {
		badBody(w, err)
		return
	}

	grant, err := s.sharing.Grant(r.Context(), tagID, userID, in.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, accessToResponse(grant))
}

// RevokeAccess handles DELETE /tags/{tagId}/access/{userId}.
func (s *Server) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	tagID, err := pathUUID(r, "tagId")
	if err != nil {
		requestBody(w, err.Error())
		return
	}
	recipientID, err := pathUUID(r, "userId")
	if err != nil {
		requestBody(w, err.Error())
		return
	}

	if err := s.sharing.Revoke(r.Context(), tagID, userID, recipientID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func accessToResponse(a domain.TagAccess) TagAccess {
	return TagAccess{
		RecipientId:    openapi_types.UUID(a.RecipientID),
		RecipientEmail: openapi_types.Email(a.RecipientEmail.String()),
		GrantedAt:      a.GrantedAt,
	}
}
