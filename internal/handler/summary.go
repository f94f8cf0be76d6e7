package handler

import "net/http"

// CreateSummary handles POST /summaries. The text is forwarded to the AI
// summary function; the route is rate limited per client.
func (s *Server) CreateSummary(w http.ResponseWriter, r *http.Request) {
	if _, ok := requester(w, r); !ok {
		return
	}
	var in SummaryInput
	if err := decodeBody(r, &in); err != nil {
		badBody(w, err)
		return
	}

	out, err := s.summaries.Summarize(r.Context(), in.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Summary: out})
}
