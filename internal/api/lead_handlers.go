package api

import (
	"net/http"

	"github.com/terra-clan/academy-engine/internal/models"
)

func (s *Server) handleSubmitLead(w http.ResponseWriter, r *http.Request) {
	var req models.LeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lead, err := s.leads.Submit(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "submit lead", "form", req.Form)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":     lead.ID,
		"status": lead.Status,
	})
}
