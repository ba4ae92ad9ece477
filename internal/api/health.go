package api

import (
	"net/http"

	"github.com/kjannette/chart-cache/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthStatus{
		OK: true,
		TS: s.now().UnixMilli(),
	})
}
