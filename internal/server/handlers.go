package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// handleHealth reports liveness. A missing catalog is reported but does not
// fail the check; the analytics endpoints answer 503 until one is loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "renewals",
	}

	if s.cfg.Store != nil {
		if c, err := s.cfg.Store.Current(); err == nil {
			response["catalog_version"] = c.Version()
		} else {
			response["catalog_version"] = nil
		}
	}

	writeJSON(w, http.StatusOK, response, s.log)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
