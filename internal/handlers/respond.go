package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/otcheredev/patient-queue-service/internal/apperr"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError translates an application error into an HTTP response.
// Storage details are logged server-side, never leaked to the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			log.Error().Err(err).Msg("Request failed")
		}
		writeJSON(w, appErr.HTTPStatus, map[string]string{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}

	log.Error().Err(err).Msg("Request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
		"code":  "INTERNAL_ERROR",
	})
}
