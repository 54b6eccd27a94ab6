package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mpapenbr/fantasy-league-service/log"
)

const msgInternalError = "internal server error"

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps err to a status code. Only validation and body size
// errors are reported to the caller, everything else is logged and answered with a
// generic message.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if errors.Is(err, ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.requestLogger(r).Error("request failed",
		log.String("method", r.Method),
		log.String("path", r.URL.Path),
		log.ErrorField(err))
	writeError(w, http.StatusInternalServerError, msgInternalError)
}
