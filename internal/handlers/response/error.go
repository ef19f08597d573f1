package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"gitlab.com/fcv-grader.net/internal/static/errs"
)

type ErrorMessage struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func WriteError(w http.ResponseWriter, err ErrorMessage) {
	WriteJSON(w, err.StatusCode, err)
}

// WriteErr maps a service error onto its HTTP status
func WriteErr(w http.ResponseWriter, err error) {
	WriteError(w, ErrorMessage{Message: err.Error(), StatusCode: StatusFor(err)})
}

func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidRequest), errors.Is(err, errs.ErrUnsupportedLanguage):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrSubmissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
