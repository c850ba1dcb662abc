package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"wagerledger/service"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Class   string `json:"class,omitempty"`
	Message string `json:"message,omitempty"`
}

// statusForClass maps ledger error classes to HTTP status codes
var statusForClass = map[service.ErrorClass]int{
	service.ClassValidation:    http.StatusBadRequest,
	service.ClassAuthorization: http.StatusForbidden,
	service.ClassNotFound:      http.StatusNotFound,
	service.ClassState:         http.StatusConflict,
	service.ClassArithmetic:    http.StatusUnprocessableEntity,
}

func respondWithJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func respondWithBadRequest(w http.ResponseWriter, message string) {
	respondWithJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "BadRequest",
		Class:   string(service.ClassValidation),
		Message: message,
	})
}

func respondWithTooLarge(w http.ResponseWriter, limit int64) {
	respondWithJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
		Error:   "RequestTooLarge",
		Class:   string(service.ClassValidation),
		Message: fmt.Sprintf("request body exceeds %d bytes", limit),
	})
}

// respondWithError writes a ledger error with its class status. Anything else
// is logged and reported as an opaque internal error.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var ledgerErr *service.LedgerError
	if errors.As(err, &ledgerErr) {
		status, ok := statusForClass[ledgerErr.Class]
		if !ok {
			status = http.StatusInternalServerError
		}
		respondWithJSON(w, status, ErrorResponse{
			Error:   ledgerErr.Code,
			Class:   string(ledgerErr.Class),
			Message: ledgerErr.Message,
		})
		return
	}

	log.WithFields(log.Fields{
		"method":    r.Method,
		"path":      r.URL.Path,
		"requestID": middleware.GetReqID(r.Context()),
		"error":     err,
	}).Error("Request failed")

	respondWithJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "InternalError"})
}
