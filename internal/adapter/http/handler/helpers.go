package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/iho/goauction/internal/adapter/http/dto"
	"github.com/iho/goauction/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   kind,
		Message: message,
	})
}

// writeDomainError writes err with the status and kind its domain classification maps to.
// Unclassified errors do not leak their text.
func writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)
	message := err.Error()
	if kind == domain.KindUnknown {
		message = "internal error"
	}
	writeError(w, status, string(kind), message)
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindAuctionNotActive, domain.KindAlreadyEnded, domain.KindNotExpired,
		domain.KindConflict, domain.KindAlreadyRefunded:
		return http.StatusConflict
	case domain.KindBidTooLow, domain.KindSelfBid, domain.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case domain.KindStorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, string(domain.KindInvalidInput), "invalid request body: "+err.Error())
		return false
	}
	return true
}

// callerID returns the user id resolved by the identity middleware, or "".
// Use cases reject the empty id as unauthenticated.
func callerID(r *http.Request) string {
	c, _ := domain.CallerFromContext(r.Context())
	return c.UserID
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// paging reads limit and offset, clamped to the allowed range.
func paging(r *http.Request) (int, int) {
	return domain.ValidatePagination(
		parseIntQuery(r, "limit", domain.DefaultPageSize),
		parseIntQuery(r, "offset", 0),
	)
}
