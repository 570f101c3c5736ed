package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/api/response"
)

// callerID returns the authenticated user. Routes mounted behind the auth
// middleware always have one; anything else gets a 401.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.GetUserID(r.Context())
	if id == "" {
		response.Unauthorized(w, r, "authentication required")
		return "", false
	}
	return id, true
}

// decodeJSON reads the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	return decodeBody(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON for endpoints where every field is
// optional; an empty body leaves v untouched.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	return decodeBody(w, r, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.BadRequest(w, r, "request body too large", nil)
		return false
	}
	response.BadRequest(w, r, "invalid JSON body", nil)
	return false
}
