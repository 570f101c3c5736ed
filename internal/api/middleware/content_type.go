package middleware

import (
	"mime"
	"net/http"
	"strings"

	"github.com/saferoute/saferoute/internal/api/models"
)

// MaxJSONBodyBytes caps request bodies. The largest legitimate body is a
// route compute request, well under this.
const MaxJSONBodyBytes = 64 << 10

// ContentTypeJSON defaults the response Content-Type to application/json.
// Handlers that set their own type (problem responses) keep it.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects POST, PUT and PATCH bodies declared as anything other
// than JSON with a 415 problem. A missing Content-Type is accepted since the
// mobile clients do not always send one. Bodies are capped at MaxJSONBodyBytes.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}

		if ct := r.Header.Get("Content-Type"); ct != "" && !isJSONMediaType(ct) {
			problem := models.NewUnsupportedMediaType(GetRequestID(r.Context()),
				"Content-Type must be application/json")
			problem.Instance = r.URL.Path
			problem.Write(w)
			return
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// isJSONMediaType accepts application/json and structured +json types.
func isJSONMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" ||
		(strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"))
}
