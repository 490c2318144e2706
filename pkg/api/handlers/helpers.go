package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shelf-fs/shelf/pkg/api/middleware"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful; on failure the error response has already
// been written.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// callerID returns the authenticated user's id. Routes reaching handlers
// always run behind JWTAuth, so absent claims are a server wiring bug.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		InternalServerError(w, "Missing authentication context")
		return "", false
	}
	return claims.UserID, true
}

// parseListOptions reads the pagination query parameters: `limit` plus
// either `last_id` (keyset) or `offset` (page index). A present `last_id`
// wins over `offset`.
func parseListOptions(r *http.Request) (store.ListOptions, error) {
	var opts store.ListOptions
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return opts, errBadQueryParam("limit")
		}
		opts.Limit = limit
	}

	if raw := q.Get("last_id"); raw != "" {
		lastID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || lastID < 0 {
			return opts, errBadQueryParam("last_id")
		}
		opts.LastID = &lastID
		return opts, nil
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return opts, errBadQueryParam("offset")
		}
		opts.Offset = offset
	}
	return opts, nil
}

type badQueryParamError struct {
	param string
}

func (e *badQueryParamError) Error() string {
	return "invalid query parameter " + e.param
}

func errBadQueryParam(param string) error {
	return &badQueryParamError{param: param}
}
