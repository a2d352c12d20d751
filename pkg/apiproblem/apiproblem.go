// Package apiproblem renders archerr.Error values as RFC 7807 Problem
// Details, the format any external HTTP/WS gateway in front of this
// core is expected to forward to clients.
package apiproblem

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/archon-systems/archon-core/pkg/archerr"
)

// ProblemDetail implements RFC 7807.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

var statusByKind = map[archerr.Kind]int{
	archerr.Validation:    http.StatusBadRequest,
	archerr.PolicyDenied:  http.StatusForbidden,
	archerr.NotAuthorized: http.StatusUnauthorized,
	archerr.NotFound:      http.StatusNotFound,
	archerr.Conflict:      http.StatusConflict,
	archerr.Cryptographic: http.StatusBadRequest,
	archerr.Transport:     http.StatusBadGateway,
	archerr.Backend:       http.StatusServiceUnavailable,
	archerr.Internal:      http.StatusInternalServerError,
	archerr.RateLimited:   http.StatusTooManyRequests,
}

// FromError converts a component error into a ProblemDetail. Errors
// that are not *archerr.Error are treated as Internal and never leak
// their message to the client.
func FromError(err error) *ProblemDetail {
	var ae *archerr.Error
	if e, ok := err.(*archerr.Error); ok {
		ae = e
	}
	if ae == nil {
		slog.Error("unclassified error reached api boundary", "error", err)
		return &ProblemDetail{
			Type:   "https://archon.dev/errors/internal",
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
			Detail: "an unexpected error occurred",
		}
	}

	status, ok := statusByKind[ae.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	return &ProblemDetail{
		Type:   fmt.Sprintf("https://archon.dev/errors/%s", ae.Code),
		Title:  string(ae.Kind),
		Status: status,
		Detail: ae.Detail,
		Code:   ae.Code,
	}
}

// Write renders err as a JSON Problem Detail response.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	problem := FromError(err)
	if r != nil {
		problem.Instance = r.URL.Path
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}
