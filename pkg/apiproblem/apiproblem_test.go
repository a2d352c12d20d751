package apiproblem_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/archon-systems/archon-core/pkg/apiproblem"
	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/stretchr/testify/assert"
)

func TestFromErrorMapsKindToStatus(t *testing.T) {
	p := apiproblem.FromError(archerr.New(archerr.NotFound, "SpanUnknown", "no such span"))
	assert.Equal(t, http.StatusNotFound, p.Status)
	assert.Equal(t, "SpanUnknown", p.Code)
}

func TestFromErrorHidesUnclassifiedDetail(t *testing.T) {
	p := apiproblem.FromError(errors.New("leaked internal detail"))
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.NotContains(t, p.Detail, "leaked internal detail")
}

func TestWriteSetsProblemContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/span.submit", nil)

	apiproblem.Write(rec, req, archerr.New(archerr.PolicyDenied, "cap", "payload.amount exceeds cap"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}
