package archerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/stretchr/testify/assert"
)

func TestKindClassification(t *testing.T) {
	assert.True(t, archerr.Transport.Retryable())
	assert.True(t, archerr.Conflict.Retryable())
	assert.False(t, archerr.NotFound.Retryable())
	assert.True(t, archerr.Internal.Fatal())
	assert.False(t, archerr.Validation.Fatal())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := archerr.Wrap(archerr.Backend, "AppendFailed", "could not persist span", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, archerr.Is(err, archerr.Backend))
	assert.Equal(t, archerr.Backend, archerr.KindOf(err))
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, archerr.Internal, archerr.KindOf(errors.New("plain error")))
}

func TestErrorMessageIncludesCode(t *testing.T) {
	err := archerr.New(archerr.NotFound, "SpanUnknown", "span s1 not found")
	assert.Contains(t, fmt.Sprint(err), "SpanUnknown")
	assert.Contains(t, fmt.Sprint(err), "span s1 not found")
}
