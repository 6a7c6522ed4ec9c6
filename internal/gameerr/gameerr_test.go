// internal/gameerr/gameerr_test.go
package gameerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing %s", "x")))
	assert.Equal(t, KindStateConflict, KindOf(StateConflict("already ended")))
	assert.Equal(t, KindInfrastructure, KindOf(Infrastructure(errors.New("boom"), "save failed")))

	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("handling request: %w", NotFound("session gone"))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(Validation("bad")))
	assert.False(t, Retryable(NotFound("gone")))
	assert.False(t, Retryable(StateConflict("ended")))
	assert.True(t, Retryable(Infrastructure(errors.New("db down"), "save")))
	assert.True(t, Retryable(errors.New("unknown")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Infrastructure(cause, "dial broker")
	assert.True(t, errors.Is(err, cause))
}
