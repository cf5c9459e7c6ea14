package core

import (
	"errors"
	"testing"

	"github.com/iceymoss/newsfeed/pkg/db/objects"

	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	assert.False(t, Succeeded(objects.StatusProcessed).Retry())
	assert.False(t, Soft(objects.StatusPartial).Retry())
	assert.False(t, Permanent(errors.New("gone")).Retry())

	r := Retryable(errors.New("timeout"))
	assert.True(t, r.Retry())
	assert.Equal(t, objects.StatusFailed, r.Status)
	assert.Equal(t, "retryable_failure", r.Outcome.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
