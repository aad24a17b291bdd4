package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError(t *testing.T) {
	t.Run("formats with and without cause", func(t *testing.T) {
		plain := New(CategoryInput, SeverityError, "bad record")
		assert.Equal(t, "input (error): bad record", plain.Error())

		wrapped := Wrap(fmt.Errorf("connection refused"), CategoryPublish, SeverityError, "push failed")
		assert.Contains(t, wrapped.Error(), "publish (error): push failed")
		assert.Contains(t, wrapped.Error(), "connection refused")
	})

	t.Run("unwraps to the cause", func(t *testing.T) {
		cause := fmt.Errorf("boom")
		err := Wrap(cause, CategoryRuntime, SeverityError, "wrapper")
		assert.ErrorIs(t, err, cause)
	})

	t.Run("category and retry classification", func(t *testing.T) {
		err := Retryable(CategoryDelivery, SeverityWarning, "try again")
		assert.True(t, IsRetryable(err))
		assert.True(t, IsCategory(err, CategoryDelivery))
		assert.False(t, IsCategory(err, CategoryPublish))
		assert.Equal(t, CategoryDelivery, GetCategory(err))

		assert.False(t, IsRetryable(errors.New("plain")))
		assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	})

	t.Run("context fields accumulate", func(t *testing.T) {
		err := New(CategoryInput, SeverityError, "x").
			WithContext("field", "round").
			WithContext("value", 7)
		assert.Equal(t, "round", err.Context["field"])
		assert.Equal(t, 7, err.Context["value"])
	})
}

func TestConstructors(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		err := ConfigRequired("github.token")
		assert.Equal(t, CategoryConfig, err.Category)
		assert.Equal(t, SeverityFatal, err.Severity)
		assert.Equal(t, "github.token", err.Context["field"])
	})

	t.Run("input", func(t *testing.T) {
		assert.True(t, IsCategory(InputError("missing task"), CategoryInput))
		assert.True(t, IsCategory(InvalidRound(3), CategoryInput))

		att := MalformedAttachment("logo.png", "bad base64")
		assert.True(t, IsCategory(att, CategoryInput))
		assert.Equal(t, "logo.png", att.Context["attachment"])
	})

	t.Run("generation and publish", func(t *testing.T) {
		require.True(t, IsCategory(GenerationTransport(errors.New("timeout")), CategoryGeneration))
		require.True(t, IsCategory(PublishFailed("commit", errors.New("x")), CategoryPublish))
		require.True(t, IsCategory(StaleContentHash("index.html"), CategoryPublish))
	})

	t.Run("delivery is retryable", func(t *testing.T) {
		err := DeliveryTransport(errors.New("503"))
		assert.True(t, IsRetryable(err))
		assert.Equal(t, SeverityWarning, err.Severity)
	})
}
