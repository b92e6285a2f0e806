// File: authkit_errors_test.go

package authkit

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCatalog(t *testing.T) {
	t.Run("catalog codes build with defaults", func(t *testing.T) {
		err := E(CodeTokenExpired)
		assert.Equal(t, CodeTokenExpired, err.Code)
		assert.Equal(t, AuthenticationError, err.Type)
		assert.Equal(t, "Authentication token has expired", err.Detail)
	})

	t.Run("unknown code falls back to internal", func(t *testing.T) {
		err := E(Code("NOPE.NOPE"))
		assert.Equal(t, InternalError, err.Type)
	})

	t.Run("custom detail keeps catalog type", func(t *testing.T) {
		err := Ef(CodeTokenInvalid, "token %d rejected", 7)
		assert.Equal(t, "token 7 rejected", err.Detail)
		assert.Equal(t, AuthenticationError, err.Type)
	})
}

func TestErrorMatching(t *testing.T) {
	t.Run("matches by code regardless of detail", func(t *testing.T) {
		err := Ef(CodeTokenExpired, "completely different text")
		assert.ErrorIs(t, err, E(CodeTokenExpired))
		assert.NotErrorIs(t, err, E(CodeTokenInvalid))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		inner := E(CodeInvalidCredentials)
		wrapped := fmt.Errorf("login failed: %w", inner)
		assert.ErrorIs(t, wrapped, E(CodeInvalidCredentials))
	})

	t.Run("unwraps to the cause", func(t *testing.T) {
		cause := errors.New("disk full")
		err := E(CodeInternalError).WithCause(cause)
		assert.ErrorIs(t, err, cause)
	})
}

func TestErrorTypeStatusCodes(t *testing.T) {
	cases := map[ErrorType]int{
		ValidationError:     http.StatusBadRequest,
		AuthenticationError: http.StatusUnauthorized,
		AuthorizationError:  http.StatusForbidden,
		ResourceNotFound:    http.StatusNotFound,
		ResourceConflict:    http.StatusConflict,
		BusinessLogicError:  http.StatusUnprocessableEntity,
		RateLimitError:      http.StatusTooManyRequests,
		InternalError:       http.StatusInternalServerError,
		ServiceUnavailable:  http.StatusServiceUnavailable,
	}

	for errorType, want := range cases {
		assert.Equal(t, want, errorType.StatusCode(), string(errorType))
	}
}

func TestTranslate(t *testing.T) {
	logger := testLogger()

	t.Run("typed error maps directly", func(t *testing.T) {
		err := E(CodeInvalidCredentials)
		detail := Translate(logger, err, "/api/v1/auth/login")

		assert.Equal(t, CodeInvalidCredentials, detail.Code)
		assert.Equal(t, AuthenticationError, detail.Type)
		assert.Equal(t, "Invalid email or password", detail.Detail)
		assert.Equal(t, "/api/v1/auth/login", detail.Path)
		assert.Empty(t, detail.TraceID)
	})

	t.Run("field errors are carried", func(t *testing.T) {
		err := E(CodeInvalidPassword).WithFields(FieldError{
			Field: "password", Message: "too short", Rule: "password.min_length",
		})
		detail := Translate(logger, err, "/api/v1/auth/register")

		require.Len(t, detail.Errors, 1)
		assert.Equal(t, "password.min_length", detail.Errors[0].Rule)
	})

	t.Run("retry-after hint is carried in seconds", func(t *testing.T) {
		err := E(CodeRateLimitExceeded).WithRetryAfter(90 * time.Second)
		detail := Translate(logger, err, "/api/v1/auth/login")

		assert.Equal(t, int64(90), detail.RetryAfter)
	})

	t.Run("typed internal error is masked with a trace id", func(t *testing.T) {
		err := E(CodeInternalError).WithCause(errors.New("connection refused"))
		detail := Translate(logger, err, "/api/v1/auth/login")

		assert.NotEmpty(t, detail.TraceID)
		assert.NotContains(t, detail.Detail, "connection refused")
	})

	t.Run("unclassified error gets generic shape and trace id", func(t *testing.T) {
		detail := Translate(logger, errors.New("something unexpected"), "/api/v1/users")

		assert.Equal(t, CodeInternalError, detail.Code)
		assert.Equal(t, InternalError, detail.Type)
		assert.NotEmpty(t, detail.TraceID)
		assert.NotContains(t, detail.Detail, "something unexpected")
	})

	t.Run("distinct failures get distinct trace ids", func(t *testing.T) {
		first := Translate(logger, errors.New("boom"), "/a")
		second := Translate(logger, errors.New("boom"), "/a")
		assert.NotEqual(t, first.TraceID, second.TraceID)
	})
}
