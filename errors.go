// File: errors.go

package authkit

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrorType is the category tag carried by every Error. It determines the
// HTTP status class an API layer should answer with.
type ErrorType string

const (
	ValidationError     ErrorType = "VALIDATION_ERROR"
	AuthenticationError ErrorType = "AUTHENTICATION_ERROR"
	AuthorizationError  ErrorType = "AUTHORIZATION_ERROR"
	ResourceNotFound    ErrorType = "RESOURCE_NOT_FOUND"
	ResourceConflict    ErrorType = "RESOURCE_CONFLICT"
	BusinessLogicError  ErrorType = "BUSINESS_LOGIC_ERROR"
	RateLimitError      ErrorType = "RATE_LIMIT_ERROR"
	InternalError       ErrorType = "INTERNAL_SERVER_ERROR"
	ServiceUnavailable  ErrorType = "SERVICE_UNAVAILABLE"
)

// StatusCode maps the category to its HTTP status class.
func (t ErrorType) StatusCode() int {
	switch t {
	case ValidationError:
		return http.StatusBadRequest
	case AuthenticationError:
		return http.StatusUnauthorized
	case AuthorizationError:
		return http.StatusForbidden
	case ResourceNotFound:
		return http.StatusNotFound
	case ResourceConflict:
		return http.StatusConflict
	case BusinessLogicError:
		return http.StatusUnprocessableEntity
	case RateLimitError:
		return http.StatusTooManyRequests
	case ServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code is a stable, machine-readable error code in DOMAIN.SPECIFIC_ERROR form.
type Code string

const (
	// General
	CodeResourceNotFound   Code = "RESOURCE.NOT_FOUND"
	CodeInvalidRequest     Code = "GENERAL.INVALID_REQUEST"
	CodeInternalError      Code = "GENERAL.INTERNAL_ERROR"
	CodeServiceUnavailable Code = "GENERAL.SERVICE_UNAVAILABLE"

	// Authentication
	CodeInvalidSecretKey   Code = "AUTH.INVALID_SECRET_KEY"
	CodeTokenExpired       Code = "AUTH.TOKEN_EXPIRED"
	CodeTokenInvalid       Code = "AUTH.TOKEN_INVALID"
	CodeTokenMissing       Code = "AUTH.TOKEN_MISSING"
	CodeInvalidCredentials Code = "AUTH.INVALID_CREDENTIALS"

	// Authorization
	CodeAccessDenied            Code = "AUTHZ.ACCESS_DENIED"
	CodeInsufficientPermissions Code = "AUTHZ.INSUFFICIENT_PERMISSIONS"
	CodeRoleRequired            Code = "AUTHZ.ROLE_REQUIRED"

	// Validation
	CodeValidationFailed   Code = "VALIDATION.FAILED"
	CodeInvalidEmailFormat Code = "VALIDATION.INVALID_EMAIL"
	CodeFieldRequired      Code = "VALIDATION.FIELD_REQUIRED"
	CodeInvalidPassword    Code = "VALIDATION.INVALID_PASSWORD"

	// User
	CodeUserNotFound         Code = "USER.NOT_FOUND"
	CodeUserAlreadyExists    Code = "USER.ALREADY_EXIST"
	CodeDuplicateEmail       Code = "USER.DUPLICATE_EMAIL"
	CodeUserCannotDeleteSelf Code = "USER.CANNOT_DELETE_SELF"

	// Rate limiting
	CodeRateLimitExceeded Code = "RATE.LIMIT_EXCEEDED"

	// Infrastructure / key loading
	CodeKeyFileNotFound      Code = "KEY_FILE_NOT_FOUND"
	CodeKeyFileNotReadable   Code = "KEY_FILE_NOT_READABLE"
	CodeInvalidKeyFormat     Code = "INVALID_KEY_FORMAT"
	CodePrivateKeyLoadFailed Code = "PRIVATE_KEY_LOAD_FAILED"
	CodePublicKeyLoadFailed  Code = "PUBLIC_KEY_LOAD_FAILED"
)

type catalogEntry struct {
	errorType      ErrorType
	defaultMessage string
}

// catalog is the process-wide error table. It is initialized once and never
// mutated afterwards; Register-style extension is deliberately not offered.
var catalog = map[Code]catalogEntry{
	CodeResourceNotFound:   {ResourceNotFound, "The requested resource was not found"},
	CodeInvalidRequest:     {ValidationError, "The request is malformed or invalid"},
	CodeInternalError:      {InternalError, "An unexpected error occurred. Please try again later"},
	CodeServiceUnavailable: {ServiceUnavailable, "The service is temporarily unavailable"},

	CodeInvalidSecretKey:   {AuthenticationError, "Invalid secret key"},
	CodeTokenExpired:       {AuthenticationError, "Authentication token has expired"},
	CodeTokenInvalid:       {AuthenticationError, "Authentication token is invalid or malformed"},
	CodeTokenMissing:       {AuthenticationError, "Authentication token is required but not provided"},
	CodeInvalidCredentials: {AuthenticationError, "Invalid email or password"},

	CodeAccessDenied:            {AuthorizationError, "You do not have permission to access this resource"},
	CodeInsufficientPermissions: {AuthorizationError, "You lack the required permissions to perform this action"},
	CodeRoleRequired:            {AuthorizationError, "This action requires a specific role"},

	CodeValidationFailed:   {ValidationError, "One or more fields have validation errors"},
	CodeInvalidEmailFormat: {ValidationError, "Email address format is invalid"},
	CodeFieldRequired:      {ValidationError, "Required field is missing"},
	CodeInvalidPassword:    {ValidationError, "Password is invalid"},

	CodeUserNotFound:         {ResourceNotFound, "User not found"},
	CodeUserAlreadyExists:    {ResourceConflict, "User already exists"},
	CodeDuplicateEmail:       {ResourceConflict, "Email already in use"},
	CodeUserCannotDeleteSelf: {BusinessLogicError, "You cannot delete yourself"},

	CodeRateLimitExceeded: {RateLimitError, "Rate limit exceeded"},

	CodeKeyFileNotFound:      {InternalError, "Key file not found"},
	CodeKeyFileNotReadable:   {InternalError, "Key file is not readable"},
	CodeInvalidKeyFormat:     {InternalError, "Invalid key format"},
	CodePrivateKeyLoadFailed: {InternalError, "Failed to load private key"},
	CodePublicKeyLoadFailed:  {InternalError, "Failed to load public key"},
}

// FieldError describes one field-level validation failure.
type FieldError struct {
	Field         string `json:"field"`
	Message       string `json:"message"`
	RejectedValue string `json:"rejectedValue,omitempty"`
	Rule          string `json:"ruleCode,omitempty"`
}

// Error is the single tagged error value used across the subsystem. It
// replaces a per-cause exception hierarchy: callers dispatch on Code or Type
// via errors.Is / errors.As rather than on concrete error types.
type Error struct {
	Code        Code
	Type        ErrorType
	Detail      string
	FieldErrors []FieldError
	RetryAfter  time.Duration
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two Errors by code, so that errors.Is(err, E(CodeTokenExpired))
// works regardless of detail text or wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// E builds an Error from the catalog with its default message. Unknown codes
// fall back to the generic internal error entry.
func E(code Code) *Error {
	entry, ok := catalog[code]
	if !ok {
		entry = catalog[CodeInternalError]
	}
	return &Error{
		Code:   code,
		Type:   entry.errorType,
		Detail: entry.defaultMessage,
	}
}

// Ef builds an Error from the catalog with a custom detail message.
func Ef(code Code, format string, args ...interface{}) *Error {
	err := E(code)
	err.Detail = fmt.Sprintf(format, args...)
	return err
}

// WithCause attaches the underlying failure for wrapping/unwrapping.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// WithFields attaches field-level validation failures.
func (e *Error) WithFields(fields ...FieldError) *Error {
	e.FieldErrors = append(e.FieldErrors, fields...)
	return e
}

// WithRetryAfter attaches a retry-after hint for rate-limit errors.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// ErrorDetail is the stable wire shape produced by Translate. It never
// carries internal failure detail; unclassified failures surface only a
// generic message plus a trace id that links to the server-side log entry.
type ErrorDetail struct {
	Type       ErrorType    `json:"type"`
	Code       Code         `json:"code"`
	Detail     string       `json:"detail"`
	Path       string       `json:"path,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
	RetryAfter int64        `json:"retryAfter,omitempty"`
	TraceID    string       `json:"traceId,omitempty"`
}

// Translate converts any failure into its caller-visible ErrorDetail.
//
// Typed *Error values map directly to their catalog entry. Anything else is
// an unclassified failure: it is logged in full together with a freshly
// generated trace id, and only the generic internal-error shape plus that id
// is returned.
func Translate(logger *slog.Logger, err error, path string) ErrorDetail {
	if logger == nil {
		logger = slog.Default()
	}

	var typed *Error
	if errors.As(err, &typed) {
		detail := ErrorDetail{
			Type:   typed.Type,
			Code:   typed.Code,
			Detail: typed.Detail,
			Path:   path,
			Errors: typed.FieldErrors,
		}
		if typed.RetryAfter > 0 {
			detail.RetryAfter = int64(typed.RetryAfter.Seconds())
		}
		if typed.Type == InternalError {
			detail.TraceID = newTraceID()
			detail.Detail = catalog[CodeInternalError].defaultMessage
			logger.Error("internal failure",
				slog.String("trace_id", detail.TraceID),
				slog.String("code", string(typed.Code)),
				slog.String("path", path),
				slog.Any("error", err),
			)
		}
		return detail
	}

	traceID := newTraceID()
	logger.Error("unexpected failure",
		slog.String("trace_id", traceID),
		slog.String("path", path),
		slog.Any("error", err),
	)
	return ErrorDetail{
		Type:    InternalError,
		Code:    CodeInternalError,
		Detail:  catalog[CodeInternalError].defaultMessage,
		Path:    path,
		TraceID: traceID,
	}
}

func newTraceID() string {
	return uuid.NewString()
}
