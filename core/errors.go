package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	RegistryErrorInvalidQueryShape = "REGISTRY_INVALID_QUERY_SHAPE"
	RegistryErrorNotFound          = "REGISTRY_NOT_FOUND"
	RegistryErrorUploadFailed      = "REGISTRY_UPLOAD_FAILED"
	RegistryErrorTransportFailure  = "REGISTRY_TRANSPORT_FAILURE"
	RegistryErrorInternal          = "REGISTRY_INTERNAL_ERROR"
)

var (
	ErrInvalidQueryShape = errors.New("core: invalid query shape")
	ErrRemoteRequired    = errors.New("core: remote registry is required")
)

// UploadFailure carries the registry message verbatim.
type UploadFailure struct {
	StatusCode int
	Message    string
}

func (e *UploadFailure) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("core: upload failed (status %d): %s", e.StatusCode, e.Message)
}

func (e *UploadFailure) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	return goerrors.Wrap(e, goerrors.CategoryOperation, e.Message).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(RegistryErrorUploadFailed).
		WithMetadata(map[string]any{"status_code": e.StatusCode})
}

func AsUploadFailure(err error) (*UploadFailure, bool) {
	var failure *UploadFailure
	if errors.As(err, &failure) && failure != nil {
		return failure, true
	}
	return nil, false
}

// IsNotFound reports whether err is a not-found envelope from the remote
// registry or transport.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryNotFound ||
			rich.Code == http.StatusNotFound ||
			rich.TextCode == RegistryErrorNotFound
	}
	return false
}

func IsInvalidQueryShape(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidQueryShape) {
		return true
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == RegistryErrorInvalidQueryShape
	}
	return false
}

func registryErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	if failure, ok := AsUploadFailure(err); ok {
		return failure.ToServiceError()
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureRegistryErrorEnvelope(richErr)
	}

	if errors.Is(err, ErrInvalidQueryShape) {
		return wrapRegistryError(err, goerrors.CategoryBadInput, RegistryErrorInvalidQueryShape)
	}
	if errors.Is(err, ErrRemoteRequired) {
		return wrapRegistryError(err, goerrors.CategoryInternal, RegistryErrorInternal)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newRegistryError(err.Error(), goerrors.CategoryNotFound, RegistryErrorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mutually exclusive"):
		return newRegistryError(err.Error(), goerrors.CategoryBadInput, RegistryErrorInvalidQueryShape)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureRegistryErrorEnvelope(mapped)
}

func newRegistryError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureRegistryErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func wrapRegistryError(source error, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureRegistryErrorEnvelope(
		goerrors.Wrap(source, category, source.Error()).
			WithTextCode(textCode),
	)
}

func ensureRegistryErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = registryHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultRegistryTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultRegistryTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return RegistryErrorInvalidQueryShape
	case goerrors.CategoryNotFound:
		return RegistryErrorNotFound
	case goerrors.CategoryOperation:
		return RegistryErrorUploadFailed
	case goerrors.CategoryExternal:
		return RegistryErrorTransportFailure
	default:
		return RegistryErrorInternal
	}
}

func registryHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryOperation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
