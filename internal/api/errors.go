package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rpggio/catalogbulk/internal/catalog"
	"github.com/rpggio/catalogbulk/internal/domain/backup"
	"github.com/rpggio/catalogbulk/internal/domain/bulk"
	"github.com/rpggio/catalogbulk/internal/domain/identifier"
	"github.com/rpggio/catalogbulk/internal/domain/mutation"
	"github.com/rpggio/catalogbulk/internal/domain/record"
	"github.com/rpggio/catalogbulk/internal/domain/resolve"
	"github.com/rpggio/catalogbulk/internal/repository"
)

// Error codes surfaced to callers.
const (
	CodeMethodNotFound    = "METHOD_NOT_FOUND"
	CodeInvalidParams     = "INVALID_PARAMS"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeCancelled         = "CANCELLED"
	CodeUnreachable       = "CATALOG_UNREACHABLE"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInconsistent      = "CATALOG_INCONSISTENT"
	CodeNotFound          = "NOT_FOUND"
	CodeNotAuthorized     = "NOT_AUTHORIZED"
	CodeClientError       = "CATALOG_CLIENT_ERROR"
	CodeServerError       = "CATALOG_SERVER_ERROR"
	CodeUnexpectedStatus  = "UNEXPECTED_STATUS"
	CodeUnsupported       = "UNSUPPORTED_RESOLUTION"
	CodeJobNotFound       = "JOB_NOT_FOUND"
	CodeBackupNotFound    = "BACKUP_NOT_FOUND"
	CodeUnknownIdentifier = "UNKNOWN_IDENTIFIER"
)

var (
	// ErrMethodNotFound indicates an unknown method name.
	ErrMethodNotFound = errors.New("method not found")
	// ErrInvalidParams indicates params that do not decode.
	ErrInvalidParams = errors.New("invalid params")
	// ErrUnknownIdentifier indicates an identifier no probe recognised.
	ErrUnknownIdentifier = errors.New("identifier not recognised")
)

// APIError represents an error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain and catalog errors to API error codes. Errors
// nothing knows about come back as nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var (
		clientErr     *catalog.ClientError
		serverErr     *catalog.ServerError
		unexpectedErr *catalog.UnexpectedStatusError
		resolutionErr *resolve.ResolutionError
	)
	switch {
	case errors.Is(err, catalog.ErrCancelled):
		return &APIError{Code: CodeCancelled, Message: "operation cancelled"}
	case errors.Is(err, ErrMethodNotFound):
		return &APIError{Code: CodeMethodNotFound, Message: err.Error()}
	case errors.Is(err, ErrInvalidParams):
		return &APIError{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, ErrUnknownIdentifier):
		return &APIError{Code: CodeUnknownIdentifier, Message: err.Error(), RecoveryHint: "Check the identifier or pass id_kind explicitly"}
	case errors.Is(err, catalog.ErrTransportDown):
		return &APIError{Code: CodeUnreachable, Message: "catalog service unreachable", RecoveryHint: "Check the network connection and catalog URL"}
	case errors.Is(err, catalog.ErrRateLimitExceeded):
		return &APIError{Code: CodeRateLimited, Message: "catalog service kept rate limiting", RecoveryHint: "Wait a minute and retry"}
	case errors.Is(err, catalog.ErrInconsistent):
		return &APIError{Code: CodeInconsistent, Message: "catalog service returned no response", RecoveryHint: "Retry the operation"}
	case errors.As(err, &resolutionErr):
		return &APIError{Code: CodeUnsupported, Message: resolutionErr.Error(), RecoveryHint: "Choose another target record kind"}
	case errors.As(err, &clientErr):
		return mapClientError(clientErr)
	case errors.As(err, &serverErr):
		return &APIError{Code: CodeServerError, Message: serverErr.Error(), Details: serverErr.Status}
	case errors.As(err, &unexpectedErr):
		return &APIError{Code: CodeUnexpectedStatus, Message: unexpectedErr.Error(), Details: unexpectedErr.Status}
	case errors.Is(err, bulk.ErrJobNotFound):
		return &APIError{Code: CodeJobNotFound, Message: "job not found", RecoveryHint: "Jobs are kept in memory; finished jobs age out"}
	case errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: CodeBackupNotFound, Message: "backup not found", RecoveryHint: "Call list_backups"}
	case errors.Is(err, bulk.ErrInvalidRequest),
		errors.Is(err, record.ErrUnknownKind),
		errors.Is(err, record.ErrInvalidRecord),
		errors.Is(err, identifier.ErrEmptyIdentifier),
		errors.Is(err, identifier.ErrInvalidAccession),
		errors.Is(err, mutation.ErrUnsupportedKind),
		errors.Is(err, mutation.ErrMissingID),
		errors.Is(err, backup.ErrInvalidInput):
		return &APIError{Code: CodeInvalidInput, Message: err.Error()}
	default:
		return nil
	}
}

func mapClientError(e *catalog.ClientError) *APIError {
	switch e.Status {
	case http.StatusNotFound:
		return &APIError{Code: CodeNotFound, Message: "record not found", RecoveryHint: "Check ID spelling"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &APIError{Code: CodeNotAuthorized, Message: e.Error(), RecoveryHint: "Check the catalog token and tenant"}
	default:
		return &APIError{Code: CodeClientError, Message: e.Message, Details: e.Details}
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
