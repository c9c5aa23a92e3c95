package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

var (
	ErrFieldmapNotFound   = errors.New("core: fieldmap not found")
	ErrObjectMapNotFound  = errors.New("core: object map not found")
	ErrRemoteUnauthorized = errors.New("core: remote session is not authorized")
)

const (
	SyncErrorBadInput           = "SYNC_BAD_INPUT"
	SyncErrorConfiguration      = "SYNC_CONFIGURATION_INVALID"
	SyncErrorFieldmapNotFound   = "SYNC_FIELDMAP_NOT_FOUND"
	SyncErrorObjectMapNotFound  = "SYNC_OBJECT_MAP_NOT_FOUND"
	SyncErrorPolicyDenied       = "SYNC_POLICY_DENIED"
	SyncErrorRemoteUnauthorized = "SYNC_REMOTE_UNAUTHORIZED"
	SyncErrorRemoteCallFailed   = "SYNC_REMOTE_CALL_FAILED"
	SyncErrorAmbiguousMatch     = "SYNC_AMBIGUOUS_MATCH"
	SyncErrorStaleWrite         = "SYNC_STALE_WRITE"
	SyncErrorInternal           = "SYNC_INTERNAL_ERROR"
)

func syncErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSyncErrorEnvelope(richErr)
	}

	// Wrap keeps the sentinel reachable through errors.Is.
	switch {
	case errors.Is(err, ErrFieldmapNotFound):
		return wrapSyncError(err, goerrors.CategoryNotFound, SyncErrorFieldmapNotFound)
	case errors.Is(err, ErrObjectMapNotFound):
		return wrapSyncError(err, goerrors.CategoryNotFound, SyncErrorObjectMapNotFound)
	case errors.Is(err, ErrRemoteUnauthorized):
		return wrapSyncError(err, goerrors.CategoryAuth, SyncErrorRemoteUnauthorized)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "ambiguous"):
		return wrapSyncError(err, goerrors.CategoryConflict, SyncErrorAmbiguousMatch)
	case strings.Contains(msg, "stale"):
		return wrapSyncError(err, goerrors.CategoryConflict, SyncErrorStaleWrite)
	case strings.Contains(msg, "not allowed"), strings.Contains(msg, "denied"):
		return wrapSyncError(err, goerrors.CategoryAuthz, SyncErrorPolicyDenied)
	case strings.Contains(msg, "remote"), strings.Contains(msg, "transport"):
		return wrapSyncError(err, goerrors.CategoryExternal, SyncErrorRemoteCallFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "unknown"):
		return wrapSyncError(err, goerrors.CategoryBadInput, SyncErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSyncErrorEnvelope(mapped)
}

func wrapSyncError(err error, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureSyncErrorEnvelope(
		goerrors.Wrap(err, category, err.Error()).
			WithTextCode(textCode),
	)
}

func newSyncError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureSyncErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureSyncErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = syncHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSyncTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSyncTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return SyncErrorBadInput
	case goerrors.CategoryNotFound:
		return SyncErrorFieldmapNotFound
	case goerrors.CategoryAuth:
		return SyncErrorRemoteUnauthorized
	case goerrors.CategoryAuthz:
		return SyncErrorPolicyDenied
	case goerrors.CategoryConflict:
		return SyncErrorAmbiguousMatch
	case goerrors.CategoryExternal:
		return SyncErrorRemoteCallFailed
	default:
		return SyncErrorInternal
	}
}

func syncHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
