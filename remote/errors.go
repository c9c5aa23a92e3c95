package remote

import (
	"github.com/goliatone/go-crm-sync/core"
	goerrors "github.com/goliatone/go-errors"
)

func remoteError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(remoteTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func remoteWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return remoteError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(remoteTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func remoteTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.SyncErrorBadInput
	case goerrors.CategoryAuth:
		return core.SyncErrorRemoteUnauthorized
	case goerrors.CategoryExternal:
		return core.SyncErrorRemoteCallFailed
	default:
		return core.SyncErrorInternal
	}
}
