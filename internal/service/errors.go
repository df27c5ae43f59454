package service

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsplit/internal/auth"
	"github.com/mmynk/tripsplit/internal/middleware"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

var (
	ErrNotMember       = errors.New("not a member of this group")
	ErrGroupIDRequired = errors.New("group_id required")
)

// storageError maps storage sentinels to Connect codes.
func storageError(err error) *connect.Error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrVersionConflict):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, storage.ErrAlreadyExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func invalidArgument(format string, args ...any) *connect.Error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}

// requireActor returns the member identifier of the authenticated caller.
func requireActor(ctx context.Context) (string, error) {
	actor := middleware.GetEmail(ctx)
	if actor == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return actor, nil
}

// memberGroup loads a group and checks that actor is on its roster.
func memberGroup(ctx context.Context, groups storage.GroupStore, groupID, actor string) (*models.Group, error) {
	if groupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrGroupIDRequired)
	}
	group, err := groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storageError(err)
	}
	if !group.HasMember(actor) {
		return nil, connect.NewError(connect.CodePermissionDenied, ErrNotMember)
	}
	return group, nil
}
