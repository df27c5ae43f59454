package service

import (
	"context"

	"github.com/mmynk/tripsplit/internal/auth"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/internal/websocket"
)

// SubscriberAuthorizer admits websocket subscribers holding a valid token
// for a member of the requested group.
func SubscriberAuthorizer(jwtManager *auth.JWTManager, groups storage.GroupStore) websocket.Authorizer {
	return func(ctx context.Context, token, groupID string) error {
		if token == "" {
			return auth.ErrMissingToken
		}
		claims, err := jwtManager.Validate(token)
		if err != nil {
			return err
		}
		_, err = memberGroup(ctx, groups, groupID, claims.Member())
		return err
	}
}
