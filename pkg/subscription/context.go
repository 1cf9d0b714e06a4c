package subscription

import (
	"context"

	"github.com/google/uuid"
)

type userIDCtxKey struct{}

// SetUserIDToContext stores the acting user's ID for request-scoped helpers
// such as the entitlement middleware. Core operations take the ID explicitly.
func SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, userID)
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDCtxKey{}).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}
