package auth

import (
	"context"

	"github.com/sakif/gameratings/internal/apperror"
	"github.com/sakif/gameratings/internal/model"
)

// MsgForbidden is the message for every ownership failure.
const MsgForbidden = "Forbidden: Access denied"

// Owns reports whether identity is the owner of a resource owned by ownerID.
// A nil identity owns nothing. There is no admin override.
func Owns(identity *model.User, ownerID int64) bool {
	return identity != nil && identity.ID == ownerID
}

// RequireOwner returns nil when the user in ctx owns the resource and a
// Forbidden AppError (rendered as 403) otherwise.
func RequireOwner(ctx context.Context, ownerID int64) error {
	user, _ := UserFromContext(ctx)
	if !Owns(user, ownerID) {
		return apperror.Forbidden(MsgForbidden)
	}
	return nil
}
