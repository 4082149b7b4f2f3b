package service

import "github.com/iliyamo/oob-marketplace/internal/model"

// Authorize reports whether actor holds one of roles. It is the single
// capability check behind the role middleware, product mutations and
// session revocation.
func Authorize(actor model.User, roles ...model.Role) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

// AuthorizeOwner allows the owner of a resource or an admin.
func AuthorizeOwner(actor model.User, ownerID uint64) error {
	if actor.ID != 0 && actor.ID == ownerID {
		return nil
	}
	return Authorize(actor, model.RoleAdmin)
}
