package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/iliyamo/oob-marketplace/internal/model"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// cookieResolver maps refresh cookie values to users and counts lookups.
type cookieResolver struct {
	users map[string]model.User
	calls atomic.Int32
}

func (r *cookieResolver) ResolveIdentity(_ context.Context, raw string) (model.User, error) {
	r.calls.Add(1)
	u, ok := r.users[raw]
	if !ok {
		return model.User{}, errors.New("unknown session")
	}
	return u, nil
}

// userTable is a UserLookup backed by a map.
type userTable map[uint64]model.User

func (t userTable) UserByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := t[id]
	if !ok {
		return model.User{}, errors.New("not found")
	}
	return u, nil
}
