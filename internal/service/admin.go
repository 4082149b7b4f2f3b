package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/repository"
	"github.com/iliyamo/oob-marketplace/internal/utils"
)

// AdminStore extends UserStore with the writes used by operator tooling.
type AdminStore interface {
	UserStore
	SetPassword(ctx context.Context, id uint64, hash string) error
	SetRole(ctx context.Context, id uint64, role model.Role) error
}

// ProvisionInput describes the account an operator wants to exist.
// Password may be empty: a new account then has no password login, and an
// existing one keeps its password.
type ProvisionInput struct {
	Email    string
	Password string
	Name     string
	Role     model.Role
}

// ProvisionResult reports what ProvisionUser did.
type ProvisionResult struct {
	User        model.User
	Created     bool
	PasswordSet bool
	RoleChanged bool
}

// ProvisionUser creates the account or brings an existing one up to the
// requested role and password. This is the only way to give an OAuth-created
// account a password.
func ProvisionUser(ctx context.Context, users AdminStore, in ProvisionInput, bcryptCost int) (ProvisionResult, error) {
	email := model.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return ProvisionResult{}, ErrInvalidInput
	}
	if in.Role == "" {
		in.Role = model.RoleAdmin
	}
	role, ok := model.ParseRole(string(in.Role))
	if !ok {
		return ProvisionResult{}, ErrInvalidInput
	}
	in.Role = role
	hash := ""
	if in.Password != "" {
		h, err := utils.HashPassword(in.Password, bcryptCost)
		if err != nil {
			if errors.Is(err, utils.ErrSecretTooLong) {
				return ProvisionResult{}, ErrInvalidInput
			}
			return ProvisionResult{}, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	u, err := users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		u, err = users.Create(ctx, model.User{
			Email:        email,
			PasswordHash: hash,
			Name:         strings.TrimSpace(in.Name),
			Role:         in.Role,
		})
		if err != nil {
			return ProvisionResult{}, fmt.Errorf("create user: %w", err)
		}
		return ProvisionResult{User: u, Created: true, PasswordSet: hash != "", RoleChanged: true}, nil
	case err != nil:
		return ProvisionResult{}, fmt.Errorf("lookup user: %w", err)
	}

	res := ProvisionResult{User: u}
	if hash != "" {
		if err := users.SetPassword(ctx, u.ID, hash); err != nil {
			return ProvisionResult{}, fmt.Errorf("set password: %w", err)
		}
		res.User.PasswordHash = hash
		res.PasswordSet = true
	}
	if u.Role != in.Role {
		if err := users.SetRole(ctx, u.ID, in.Role); err != nil {
			return ProvisionResult{}, fmt.Errorf("set role: %w", err)
		}
		res.User.Role = in.Role
		res.RoleChanged = true
	}
	return res, nil
}
