package authkit

import (
	"context"
	"errors"
)

// Register hashes the password and creates the account through the external
// store. Duplicate-email and duplicate-phone errors from the store pass
// through untouched so callers can map them; they are not retried.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	if e == nil || e.hasher == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	hash, err := e.hasher.Hash(input.Password)
	if err != nil {
		return nil, repoErr("hash password", err)
	}
	input.Password = ""

	account, err := e.accounts.Create(ctx, CreateAccountInput{
		Email:        input.Email,
		PhoneNumber:  input.PhoneNumber,
		FullName:     input.FullName,
		Role:         input.Role,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicatePhoneNumber) {
			return nil, err
		}
		return nil, repoErr("create account", err)
	}

	return account, nil
}
