package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator checks credentials against an account store.
type Authenticator struct {
	accounts Accounts
	now      func() time.Time
}

func NewAuthenticator(accounts Accounts) *Authenticator {
	return &Authenticator{
		accounts: accounts,
		now:      time.Now,
	}
}

// WithClock overrides the clock used for expiry checks.
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	a.now = now
	return a
}

// dummyHash keeps the unknown-user path as slow as a real comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("hoitoportaali-dummy"), bcrypt.DefaultCost)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Lookup resolves an account of the given kind by username and password.
// A non-nil error means the store failed; every credential problem is
// reported through Reason with a nil account.
func (a *Authenticator) Lookup(ctx context.Context, kind Kind, username, password string) (*Account, Reason, error) {
	acc, err := a.accounts.GetByUsername(ctx, kind, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ReasonBadCredentials, nil
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ReasonBadCredentials, nil
	}
	if !acc.Active {
		return nil, ReasonInactive, nil
	}
	if acc.Expired(a.now()) {
		return nil, ReasonExpired, nil
	}
	return acc, ReasonOK, nil
}
