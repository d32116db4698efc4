package services

import (
	"context"
	"errors"

	"github.com/ml4ch/CoSESWeather/internal/crypto"
	"github.com/ml4ch/CoSESWeather/internal/models"
)

// CredentialVerifier checks a claimed identity/secret pair against the stored salted hash.
// It has no side effects; callers decide what to audit.
type CredentialVerifier struct {
	accounts AccountReader
	hasher   *crypto.Hasher
}

func NewCredentialVerifier(accounts AccountReader, hasher *crypto.Hasher) *CredentialVerifier {
	return &CredentialVerifier{accounts: accounts, hasher: hasher}
}

// Verify reports whether identity/secret match a stored account. With elevated set, a
// standard account is indistinguishable from an unknown one. The error is non-nil only
// when storage could not be reached.
func (v *CredentialVerifier) Verify(ctx context.Context, identity, secret string, elevated bool) (bool, error) {
	account, err := v.lookup(ctx, identity, elevated)
	if err != nil || account == nil {
		return false, err
	}
	return v.Matches(account, secret), nil
}

// Authenticate is Verify returning the matched account, or ErrAuthenticationFailed.
func (v *CredentialVerifier) Authenticate(ctx context.Context, identity, secret string, elevated bool) (*models.Account, error) {
	account, err := v.lookup(ctx, identity, elevated)
	if err != nil {
		return nil, err
	}
	if account == nil || !v.Matches(account, secret) {
		return nil, ErrAuthenticationFailed
	}
	return account, nil
}

// Matches recomputes hash(secret + salt) for account and compares in constant time.
func (v *CredentialVerifier) Matches(account *models.Account, secret string) bool {
	return v.hasher.Matches(secret, account.Salt, account.Hash)
}

// Derive produces a fresh salt and the hash of secret under it.
func (v *CredentialVerifier) Derive(secret string) (hash, salt string, err error) {
	salt, err = crypto.NewSalt()
	if err != nil {
		return "", "", err
	}
	hash, err = v.hasher.Hash(secret, salt)
	if errors.Is(err, crypto.ErrUnusableSecret) {
		return "", "", invalid("%v", err)
	}
	if err != nil {
		return "", "", err
	}
	return hash, salt, nil
}

func (v *CredentialVerifier) lookup(ctx context.Context, identity string, elevated bool) (*models.Account, error) {
	if identity == "" {
		return nil, nil
	}
	account, err := v.accounts.FindAccount(ctx, identity, elevated)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("find account", err)
	}
	return account, nil
}
