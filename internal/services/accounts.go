package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ml4ch/CoSESWeather/internal/models"
)

// LoginResult is returned on successful login. LastLogin is the previous login time.
type LoginResult struct {
	Name      string     `json:"user"`
	Email     string     `json:"email"`
	Admin     bool       `json:"admin"`
	LastLogin *time.Time `json:"lastLogin"`
}

type NewAccount struct {
	Name   string
	Email  string
	Secret string
	Admin  bool
}

// AccountService runs account operations. Every mutation commits together with its
// audit entry.
type AccountService struct {
	store    PrimaryStore
	verifier *CredentialVerifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewAccountService(store PrimaryStore, verifier *CredentialVerifier, logger *zap.Logger) *AccountService {
	return &AccountService{store: store, verifier: verifier, logger: logger, now: time.Now}
}

// Login checks the credentials and records the outcome. Failed attempts are logged as
// suspicious with the failing part as reason, but the caller only sees
// ErrAuthenticationFailed.
func (s *AccountService) Login(ctx context.Context, identity, secret string) (*LoginResult, error) {
	account, err := s.store.FindAccount(ctx, identity, false)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, s.failedLogin(ctx, identity, "Incorrect username")
	case err != nil:
		return nil, storageErr("find account", err)
	}
	if !s.verifier.Matches(account, secret) {
		return nil, s.failedLogin(ctx, identity, "Incorrect password")
	}

	result := &LoginResult{
		Name:      account.Name,
		Email:     account.Email,
		Admin:     account.Admin,
		LastLogin: account.LastLogin,
	}
	err = s.store.Transaction(ctx, func(tx PrimaryStore) error {
		if err := tx.TouchLastLogin(ctx, account.Email, s.now()); err != nil {
			return storageErr("update last login", err)
		}
		return s.audit(ctx, tx, account.Email, "Successful login", "", models.PriorityInfo)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AccountService) failedLogin(ctx context.Context, identity, reason string) error {
	if err := s.audit(ctx, s.store, identity, "Failed login attempt", reason, models.PrioritySuspicious); err != nil {
		return err
	}
	s.logger.Warn("failed login attempt", zap.String("identity", identity), zap.String("reason", reason))
	return ErrAuthenticationFailed
}

// ChangeOwnPassword re-verifies the old secret before rotating salt and hash.
func (s *AccountService) ChangeOwnPassword(ctx context.Context, identity, oldSecret, newSecret string) error {
	if newSecret == "" {
		return invalid("new secret must not be empty")
	}
	account, err := s.verifier.Authenticate(ctx, identity, oldSecret, false)
	if err != nil {
		return err
	}
	return s.rotate(ctx, account.Email, newSecret, account.Email, "Password change", "")
}

func (s *AccountService) CreateAccount(ctx context.Context, actor string, in NewAccount) (*models.Account, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Secret == "" {
		return nil, invalid("email and secret are required")
	}
	hash, salt, err := s.verifier.Derive(in.Secret)
	if err != nil {
		return nil, err
	}
	account := &models.Account{
		Name:  in.Name,
		Email: in.Email,
		Hash:  hash,
		Salt:  salt,
		Admin: in.Admin,
	}
	err = s.store.Transaction(ctx, func(tx PrimaryStore) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return storageErr("create account", err)
		}
		return s.audit(ctx, tx, actor, "Added new user account: "+account.Email, "", models.PriorityInfo)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account created", zap.String("email", account.Email), zap.Bool("admin", account.Admin), zap.String("actor", actor))
	return account, nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, actor, email, reason string) error {
	return s.store.Transaction(ctx, func(tx PrimaryStore) error {
		if err := tx.DeleteAccount(ctx, email); err != nil {
			return storageErr("delete account", err)
		}
		return s.audit(ctx, tx, actor, "Deleted user account: "+email, reason, models.PriorityInfo)
	})
}

// ResetPassword is the admin path: no re-verification of the old secret.
func (s *AccountService) ResetPassword(ctx context.Context, actor, email, secret, reason string) error {
	if secret == "" {
		return invalid("secret must not be empty")
	}
	return s.rotate(ctx, email, secret, actor, "Account password changed for: "+email, reason)
}

func (s *AccountService) SetPrivilege(ctx context.Context, actor, email string, admin bool, reason string) error {
	return s.store.Transaction(ctx, func(tx PrimaryStore) error {
		if err := tx.SetAdmin(ctx, email, admin); err != nil {
			return storageErr("set privilege", err)
		}
		return s.audit(ctx, tx, actor, "Account privilege changed for: "+email, reason, models.PriorityInfo)
	})
}

// ListAccounts returns all accounts, admins first.
func (s *AccountService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, storageErr("list accounts", err)
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}

func (s *AccountService) AdminEmails(ctx context.Context) ([]string, error) {
	emails, err := s.store.AdminEmails(ctx)
	if err != nil {
		return nil, storageErr("list admin emails", err)
	}
	if emails == nil {
		emails = []string{}
	}
	return emails, nil
}

// Bootstrap creates the first admin when the account table is empty. It is a no-op
// when email is unset or any account exists.
func (s *AccountService) Bootstrap(ctx context.Context, name, email, secret string) (bool, error) {
	if email == "" || secret == "" {
		return false, nil
	}
	n, err := s.store.CountAccounts(ctx)
	if err != nil {
		return false, storageErr("count accounts", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateAccount(ctx, "system", NewAccount{Name: name, Email: email, Secret: secret, Admin: true}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *AccountService) rotate(ctx context.Context, email, secret, actor, action, reason string) error {
	hash, salt, err := s.verifier.Derive(secret)
	if err != nil {
		return err
	}
	return s.store.Transaction(ctx, func(tx PrimaryStore) error {
		if err := tx.UpdateSecret(ctx, email, hash, salt); err != nil {
			return storageErr("update secret", err)
		}
		return s.audit(ctx, tx, actor, action, reason, models.PriorityInfo)
	})
}

func (s *AccountService) audit(ctx context.Context, store AuditStore, actor, action, reason string, priority int) error {
	entry, err := newAuditEntry(actor, action, reason, priority, nil)
	if err != nil {
		return err
	}
	return appendAudit(ctx, store, entry)
}
