package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ml4ch/CoSESWeather/internal/models"
)

func setupAccountService(t *testing.T) (*memStore, *CredentialVerifier, *AccountService) {
	t.Helper()
	store := newMemStore()
	v := newTestVerifier(store)
	seedAccount(store, v, "Admin", "admin@station", "adminpw", true)
	seedAccount(store, v, "User", "user@station", "userpw", false)
	return store, v, NewAccountService(store, v, zap.NewNop())
}

func TestLogin_Success(t *testing.T) {
	store, _, svc := setupAccountService(t)
	previous := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.TouchLastLogin(context.Background(), "user@station", previous))

	now := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	result, err := svc.Login(context.Background(), "user@station", "userpw")
	require.NoError(t, err)
	assert.Equal(t, "User", result.Name)
	assert.False(t, result.Admin)
	require.NotNil(t, result.LastLogin)
	assert.True(t, previous.Equal(*result.LastLogin))

	assert.True(t, now.Equal(*store.accounts["user@station"].LastLogin))

	entries := store.auditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Successful login", entries[0].Action)
	assert.Equal(t, models.PriorityInfo, entries[0].Priority)
}

func TestLogin_FailuresAreSuspicious(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		secret   string
		reason   string
	}{
		{"unknown identity", "ghost@station", "userpw", "Incorrect username"},
		{"wrong secret", "user@station", "nope", "Incorrect password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, svc := setupAccountService(t)

			_, err := svc.Login(context.Background(), tt.identity, tt.secret)
			assert.ErrorIs(t, err, ErrAuthenticationFailed)

			entries := store.auditEntries()
			require.Len(t, entries, 1)
			assert.Equal(t, "Failed login attempt", entries[0].Action)
			assert.Equal(t, tt.reason, entries[0].Reason)
			assert.Equal(t, tt.identity, entries[0].Actor)
			assert.Equal(t, models.PrioritySuspicious, entries[0].Priority)
		})
	}
}

func TestLogin_AuditFailureRollsBack(t *testing.T) {
	store, _, svc := setupAccountService(t)
	store.failAppend = true

	_, err := svc.Login(context.Background(), "user@station", "userpw")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Nil(t, store.accounts["user@station"].LastLogin)
}

func TestChangeOwnPassword(t *testing.T) {
	store, v, svc := setupAccountService(t)
	ctx := context.Background()

	err := svc.ChangeOwnPassword(ctx, "user@station", "wrong", "newpw")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	oldSalt := store.accounts["user@station"].Salt
	require.NoError(t, svc.ChangeOwnPassword(ctx, "user@station", "userpw", "newpw"))
	assert.NotEqual(t, oldSalt, store.accounts["user@station"].Salt)

	ok, err := v.Verify(ctx, "user@station", "newpw", false)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = v.Verify(ctx, "user@station", "userpw", false)
	require.NoError(t, err)
	assert.False(t, ok)

	entries := store.auditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Password change", entries[0].Action)
}

func TestCreateAccount(t *testing.T) {
	store, v, svc := setupAccountService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "admin@station", NewAccount{Name: "New", Email: " new@station ", Secret: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "new@station", account.Email)
	assert.NotContains(t, account.Hash, "pw")

	ok, err := v.Verify(ctx, "new@station", "pw", false)
	require.NoError(t, err)
	assert.True(t, ok)

	entries := store.auditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Added new user account: new@station", entries[0].Action)
	assert.Equal(t, "admin@station", entries[0].Actor)
}

func TestCreateAccount_Duplicate(t *testing.T) {
	store, _, svc := setupAccountService(t)

	_, err := svc.CreateAccount(context.Background(), "admin@station", NewAccount{Name: "Dup", Email: "user@station", Secret: "pw"})
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.Empty(t, store.auditEntries())
}

func TestCreateAccount_AuditFailureRollsBack(t *testing.T) {
	store, _, svc := setupAccountService(t)
	store.failAppend = true

	_, err := svc.CreateAccount(context.Background(), "admin@station", NewAccount{Name: "X", Email: "x@station", Secret: "pw"})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	_, exists := store.accounts["x@station"]
	assert.False(t, exists)
}

func TestDeleteAccount(t *testing.T) {
	store, _, svc := setupAccountService(t)
	ctx := context.Background()

	err := svc.DeleteAccount(ctx, "admin@station", "ghost@station", "cleanup")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteAccount(ctx, "admin@station", "user@station", "left the project"))
	_, exists := store.accounts["user@station"]
	assert.False(t, exists)

	entries := store.auditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Deleted user account: user@station", entries[0].Action)
	assert.Equal(t, "left the project", entries[0].Reason)
}

func TestResetPassword(t *testing.T) {
	store, v, svc := setupAccountService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.ResetPassword(ctx, "admin@station", "ghost@station", "pw", ""), ErrNotFound)

	require.NoError(t, svc.ResetPassword(ctx, "admin@station", "user@station", "reset", "forgotten"))
	ok, err := v.Verify(ctx, "user@station", "reset", false)
	require.NoError(t, err)
	assert.True(t, ok)

	entries := store.auditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Account password changed for: user@station", entries[0].Action)
}

func TestSetPrivilege(t *testing.T) {
	store, v, svc := setupAccountService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetPrivilege(ctx, "admin@station", "user@station", true, "promotion"))
	ok, err := v.Verify(ctx, "user@station", "userpw", true)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, svc.SetPrivilege(ctx, "admin@station", "ghost@station", true, ""), ErrNotFound)
	assert.Len(t, store.auditEntries(), 1)
}

func TestListAccountsAndAdminEmails(t *testing.T) {
	_, _, svc := setupAccountService(t)
	ctx := context.Background()

	accounts, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.True(t, accounts[0].Admin)

	emails, err := svc.AdminEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin@station"}, emails)
}

func TestBootstrap(t *testing.T) {
	store := newMemStore()
	v := newTestVerifier(store)
	svc := NewAccountService(store, v, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Bootstrap(ctx, "Admin", "", "pw")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = svc.Bootstrap(ctx, "Admin", "root@station", "pw")
	require.NoError(t, err)
	assert.True(t, created)

	ok, err := v.Verify(ctx, "root@station", "pw", true)
	require.NoError(t, err)
	assert.True(t, ok)

	created, err = svc.Bootstrap(ctx, "Other", "other@station", "pw")
	require.NoError(t, err)
	assert.False(t, created)
}
