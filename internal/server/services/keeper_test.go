package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/vaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func authValue(b byte) []byte {
	return bytes.Repeat([]byte{b}, cryptox.KeyLength)
}

func newService(t *testing.T) (*KeeperService, *sql.DB) {
	t.Helper()
	db, m := repotest.OpenSQLite(t)
	return NewKeeperService(db, m), db
}

func register(t *testing.T, s *KeeperService, email string, av []byte, vaultNames ...string) *models.Account {
	t.Helper()
	ctx := context.Background()

	acc, err := s.Register(ctx, email, av)
	require.NoError(t, err)
	for _, name := range vaultNames {
		require.NoError(t, s.CreateVault(ctx, acc.ID, name, []byte("wk-"+name), []byte("ct-"+name)))
	}
	return acc
}

// failingManager fails UpdateWrappedKey for one vault name.
type failingManager struct {
	repomanager.RepositoryManager
	failOn string
}

func (m *failingManager) Vaults(db dbx.DBTX) vaults.Repository {
	return &failingVaults{Repository: m.RepositoryManager.Vaults(db), failOn: m.failOn}
}

type failingVaults struct {
	vaults.Repository
	failOn string
}

func (v *failingVaults) UpdateWrappedKey(ctx context.Context, accountID int64, name string, wrappedKey []byte) error {
	if name == v.failOn {
		return errors.New("disk full")
	}
	return v.Repository.UpdateWrappedKey(ctx, accountID, name, wrappedKey)
}

// --- tests ---

func TestRegisterAndAuthenticate(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	acc := register(t, s, "alice@example.com", authValue(1))
	assert.NotEqual(t, string(authValue(1)), acc.AuthKey)

	got, err := s.Authenticate(ctx, "alice@example.com", authValue(1))
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)

	_, err = s.Authenticate(ctx, "alice@example.com", authValue(2))
	require.ErrorIs(t, err, common.ErrorInvalidCredentials)

	_, errUnknown := s.Authenticate(ctx, "nobody@example.com", authValue(1))
	require.ErrorIs(t, errUnknown, common.ErrorInvalidCredentials)
	assert.Equal(t, err.Error(), errUnknown.Error())

	_, err = s.Authenticate(ctx, "alice@example.com", []byte("short"))
	require.ErrorIs(t, err, common.ErrorInvalidCredentials)
}

func TestRegister_Rejected(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	register(t, s, "alice@example.com", authValue(1))

	_, err := s.Register(ctx, "alice@example.com", authValue(2))
	require.ErrorIs(t, err, common.ErrorDuplicateName)

	_, err = s.Register(ctx, "a@b.c", authValue(1))
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = s.Register(ctx, "bob@example.com", []byte("not-a-derived-value"))
	require.ErrorIs(t, err, common.ErrorValidation)
}

func TestVaultLifecycle(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	acc := register(t, s, "alice@example.com", authValue(1), "personal")

	names, err := s.ListVaults(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"personal"}, names)

	require.ErrorIs(t, s.CreateVault(ctx, acc.ID, "personal", []byte("k"), []byte("c")), common.ErrorDuplicateName)
	require.ErrorIs(t, s.CreateVault(ctx, acc.ID, "", []byte("k"), []byte("c")), common.ErrorDuplicateName)
	require.ErrorIs(t, s.CreateVault(ctx, 999, "x", []byte("k"), []byte("c")), common.ErrorNotFound)

	require.NoError(t, s.SaveVault(ctx, acc.ID, "personal", []byte("ct2")))
	require.NoError(t, s.UpdateVaultKey(ctx, acc.ID, "personal", []byte("wk2")))
	v, err := s.GetVault(ctx, acc.ID, "personal")
	require.NoError(t, err)
	assert.Equal(t, []byte("ct2"), v.Ciphertext)
	assert.Equal(t, []byte("wk2"), v.WrappedKey)

	require.ErrorIs(t, s.SaveVault(ctx, acc.ID, "missing", []byte("c")), common.ErrorNotFound)

	require.NoError(t, s.RenameVault(ctx, acc.ID, "personal", "home"))
	_, err = s.GetVault(ctx, acc.ID, "personal")
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.DeleteVault(ctx, acc.ID, "home"))
	names, err = s.ListVaults(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestChangeEmailAndAuthKey(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	acc := register(t, s, "alice@example.com", authValue(1))
	register(t, s, "bob@example.com", authValue(9))

	require.ErrorIs(t, s.ChangeEmail(ctx, acc.ID, "bob@example.com", authValue(2)), common.ErrorDuplicateName)

	require.NoError(t, s.ChangeEmail(ctx, acc.ID, "alice@example.org", authValue(2)))
	_, err := s.Authenticate(ctx, "alice@example.com", authValue(1))
	require.ErrorIs(t, err, common.ErrorInvalidCredentials)
	_, err = s.Authenticate(ctx, "alice@example.org", authValue(2))
	require.NoError(t, err)

	require.NoError(t, s.ChangeAuthKey(ctx, acc.ID, authValue(3)))
	require.NoError(t, s.VerifyAuth(ctx, acc.ID, authValue(3)))
	require.ErrorIs(t, s.VerifyAuth(ctx, acc.ID, authValue(2)), common.ErrorInvalidCredentials)
}

func TestDeleteAccount(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	acc := register(t, s, "alice@example.com", authValue(1), "a", "b")

	require.ErrorIs(t, s.DeleteAccount(ctx, acc.ID, authValue(2)), common.ErrorInvalidCredentials)
	_, err := s.GetVault(ctx, acc.ID, "a")
	require.NoError(t, err)

	require.NoError(t, s.DeleteAccount(ctx, acc.ID, authValue(1)))

	for _, name := range []string{"a", "b"} {
		_, err := s.GetVault(ctx, acc.ID, name)
		require.ErrorIs(t, err, common.ErrorNotFound)
	}
	_, err = s.Authenticate(ctx, "alice@example.com", authValue(1))
	require.ErrorIs(t, err, common.ErrorInvalidCredentials)

	require.ErrorIs(t, s.DeleteAccount(ctx, acc.ID, authValue(1)), common.ErrorInvalidCredentials)
}

func TestRotateKeys(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	acc := register(t, s, "alice@example.com", authValue(1), "a", "b")

	req := RotateKeysRequest{
		AccountID:    acc.ID,
		AuthValue:    authValue(1),
		NewAuthValue: authValue(2),
		WrappedKeys: []models.WrappedKeyUpdate{
			{VaultName: "a", WrappedKey: []byte("a2")},
			{VaultName: "b", WrappedKey: []byte("b2")},
		},
	}
	require.NoError(t, s.RotateKeys(ctx, req))

	require.NoError(t, s.VerifyAuth(ctx, acc.ID, authValue(2)))
	v, err := s.GetVault(ctx, acc.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("b2"), v.WrappedKey)

	// the old credential no longer authorizes a rotation
	require.ErrorIs(t, s.RotateKeys(ctx, req), common.ErrorInvalidCredentials)

	req.AuthValue = authValue(2)
	req.NewAuthValue = authValue(3)
	req.NewEmail = "alice@example.org"
	require.NoError(t, s.RotateKeys(ctx, req))
	got, err := s.Authenticate(ctx, "alice@example.org", authValue(3))
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestRotateKeys_StaleVaultList(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	acc := register(t, s, "alice@example.com", authValue(1), "a", "b")

	for name, keys := range map[string][]models.WrappedKeyUpdate{
		"missing vault": {{VaultName: "a", WrappedKey: []byte("x")}},
		"unknown vault": {{VaultName: "a", WrappedKey: []byte("x")}, {VaultName: "c", WrappedKey: []byte("x")}},
	} {
		t.Run(name, func(t *testing.T) {
			err := s.RotateKeys(ctx, RotateKeysRequest{AccountID: acc.ID, AuthValue: authValue(1), NewAuthValue: authValue(2), WrappedKeys: keys})
			require.ErrorIs(t, err, common.ErrorStaleVaultList)
		})
	}

	err := s.RotateKeys(ctx, RotateKeysRequest{
		AccountID: acc.ID, AuthValue: authValue(1), NewAuthValue: authValue(2),
		WrappedKeys: []models.WrappedKeyUpdate{{VaultName: "a", WrappedKey: []byte("x")}, {VaultName: "a", WrappedKey: []byte("y")}},
	})
	require.ErrorIs(t, err, common.ErrorValidation)

	require.NoError(t, s.VerifyAuth(ctx, acc.ID, authValue(1)))
	v, err := s.GetVault(ctx, acc.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("wk-a"), v.WrappedKey)
}

func TestRotateKeys_PartialFailureRollsBack(t *testing.T) {
	db, m := repotest.OpenSQLite(t)
	ctx := context.Background()

	acc := register(t, NewKeeperService(db, m), "alice@example.com", authValue(1), "a", "b", "c")

	s := NewKeeperService(db, &failingManager{RepositoryManager: m, failOn: "b"})
	err := s.RotateKeys(ctx, RotateKeysRequest{
		AccountID:    acc.ID,
		AuthValue:    authValue(1),
		NewAuthValue: authValue(2),
		WrappedKeys: []models.WrappedKeyUpdate{
			{VaultName: "a", WrappedKey: []byte("a2")},
			{VaultName: "b", WrappedKey: []byte("b2")},
			{VaultName: "c", WrappedKey: []byte("c2")},
		},
	})
	require.Error(t, err)

	require.NoError(t, s.VerifyAuth(ctx, acc.ID, authValue(1)))
	require.ErrorIs(t, s.VerifyAuth(ctx, acc.ID, authValue(2)), common.ErrorInvalidCredentials)
	v, err := s.GetVault(ctx, acc.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("wk-a"), v.WrappedKey)
}

func TestSaveVault_RollsBackOnStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE vaults").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	s := NewKeeperService(db, repomanager.NewPostgresRepositoryManager())
	err = s.SaveVault(context.Background(), 1, "personal", []byte("ct"))
	require.ErrorIs(t, err, common.ErrorStorage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListVaults_NoTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT name FROM vaults").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("personal"))

	s := NewKeeperService(db, repomanager.NewPostgresRepositoryManager())
	names, err := s.ListVaults(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"personal"}, names)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticate_WrongLengthSkipsLookup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewKeeperService(db, repomanager.NewPostgresRepositoryManager())
	ctx := context.Background()

	for _, email := range []string{"alice@example.com", "nobody@example.com"} {
		_, err := s.Authenticate(ctx, email, []byte{1})
		assert.ErrorIs(t, err, common.ErrorInvalidCredentials, email)
	}
	assert.ErrorIs(t, s.DeleteAccount(ctx, 1, make([]byte, cryptox.KeyLength+1)), common.ErrorInvalidCredentials)

	require.NoError(t, mock.ExpectationsWereMet())
}
