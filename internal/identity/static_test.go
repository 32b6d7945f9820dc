package identity_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zamcdf/cdf-portal/internal/identity"
)

func hashToken(t *testing.T, token string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestStaticVerifier(t *testing.T) {
	v := identity.NewStaticVerifier([]identity.StaticAccount{
		{
			TokenHash: hashToken(t, "seed-token"),
			Claims:    identity.Claims{PrincipalID: "svc-seeder", Roles: []string{"admin"}},
		},
	})

	claims, err := v.Verify(context.Background(), "seed-token")
	require.NoError(t, err)
	assert.Equal(t, "svc-seeder", claims.PrincipalID)

	_, err = v.Verify(context.Background(), "wrong-token")
	assert.ErrorIs(t, err, identity.ErrVerification)

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, identity.ErrVerification)
}

func TestStaticVerifierReturnsCopy(t *testing.T) {
	v := identity.NewStaticVerifier([]identity.StaticAccount{
		{
			TokenHash: hashToken(t, "tok"),
			Claims:    identity.Claims{PrincipalID: "svc-1"},
		},
	})

	first, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	first.PrincipalID = "tampered"

	second, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "svc-1", second.PrincipalID)
}

func TestLoadStaticAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
accounts:
  - token_hash: "$2a$04$notarealhashnotarealhashnotarealhash"
    claims:
      principal_id: svc-seeder
      roles: [admin]
`), 0o600))

	accounts, err := identity.LoadStaticAccounts(path)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "svc-seeder", accounts[0].Claims.PrincipalID)
	assert.Equal(t, []string{"admin"}, accounts[0].Claims.Roles)

	_, err = identity.LoadStaticAccounts(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
