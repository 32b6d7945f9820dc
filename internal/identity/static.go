package identity

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// StaticAccount is one locally configured service account: a bcrypt hash of
// its token plus the claims it maps to.
type StaticAccount struct {
	TokenHash string `yaml:"token_hash"`
	Claims    Claims `yaml:"claims"`
}

// StaticVerifier authenticates against a local account file instead of the
// identity provider. Development and seeding tooling only.
type StaticVerifier struct {
	accounts []StaticAccount
}

// NewStaticVerifier builds a verifier over the given accounts.
func NewStaticVerifier(accounts []StaticAccount) *StaticVerifier {
	return &StaticVerifier{accounts: accounts}
}

// LoadStaticAccounts reads service accounts from a YAML file.
func LoadStaticAccounts(path string) ([]StaticAccount, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}
	var file struct {
		Accounts []StaticAccount `yaml:"accounts"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("identity: parse %s: %w", path, err)
	}
	return file.Accounts, nil
}

// Verify compares the token against each account's bcrypt hash.
func (v *StaticVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrVerification
	}
	for i := range v.accounts {
		account := &v.accounts[i]
		if err := bcrypt.CompareHashAndPassword([]byte(account.TokenHash), []byte(token)); err == nil {
			claims := account.Claims
			return &claims, nil
		}
	}
	return nil, ErrVerification
}
