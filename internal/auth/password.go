package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/factory-report-service/internal/domain"
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// Account is a plaintext login table entry before hashing.
type Account struct {
	Username string
	Password string
	Name     string
	Role     domain.UserRole
}

// DefaultAccounts is the factory floor login table.
var DefaultAccounts = []Account{
	{Username: "john", Password: "tech123", Name: "John Smith", Role: domain.RoleTechnician},
	{Username: "sarah", Password: "tech456", Name: "Sarah Johnson", Role: domain.RoleTechnician},
	{Username: "mike", Password: "worker123", Name: "Mike Wilson", Role: domain.RoleWorker},
	{Username: "lisa", Password: "worker456", Name: "Lisa Brown", Role: domain.RoleWorker},
}

// HashAccounts turns plaintext accounts into stored credentials.
func HashAccounts(accounts []Account, cost int) ([]domain.Credential, error) {
	creds := make([]domain.Credential, 0, len(accounts))
	for _, acc := range accounts {
		hash, err := HashPassword(acc.Password, cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", acc.Username, err)
		}
		creds = append(creds, domain.Credential{
			Username:     acc.Username,
			PasswordHash: hash,
			Name:         acc.Name,
			Role:         acc.Role,
		})
	}
	return creds, nil
}
