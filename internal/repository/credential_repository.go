package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/factory-report-service/internal/domain"
)

// ErrCredentialNotFound is returned for unknown usernames.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRepository looks up login credentials by username.
type CredentialRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.Credential, error)
}

type staticCredentialRepository struct {
	byUsername map[string]domain.Credential
}

// NewStaticCredentialRepository serves a fixed credential table. Usernames are
// matched case-insensitively.
func NewStaticCredentialRepository(credentials []domain.Credential) CredentialRepository {
	byUsername := make(map[string]domain.Credential, len(credentials))
	for _, cred := range credentials {
		byUsername[strings.ToLower(cred.Username)] = cred
	}
	return &staticCredentialRepository{byUsername: byUsername}
}

func (r *staticCredentialRepository) GetByUsername(_ context.Context, username string) (*domain.Credential, error) {
	cred, ok := r.byUsername[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	return &cred, nil
}
