package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"merchant-backoffice/config"
	"merchant-backoffice/internal/core/ports"
	"merchant-backoffice/pkg/apperror"
)

// AdminAuthImpl implements ports.AdminAuth against the configured
// console credentials. The back office has a single operator account;
// there is no admin user table.
type AdminAuthImpl struct {
	cfg      config.AdminConfig
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
}

// NewAdminAuth creates a new AdminAuthImpl.
func NewAdminAuth(cfg config.AdminConfig, hashSvc ports.HashService, tokenSvc ports.TokenService) *AdminAuthImpl {
	return &AdminAuthImpl{
		cfg:      cfg,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
	}
}

// Login validates console credentials and returns a JWT token.
func (s *AdminAuthImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) != 1 {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, s.cfg.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return token, expiry, nil
}
