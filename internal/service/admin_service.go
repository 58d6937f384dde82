package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"membership-service/internal/config"
	"membership-service/internal/events"
	"membership-service/internal/store"
)

// AdminService promotes the first account to administrator. The club
// has at most one admin; the bootstrap call is gated by a shared secret
// and refused once an admin exists.
type AdminService struct {
	users  store.UserRepository
	secret string
	audit  AuditPublisher
	logger *zap.Logger
}

func NewAdminService(users store.UserRepository, cfg *config.Config, audit AuditPublisher, logger *zap.Logger) *AdminService {
	return &AdminService{
		users:  users,
		secret: cfg.Admin.SetupSecret,
		audit:  audit,
		logger: logger,
	}
}

// Bootstrap finds the account by email and promotes it. The existence
// check runs first for a clean 409, but the promotion itself is a
// guarded single-statement update, so two concurrent calls cannot both
// land; the loser also surfaces as ErrAdminExists.
func (s *AdminService) Bootstrap(ctx context.Context, email, passphrase string) error {
	if email == "" || passphrase == "" {
		return fmt.Errorf("%w: email and passphrase are required", ErrInvalidInput)
	}
	if s.secret == "" {
		return fmt.Errorf("%w: admin setup secret", ErrNotConfigured)
	}
	if subtle.ConstantTimeCompare([]byte(passphrase), []byte(s.secret)) != 1 {
		return ErrInvalidPassphrase
	}

	count, err := s.users.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing admin: %w", err)
	}
	if count > 0 {
		return ErrAdminExists
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: no account with that email", ErrUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	if err := s.users.PromoteToAdmin(ctx, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost the race: an admin appeared between check and write
			return ErrAdminExists
		}
		return fmt.Errorf("failed to promote account: %w", err)
	}

	s.logger.Info("Administrator bootstrapped",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email))
	s.audit.Publish(ctx, events.AdminPromoted, map[string]string{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return nil
}
