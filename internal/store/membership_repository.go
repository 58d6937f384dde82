package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"membership-service/internal/models"
)

// SQLMembershipRepository reads and writes the memberships table.
type SQLMembershipRepository struct {
	client *PostgresClient
	logger *zap.Logger
}

func NewMembershipRepository(client *PostgresClient, logger *zap.Logger) *SQLMembershipRepository {
	return &SQLMembershipRepository{client: client, logger: logger}
}

func (r *SQLMembershipRepository) GetByUserID(ctx context.Context, userID string) (*models.Membership, error) {
	var m models.Membership
	err := r.client.DB.QueryRowContext(ctx,
		`SELECT id, user_id, tier, status, stripe_subscription_id, created_at, updated_at
		 FROM memberships WHERE user_id = $1`, userID).
		Scan(&m.ID, &m.UserID, &m.Tier, &m.Status, &m.StripeSubscriptionID,
			&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan membership row: %w", err)
	}
	return &m, nil
}

func (r *SQLMembershipRepository) ActivateForUser(ctx context.Context, userID, tier string) error {
	_, err := r.client.DB.ExecContext(ctx,
		`INSERT INTO memberships (id, user_id, tier, status, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (user_id)
		 DO UPDATE SET tier = $3, status = $4, updated_at = now()`,
		uuid.NewString(), userID, tier, models.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to activate membership: %w", err)
	}

	r.logger.Info("Membership activated",
		zap.String("user_id", userID),
		zap.String("tier", tier))
	return nil
}
