package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"membership-service/internal/models"
)

// SQLUserRepository reads and writes the users and sessions tables.
type SQLUserRepository struct {
	client *PostgresClient
	logger *zap.Logger
}

func NewUserRepository(client *PostgresClient, logger *zap.Logger) *SQLUserRepository {
	return &SQLUserRepository{client: client, logger: logger}
}

const userColumns = `id, email, role, status, stripe_customer_id,
	google_access_token, google_refresh_token, google_token_expiry,
	created_at, updated_at`

func (r *SQLUserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Role, &u.Status, &u.StripeCustomerID,
		&u.GoogleAccessToken, &u.GoogleRefreshToken, &u.GoogleTokenExpiry,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user row: %w", err)
	}
	return &u, nil
}

func (r *SQLUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.client.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.scanUser(row)
}

func (r *SQLUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.client.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return r.scanUser(row)
}

// GetBySessionToken resolves a bearer token through the sessions table.
// Expired sessions resolve to ErrNotFound.
func (r *SQLUserRepository) GetBySessionToken(ctx context.Context, token string) (*models.User, error) {
	row := r.client.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u
		 JOIN sessions s ON s.user_id = u.id
		 WHERE s.token = $1 AND s.expires_at > now()`, token)
	return r.scanUser(row)
}

func (r *SQLUserRepository) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := r.client.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM users WHERE role = $1`, models.RoleAdmin).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}

// PromoteToAdmin is a single-statement compare-and-swap: the update only
// lands while no admin row exists, so two concurrent bootstrap calls
// cannot both succeed.
func (r *SQLUserRepository) PromoteToAdmin(ctx context.Context, id string) error {
	res, err := r.client.DB.ExecContext(ctx,
		`UPDATE users SET role = $1, status = $2, updated_at = now()
		 WHERE id = $3
		 AND NOT EXISTS (SELECT 1 FROM users WHERE role = $1)`,
		models.RoleAdmin, models.StatusActive, id)
	if err != nil {
		return fmt.Errorf("failed to promote user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read promote result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	r.logger.Info("User promoted to admin", zap.String("user_id", id))
	return nil
}

func (r *SQLUserRepository) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.client.DB.ExecContext(ctx,
		`UPDATE users SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read status update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLUserRepository) SaveGoogleTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	res, err := r.client.DB.ExecContext(ctx,
		`UPDATE users SET google_access_token = $1, google_refresh_token = $2,
		 google_token_expiry = $3, updated_at = now() WHERE id = $4`,
		accessToken, refreshToken, expiry, id)
	if err != nil {
		return fmt.Errorf("failed to save google tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read token update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLUserRepository) GetCalendarAccount(ctx context.Context) (*models.User, error) {
	row := r.client.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE role = $1 AND google_refresh_token IS NOT NULL
		 ORDER BY updated_at DESC NULLS LAST
		 LIMIT 1`, models.RoleAdmin)
	return r.scanUser(row)
}
