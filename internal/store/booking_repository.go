package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"membership-service/internal/models"
)

// SQLBookingRepository reads and writes the bookings table.
type SQLBookingRepository struct {
	client *PostgresClient
	logger *zap.Logger
}

func NewBookingRepository(client *PostgresClient, logger *zap.Logger) *SQLBookingRepository {
	return &SQLBookingRepository{client: client, logger: logger}
}

func (r *SQLBookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	err := r.client.DB.QueryRowContext(ctx,
		`SELECT id, user_id, title, starts_at, ends_at, status, calendar_event_id, created_at
		 FROM bookings WHERE id = $1`, id).
		Scan(&b.ID, &b.UserID, &b.Title, &b.StartsAt, &b.EndsAt, &b.Status,
			&b.CalendarEventID, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking row: %w", err)
	}
	return &b, nil
}

func (r *SQLBookingRepository) SetCalendarEventID(ctx context.Context, id, eventID string) error {
	return r.updateOne(ctx,
		`UPDATE bookings SET calendar_event_id = $1 WHERE id = $2`, eventID, id)
}

func (r *SQLBookingRepository) ClearCalendarEventID(ctx context.Context, id string) error {
	return r.updateOne(ctx,
		`UPDATE bookings SET calendar_event_id = NULL WHERE id = $1`, id)
}

func (r *SQLBookingRepository) Cancel(ctx context.Context, id string) error {
	err := r.updateOne(ctx,
		`UPDATE bookings SET status = $1 WHERE id = $2`, models.StatusCancelled, id)
	if err != nil {
		return err
	}
	r.logger.Info("Booking cancelled", zap.String("booking_id", id))
	return nil
}

func (r *SQLBookingRepository) updateOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.client.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read booking update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
