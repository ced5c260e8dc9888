package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timeWalletAPI/internal/types/reminder"
)

type ReminderService struct {
	db *pgxpool.Pool
}

func NewReminderService(db *pgxpool.Pool) *ReminderService {
	return &ReminderService{db: db}
}

const reminderColumns = `id, user_id, title, description, remind_at, completed, created_at`

func scanReminder(row pgx.Row) (*reminder.Reminder, error) {
	r := &reminder.Reminder{}
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &r.RemindAt, &r.Completed, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReminderService) CreateReminder(ctx context.Context, clerkID string, req *reminder.CreateReminderRequest) (*reminder.Reminder, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.RemindAt.IsZero() {
		return nil, fmt.Errorf("remind_at is required")
	}

	r, err := scanReminder(s.db.QueryRow(ctx, `
		INSERT INTO reminders (user_id, title, description, remind_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+reminderColumns,
		userID, req.Title, req.Description, req.RemindAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return r, nil
}

func (s *ReminderService) GetReminders(ctx context.Context, clerkID string) ([]*reminder.Reminder, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = $1 ORDER BY remind_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reminders: %w", err)
	}
	defer rows.Close()

	reminders := make([]*reminder.Reminder, 0)
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// ToggleReminder flips the completed flag and returns the updated row.
func (s *ReminderService) ToggleReminder(ctx context.Context, clerkID string, reminderID uuid.UUID) (*reminder.Reminder, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	r, err := scanReminder(s.db.QueryRow(ctx, `
		UPDATE reminders SET completed = NOT completed
		WHERE id = $1 AND user_id = $2
		RETURNING `+reminderColumns, reminderID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("reminder not found")
		}
		return nil, fmt.Errorf("failed to toggle reminder: %w", err)
	}
	return r, nil
}

func (s *ReminderService) DeleteReminder(ctx context.Context, clerkID string, reminderID uuid.UUID) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM reminders WHERE id = $1 AND user_id = $2`, reminderID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("reminder not found")
	}
	return nil
}
