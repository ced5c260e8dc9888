package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"timeWalletAPI/internal/types/focus"
)

type FocusService struct {
	db *pgxpool.Pool
}

func NewFocusService(db *pgxpool.Pool) *FocusService {
	return &FocusService{db: db}
}

func (s *FocusService) RecordSession(ctx context.Context, clerkID string, req *focus.RecordSessionRequest) (*focus.Session, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive")
	}
	sessionType := req.SessionType
	if sessionType == "" {
		sessionType = focus.SessionWork
	}
	if sessionType != focus.SessionWork && sessionType != focus.SessionBreak {
		return nil, fmt.Errorf("invalid session type: %s", sessionType)
	}

	var goalID *uuid.UUID
	if req.GoalID != nil && *req.GoalID != "" {
		parsed, err := uuid.Parse(*req.GoalID)
		if err != nil {
			return nil, fmt.Errorf("invalid goal id")
		}
		goalID = &parsed
	}

	sess := &focus.Session{}
	err = s.db.QueryRow(ctx, `
		INSERT INTO focus_sessions (user_id, goal_id, duration_minutes, session_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, goal_id, duration_minutes, session_type, completed_at
	`, userID, goalID, req.DurationMinutes, sessionType).Scan(
		&sess.ID, &sess.UserID, &sess.GoalID, &sess.DurationMinutes, &sess.SessionType, &sess.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record focus session: %w", err)
	}
	return sess, nil
}

func (s *FocusService) GetSessions(ctx context.Context, clerkID string, limit int) ([]*focus.Session, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, goal_id, duration_minutes, session_type, completed_at
		FROM focus_sessions
		WHERE user_id = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch focus sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*focus.Session, 0)
	for rows.Next() {
		sess := &focus.Session{}
		err := rows.Scan(&sess.ID, &sess.UserID, &sess.GoalID, &sess.DurationMinutes, &sess.SessionType, &sess.CompletedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DailyStats sums work minutes per calendar day over the last `days` days.
// Break sessions are excluded from the chart.
func (s *FocusService) DailyStats(ctx context.Context, clerkID string, days int) ([]*focus.DailyStat, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	if days <= 0 || days > 365 {
		days = 30
	}

	rows, err := s.db.Query(ctx, `
		SELECT DATE_TRUNC('day', completed_at) AS day, COALESCE(SUM(duration_minutes), 0)
		FROM focus_sessions
		WHERE user_id = $1 AND session_type = 'work'
		  AND completed_at >= NOW() - ($2 || ' days')::INTERVAL
		GROUP BY day
		ORDER BY day
	`, userID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate focus stats: %w", err)
	}
	defer rows.Close()

	stats := make([]*focus.DailyStat, 0)
	for rows.Next() {
		st := &focus.DailyStat{}
		if err := rows.Scan(&st.Day, &st.Minutes); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
