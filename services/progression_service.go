package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"timeWalletAPI/internal/progression"
	"timeWalletAPI/internal/types/badge"
	"timeWalletAPI/internal/types/live"
	"timeWalletAPI/internal/types/notification"
	"timeWalletAPI/internal/types/streak"
	"timeWalletAPI/utils"
)

// ProgressionService persists what the pure rules in internal/progression
// decide: streak continuation and badge grants.
type ProgressionService struct {
	db           *pgxpool.Pool
	notifService *NotificationService
	liveFeed     *LiveFeedManager
}

func NewProgressionService(db *pgxpool.Pool, notifService *NotificationService, liveFeed *LiveFeedManager) *ProgressionService {
	return &ProgressionService{
		db:           db,
		notifService: notifService,
		liveFeed:     liveFeed,
	}
}

const streakColumns = `id, user_id, current_streak, longest_streak, last_action_date, total_goals_completed, created_at, updated_at`

// GetStreak returns the user's streak row, creating an empty one on first
// read. The insert-then-select keeps concurrent first reads convergent.
func (s *ProgressionService) GetStreak(ctx context.Context, clerkID string) (*streak.Streak, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	return s.getOrCreateStreak(ctx, userID)
}

func (s *ProgressionService) getOrCreateStreak(ctx context.Context, userID uuid.UUID) (*streak.Streak, error) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO streaks (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap streak: %w", err)
	}

	st := &streak.Streak{}
	err = s.db.QueryRow(ctx,
		`SELECT `+streakColumns+` FROM streaks WHERE user_id = $1`, userID).Scan(
		&st.ID, &st.UserID, &st.CurrentStreak, &st.LongestStreak,
		&st.LastActionDate, &st.TotalGoalsCompleted, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	return st, nil
}

func (s *ProgressionService) GetBadges(ctx context.Context, clerkID string) ([]*badge.Badge, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	return s.getBadges(ctx, userID)
}

func (s *ProgressionService) getBadges(ctx context.Context, userID uuid.UUID) ([]*badge.Badge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, badge_type, name, earned_at FROM badges WHERE user_id = $1 ORDER BY earned_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch badges: %w", err)
	}
	defer rows.Close()

	badges := make([]*badge.Badge, 0)
	for rows.Next() {
		b := &badge.Badge{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.Type, &b.Name, &b.EarnedAt); err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// RecordGoalCompletion applies one qualifying completion to the streak and
// then re-evaluates the badge thresholds against the new values. A second
// completion on the same calendar day leaves the row untouched and grants
// nothing.
func (s *ProgressionService) RecordGoalCompletion(ctx context.Context, userID uuid.UUID, now time.Time) (*streak.Streak, error) {
	cur, err := s.getOrCreateStreak(ctx, userID)
	if err != nil {
		return nil, err
	}

	next, changed := progression.NextStreak(*cur, now)
	if !changed {
		return cur, nil
	}

	_, err = s.db.Exec(ctx, `
		UPDATE streaks
		SET current_streak = $2, longest_streak = $3, last_action_date = $4,
		    total_goals_completed = $5, updated_at = NOW()
		WHERE user_id = $1
	`, userID, next.CurrentStreak, next.LongestStreak, next.LastActionDate, next.TotalGoalsCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to update streak: %w", err)
	}

	s.liveFeed.Publish(userID, live.KindStreak, "updated", next)

	owned, err := s.getBadges(ctx, userID)
	if err != nil {
		// Badge evaluation rides on the loaded list; without it we skip the
		// grants rather than risk duplicates.
		utils.Sugar.Errorf("Skipping badge evaluation for %s: %v", userID, err)
		return &next, nil
	}

	for _, rule := range progression.EligibleBadges(next, owned) {
		s.GrantBadge(ctx, userID, rule.Type, rule.Name)
	}

	return &next, nil
}

// GrantBadge inserts a badge if the user does not hold that type yet.
// The UNIQUE(user_id, badge_type) index makes racing grants collapse to one
// row, so a lost race is not an error.
func (s *ProgressionService) GrantBadge(ctx context.Context, userID uuid.UUID, badgeType badge.Type, name string) bool {
	result, err := s.db.Exec(ctx, `
		INSERT INTO badges (user_id, badge_type, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, badge_type) DO NOTHING
	`, userID, badgeType, name)
	if err != nil {
		utils.Sugar.Errorf("Failed to grant badge %s to %s: %v", badgeType, userID, err)
		return false
	}
	if result.RowsAffected() == 0 {
		return false
	}

	utils.Sugar.Infof("Granted badge %s (%s) to user %s", name, badgeType, userID)
	s.liveFeed.Publish(userID, live.KindBadge, "created", map[string]any{
		"badge_type": badgeType,
		"name":       name,
	})

	_, err = s.notifService.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID:  userID,
		Type:    notification.TypeBadgeEarned,
		Title:   "Badge earned!",
		Message: fmt.Sprintf("You earned the \"%s\" badge.", name),
		Data:    map[string]any{"badge_type": string(badgeType)},
	})
	if err != nil {
		utils.Sugar.Errorf("Failed to create badge notification: %v", err)
	}
	return true
}
