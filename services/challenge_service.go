package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"timeWalletAPI/internal/progression"
	"timeWalletAPI/internal/types/badge"
	"timeWalletAPI/internal/types/challenge"
	"timeWalletAPI/internal/types/live"
	"timeWalletAPI/internal/types/notification"
	"timeWalletAPI/utils"
)

type ChallengeService struct {
	db           *pgxpool.Pool
	progService  *ProgressionService
	notifService *NotificationService
	liveFeed     *LiveFeedManager
}

func NewChallengeService(db *pgxpool.Pool, progService *ProgressionService, notifService *NotificationService, liveFeed *LiveFeedManager) *ChallengeService {
	return &ChallengeService{
		db:           db,
		progService:  progService,
		notifService: notifService,
		liveFeed:     liveFeed,
	}
}

func (s *ChallengeService) ListCatalog(ctx context.Context) ([]*challenge.Challenge, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, duration_days, target_goals, badge_reward, created_at
		FROM challenges
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenges: %w", err)
	}
	defer rows.Close()

	catalog := make([]*challenge.Challenge, 0)
	for rows.Next() {
		c := &challenge.Challenge{}
		err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.DurationDays, &c.TargetGoals, &c.BadgeReward, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		catalog = append(catalog, c)
	}
	return catalog, rows.Err()
}

func (s *ChallengeService) ListUserChallenges(ctx context.Context, clerkID string) ([]*challenge.UserChallengeWithCatalog, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT uc.id, uc.user_id, uc.challenge_id, uc.started_at, uc.completed_at, uc.goals_completed, uc.status,
		       c.id, c.name, c.description, c.duration_days, c.target_goals, c.badge_reward, c.created_at
		FROM user_challenges uc
		JOIN challenges c ON c.id = uc.challenge_id
		WHERE uc.user_id = $1
		ORDER BY uc.started_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user challenges: %w", err)
	}
	defer rows.Close()

	out := make([]*challenge.UserChallengeWithCatalog, 0)
	for rows.Next() {
		item := &challenge.UserChallengeWithCatalog{Challenge: &challenge.Challenge{}}
		err := rows.Scan(
			&item.ID, &item.UserID, &item.ChallengeID, &item.StartedAt, &item.CompletedAt,
			&item.GoalsCompleted, &item.Status,
			&item.Challenge.ID, &item.Challenge.Name, &item.Challenge.Description,
			&item.Challenge.DurationDays, &item.Challenge.TargetGoals,
			&item.Challenge.BadgeReward, &item.Challenge.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// JoinChallenge opts the user into a catalog challenge. Joining one the user
// is already active in is a no-op and returns nil without writing.
func (s *ChallengeService) JoinChallenge(ctx context.Context, clerkID string, challengeID uuid.UUID) (*challenge.UserChallenge, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM user_challenges
			WHERE user_id = $1 AND challenge_id = $2 AND status = 'active'
		)
	`, userID, challengeID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check active challenge: %w", err)
	}
	if exists {
		return nil, nil
	}

	uc := &challenge.UserChallenge{}
	err = s.db.QueryRow(ctx, `
		INSERT INTO user_challenges (user_id, challenge_id)
		VALUES ($1, $2)
		RETURNING id, user_id, challenge_id, started_at, completed_at, goals_completed, status
	`, userID, challengeID).Scan(
		&uc.ID, &uc.UserID, &uc.ChallengeID, &uc.StartedAt, &uc.CompletedAt, &uc.GoalsCompleted, &uc.Status,
	)
	if err != nil {
		var pgErr interface{ SQLState() string }
		if errors.As(err, &pgErr) && pgErr.SQLState() == "23503" {
			return nil, fmt.Errorf("challenge not found")
		}
		return nil, fmt.Errorf("failed to join challenge: %w", err)
	}

	s.liveFeed.Publish(userID, live.KindChallenge, "created", uc)
	return uc, nil
}

// AdvanceAll applies one completed goal to every active challenge the user
// holds. Completion grants the catalog's reward badge; expiry fails the row.
func (s *ChallengeService) AdvanceAll(ctx context.Context, userID uuid.UUID, now time.Time) error {
	rows, err := s.db.Query(ctx, `
		SELECT uc.id, uc.user_id, uc.challenge_id, uc.started_at, uc.completed_at, uc.goals_completed, uc.status,
		       c.id, c.name, c.description, c.duration_days, c.target_goals, c.badge_reward, c.created_at
		FROM user_challenges uc
		JOIN challenges c ON c.id = uc.challenge_id
		WHERE uc.user_id = $1 AND uc.status = 'active'
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch active challenges: %w", err)
	}

	type pair struct {
		uc  challenge.UserChallenge
		cat challenge.Challenge
	}
	var active []pair
	for rows.Next() {
		var p pair
		err := rows.Scan(
			&p.uc.ID, &p.uc.UserID, &p.uc.ChallengeID, &p.uc.StartedAt, &p.uc.CompletedAt,
			&p.uc.GoalsCompleted, &p.uc.Status,
			&p.cat.ID, &p.cat.Name, &p.cat.Description, &p.cat.DurationDays,
			&p.cat.TargetGoals, &p.cat.BadgeReward, &p.cat.CreatedAt,
		)
		if err != nil {
			rows.Close()
			return err
		}
		active = append(active, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range active {
		next, event := progression.AdvanceChallenge(p.uc, &p.cat, now)

		_, err := s.db.Exec(ctx, `
			UPDATE user_challenges
			SET goals_completed = $2, status = $3, completed_at = $4
			WHERE id = $1 AND status = 'active'
		`, next.ID, next.GoalsCompleted, next.Status, next.CompletedAt)
		if err != nil {
			utils.Sugar.Errorf("Failed to advance challenge %s: %v", next.ID, err)
			continue
		}

		s.liveFeed.Publish(userID, live.KindChallenge, "updated", next)

		switch event {
		case progression.ChallengeEventCompleted:
			s.progService.GrantBadge(ctx, userID, badge.Type(p.cat.BadgeReward), p.cat.Name)
			s.notify(ctx, userID, notification.TypeChallengeCompleted,
				"Challenge completed!",
				fmt.Sprintf("You finished the \"%s\" challenge.", p.cat.Name), p.cat.ID)
		case progression.ChallengeEventExpired:
			s.notify(ctx, userID, notification.TypeChallengeFailed,
				"Challenge expired",
				fmt.Sprintf("The \"%s\" challenge ended before you reached the target.", p.cat.Name), p.cat.ID)
		}
	}
	return nil
}

func (s *ChallengeService) notify(ctx context.Context, userID uuid.UUID, nt notification.NotificationType, title, message string, challengeID uuid.UUID) {
	_, err := s.notifService.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID:  userID,
		Type:    nt,
		Title:   title,
		Message: message,
		Data:    map[string]any{"challenge_id": challengeID.String()},
	})
	if err != nil {
		utils.Sugar.Errorf("Failed to create challenge notification: %v", err)
	}
}
