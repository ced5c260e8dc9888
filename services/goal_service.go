package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timeWalletAPI/internal/progression"
	"timeWalletAPI/internal/types/goal"
	"timeWalletAPI/internal/types/live"
	"timeWalletAPI/internal/types/notification"
	"timeWalletAPI/internal/types/transaction"
	"timeWalletAPI/middleware"
	"timeWalletAPI/utils"
)

type GoalService struct {
	db               *pgxpool.Pool
	progService      *ProgressionService
	challengeService *ChallengeService
	notifService     *NotificationService
	liveFeed         *LiveFeedManager
}

func NewGoalService(db *pgxpool.Pool, progService *ProgressionService, challengeService *ChallengeService, notifService *NotificationService, liveFeed *LiveFeedManager) *GoalService {
	return &GoalService{
		db:               db,
		progService:      progService,
		challengeService: challengeService,
		notifService:     notifService,
		liveFeed:         liveFeed,
	}
}

const goalColumns = `id, user_id, title, description, category, deadline, allocated_seconds, status, completed_at, created_at, updated_at`
const taskColumns = `id, goal_id, title, description, position, completed, completed_at, created_at`

func scanGoal(row pgx.Row) (*goal.Goal, error) {
	g := &goal.Goal{}
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.Category, &g.Deadline,
		&g.AllocatedSeconds, &g.Status, &g.CompletedAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func scanTask(row pgx.Row) (*goal.Task, error) {
	t := &goal.Task{}
	err := row.Scan(&t.ID, &t.GoalID, &t.Title, &t.Description, &t.Position,
		&t.Completed, &t.CompletedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *GoalService) CreateGoal(ctx context.Context, clerkID string, req *goal.CreateGoalRequest) (*goal.Goal, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.AllocatedSeconds < 0 {
		return nil, fmt.Errorf("allocated time cannot be negative")
	}
	category := req.Category
	if category == "" {
		category = "general"
	}

	g, err := scanGoal(s.db.QueryRow(ctx, `
		INSERT INTO goals (user_id, title, description, category, deadline, allocated_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+goalColumns,
		userID, req.Title, req.Description, category, req.Deadline, req.AllocatedSeconds))
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	s.liveFeed.Publish(userID, live.KindGoal, "created", g)
	return g, nil
}

func (s *GoalService) GetGoals(ctx context.Context, clerkID string, status goal.Status) ([]*goal.Goal, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = $1`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY deadline`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch goals: %w", err)
	}
	defer rows.Close()

	goals := make([]*goal.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *GoalService) GetGoal(ctx context.Context, clerkID string, goalID uuid.UUID) (*goal.GoalWithTasks, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	g, err := scanGoal(s.db.QueryRow(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("goal not found")
		}
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE goal_id = $1 ORDER BY position, created_at`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	defer rows.Close()

	out := &goal.GoalWithTasks{Goal: *g, Tasks: make([]*goal.Task, 0)}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out.Tasks = append(out.Tasks, t)
	}
	return out, rows.Err()
}

// UpdateGoal patches an ongoing goal. Completed and failed goals are
// immutable; the only thing left to do with them is delete.
func (s *GoalService) UpdateGoal(ctx context.Context, clerkID string, goalID uuid.UUID, req *goal.UpdateGoalRequest) (*goal.Goal, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	g, err := scanGoal(s.db.QueryRow(ctx, `
		UPDATE goals
		SET
			title = COALESCE(NULLIF($3, ''), title),
			description = COALESCE($4, description),
			category = COALESCE(NULLIF($5, ''), category),
			deadline = COALESCE($6, deadline),
			allocated_seconds = COALESCE($7, allocated_seconds),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'ongoing'
		RETURNING `+goalColumns,
		goalID, userID, req.Title, req.Description, req.Category, req.Deadline, req.AllocatedSeconds))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("goal not found or no longer ongoing")
		}
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	s.liveFeed.Publish(userID, live.KindGoal, "updated", g)
	return g, nil
}

// DeleteGoal removes a goal and its tasks. Earned credit stays on the
// balance; deletion is never a refund path, so delete-and-recreate cannot
// farm the completion credit.
func (s *GoalService) DeleteGoal(ctx context.Context, clerkID string, goalID uuid.UUID) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("goal not found")
	}

	s.liveFeed.Publish(userID, live.KindGoal, "deleted", map[string]any{"id": goalID})
	return nil
}

func (s *GoalService) AddTask(ctx context.Context, clerkID string, goalID uuid.UUID, req *goal.CreateTaskRequest) (*goal.Task, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	var status goal.Status
	err = s.db.QueryRow(ctx,
		`SELECT status FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("goal not found")
		}
		return nil, fmt.Errorf("failed to check goal: %w", err)
	}
	if status.Terminal() {
		return nil, fmt.Errorf("goal is already %s", status)
	}

	t, err := scanTask(s.db.QueryRow(ctx, `
		INSERT INTO tasks (goal_id, title, description, position)
		VALUES ($1, $2, $3, $4)
		RETURNING `+taskColumns,
		goalID, req.Title, req.Description, req.Position))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.liveFeed.Publish(userID, live.KindTask, "created", t)
	return t, nil
}

func (s *GoalService) DeleteTask(ctx context.Context, clerkID string, taskID uuid.UUID) error {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, `
		DELETE FROM tasks t
		USING goals g
		WHERE t.id = $1 AND g.id = t.goal_id AND g.user_id = $2 AND g.status = 'ongoing'
	`, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("task not found or goal is settled")
	}

	s.liveFeed.Publish(userID, live.KindTask, "deleted", map[string]any{"id": taskID})
	return nil
}

// CompleteTask marks one task done. When that was the last open task the
// goal settles in the same database transaction: status flip plus, on the
// completion path, the atomic balance credit and the ledger append. The
// streak/badge/challenge follow-up runs after commit; those are separate
// best-effort writes by design.
func (s *GoalService) CompleteTask(ctx context.Context, clerkID string, taskID uuid.UUID) (*goal.CompletionResult, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the goal row so two completions of sibling tasks settle once.
	g := &goal.Goal{}
	err = tx.QueryRow(ctx, `
		SELECT g.id, g.user_id, g.title, g.description, g.category, g.deadline,
		       g.allocated_seconds, g.status, g.completed_at, g.created_at, g.updated_at
		FROM goals g
		JOIN tasks t ON t.goal_id = g.id
		WHERE t.id = $1 AND g.user_id = $2
		FOR UPDATE OF g
	`, taskID, userID).Scan(
		&g.ID, &g.UserID, &g.Title, &g.Description, &g.Category, &g.Deadline,
		&g.AllocatedSeconds, &g.Status, &g.CompletedAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task not found")
		}
		return nil, fmt.Errorf("failed to load goal for task: %w", err)
	}
	if g.Status.Terminal() {
		return nil, fmt.Errorf("goal is already %s", g.Status)
	}

	t := &goal.Task{}
	err = tx.QueryRow(ctx, `
		UPDATE tasks SET completed = TRUE, completed_at = $2
		WHERE id = $1 AND NOT completed
		RETURNING `+taskColumns, taskID, now).Scan(
		&t.ID, &t.GoalID, &t.Title, &t.Description, &t.Position, &t.Completed, &t.CompletedAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task already completed")
		}
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	var openTasks int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE goal_id = $1 AND NOT completed`, g.ID).Scan(&openTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to count open tasks: %w", err)
	}

	result := &goal.CompletionResult{Task: t, GoalStatus: g.Status}

	var outcome progression.GoalOutcome
	settled := openTasks == 0
	if settled {
		outcome = progression.SettleGoal(g, now)
		result.GoalStatus = outcome.Status

		_, err = tx.Exec(ctx, `
			UPDATE goals SET status = $2, completed_at = $3, updated_at = NOW()
			WHERE id = $1
		`, g.ID, outcome.Status, now)
		if err != nil {
			return nil, fmt.Errorf("failed to settle goal: %w", err)
		}

		if outcome.CreditSeconds > 0 {
			// Atomic increment, not read-modify-write: concurrent credits
			// from other sessions must not lose updates.
			_, err = tx.Exec(ctx, `
				UPDATE users SET balance_seconds = balance_seconds + $2, updated_at = NOW()
				WHERE id = $1
			`, userID, outcome.CreditSeconds)
			if err != nil {
				return nil, fmt.Errorf("failed to credit balance: %w", err)
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO transactions (user_id, goal_id, amount_seconds, reason, type)
				VALUES ($1, $2, $3, $4, $5)
			`, userID, g.ID, outcome.CreditSeconds,
				fmt.Sprintf("Completed goal: %s", g.Title), transaction.TypeGoalReward)
			if err != nil {
				return nil, fmt.Errorf("failed to append transaction: %w", err)
			}
			result.Credited = outcome.CreditSeconds
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	s.liveFeed.Publish(userID, live.KindTask, "updated", t)

	if settled {
		s.afterSettlement(ctx, userID, g, outcome, now)
	}

	return result, nil
}

// afterSettlement runs the progression follow-up once the settlement has
// committed. Each step is independent; a failure is logged and the rest
// still run.
func (s *GoalService) afterSettlement(ctx context.Context, userID uuid.UUID, g *goal.Goal, outcome progression.GoalOutcome, now time.Time) {
	middleware.CountGoalSettlement(string(outcome.Status))
	s.liveFeed.Publish(userID, live.KindGoal, "updated", map[string]any{
		"id":     g.ID,
		"status": outcome.Status,
	})

	if outcome.Status == goal.StatusFailed {
		s.notifySettlement(ctx, userID, g, notification.TypeGoalFailed,
			"Goal failed", fmt.Sprintf("\"%s\" missed its deadline.", g.Title))
		return
	}

	s.liveFeed.Publish(userID, live.KindBalance, "updated", map[string]any{
		"credited_seconds": outcome.CreditSeconds,
	})
	s.liveFeed.Publish(userID, live.KindTransaction, "created", map[string]any{
		"goal_id":        g.ID,
		"amount_seconds": outcome.CreditSeconds,
	})
	s.notifySettlement(ctx, userID, g, notification.TypeGoalCompleted,
		"Goal completed!", fmt.Sprintf("\"%s\" is done. %d minutes credited.", g.Title, outcome.CreditSeconds/60))

	if _, err := s.progService.RecordGoalCompletion(ctx, userID, now); err != nil {
		utils.Sugar.Errorf("Streak update failed for user %s: %v", userID, err)
	}
	if err := s.challengeService.AdvanceAll(ctx, userID, now); err != nil {
		utils.Sugar.Errorf("Challenge advancement failed for user %s: %v", userID, err)
	}
}

func (s *GoalService) notifySettlement(ctx context.Context, userID uuid.UUID, g *goal.Goal, nt notification.NotificationType, title, message string) {
	_, err := s.notifService.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID:  userID,
		Type:    nt,
		Title:   title,
		Message: message,
		Data:    map[string]any{"goal_id": g.ID.String()},
	})
	if err != nil {
		utils.Sugar.Errorf("Failed to create settlement notification: %v", err)
	}
}

// CategoryBreakdown aggregates ongoing and completed goals per category for
// the dashboard chart.
func (s *GoalService) CategoryBreakdown(ctx context.Context, clerkID string) ([]*goal.CategoryAggregate, error) {
	userID, err := resolveUserID(ctx, s.db, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(allocated_seconds), 0)
		FROM goals
		WHERE user_id = $1
		GROUP BY category
		ORDER BY category
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	defer rows.Close()

	out := make([]*goal.CategoryAggregate, 0)
	for rows.Next() {
		agg := &goal.CategoryAggregate{}
		if err := rows.Scan(&agg.Category, &agg.GoalCount, &agg.TotalSeconds); err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}
