package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeWalletAPI/internal/types/challenge"
	"timeWalletAPI/internal/types/goal"
	modelUser "timeWalletAPI/internal/types/user"
	"timeWalletAPI/middleware"
	"timeWalletAPI/services"
	"timeWalletAPI/tests/helpers"
)

// TestChallengeProgressAndCompletion joins a two-goal challenge and verifies
// that goal settlements advance it, complete it and grant the reward badge.
func TestChallengeProgressAndCompletion(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	middleware.InitPrometheus()

	liveFeed := services.NewLiveFeedManager()
	notificationService := services.NewNotificationService(pool)
	userService := services.NewUserService(pool)
	progressionService := services.NewProgressionService(pool, notificationService, liveFeed)
	challengeService := services.NewChallengeService(pool, progressionService, notificationService, liveFeed)
	goalService := services.NewGoalService(pool, progressionService, challengeService, notificationService, liveFeed)

	ctx := context.Background()
	clerkID := "user_test_chal_" + time.Now().Format("20060102150405")
	_, err := userService.CreateUser(ctx, &modelUser.CreateUserRequest{
		ClerkID: clerkID,
		Email:   "test.challenge@example.com",
	})
	require.NoError(t, err)

	// Seed a small catalog row so the test controls the target
	var challengeID uuid.UUID
	err = pool.QueryRow(ctx, `
		INSERT INTO challenges (name, description, duration_days, target_goals, badge_reward)
		VALUES ('Test Sprint', 'Two goals in a week.', 7, 2, 'test_sprint')
		RETURNING id
	`).Scan(&challengeID)
	require.NoError(t, err)
	defer pool.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, challengeID)

	uc, err := challengeService.JoinChallenge(ctx, clerkID, challengeID)
	require.NoError(t, err)
	require.NotNil(t, uc)
	assert.Equal(t, challenge.StatusActive, uc.Status)
	assert.Equal(t, 0, uc.GoalsCompleted)

	// Joining again while active is a silent no-op
	again, err := challengeService.JoinChallenge(ctx, clerkID, challengeID)
	require.NoError(t, err)
	assert.Nil(t, again)

	// Joining a challenge that does not exist is an error
	_, err = challengeService.JoinChallenge(ctx, clerkID, uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	completeOneGoal := func(title string) {
		g, err := goalService.CreateGoal(ctx, clerkID, &goal.CreateGoalRequest{
			Title:            title,
			Deadline:         time.Now().Add(time.Hour),
			AllocatedSeconds: 600,
		})
		require.NoError(t, err)
		tk, err := goalService.AddTask(ctx, clerkID, g.ID, &goal.CreateTaskRequest{Title: "only task"})
		require.NoError(t, err)
		res, err := goalService.CompleteTask(ctx, clerkID, tk.ID)
		require.NoError(t, err)
		require.Equal(t, goal.StatusCompleted, res.GoalStatus)
	}

	completeOneGoal("First goal")

	mine, err := challengeService.ListUserChallenges(ctx, clerkID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 1, mine[0].GoalsCompleted)
	assert.Equal(t, challenge.StatusActive, mine[0].Status)

	completeOneGoal("Second goal")

	mine, err = challengeService.ListUserChallenges(ctx, clerkID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 2, mine[0].GoalsCompleted)
	assert.Equal(t, challenge.StatusCompleted, mine[0].Status)
	require.NotNil(t, mine[0].CompletedAt)

	// The catalog's reward badge was granted once
	badges, err := progressionService.GetBadges(ctx, clerkID)
	require.NoError(t, err)
	found := false
	for _, b := range badges {
		if string(b.Type) == "test_sprint" {
			found = true
			assert.Equal(t, "Test Sprint", b.Name)
		}
	}
	assert.True(t, found, "completing the challenge should grant its reward badge")

	// A completed challenge no longer advances
	completeOneGoal("Third goal")

	mine, err = challengeService.ListUserChallenges(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 2, mine[0].GoalsCompleted, "terminal challenge rows must stay untouched")
}
