package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeWalletAPI/handlers"
	"timeWalletAPI/internal/types/goal"
	modelUser "timeWalletAPI/internal/types/user"
	"timeWalletAPI/middleware"
	"timeWalletAPI/services"
	"timeWalletAPI/tests/helpers"
)

// TestFullGoalSettlementFlow walks the main loop of the app: a user signs up
// via webhook, creates a deadline goal with tasks, completes them, and the
// settlement credits the balance, appends the ledger row and starts a streak.
func TestFullGoalSettlementFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	middleware.InitPrometheus()

	liveFeed := services.NewLiveFeedManager()
	notificationService := services.NewNotificationService(pool)
	userService := services.NewUserService(pool)
	walletService := services.NewWalletService(pool)
	progressionService := services.NewProgressionService(pool, notificationService, liveFeed)
	challengeService := services.NewChallengeService(pool, progressionService, notificationService, liveFeed)
	goalService := services.NewGoalService(pool, progressionService, challengeService, notificationService, liveFeed)

	userHandler := handlers.NewUserHandler(userService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_" + time.Now().Format("20060102150405")

	// Step 1: user signs up, Clerk posts the webhook
	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	req1 := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(createPayload))
	rr1 := httptest.NewRecorder()

	webhookHandler.HandleClerkWebhook(rr1, req1)
	require.Equal(t, http.StatusOK, rr1.Code, "Webhook should succeed")

	ctx := context.Background()
	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "test.user@example.com", u.Email)
	assert.True(t, u.EmailVerified)
	assert.EqualValues(t, 0, u.BalanceSeconds)

	// Step 2: profile is reachable through the handler
	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req2 = req2.WithContext(context.WithValue(req2.Context(), middleware.ClerkIDKey, clerkID))
	rr2 := httptest.NewRecorder()

	userHandler.GetProfile(rr2, req2)
	require.Equal(t, http.StatusOK, rr2.Code)

	var profile modelUser.User
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &profile))
	assert.Equal(t, u.Email, profile.Email)

	// Step 3: create a goal due tomorrow with two tasks
	g, err := goalService.CreateGoal(ctx, clerkID, &goal.CreateGoalRequest{
		Title:            "Finish thesis chapter",
		Category:         "study",
		Deadline:         time.Now().Add(24 * time.Hour),
		AllocatedSeconds: 7200,
	})
	require.NoError(t, err)
	assert.Equal(t, goal.StatusOngoing, g.Status)

	t1, err := goalService.AddTask(ctx, clerkID, g.ID, &goal.CreateTaskRequest{Title: "Write draft"})
	require.NoError(t, err)
	t2, err := goalService.AddTask(ctx, clerkID, g.ID, &goal.CreateTaskRequest{Title: "Proofread", Position: 1})
	require.NoError(t, err)

	// Step 4: completing the first task does not settle the goal
	res1, err := goalService.CompleteTask(ctx, clerkID, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, goal.StatusOngoing, res1.GoalStatus)
	assert.EqualValues(t, 0, res1.Credited)

	// Completing the same task again is a conflict
	_, err = goalService.CompleteTask(ctx, clerkID, t1.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already")

	// Step 5: completing the last task settles the goal before its deadline
	res2, err := goalService.CompleteTask(ctx, clerkID, t2.ID)
	require.NoError(t, err)
	assert.Equal(t, goal.StatusCompleted, res2.GoalStatus)
	assert.EqualValues(t, 7200, res2.Credited)

	// The balance moved atomically with the ledger append
	wallet, err := walletService.GetWallet(ctx, clerkID)
	require.NoError(t, err)
	assert.EqualValues(t, 7200, wallet.BalanceSeconds)
	require.Len(t, wallet.Recent, 1)
	assert.EqualValues(t, 7200, wallet.Recent[0].AmountSeconds)
	assert.Contains(t, wallet.Recent[0].Reason, "Finish thesis chapter")

	// Step 6: the completion started a streak
	st, err := progressionService.GetStreak(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 1, st.LongestStreak)
	assert.Equal(t, 1, st.TotalGoalsCompleted)

	// Step 7: a second goal completed the same day keeps the streak at 1
	g2, err := goalService.CreateGoal(ctx, clerkID, &goal.CreateGoalRequest{
		Title:            "Morning run",
		Category:         "health",
		Deadline:         time.Now().Add(12 * time.Hour),
		AllocatedSeconds: 1800,
	})
	require.NoError(t, err)

	t3, err := goalService.AddTask(ctx, clerkID, g2.ID, &goal.CreateTaskRequest{Title: "Run 5k"})
	require.NoError(t, err)

	res3, err := goalService.CompleteTask(ctx, clerkID, t3.ID)
	require.NoError(t, err)
	assert.Equal(t, goal.StatusCompleted, res3.GoalStatus)

	st, err = progressionService.GetStreak(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 1, st.TotalGoalsCompleted, "same-day completion should not advance the streak row")

	wallet, err = walletService.GetWallet(ctx, clerkID)
	require.NoError(t, err)
	assert.EqualValues(t, 9000, wallet.BalanceSeconds)

	// The paged ledger reports the real total even when the page holds less
	ledger, err := walletService.ListTransactions(ctx, clerkID, 1, 1)
	require.NoError(t, err)
	require.Len(t, ledger.Transactions, 1)
	assert.Equal(t, 2, ledger.TotalCount)

	// Both settlements stored notifications, and the counts reflect them
	notifs, err := notificationService.GetNotifications(ctx, clerkID, 1, 20, false)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, notifs.TotalCount, 2)
	assert.Equal(t, len(notifs.Notifications), notifs.TotalCount)
	assert.Equal(t, notifs.TotalCount, notifs.UnreadCount, "nothing read yet")

	// Step 8: update profile through the handler and verify
	updateData := `{"first_name": "NewFirst", "username": "newusername123"}`
	req3 := httptest.NewRequest(http.MethodPut, "/api/v1/users/profile", strings.NewReader(updateData))
	req3.Header.Set("Content-Type", "application/json")
	req3 = req3.WithContext(context.WithValue(req3.Context(), middleware.ClerkIDKey, clerkID))
	rr3 := httptest.NewRecorder()

	userHandler.UpdateProfile(rr3, req3)
	require.Equal(t, http.StatusOK, rr3.Code)

	updated, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "NewFirst", updated.FirstName)
	assert.Equal(t, "newusername123", updated.Username)
	assert.EqualValues(t, 9000, updated.BalanceSeconds, "profile update must not touch the balance")
}

// TestMissedDeadlineSettlesAsFailed covers the other settlement branch: the
// last task finishing after the deadline fails the goal and credits nothing.
func TestMissedDeadlineSettlesAsFailed(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	middleware.InitPrometheus()

	liveFeed := services.NewLiveFeedManager()
	notificationService := services.NewNotificationService(pool)
	userService := services.NewUserService(pool)
	walletService := services.NewWalletService(pool)
	progressionService := services.NewProgressionService(pool, notificationService, liveFeed)
	challengeService := services.NewChallengeService(pool, progressionService, notificationService, liveFeed)
	goalService := services.NewGoalService(pool, progressionService, challengeService, notificationService, liveFeed)

	clerkID := "user_test_fail_" + time.Now().Format("20060102150405")
	_, err := userService.CreateUser(context.Background(), &modelUser.CreateUserRequest{
		ClerkID: clerkID,
		Email:   "test.fail@example.com",
	})
	require.NoError(t, err)

	ctx := context.Background()
	g, err := goalService.CreateGoal(ctx, clerkID, &goal.CreateGoalRequest{
		Title:            "Already overdue",
		Deadline:         time.Now().Add(-time.Hour),
		AllocatedSeconds: 3600,
	})
	require.NoError(t, err)

	tk, err := goalService.AddTask(ctx, clerkID, g.ID, &goal.CreateTaskRequest{Title: "Too late"})
	require.NoError(t, err)

	res, err := goalService.CompleteTask(ctx, clerkID, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, goal.StatusFailed, res.GoalStatus)
	assert.EqualValues(t, 0, res.Credited)

	wallet, err := walletService.GetWallet(ctx, clerkID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, wallet.BalanceSeconds)
	assert.Empty(t, wallet.Recent, "a failed goal must not append to the ledger")

	// A settled goal rejects further task work
	_, err = goalService.AddTask(ctx, clerkID, g.ID, &goal.CreateTaskRequest{Title: "One more"})
	require.Error(t, err)

	st, err := progressionService.GetStreak(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.CurrentStreak, "failed settlement must not advance the streak")
}
