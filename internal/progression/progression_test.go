package progression

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeWalletAPI/internal/types/badge"
	"timeWalletAPI/internal/types/challenge"
	"timeWalletAPI/internal/types/goal"
	"timeWalletAPI/internal/types/streak"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.Local)
}

func streakAt(current, longest, total int, last *time.Time) streak.Streak {
	return streak.Streak{
		ID:                  uuid.New(),
		UserID:              uuid.New(),
		CurrentStreak:       current,
		LongestStreak:       longest,
		TotalGoalsCompleted: total,
		LastActionDate:      last,
	}
}

func TestNextStreakFirstAction(t *testing.T) {
	next, changed := NextStreak(streakAt(0, 0, 0, nil), day(2026, 3, 10))
	require.True(t, changed)
	assert.Equal(t, 1, next.CurrentStreak)
	assert.Equal(t, 1, next.LongestStreak)
	assert.Equal(t, 1, next.TotalGoalsCompleted)
	require.NotNil(t, next.LastActionDate)
	assert.Equal(t, 0, DaysBetween(*next.LastActionDate, day(2026, 3, 10)))
}

func TestNextStreakSameDayIsNoOp(t *testing.T) {
	last := day(2026, 3, 10)
	cur := streakAt(4, 9, 20, &last)

	next, changed := NextStreak(cur, day(2026, 3, 10).Add(5*time.Hour))
	assert.False(t, changed)
	assert.Equal(t, cur, next)
}

func TestNextStreakConsecutiveDay(t *testing.T) {
	last := day(2026, 3, 10)
	next, changed := NextStreak(streakAt(4, 9, 20, &last), day(2026, 3, 11))
	require.True(t, changed)
	assert.Equal(t, 5, next.CurrentStreak)
	assert.Equal(t, 9, next.LongestStreak)
	assert.Equal(t, 21, next.TotalGoalsCompleted)
}

func TestNextStreakExtendsLongest(t *testing.T) {
	last := day(2026, 3, 10)
	next, changed := NextStreak(streakAt(9, 9, 20, &last), day(2026, 3, 11))
	require.True(t, changed)
	assert.Equal(t, 10, next.CurrentStreak)
	assert.Equal(t, 10, next.LongestStreak)
}

func TestNextStreakGapResets(t *testing.T) {
	last := day(2026, 3, 10)
	next, changed := NextStreak(streakAt(14, 14, 40, &last), day(2026, 3, 13))
	require.True(t, changed)
	assert.Equal(t, 1, next.CurrentStreak)
	assert.Equal(t, 14, next.LongestStreak, "longest survives the reset")
	assert.Equal(t, 41, next.TotalGoalsCompleted)
}

func TestNextStreakClockWentBackwards(t *testing.T) {
	last := day(2026, 3, 10)
	cur := streakAt(6, 6, 12, &last)

	next, changed := NextStreak(cur, day(2026, 3, 8))
	assert.False(t, changed, "negative day diff must be treated as same-day")
	assert.Equal(t, cur, next)
}

func TestNextStreakStoredDateInUTCWesternZone(t *testing.T) {
	// A DATE column scans back as midnight UTC. An evening completion the
	// same local day in a western zone must still be a same-day no-op.
	last := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	cur := streakAt(3, 5, 9, &last)

	pacific := time.FixedZone("UTC-8", -8*3600)
	next, changed := NextStreak(cur, time.Date(2026, 3, 10, 18, 0, 0, 0, pacific))
	assert.False(t, changed, "same local day must not advance the streak")
	assert.Equal(t, cur, next)
}

func TestNextStreakStoredDateInUTCEasternZone(t *testing.T) {
	// The mirror case: a morning completion on the next local day in an
	// eastern zone must advance the streak, not stall as diff 0.
	last := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	cur := streakAt(3, 5, 9, &last)

	auckland := time.FixedZone("UTC+13", 13*3600)
	next, changed := NextStreak(cur, time.Date(2026, 3, 11, 9, 0, 0, 0, auckland))
	require.True(t, changed)
	assert.Equal(t, 4, next.CurrentStreak)
	assert.Equal(t, 10, next.TotalGoalsCompleted)
}

func TestWeekWarriorScenario(t *testing.T) {
	// current_streak=6, qualifying action the next calendar day -> 7 and the
	// streak_7 badge becomes grantable.
	last := day(2026, 3, 10)
	next, changed := NextStreak(streakAt(6, 6, 8, &last), day(2026, 3, 11))
	require.True(t, changed)
	require.Equal(t, 7, next.CurrentStreak)

	rules := EligibleBadges(next, nil)
	require.Len(t, rules, 1)
	assert.Equal(t, badge.TypeStreak7, rules[0].Type)
	assert.Equal(t, "Week Warrior", rules[0].Name)
}

func TestEligibleBadgesSkipsHeld(t *testing.T) {
	s := streakAt(30, 30, 100, nil)
	owned := []*badge.Badge{
		{Type: badge.TypeStreak7},
		{Type: badge.TypeGoals10},
		{Type: badge.TypeGoals50},
	}

	rules := EligibleBadges(s, owned)
	var types []badge.Type
	for _, r := range rules {
		types = append(types, r.Type)
	}
	assert.ElementsMatch(t, []badge.Type{badge.TypeStreak30, badge.TypeGoals100}, types)
}

func TestEligibleBadgesBelowThreshold(t *testing.T) {
	assert.Empty(t, EligibleBadges(streakAt(6, 6, 9, nil), nil))
}

func TestSettleGoalBeforeDeadline(t *testing.T) {
	g := &goal.Goal{
		Deadline:         day(2026, 4, 1),
		AllocatedSeconds: 3600,
		Status:           goal.StatusOngoing,
	}

	out := SettleGoal(g, day(2026, 3, 31))
	assert.Equal(t, goal.StatusCompleted, out.Status)
	assert.Equal(t, int64(3600), out.CreditSeconds)
}

func TestSettleGoalAtOrPastDeadline(t *testing.T) {
	deadline := day(2026, 4, 1)
	g := &goal.Goal{Deadline: deadline, AllocatedSeconds: 3600, Status: goal.StatusOngoing}

	out := SettleGoal(g, deadline)
	assert.Equal(t, goal.StatusFailed, out.Status)
	assert.Zero(t, out.CreditSeconds)

	out = SettleGoal(g, deadline.Add(48*time.Hour))
	assert.Equal(t, goal.StatusFailed, out.Status)
	assert.Zero(t, out.CreditSeconds)
}

func TestAdvanceChallengeReachesTarget(t *testing.T) {
	cat := &challenge.Challenge{TargetGoals: 5, DurationDays: 7, BadgeReward: "challenge_sprint"}
	uc := challenge.UserChallenge{
		Status:         challenge.StatusActive,
		GoalsCompleted: 4,
		StartedAt:      day(2026, 3, 10),
	}

	next, ev := AdvanceChallenge(uc, cat, day(2026, 3, 12))
	assert.Equal(t, ChallengeEventCompleted, ev)
	assert.Equal(t, 5, next.GoalsCompleted)
	assert.Equal(t, challenge.StatusCompleted, next.Status)
	require.NotNil(t, next.CompletedAt)
}

func TestAdvanceChallengeExpired(t *testing.T) {
	cat := &challenge.Challenge{TargetGoals: 10, DurationDays: 7}
	uc := challenge.UserChallenge{
		Status:         challenge.StatusActive,
		GoalsCompleted: 2,
		StartedAt:      day(2026, 3, 1),
	}

	next, ev := AdvanceChallenge(uc, cat, day(2026, 3, 20))
	assert.Equal(t, ChallengeEventExpired, ev)
	assert.Equal(t, challenge.StatusFailed, next.Status)
	assert.Nil(t, next.CompletedAt)
}

func TestAdvanceChallengeCompletionBeatsExpiry(t *testing.T) {
	cat := &challenge.Challenge{TargetGoals: 3, DurationDays: 7}
	uc := challenge.UserChallenge{
		Status:         challenge.StatusActive,
		GoalsCompleted: 2,
		StartedAt:      day(2026, 3, 1),
	}

	// Past the window but this tick reaches the target.
	next, ev := AdvanceChallenge(uc, cat, day(2026, 3, 20))
	assert.Equal(t, ChallengeEventCompleted, ev)
	assert.Equal(t, challenge.StatusCompleted, next.Status)
}

func TestAdvanceChallengeStillActive(t *testing.T) {
	cat := &challenge.Challenge{TargetGoals: 10, DurationDays: 30}
	uc := challenge.UserChallenge{
		Status:         challenge.StatusActive,
		GoalsCompleted: 3,
		StartedAt:      day(2026, 3, 10),
	}

	next, ev := AdvanceChallenge(uc, cat, day(2026, 3, 15))
	assert.Equal(t, ChallengeEventNone, ev)
	assert.Equal(t, 4, next.GoalsCompleted)
	assert.Equal(t, challenge.StatusActive, next.Status)
}

func TestAdvanceChallengeTerminalUntouched(t *testing.T) {
	cat := &challenge.Challenge{TargetGoals: 5, DurationDays: 7}
	for _, st := range []challenge.Status{challenge.StatusCompleted, challenge.StatusFailed} {
		uc := challenge.UserChallenge{Status: st, GoalsCompleted: 5}
		next, ev := AdvanceChallenge(uc, cat, day(2026, 3, 20))
		assert.Equal(t, ChallengeEventNone, ev)
		assert.Equal(t, uc, next)
	}
}

func TestDaysBetween(t *testing.T) {
	base := day(2026, 3, 10)
	assert.Equal(t, 0, DaysBetween(base, base.Add(11*time.Hour)))
	assert.Equal(t, 1, DaysBetween(base, day(2026, 3, 11)))
	assert.Equal(t, 3, DaysBetween(base, day(2026, 3, 13)))
	assert.Equal(t, -2, DaysBetween(base, day(2026, 3, 8)))
	// Late evening to early morning is still one calendar day.
	assert.Equal(t, 1, DaysBetween(day(2026, 3, 10).Add(11*time.Hour), day(2026, 3, 11).Add(-11*time.Hour)))

	// Each side is read in its own location: midnight UTC against the same
	// calendar day in another zone is diff 0, the next calendar day is 1.
	utcMidnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	pacific := time.FixedZone("UTC-8", -8*3600)
	assert.Equal(t, 0, DaysBetween(utcMidnight, time.Date(2026, 3, 10, 18, 0, 0, 0, pacific)))
	auckland := time.FixedZone("UTC+13", 13*3600)
	assert.Equal(t, 1, DaysBetween(utcMidnight, time.Date(2026, 3, 11, 9, 0, 0, 0, auckland)))
}
