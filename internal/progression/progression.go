package progression

import (
	"time"

	"timeWalletAPI/internal/types/badge"
	"timeWalletAPI/internal/types/challenge"
	"timeWalletAPI/internal/types/goal"
	"timeWalletAPI/internal/types/streak"
)

// This package holds the progression rules as pure functions. Nothing here
// touches the database; the services fetch rows, run these, and persist
// whatever came back.

// DaysBetween returns the whole-day difference between the calendar dates of
// two instants, each read in its own location. The stored last-action date
// comes back from a DATE column as midnight UTC while "now" carries the
// server's zone; comparing date components instead of instants keeps the two
// from drifting a day apart across that zone boundary.
func DaysBetween(from, to time.Time) int {
	a := civilDate(from)
	b := civilDate(to)
	return int(b.Sub(a).Hours() / 24)
}

// civilDate pins a time's own (year, month, day) to midnight UTC, so date
// differences are exact multiples of 24h regardless of zone or DST.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextStreak applies one qualifying completion action to a streak record.
// The returned bool is false when the action lands on the same calendar day
// as the previous one (or on an earlier day, if the clock went backwards);
// callers must skip the write in that case.
func NextStreak(cur streak.Streak, now time.Time) (streak.Streak, bool) {
	next := cur

	switch {
	case cur.LastActionDate == nil:
		next.CurrentStreak = 1
	default:
		diff := DaysBetween(*cur.LastActionDate, now)
		switch {
		case diff <= 0:
			// Same day, or the device clock moved backwards. Either way the
			// chain is neither extended nor broken.
			return cur, false
		case diff == 1:
			next.CurrentStreak = cur.CurrentStreak + 1
		default:
			next.CurrentStreak = 1
		}
	}

	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	next.TotalGoalsCompleted = cur.TotalGoalsCompleted + 1
	d := civilDate(now)
	next.LastActionDate = &d
	return next, true
}

type Metric string

const (
	MetricCurrentStreak Metric = "current_streak"
	MetricTotalGoals    Metric = "total_goals_completed"
)

type BadgeRule struct {
	Metric    Metric
	Threshold int
	Type      badge.Type
	Name      string
}

// BadgeRules is the fixed threshold table evaluated after every streak
// update, against the freshly written values.
var BadgeRules = []BadgeRule{
	{MetricCurrentStreak, 7, badge.TypeStreak7, "Week Warrior"},
	{MetricCurrentStreak, 30, badge.TypeStreak30, "Monthly Master"},
	{MetricTotalGoals, 10, badge.TypeGoals10, "Goal Getter"},
	{MetricTotalGoals, 50, badge.TypeGoals50, "Achievement Hunter"},
	{MetricTotalGoals, 100, badge.TypeGoals100, "Century Champion"},
}

// EligibleBadges returns the rules whose threshold the streak record now
// satisfies and whose badge the user does not already hold. Idempotence is
// relative to the owned list handed in; the unique index on badges is the
// backstop for races.
func EligibleBadges(s streak.Streak, owned []*badge.Badge) []BadgeRule {
	held := make(map[badge.Type]bool, len(owned))
	for _, b := range owned {
		held[b.Type] = true
	}

	var out []BadgeRule
	for _, rule := range BadgeRules {
		if held[rule.Type] {
			continue
		}
		var value int
		switch rule.Metric {
		case MetricCurrentStreak:
			value = s.CurrentStreak
		case MetricTotalGoals:
			value = s.TotalGoalsCompleted
		}
		if value >= rule.Threshold {
			out = append(out, rule)
		}
	}
	return out
}

type GoalOutcome struct {
	Status        goal.Status
	CreditSeconds int64
}

// SettleGoal decides what happens when the last open task under an ongoing
// goal is completed. Strictly before the deadline the goal completes and its
// allocated time is credited; at or after the deadline it fails and nothing
// is credited. Deleting a goal later never claws the credit back.
func SettleGoal(g *goal.Goal, now time.Time) GoalOutcome {
	if now.Before(g.Deadline) {
		return GoalOutcome{Status: goal.StatusCompleted, CreditSeconds: g.AllocatedSeconds}
	}
	return GoalOutcome{Status: goal.StatusFailed}
}

type ChallengeEvent int

const (
	ChallengeEventNone ChallengeEvent = iota
	ChallengeEventCompleted
	ChallengeEventExpired
)

// AdvanceChallenge applies one completed goal to an active user challenge.
// Completion is checked before expiry, so finishing the target on the last
// tick still counts. Terminal rows are returned untouched.
func AdvanceChallenge(uc challenge.UserChallenge, cat *challenge.Challenge, now time.Time) (challenge.UserChallenge, ChallengeEvent) {
	if uc.Status != challenge.StatusActive {
		return uc, ChallengeEventNone
	}

	next := uc
	next.GoalsCompleted = uc.GoalsCompleted + 1

	if next.GoalsCompleted >= cat.TargetGoals {
		next.Status = challenge.StatusCompleted
		t := now
		next.CompletedAt = &t
		return next, ChallengeEventCompleted
	}
	if now.After(cat.EndDate(uc.StartedAt)) {
		next.Status = challenge.StatusFailed
		return next, ChallengeEventExpired
	}
	return next, ChallengeEventNone
}
