package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// holdingDateLayout is the calendar-date form holdings are stored in.
const holdingDateLayout = "01/02/2006"

// highestActiveMultiplier returns the largest multiplier among grants that
// are active, multiplier-kind and not expired at now. The maximum wins;
// simultaneously active multipliers never stack. Defaults to 1.
func highestActiveMultiplier(grants []PowerupGrant, now time.Time) float64 {
	best := 1.0
	for _, g := range grants {
		if !g.IsActive || g.Kind != PowerupMultiplier {
			continue
		}
		if !g.ActiveUntil.After(now) {
			continue
		}
		if g.Value > best {
			best = g.Value
		}
	}
	return best
}

// applyAnswerOutcome mutates u with the currency, counter and streak deltas
// for one submission and returns the points earned.
//
// Points are awarded iff the answer is correct and the user has never
// answered this question correctly before. Lifetime counters and the streak
// move only on the first attempt for the question; a late correct answer
// after earlier misses earns points but does not retroactively touch the
// counters. That asymmetry matches shipped behavior and is kept on purpose.
func applyAnswerOutcome(u *User, isCorrect, isFirstAttempt, hasPriorCorrect bool, basePoints int64, multiplier float64) int64 {
	var earned int64
	if isCorrect && !hasPriorCorrect {
		earned = int64(float64(basePoints) * multiplier)
		u.Currency += earned
	}

	if isFirstAttempt {
		if isCorrect {
			u.CorrectAnswered++
			u.CurrentStreak++
			if u.CurrentStreak > u.LongestStreak {
				u.LongestStreak = u.CurrentStreak
			}
		} else {
			u.WrongAnswered++
			u.CurrentStreak = 0
		}
	}

	// League points move on every submission.
	if isCorrect {
		u.Points++
	} else {
		u.Points--
	}

	return earned
}

// wholeDaysBetween returns the number of whole calendar days from the
// stored date up to today, ignoring time-of-day on both sides.
func wholeDaysBetween(today time.Time, stored string) (int64, error) {
	parsed, err := time.Parse(holdingDateLayout, stored)
	if err != nil {
		return 0, fmt.Errorf("parse holding date %q: %w", stored, err)
	}
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int64(t.Sub(parsed).Hours() / 24), nil
}

// holdingAccrual computes daysHeld * unitAmount * dailyRewardRate for one
// holding. A malformed date or rate yields zero; one bad record must never
// abort a whole accrual batch.
func holdingAccrual(h Holding, today time.Time) decimal.Decimal {
	days, err := wholeDaysBetween(today, h.LastAccrualDate)
	if err != nil || days <= 0 {
		return decimal.Zero
	}
	rate, err := decimal.NewFromString(h.DailyRewardRate)
	if err != nil {
		return decimal.Zero
	}
	amount := h.UnitAmount
	if amount <= 0 {
		amount = 1
	}
	return decimal.NewFromInt(days).Mul(decimal.NewFromInt(amount)).Mul(rate)
}

// determineLeague maps league points to a league name; "None" means the
// user has not placed yet.
func determineLeague(points int64) string {
	switch {
	case points >= 200:
		return "Platinum"
	case points >= 100:
		return "Gold"
	case points >= 50:
		return "Silver"
	case points >= 20:
		return "Bronze"
	default:
		return "None"
	}
}
