package limits

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Benefit slugs configured on membership tiers.
const (
	BenefitDailyMovingLimit   = "daily-moving-limit"
	BenefitOneTimeMovingLimit = "one-time-moving-limit"
)

var (
	// ErrNotConfigured indicates the user has no tier progress or the tier
	// lacks a moving-limit benefit. This is a configuration defect, not a
	// user error.
	ErrNotConfigured = errors.New("moving limit not configured")

	// ErrDailyLimitExceeded occurs when moved-so-far plus the requested
	// amount would breach the daily moving limit.
	ErrDailyLimitExceeded = errors.New("daily moving limit exceeded")

	// ErrOneTimeLimitExceeded occurs when a single request exceeds the
	// per-transaction moving limit.
	ErrOneTimeLimitExceeded = errors.New("one-time moving limit exceeded")
)

// Amount is a moving-limit value in minor units of its currency.
type Amount struct {
	Value    int64
	Currency string
}

// MovingLimits pairs the daily and one-time ceilings resolved for a user.
type MovingLimits struct {
	Daily   Amount
	OneTime Amount
}

// BenefitSource resolves a tier benefit value for a user. The membership
// subsystem owns tiers and benefits; this service only reads them.
type BenefitSource interface {
	TierBenefit(ctx context.Context, userID, slug string) (Amount, error)
}

// Resolver derives a user's moving limits from tier benefit configuration.
type Resolver struct {
	source BenefitSource
}

// NewResolver builds a limit resolver over the given benefit source.
func NewResolver(source BenefitSource) *Resolver {
	return &Resolver{source: source}
}

// MovingLimits resolves both moving limits for the user. Either benefit
// missing is fatal to the request.
func (r *Resolver) MovingLimits(ctx context.Context, userID string) (MovingLimits, error) {
	daily, err := r.source.TierBenefit(ctx, userID, BenefitDailyMovingLimit)
	if err != nil {
		return MovingLimits{}, fmt.Errorf("resolve %s: %w", BenefitDailyMovingLimit, err)
	}
	oneTime, err := r.source.TierBenefit(ctx, userID, BenefitOneTimeMovingLimit)
	if err != nil {
		return MovingLimits{}, fmt.Errorf("resolve %s: %w", BenefitOneTimeMovingLimit, err)
	}
	return MovingLimits{Daily: daily, OneTime: oneTime}, nil
}

// DayWindow returns the [start, end) calendar-day window containing now in
// the provided location.
func DayWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour)
}
