package limits

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolverMovingLimits(t *testing.T) {
	source := StaticBenefitSource{
		BenefitDailyMovingLimit:   {Value: 1_000_000, Currency: "FX"},
		BenefitOneTimeMovingLimit: {Value: 500_000, Currency: "FX"},
	}
	resolver := NewResolver(source)

	ml, err := resolver.MovingLimits(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("resolve limits: %v", err)
	}
	if ml.Daily.Value != 1_000_000 || ml.OneTime.Value != 500_000 {
		t.Fatalf("unexpected limits: %+v", ml)
	}
}

func TestResolverMissingBenefitIsFatal(t *testing.T) {
	source := StaticBenefitSource{
		BenefitDailyMovingLimit: {Value: 1_000_000, Currency: "FX"},
	}
	resolver := NewResolver(source)

	if _, err := resolver.MovingLimits(context.Background(), "user-1"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestDayWindow(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC) // 01:30 on the 16th in ICT
	from, to := DayWindow(now, loc)

	if from.Day() != 16 || from.Hour() != 0 {
		t.Fatalf("unexpected window start: %v", from)
	}
	if !to.Equal(from.Add(24 * time.Hour)) {
		t.Fatalf("window must span one day, got %v..%v", from, to)
	}
	if !now.After(from) || !now.Before(to) {
		t.Fatalf("now must fall inside the window")
	}
}
