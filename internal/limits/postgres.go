package limits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBenefitSource reads tier benefit values from the membership tables.
type PostgresBenefitSource struct {
	db *pgxpool.Pool
}

// NewPostgresBenefitSource builds a Postgres-backed benefit source.
func NewPostgresBenefitSource(db *pgxpool.Pool) *PostgresBenefitSource {
	return &PostgresBenefitSource{db: db}
}

// TierBenefit resolves the benefit value configured on the user's current tier.
func (s *PostgresBenefitSource) TierBenefit(ctx context.Context, userID, slug string) (Amount, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return Amount{}, ErrNotConfigured
	}
	const query = `
        SELECT b.amount, b.unit
        FROM memberships m
        INNER JOIN tier_benefits b ON b.tier_id = m.tier_id
        WHERE m.user_id = $1 AND b.slug = $2`
	var amount Amount
	if err := s.db.QueryRow(ctx, query, userUUID, slug).Scan(&amount.Value, &amount.Currency); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Amount{}, ErrNotConfigured
		}
		return Amount{}, err
	}
	return amount, nil
}

// StaticBenefitSource maps benefit slugs to fixed amounts for every user.
// Useful for tests and local development.
type StaticBenefitSource map[string]Amount

// TierBenefit returns the configured amount for the slug.
func (s StaticBenefitSource) TierBenefit(_ context.Context, _ string, slug string) (Amount, error) {
	amount, ok := s[slug]
	if !ok {
		return Amount{}, ErrNotConfigured
	}
	return amount, nil
}
