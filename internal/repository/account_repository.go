package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/digkill/gddforge/internal/models"
)

var accountColumns = []string{
	"user_id",
	"email",
	"display_name",
	"credits",
	"total_credits_used",
	"total_credits_purchased",
	"created_at",
	"last_used_at",
	"last_purchase_at",
	"COALESCE(last_package, '')",
}

type AccountRepository struct {
	store *Store
}

func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Get returns nil without error when the account does not exist.
func (r *AccountRepository) Get(ctx context.Context, userID string) (*models.Account, error) {
	row, err := r.store.queryRow(ctx, r.store.builder.
		Select(accountColumns...).
		From("accounts").
		Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return nil, err
	}

	var (
		a              models.Account
		lastUsedAt     sql.NullTime
		lastPurchaseAt sql.NullTime
	)
	if err := row.Scan(&a.UserID, &a.Email, &a.DisplayName, &a.Credits, &a.TotalCreditsUsed, &a.TotalCreditsPurchased, &a.CreatedAt, &lastUsedAt, &lastPurchaseAt, &a.LastPackage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	if lastUsedAt.Valid {
		a.LastUsedAt = &lastUsedAt.Time
	}
	if lastPurchaseAt.Valid {
		a.LastPurchaseAt = &lastPurchaseAt.Time
	}
	return &a, nil
}

// CreateIfAbsent inserts the account in a single conditional statement.
// An existing row is left untouched and created is false.
func (r *AccountRepository) CreateIfAbsent(ctx context.Context, userID, email, displayName string, credits int) (bool, error) {
	insert := r.store.builder.
		Insert("accounts").
		Columns("user_id", "email", "display_name", "credits").
		Values(userID, email, displayName, credits)

	res, err := r.store.exec(ctx, r.store.upsertIgnore(insert, "user_id"))
	if err != nil {
		return false, fmt.Errorf("insert account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("account rows affected: %w", err)
	}
	return affected > 0, nil
}

// ConsumeCredits decrements the balance only when it covers amount.
// It reports false, without mutating anything, when it does not.
func (r *AccountRepository) ConsumeCredits(ctx context.Context, userID string, amount int) (bool, error) {
	res, err := r.store.exec(ctx, r.store.builder.
		Update("accounts").
		Set("credits", sq.Expr("credits - ?", amount)).
		Set("total_credits_used", sq.Expr("total_credits_used + ?", amount)).
		Set("last_used_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"credits": amount}))
	if err != nil {
		return false, fmt.Errorf("consume credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume rows affected: %w", err)
	}
	return affected > 0, nil
}

// AddCredits increments the balance and purchase counters of an existing account.
// It reports false when no account matched.
func (r *AccountRepository) AddCredits(ctx context.Context, userID string, amount int, label string) (bool, error) {
	res, err := r.store.exec(ctx, r.store.builder.
		Update("accounts").
		Set("credits", sq.Expr("credits + ?", amount)).
		Set("total_credits_purchased", sq.Expr("total_credits_purchased + ?", amount)).
		Set("last_purchase_at", sq.Expr("CURRENT_TIMESTAMP")).
		Set("last_package", label).
		Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return false, fmt.Errorf("add credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add credits rows affected: %w", err)
	}
	return affected > 0, nil
}
