// Package ledger holds seller wallets and the platform revenue ledger.
// Balances only move through Debit and Credit, and every movement appends a
// wallet_transactions row.
package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/database"
	"github.com/artisanmarket/promo-engine/internal/models"
)

// Querier is implemented by both *sqlx.DB and *sqlx.Tx, so reads can run in
// or out of a transaction.
type Querier interface {
	sqlx.QueryerContext
}

// ResourceWallet names wallets in NotFound and StaleState errors.
const ResourceWallet = "wallet"

// Wallets is the seller wallet ledger.
type Wallets struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewWallets creates a Wallets ledger. A nil now defaults to time.Now.
func NewWallets(db *sqlx.DB, now func() time.Time) *Wallets {
	if now == nil {
		now = time.Now
	}
	return &Wallets{db: db, now: now}
}

// Get returns the seller's wallet or a NotFoundError.
func (w *Wallets) Get(ctx context.Context, q Querier, sellerID string) (models.Wallet, error) {
	var wallet models.Wallet
	err := sqlx.GetContext(ctx, q, &wallet,
		"SELECT seller_id, balance, version, created_at, updated_at FROM wallets WHERE seller_id = ?", sellerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wallet{}, apperr.NewNotFound(ResourceWallet, sellerID)
	}
	if err != nil {
		return models.Wallet{}, apperr.Persistence("get wallet", err)
	}
	return wallet, nil
}

// Balance returns the seller's current balance. A seller without a wallet
// has a zero balance.
func (w *Wallets) Balance(ctx context.Context, sellerID string) (decimal.Decimal, error) {
	wallet, err := w.Get(ctx, w.db, sellerID)
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

// Debit subtracts amount in its own transaction.
func (w *Wallets) Debit(ctx context.Context, sellerID string, amount decimal.Decimal, txType, reason string, referenceID *string) (models.WalletTransaction, error) {
	var out models.WalletTransaction
	err := database.WithTx(ctx, w.db, func(tx *sqlx.Tx) error {
		var err error
		out, err = w.DebitTx(ctx, tx, sellerID, amount, txType, reason, referenceID)
		return err
	})
	return out, apperr.Persistence("debit wallet", err)
}

// DebitTx subtracts amount inside the caller's transaction. If the balance is
// lower than amount it returns an InsufficientFundsError and writes nothing.
func (w *Wallets) DebitTx(ctx context.Context, tx *sqlx.Tx, sellerID string, amount decimal.Decimal, txType, reason string, referenceID *string) (models.WalletTransaction, error) {
	// 1. --- Validate Amount ---
	if !amount.IsPositive() {
		return models.WalletTransaction{}, apperr.NewValidation("amount", "must be greater than 0")
	}

	// 2. --- Load Current Balance ---
	wallet, err := w.Get(ctx, tx, sellerID)
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		return models.WalletTransaction{}, &apperr.InsufficientFundsError{SellerID: sellerID, Balance: decimal.Zero, Required: amount}
	}
	if err != nil {
		return models.WalletTransaction{}, err
	}

	// 3. --- Check Funds ---
	if wallet.Balance.LessThan(amount) {
		return models.WalletTransaction{}, &apperr.InsufficientFundsError{SellerID: sellerID, Balance: wallet.Balance, Required: amount}
	}

	// 4. --- Apply And Record ---
	return w.apply(ctx, tx, wallet, amount.Neg(), txType, reason, referenceID)
}

// Credit adds amount in its own transaction, creating the wallet on first use.
func (w *Wallets) Credit(ctx context.Context, sellerID string, amount decimal.Decimal, txType, reason string, referenceID *string) (models.WalletTransaction, error) {
	var out models.WalletTransaction
	err := database.WithTx(ctx, w.db, func(tx *sqlx.Tx) error {
		var err error
		out, err = w.CreditTx(ctx, tx, sellerID, amount, txType, reason, referenceID)
		return err
	})
	return out, apperr.Persistence("credit wallet", err)
}

// CreditTx adds amount inside the caller's transaction.
func (w *Wallets) CreditTx(ctx context.Context, tx *sqlx.Tx, sellerID string, amount decimal.Decimal, txType, reason string, referenceID *string) (models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return models.WalletTransaction{}, apperr.NewValidation("amount", "must be greater than 0")
	}

	wallet, err := w.Get(ctx, tx, sellerID)
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		now := w.now().UTC()
		wallet = models.Wallet{SellerID: sellerID, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO wallets (seller_id, balance, version, created_at, updated_at) VALUES (?, ?, 0, ?, ?)",
			sellerID, wallet.Balance, now, now)
		if err != nil {
			return models.WalletTransaction{}, apperr.Persistence("create wallet", err)
		}
	} else if err != nil {
		return models.WalletTransaction{}, err
	}

	return w.apply(ctx, tx, wallet, amount, txType, reason, referenceID)
}

// IsConflict reports whether err is a lost version race on a wallet row.
// Rereading the wallet and retrying is safe.
func IsConflict(err error) bool {
	var stale *apperr.StaleStateError
	return errors.As(err, &stale) && stale.Resource == ResourceWallet
}

// apply moves the balance by delta with a version compare-and-swap and
// appends the ledger row.
func (w *Wallets) apply(ctx context.Context, tx *sqlx.Tx, wallet models.Wallet, delta decimal.Decimal, txType, reason string, referenceID *string) (models.WalletTransaction, error) {
	now := w.now().UTC()
	newBalance := wallet.Balance.Add(delta)
	if newBalance.IsNegative() {
		return models.WalletTransaction{}, &apperr.InsufficientFundsError{SellerID: wallet.SellerID, Balance: wallet.Balance, Required: delta.Neg()}
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE wallets SET balance = ?, version = version + 1, updated_at = ? WHERE seller_id = ? AND version = ?",
		newBalance, now, wallet.SellerID, wallet.Version)
	if err != nil {
		return models.WalletTransaction{}, apperr.Persistence("update wallet balance", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return models.WalletTransaction{}, apperr.Persistence("update wallet balance", err)
	} else if n == 0 {
		return models.WalletTransaction{}, &apperr.StaleStateError{
			Resource: ResourceWallet, ID: wallet.SellerID, Current: "modified concurrently", Expected: []string{"unchanged"},
		}
	}

	entry := models.WalletTransaction{
		ID:           uuid.NewString(),
		SellerID:     wallet.SellerID,
		Type:         txType,
		Amount:       delta,
		BalanceAfter: newBalance,
		Reason:       reason,
		ReferenceID:  referenceID,
		CreatedAt:    now,
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO wallet_transactions
			(id, seller_id, type, amount, balance_after, reason, reference_id, created_at)
		VALUES
			(:id, :seller_id, :type, :amount, :balance_after, :reason, :reference_id, :created_at)`, entry)
	if err != nil {
		return models.WalletTransaction{}, apperr.Persistence("add wallet transaction", err)
	}
	return entry, nil
}

// History returns the seller's ledger rows, newest first.
func (w *Wallets) History(ctx context.Context, sellerID string, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	out := []models.WalletTransaction{}
	err := w.db.SelectContext(ctx, &out, `
		SELECT id, seller_id, type, amount, balance_after, reason, reference_id, created_at
		FROM wallet_transactions
		WHERE seller_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, sellerID, limit)
	if err != nil {
		return nil, apperr.Persistence("list wallet transactions", err)
	}
	return out, nil
}
