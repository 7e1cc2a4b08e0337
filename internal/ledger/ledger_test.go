package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/database"
	"github.com/artisanmarket/promo-engine/internal/database/dbtest"
	"github.com/artisanmarket/promo-engine/internal/models"
)

var now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreditCreatesWallet(t *testing.T) {
	ctx := context.Background()
	w := NewWallets(dbtest.New(t), clock)

	bal, err := w.Balance(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	entry, err := w.Credit(ctx, "seller-1", dec("50"), models.TxTypeTopUp, "top-up", nil)
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(entry.BalanceAfter))

	bal, err = w.Balance(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(bal), "got %s", bal)
}

func TestDebit(t *testing.T) {
	ctx := context.Background()
	w := NewWallets(dbtest.New(t), clock)
	_, err := w.Credit(ctx, "seller-1", dec("50"), models.TxTypeTopUp, "top-up", nil)
	require.NoError(t, err)

	ref := "feature-1"
	entry, err := w.Debit(ctx, "seller-1", dec("40"), models.TxTypeFeatureDebit, "sponsored", &ref)
	require.NoError(t, err)
	assert.True(t, dec("-40").Equal(entry.Amount))
	assert.True(t, dec("10").Equal(entry.BalanceAfter))

	bal, err := w.Balance(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(bal))

	history, err := w.History(ctx, "seller-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	types := []string{history[0].Type, history[1].Type}
	assert.ElementsMatch(t, []string{models.TxTypeTopUp, models.TxTypeFeatureDebit}, types)
}

func TestDebitInsufficientFundsLeavesBalance(t *testing.T) {
	ctx := context.Background()
	w := NewWallets(dbtest.New(t), clock)
	_, err := w.Credit(ctx, "seller-1", dec("10"), models.TxTypeTopUp, "top-up", nil)
	require.NoError(t, err)

	_, err = w.Debit(ctx, "seller-1", dec("20"), models.TxTypeFeatureDebit, "featured", nil)
	var funds *apperr.InsufficientFundsError
	require.True(t, errors.As(err, &funds), "got %v", err)
	assert.True(t, dec("10").Equal(funds.Balance))
	assert.True(t, dec("20").Equal(funds.Required))

	bal, err := w.Balance(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(bal))

	history, err := w.History(ctx, "seller-1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDebitWithoutWallet(t *testing.T) {
	w := NewWallets(dbtest.New(t), clock)
	_, err := w.Debit(context.Background(), "ghost", dec("1"), models.TxTypeFeatureDebit, "x", nil)
	code, _ := apperr.CodeOf(err)
	assert.Equal(t, apperr.CodeInsufficientFunds, code)
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	w := NewWallets(dbtest.New(t), clock)
	for _, amt := range []string{"0", "-5"} {
		_, err := w.Credit(context.Background(), "seller-1", dec(amt), models.TxTypeTopUp, "x", nil)
		code, _ := apperr.CodeOf(err)
		assert.Equal(t, apperr.CodeValidation, code, amt)

		_, err = w.Debit(context.Background(), "seller-1", dec(amt), models.TxTypeFeatureDebit, "x", nil)
		code, _ = apperr.CodeOf(err)
		assert.Equal(t, apperr.CodeValidation, code, amt)
	}
}

func TestStaleVersionIsDetected(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	w := NewWallets(db, clock)
	_, err := w.Credit(ctx, "seller-1", dec("30"), models.TxTypeTopUp, "top-up", nil)
	require.NoError(t, err)

	err = database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		wallet, err := w.Get(ctx, tx, "seller-1")
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx, "UPDATE wallets SET version = version + 1 WHERE seller_id = ?", "seller-1")
		require.NoError(t, err)
		_, err = w.apply(ctx, tx, wallet, dec("-5"), models.TxTypeFeatureDebit, "x", nil)
		return err
	})
	code, _ := apperr.CodeOf(err)
	assert.Equal(t, apperr.CodeStaleState, code)
	assert.True(t, IsConflict(err))
	assert.False(t, IsConflict(apperr.NewNotFound(ResourceWallet, "seller-1")))
	assert.False(t, IsConflict(&apperr.StaleStateError{Resource: "promotional feature", ID: "f-1"}))

	bal, err := w.Balance(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(bal))
}

func TestRevenue(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	r := NewRevenue(db)

	for i, id := range []string{"f-1", "f-2"} {
		err := database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
			_, err := r.RecordTx(ctx, tx, RevenuePromotionalFeature, dec("40"), now.Add(time.Duration(i)*time.Hour), id, "seller-1")
			return err
		})
		require.NoError(t, err)
	}

	// one record per feature
	err := database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		_, err := r.RecordTx(ctx, tx, RevenuePromotionalFeature, dec("40"), now, "f-1", "seller-1")
		return err
	})
	require.Error(t, err)

	recs, err := r.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "f-2", recs[0].FeatureID)

	none, err := r.List(ctx, "seller-2", 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	total, err := r.Total(ctx)
	require.NoError(t, err)
	assert.True(t, dec("80").Equal(total))
}
