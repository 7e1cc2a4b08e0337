package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the model for the 'wallets' table. Version guards concurrent
// balance updates.
type Wallet struct {
	SellerID  string          `json:"sellerId" db:"seller_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Version   int             `json:"-" db:"version"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// Wallet transaction types.
const (
	TxTypeTopUp        = "topup"
	TxTypeFeatureDebit = "promotional_feature"
	TxTypeRefund       = "refund"
	TxTypePayout       = "payout"
)

// WalletTransaction is the model for the append-only 'wallet_transactions' table.
type WalletTransaction struct {
	ID           string          `json:"id" db:"id"`
	SellerID     string          `json:"sellerId" db:"seller_id"`
	Type         string          `json:"type" db:"type"`
	Amount       decimal.Decimal `json:"amount" db:"amount"` // Positive for credits, negative for debits
	BalanceAfter decimal.Decimal `json:"balanceAfter" db:"balance_after"`
	Reason       string          `json:"reason" db:"reason"`
	ReferenceID  *string         `json:"referenceId,omitempty" db:"reference_id"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}

// RevenueRecord is the model for the append-only 'revenue_records' table.
type RevenueRecord struct {
	ID          string          `json:"id" db:"id"`
	Type        string          `json:"type" db:"type"`
	GrossAmount decimal.Decimal `json:"grossAmount" db:"gross_amount"`
	PaymentDate time.Time       `json:"paymentDate" db:"payment_date"`
	Status      string          `json:"status" db:"status"`
	FeatureID   string          `json:"featureId" db:"feature_id"`
	SellerID    string          `json:"sellerId" db:"seller_id"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}
