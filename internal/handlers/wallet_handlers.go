package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/artisanmarket/promo-engine/internal/audit"
	"github.com/artisanmarket/promo-engine/internal/middleware"
	"github.com/artisanmarket/promo-engine/internal/models"
	"github.com/artisanmarket/promo-engine/internal/validation"
)

//
// --- Wallet HTTP Handlers ---
//

// GetWalletBalance is the handler for GET /v1/wallet/balance
// A seller without a wallet has a balance of zero.
func (h *Handlers) GetWalletBalance(c *gin.Context) {
	// 1. --- Get User ID ---
	sellerID := c.GetString(middleware.KeyUserID)

	// 2. --- Get Current Balance ---
	balance, err := h.Wallets.Balance(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. --- Send Response ---
	c.JSON(http.StatusOK, gin.H{"sellerId": sellerID, "balance": balance.StringFixed(2)})
}

// GetWalletTransactions is the handler for GET /v1/wallet/transactions?limit=
func (h *Handlers) GetWalletTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	history, err := h.Wallets.History(c.Request.Context(), c.GetString(middleware.KeyUserID), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": history})
}

// creditInput is an admin top-up.
type creditInput struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Reason string          `json:"reason" validate:"required,max=255"`
}

// CreditWallet is the handler for POST /v1/admin/wallets/:sellerId/credit
// It tops up a seller's wallet, creating it on first use.
func (h *Handlers) CreditWallet(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	sellerID := c.Param("sellerId")

	// 1. --- Bind And Validate ---
	var input creditInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if err := validation.Struct(input); err != nil {
		respondError(c, err)
		return
	}

	// 2. --- Read Balance Before ---
	before, err := h.Wallets.Balance(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. --- Credit ---
	tx, err := h.Wallets.Credit(c.Request.Context(), sellerID, input.Amount, models.TxTypeTopUp, input.Reason, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	// 4. --- Audit ---
	h.Audit.Record(c.Request.Context(), actor, audit.ActionCreditWallet, audit.TargetWallet, sellerID,
		gin.H{"balance": before.StringFixed(2)},
		gin.H{"balance": tx.BalanceAfter.StringFixed(2)},
		"Credited "+input.Amount.StringFixed(2)+": "+input.Reason)

	c.JSON(http.StatusOK, gin.H{"message": "Wallet credited", "transaction": tx})
}
