package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodhall-backend/api/middleware"
	"github.com/angelmondragon/foodhall-backend/api/responses"
	"github.com/angelmondragon/foodhall-backend/api/validators"
	"github.com/angelmondragon/foodhall-backend/internal/wallet"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/pagination"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

const maxNoteLength = 200

type WalletBalanceResponse struct {
	UserID  int64  `json:"user_id"`
	Balance string `json:"balance"`
}

type WalletTransactionResponse struct {
	ID             int64                       `json:"id"`
	Seq            int64                       `json:"seq"`
	Type           enums.WalletTransactionType `json:"type"`
	Amount         string                      `json:"amount"`
	BalanceAfter   string                      `json:"balance_after"`
	RelatedOrderID *int64                      `json:"related_order_id,omitempty"`
	Note           *string                     `json:"note,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
}

type WalletTransactionPage struct {
	Transactions []WalletTransactionResponse `json:"transactions"`
	NextCursor   string                      `json:"next_cursor,omitempty"`
}

// WalletAuditResponse compares the stored balance with a full replay of the ledger.
type WalletAuditResponse struct {
	UserID          int64  `json:"user_id"`
	Balance         string `json:"balance"`
	ReplayedBalance string `json:"replayed_balance"`
}

type walletAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type walletBonusRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note" validate:"max=200"`
}

func newWalletTransactionResponse(tx models.WalletTransaction) WalletTransactionResponse {
	return WalletTransactionResponse{
		ID:             tx.ID,
		Seq:            tx.Seq,
		Type:           tx.Type,
		Amount:         types.FormatMoney(tx.Amount),
		BalanceAfter:   types.FormatMoney(tx.BalanceAfter),
		RelatedOrderID: tx.RelatedOrderID,
		Note:           tx.Note,
		CreatedAt:      tx.CreatedAt,
	}
}

func WalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, WalletBalanceResponse{UserID: userID, Balance: types.FormatMoney(balance)})
	}
}

// WalletTransactions pages through the caller's ledger, newest first.
func WalletTransactions(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		page, err := svc.ListTransactions(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := WalletTransactionPage{
			Transactions: make([]WalletTransactionResponse, 0, len(page.Transactions)),
			NextCursor:   page.NextCursor,
		}
		for _, tx := range page.Transactions {
			out.Transactions = append(out.Transactions, newWalletTransactionResponse(tx))
		}
		responses.WriteSuccess(w, out)
	}
}

func WalletDeposit(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return walletMovement(logg, func(r *http.Request, amount decimal.Decimal) (*models.WalletTransaction, error) {
		return svc.Deposit(r.Context(), middleware.UserIDFromContext(r.Context()), amount)
	})
}

func WalletWithdraw(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return walletMovement(logg, func(r *http.Request, amount decimal.Decimal) (*models.WalletTransaction, error) {
		return svc.Withdraw(r.Context(), middleware.UserIDFromContext(r.Context()), amount)
	})
}

func walletMovement(logg *logger.Logger, apply func(*http.Request, decimal.Decimal) (*models.WalletTransaction, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload walletAmountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.PositiveMoney("amount", payload.Amount); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := apply(r, payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWalletTransactionResponse(*entry))
	}
}

// AdminWalletBonus credits a coupon bonus to any user's wallet.
func AdminWalletBonus(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload walletBonusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.PositiveMoney("amount", payload.Amount); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.CreditCouponBonus(r.Context(), userID, payload.Amount, validators.SanitizeString(payload.Note, maxNoteLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWalletTransactionResponse(*entry))
	}
}

func AdminWalletAudit(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		replayed, err := svc.Replay(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, WalletAuditResponse{
			UserID:          userID,
			Balance:         types.FormatMoney(balance),
			ReplayedBalance: types.FormatMoney(replayed),
		})
	}
}
