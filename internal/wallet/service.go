package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/internal/locks"
	"github.com/angelmondragon/foodhall-backend/pkg/db"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/metrics"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox"
	"github.com/angelmondragon/foodhall-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/foodhall-backend/pkg/pagination"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

// Service is the wallet ledger. Entries are append-only and every entry
// carries the balance immediately after it.
type Service interface {
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	BalanceTx(ctx context.Context, tx *gorm.DB, userID int64) (decimal.Decimal, error)
	Append(ctx context.Context, input AppendInput) (*models.WalletTransaction, error)
	AppendTx(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.WalletTransaction, error)
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*models.WalletTransaction, error)
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (*models.WalletTransaction, error)
	CreditCouponBonus(ctx context.Context, userID int64, amount decimal.Decimal, note string) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, userID int64, params pagination.Params) (*TransactionPage, error)
	Replay(ctx context.Context, userID int64) (decimal.Decimal, error)
}

// AppendInput describes one ledger entry. Amount is a positive magnitude;
// the sign is derived from Type.
type AppendInput struct {
	UserID         int64
	Type           enums.WalletTransactionType
	Amount         decimal.Decimal
	RelatedOrderID *int64
	Note           *string
}

type TransactionPage struct {
	Transactions []models.WalletTransaction
	NextCursor   string
}

type ServiceParams struct {
	Repo    Repository
	Tx      db.TxRunner
	Locker  locks.Locker
	Events  outbox.Emitter
	Metrics *metrics.DomainMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	tx      db.TxRunner
	locker  locks.Locker
	events  outbox.Emitter
	metrics *metrics.DomainMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	events := params.Events
	if events == nil {
		events = outbox.NopEmitter{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		locker:  params.Locker,
		events:  events,
		metrics: params.Metrics,
		logg:    logg,
	}, nil
}

func (s *service) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return s.BalanceTx(ctx, nil, userID)
}

func (s *service) BalanceTx(ctx context.Context, tx *gorm.DB, userID int64) (decimal.Decimal, error) {
	last, err := s.repo.WithTx(tx).Last(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet balance")
	}
	return last.BalanceAfter, nil
}

// Append takes the user's lock and records the entry in its own transaction.
func (s *service) Append(ctx context.Context, input AppendInput) (*models.WalletTransaction, error) {
	unlock, err := s.locker.Lock(ctx, locks.UserKey(input.UserID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var row *models.WalletTransaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var appendErr error
		row, appendErr = s.AppendTx(ctx, tx, input)
		return appendErr
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// AppendTx records the entry inside tx. The caller must hold the user's lock.
// A debit that would take the balance below zero is rejected and nothing is written.
func (s *service) AppendTx(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.WalletTransaction, error) {
	if err := validateAppend(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	var (
		prevBalance = decimal.Zero
		prevSeq     int64
	)
	last, err := repo.Last(ctx, input.UserID)
	switch {
	case err == nil:
		prevBalance = last.BalanceAfter
		prevSeq = last.Seq
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet balance")
	}

	amount := SignedAmount(input.Type, input.Amount)
	balance := prevBalance.Add(amount)
	if balance.IsNegative() {
		s.metrics.WalletRejected(input.Type.String())
		return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientFunds, "wallet balance %s does not cover %s", types.FormatMoney(prevBalance), types.FormatMoney(input.Amount)).
			WithDetails(map[string]string{
				"balance":  types.FormatMoney(prevBalance),
				"required": types.FormatMoney(input.Amount),
			})
	}

	row := &models.WalletTransaction{
		UserID:         input.UserID,
		Seq:            prevSeq + 1,
		Type:           input.Type,
		Amount:         amount,
		BalanceAfter:   balance,
		RelatedOrderID: input.RelatedOrderID,
		Note:           input.Note,
	}
	if err := repo.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "wallet_transactions_user_seq_key") || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeBusy, err, "concurrent wallet update")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append wallet transaction")
	}

	if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventWalletTransactionRecorded,
		AggregateType: enums.AggregateWalletTransaction,
		AggregateID:   row.ID,
		Actor:         &outbox.ActorRef{UserID: row.UserID},
		Data: payloads.WalletTransactionRecordedEvent{
			TransactionID:  row.ID,
			UserID:         row.UserID,
			Seq:            row.Seq,
			Type:           row.Type,
			Amount:         types.FormatMoney(row.Amount),
			BalanceAfter:   types.FormatMoney(row.BalanceAfter),
			RelatedOrderID: row.RelatedOrderID,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit wallet event")
	}

	s.metrics.WalletAppended(row.Type.String())
	logCtx := s.logg.WithUserID(ctx, row.UserID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"wallet_seq":    row.Seq,
		"wallet_type":   row.Type.String(),
		"amount":        types.FormatMoney(row.Amount),
		"balance_after": types.FormatMoney(row.BalanceAfter),
	})
	s.logg.Info(logCtx, "wallet.appended")
	return row, nil
}

func (s *service) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*models.WalletTransaction, error) {
	return s.Append(ctx, AppendInput{UserID: userID, Type: enums.WalletTxDeposit, Amount: amount})
}

func (s *service) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (*models.WalletTransaction, error) {
	return s.Append(ctx, AppendInput{UserID: userID, Type: enums.WalletTxWithdrawal, Amount: amount})
}

func (s *service) CreditCouponBonus(ctx context.Context, userID int64, amount decimal.Decimal, note string) (*models.WalletTransaction, error) {
	input := AppendInput{UserID: userID, Type: enums.WalletTxCouponBonus, Amount: amount}
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		input.Note = &trimmed
	}
	return s.Append(ctx, input)
}

func (s *service) ListTransactions(ctx context.Context, userID int64, params pagination.Params) (*TransactionPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var beforeSeq int64
	if cursor != nil {
		beforeSeq = cursor.Position
	}
	rows, err := s.repo.ListPage(ctx, userID, beforeSeq, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	page, next := pagination.Page(rows, params.Limit, func(row models.WalletTransaction) int64 { return row.Seq })
	return &TransactionPage{Transactions: page, NextCursor: next}, nil
}

// Replay walks the ledger from an implicit zero balance and checks every
// balance_after against the running sum. It returns the final balance.
func (s *service) Replay(ctx context.Context, userID int64) (decimal.Decimal, error) {
	rows, err := s.repo.ListAll(ctx, userID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	return Reconcile(rows)
}

// Reconcile verifies a ledger given in ascending seq order.
func Reconcile(rows []models.WalletTransaction) (decimal.Decimal, error) {
	balance := decimal.Zero
	for i, row := range rows {
		if row.Seq != int64(i+1) {
			return balance, pkgerrors.Newf(pkgerrors.CodeInternal, "wallet ledger gap: expected seq %d got %d", i+1, row.Seq)
		}
		if !row.Amount.Equal(SignedAmount(row.Type, row.Amount.Abs())) {
			return balance, pkgerrors.Newf(pkgerrors.CodeInternal, "wallet entry %d has amount %s with the wrong sign for %s", row.Seq, row.Amount, row.Type)
		}
		balance = balance.Add(row.Amount)
		if !balance.Equal(row.BalanceAfter) {
			return balance, pkgerrors.Newf(pkgerrors.CodeInternal, "wallet entry %d balance_after %s, replay gives %s", row.Seq, types.FormatMoney(row.BalanceAfter), types.FormatMoney(balance))
		}
		if balance.IsNegative() {
			return balance, pkgerrors.Newf(pkgerrors.CodeInternal, "wallet entry %d leaves a negative balance", row.Seq)
		}
	}
	return balance, nil
}

// SignedAmount applies the ledger convention: debits negative, credits positive.
func SignedAmount(txType enums.WalletTransactionType, magnitude decimal.Decimal) decimal.Decimal {
	magnitude = magnitude.Abs().Round(types.MoneyScale)
	if txType.IsDebit() {
		return magnitude.Neg()
	}
	return magnitude
}

func validateAppend(input AppendInput) error {
	if input.UserID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid wallet transaction type %q", input.Type)
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than 0")
	}
	if !input.Amount.Equal(input.Amount.Round(types.MoneyScale)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount has more than two decimal places")
	}
	return nil
}
