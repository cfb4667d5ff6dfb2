package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodhall-backend/internal/locks"
	"github.com/angelmondragon/foodhall-backend/pkg/db"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/pagination"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newMemoryService(t *testing.T) (Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	svc, err := NewService(ServiceParams{Repo: repo, Tx: db.NoTx{}, Locker: locks.NewKeyedMutex()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

func TestOrderPaymentInsufficientFundsWritesNothing(t *testing.T) {
	svc, repo := newMemoryService(t)
	ctx := context.Background()
	if _, err := svc.Deposit(ctx, 1, dec("50.00")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	_, err := svc.Append(ctx, AppendInput{UserID: 1, Type: enums.WalletTxOrderPayment, Amount: dec("249.99")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	balance, err := svc.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(dec("50.00")) {
		t.Fatalf("expected balance 50.00 got %s", balance)
	}
	rows, _ := repo.ListAll(ctx, 1)
	if len(rows) != 1 {
		t.Fatalf("expected only the deposit to be recorded, got %d rows", len(rows))
	}
}

func TestOrderPaymentDebitsBalance(t *testing.T) {
	svc, repo := newMemoryService(t)
	ctx := context.Background()
	if _, err := svc.Deposit(ctx, 1, dec("300.00")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	orderID := int64(77)

	row, err := svc.Append(ctx, AppendInput{UserID: 1, Type: enums.WalletTxOrderPayment, Amount: dec("249.99"), RelatedOrderID: &orderID})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !row.Amount.Equal(dec("-249.99")) {
		t.Fatalf("expected debit stored negative, got %s", row.Amount)
	}
	if !row.BalanceAfter.Equal(dec("50.01")) {
		t.Fatalf("expected balance_after 50.01 got %s", row.BalanceAfter)
	}
	if row.Seq != 2 {
		t.Fatalf("expected seq 2 got %d", row.Seq)
	}

	balance, _ := svc.Balance(ctx, 1)
	if !balance.Equal(dec("50.01")) {
		t.Fatalf("expected balance 50.01 got %s", balance)
	}
	rows, _ := repo.ListAll(ctx, 1)
	if len(rows) != 2 {
		t.Fatalf("expected two ledger rows, got %d", len(rows))
	}
}

func TestEmptyWalletBalanceIsZero(t *testing.T) {
	svc, _ := newMemoryService(t)
	balance, err := svc.Balance(context.Background(), 9)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero got %s", balance)
	}
	if _, err := svc.Withdraw(context.Background(), 9, dec("0.01")); !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestAppendValidation(t *testing.T) {
	svc, _ := newMemoryService(t)
	ctx := context.Background()
	cases := []AppendInput{
		{UserID: 0, Type: enums.WalletTxDeposit, Amount: dec("1")},
		{UserID: 1, Type: enums.WalletTransactionType("gift"), Amount: dec("1")},
		{UserID: 1, Type: enums.WalletTxDeposit, Amount: dec("0")},
		{UserID: 1, Type: enums.WalletTxDeposit, Amount: dec("-5")},
		{UserID: 1, Type: enums.WalletTxDeposit, Amount: dec("1.005")},
	}
	for _, input := range cases {
		if _, err := svc.Append(ctx, input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

func TestReplayReconcilesEveryEntry(t *testing.T) {
	svc, _ := newMemoryService(t)
	ctx := context.Background()
	steps := []AppendInput{
		{UserID: 4, Type: enums.WalletTxDeposit, Amount: dec("100.00")},
		{UserID: 4, Type: enums.WalletTxOrderPayment, Amount: dec("64.50")},
		{UserID: 4, Type: enums.WalletTxRefund, Amount: dec("64.50")},
		{UserID: 4, Type: enums.WalletTxCouponBonus, Amount: dec("10.00")},
		{UserID: 4, Type: enums.WalletTxWithdrawal, Amount: dec("110.00")},
	}
	for _, step := range steps {
		if _, err := svc.Append(ctx, step); err != nil {
			t.Fatalf("append %s: %v", step.Type, err)
		}
	}
	if _, err := svc.Withdraw(ctx, 4, dec("0.01")); !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected overdraft rejection, got %v", err)
	}

	balance, err := svc.Replay(ctx, 4)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected replayed balance 0 got %s", balance)
	}
}

func TestReconcileDetectsTampering(t *testing.T) {
	rows := []models.WalletTransaction{
		{Seq: 1, Type: enums.WalletTxDeposit, Amount: dec("20"), BalanceAfter: dec("20")},
		{Seq: 2, Type: enums.WalletTxWithdrawal, Amount: dec("-5"), BalanceAfter: dec("16")},
	}
	if _, err := Reconcile(rows); !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected reconciliation failure, got %v", err)
	}

	rows[1].BalanceAfter = dec("15")
	rows[1].Amount = dec("5")
	if _, err := Reconcile(rows); err == nil {
		t.Fatalf("expected sign violation to be reported")
	}

	rows[1].Amount = dec("-5")
	got, err := Reconcile(rows)
	if err != nil || !got.Equal(dec("15")) {
		t.Fatalf("expected clean replay to 15, got %s err=%v", got, err)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, _ := newMemoryService(t)
	ctx := context.Background()
	if _, err := svc.Deposit(ctx, 2, dec("100.00")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Withdraw(ctx, 2, dec("30.00")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 {
		t.Fatalf("expected exactly 3 withdrawals to succeed, got %d", succeeded)
	}
	balance, err := svc.Replay(ctx, 2)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !balance.Equal(dec("10.00")) {
		t.Fatalf("expected 10.00 got %s", balance)
	}
}

func TestListTransactionsPaginatesNewestFirst(t *testing.T) {
	svc, _ := newMemoryService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := svc.Deposit(ctx, 3, dec("1.00")); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}

	first, err := svc.ListTransactions(ctx, 3, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Transactions) != 2 || first.Transactions[0].Seq != 5 || first.NextCursor == "" {
		t.Fatalf("unexpected first page %+v", first)
	}

	second, err := svc.ListTransactions(ctx, 3, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if second.Transactions[0].Seq != 3 {
		t.Fatalf("expected page to continue at seq 3, got %d", second.Transactions[0].Seq)
	}

	if _, err := svc.ListTransactions(ctx, 3, pagination.Params{Cursor: "%%%"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad cursor, got %v", err)
	}
}
