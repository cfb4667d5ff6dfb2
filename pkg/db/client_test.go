package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicked"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected panic rollback to leave 0 records, got %d", count)
	}
}

func TestIsUniqueViolationDetectsSQLite(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&testModel{Name: "dup"}).Error; err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	err := db.Create(&testModel{Name: "dup"}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(errors.New("connection reset"), "") {
		t.Fatal("unrelated errors must not match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil must not match")
	}
}

func TestNewOpensSQLiteAndMigrates(t *testing.T) {
	cfg := config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}
	client, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.AutoMigrate(); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if !client.DB().Migrator().HasTable(&models.WalletTransaction{}) {
		t.Fatal("expected wallet_transactions table")
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected missing dsn to fail")
	}
}

func TestWithTxRetriesSerializationFailures(t *testing.T) {
	client := &Client{conn: newTestDB(t)}

	attempts := 0
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		attempts++
		if attempts < 2 {
			return &pgconn.PgError{Code: pgSerializationFailure}
		}
		return tx.Create(&testModel{Name: "second-try"}).Error
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}

	attempts = 0
	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		attempts++
		return &pgconn.PgError{Code: pgDeadlockDetected}
	})
	if !IsRetryableTx(err) || attempts != maxTxAttempts {
		t.Fatalf("expected %d attempts ending in deadlock, got %d (%v)", maxTxAttempts, attempts, err)
	}

	attempts = 0
	_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		attempts++
		return &pgconn.PgError{Code: pgUniqueViolation}
	})
	if attempts != 1 {
		t.Fatalf("unique violations must not be retried, got %d attempts", attempts)
	}
}

func TestQueryLoggerReportsSlowAndFailedStatements(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	ql := newQueryLogger(logg, 50*time.Millisecond)
	sqlFn := func() (string, int64) { return "SELECT 1", 1 }

	ql.Trace(context.Background(), time.Now(), sqlFn, nil)
	ql.Trace(context.Background(), time.Now(), sqlFn, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("fast queries and missing rows must stay quiet, got %s", buf.String())
	}

	ql.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)
	if !strings.Contains(buf.String(), "slow query") {
		t.Fatalf("expected slow query entry, got %s", buf.String())
	}

	buf.Reset()
	ql.Trace(context.Background(), time.Now(), sqlFn, errors.New("relation missing"))
	if !strings.Contains(buf.String(), "relation missing") {
		t.Fatalf("expected failed query entry, got %s", buf.String())
	}

	buf.Reset()
	ql.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)
	if buf.Len() != 0 {
		t.Fatalf("silent mode must not log, got %s", buf.String())
	}
}
