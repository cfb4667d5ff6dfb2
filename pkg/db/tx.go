package db

import (
	"context"

	"gorm.io/gorm"
)

// TxRunner is the transaction boundary services depend on. *Client satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NoTx runs fn with a nil transaction. The in-memory backend uses it; its
// repositories ignore the handle and rely on the caller's per-user lock.
type NoTx struct{}

func (NoTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
