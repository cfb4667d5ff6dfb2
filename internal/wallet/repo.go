package wallet

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
)

// Repository stores the append-only ledger. Rows are never updated or deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Last returns the newest entry for userID or gorm.ErrRecordNotFound for an empty wallet.
	Last(ctx context.Context, userID int64) (*models.WalletTransaction, error)
	Create(ctx context.Context, row *models.WalletTransaction) error
	// ListAll returns every entry for userID in ascending seq order.
	ListAll(ctx context.Context, userID int64) ([]models.WalletTransaction, error)
	// ListPage returns up to limit entries with seq < beforeSeq (no bound when 0), newest first.
	ListPage(ctx context.Context, userID, beforeSeq int64, limit int) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Last(ctx context.Context, userID int64) (*models.WalletTransaction, error) {
	var row models.WalletTransaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("seq DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, row *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListAll(ctx context.Context, userID int64) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListPage(ctx context.Context, userID, beforeSeq int64, limit int) ([]models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if beforeSeq > 0 {
		query = query.Where("seq < ?", beforeSeq)
	}
	var rows []models.WalletTransaction
	err := query.Order("seq DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// MemoryRepository keeps each user's ledger in a slice ordered by seq.
type MemoryRepository struct {
	mu     sync.RWMutex
	byUser map[int64][]models.WalletTransaction
	nextID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byUser: make(map[int64][]models.WalletTransaction)}
}

func (m *MemoryRepository) WithTx(*gorm.DB) Repository {
	return m
}

func (m *MemoryRepository) Last(_ context.Context, userID int64) (*models.WalletTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.byUser[userID]
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	last := rows[len(rows)-1]
	return &last, nil
}

func (m *MemoryRepository) Create(_ context.Context, row *models.WalletTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.byUser[row.UserID]
	if len(rows) > 0 && rows[len(rows)-1].Seq >= row.Seq {
		return fmt.Errorf("wallet seq %d for user %d: %w", row.Seq, row.UserID, gorm.ErrDuplicatedKey)
	}
	m.nextID++
	row.ID = m.nextID
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	m.byUser[row.UserID] = append(rows, *row)
	return nil
}

func (m *MemoryRepository) ListAll(_ context.Context, userID int64) ([]models.WalletTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.WalletTransaction(nil), m.byUser[userID]...), nil
}

func (m *MemoryRepository) ListPage(_ context.Context, userID, beforeSeq int64, limit int) ([]models.WalletTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.WalletTransaction
	for _, row := range m.byUser[userID] {
		if beforeSeq > 0 && row.Seq >= beforeSeq {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
