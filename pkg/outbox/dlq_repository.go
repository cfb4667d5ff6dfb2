package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
)

const maxDLQErrorLen = 1024

// DLQRepository stores outbox events the publisher gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(conn *gorm.DB) *DLQRepository {
	return &DLQRepository{db: conn}
}

// InsertTx must run in the same transaction that marks the source event as
// terminal, otherwise a crash could lose it or dead-letter it twice.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = time.Now().UTC()
	}
	if entry.ErrorMessage != nil {
		msg := clipErrorMessage(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns gorm.ErrRecordNotFound when the event was never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var row models.OutboxDLQ
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *DLQRepository) DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	res := conn.WithContext(ctx).
		Where("failed_at < ?", cutoff).
		Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}

// clipErrorMessage keeps at most maxDLQErrorLen bytes without splitting a rune.
func clipErrorMessage(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	cut := maxDLQErrorLen
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}
