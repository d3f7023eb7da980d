package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// eventDedupRepository remembers processed verification commands until their dedup window
// closes; an expired row counts as unseen.
type eventDedupRepository struct {
	db *gorm.DB
}

func (r *eventDedupRepository) IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error) {
	var rows []eventDedupModel
	err := r.db.WithContext(ctx).
		Select("event_id").
		Where("event_id = ? AND expires_at > ?", eventID, now).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// MarkProcessed upserts so a command re-delivered after its window expired extends it.
func (r *eventDedupRepository) MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error {
	row := eventDedupModel{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"event_type", "processed_at", "expires_at"}),
	}).Create(&row).Error
}
