package reminders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

// Repository exposes reminder persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a reminder row.
func (r *Repository) Create(ctx context.Context, reminder *models.Reminder) error {
	return r.db.WithContext(ctx).Create(reminder).Error
}

// FindByID loads a reminder by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	var reminder models.Reminder
	if err := r.db.WithContext(ctx).First(&reminder, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reminder, nil
}

// Save persists the reminder's mutable fields.
func (r *Repository) Save(ctx context.Context, reminder *models.Reminder) error {
	return r.db.WithContext(ctx).Save(reminder).Error
}

// Delete removes a reminder.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Reminder{}, "id = ?", id).Error
}

// visibleTo scopes a query to reminders the user owns or is assigned to.
func visibleTo(query *gorm.DB, userID uuid.UUID) *gorm.DB {
	return query.Where("(owner_user_id = ? OR assigned_to_user_id = ?)", userID, userID)
}

// ListForUser returns reminders the user owns or is assigned, soonest
// first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]models.Reminder, error) {
	query := visibleTo(r.db.WithContext(ctx), userID)
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if !filter.IncludeCompleted {
		query = query.Where("completed_at IS NULL")
	}
	if filter.From != nil {
		query = query.Where("scheduled_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("scheduled_at < ?", *filter.To)
	}
	var rows []models.Reminder
	err := query.Order("scheduled_at ASC").Limit(pagination.NormalizeLimit(filter.Limit)).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountStats aggregates the user's reminder buckets. Open reminders fall
// into exactly one of overdue (before today), today, or upcoming (after
// today), bounded by the calendar day containing now.
func (r *Repository) CountStats(ctx context.Context, userID uuid.UUID, now time.Time) (*Stats, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	stats := &Stats{}
	base := func() *gorm.DB {
		return visibleTo(r.db.WithContext(ctx).Model(&models.Reminder{}), userID)
	}
	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("completed_at IS NOT NULL").Count(&stats.Completed).Error; err != nil {
		return nil, err
	}
	if err := base().Where("completed_at IS NULL AND scheduled_at < ?", dayStart).Count(&stats.Overdue).Error; err != nil {
		return nil, err
	}
	if err := base().Where("completed_at IS NULL AND scheduled_at >= ? AND scheduled_at < ?", dayStart, dayEnd).Count(&stats.Today).Error; err != nil {
		return nil, err
	}
	if err := base().Where("completed_at IS NULL AND scheduled_at >= ?", dayEnd).Count(&stats.Upcoming).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// ListDue returns open reminders inside the notification window that have
// not been notified for their current occurrence. MarkNotified records
// the occurrence by stamping last_notified_at with scheduled_at, so a
// row becomes eligible again only after its schedule advances.
func (r *Repository) ListDue(ctx context.Context, now time.Time, lookahead time.Duration, limit int) ([]models.Reminder, error) {
	var rows []models.Reminder
	err := r.db.WithContext(ctx).
		Where("completed_at IS NULL").
		Where("scheduled_at <= ?", now.Add(lookahead)).
		Where("last_notified_at IS NULL OR last_notified_at < scheduled_at").
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkNotified stamps the reminder's current occurrence as notified.
func (r *Repository) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Reminder{}).
		Where("id = ?", id).
		Update("last_notified_at", at).Error
}
