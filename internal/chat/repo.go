package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

// Repository exposes conversation and message persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateConversation inserts a conversation row. The composite unique
// index on (patient_user_id, provider_id) rejects duplicates.
func (r *Repository) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

// FindConversation loads the thread for a (patient, provider) pair.
func (r *Repository) FindConversation(ctx context.Context, patientUserID, providerID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Provider").
		First(&conv, "patient_user_id = ? AND provider_id = ?", patientUserID, providerID).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindConversationByID loads a conversation with its provider.
func (r *Repository) FindConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).Preload("Provider").First(&conv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversationsForPatient returns the user's threads, most recent
// activity first.
func (r *Repository) ListConversationsForPatient(ctx context.Context, patientUserID uuid.UUID, limit int) ([]models.Conversation, error) {
	var rows []models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Provider").
		Where("patient_user_id = ?", patientUserID).
		Order("last_activity_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListConversationsRecent returns the most recently active threads across
// all patients. Staff accounts use this as their shared inbox.
func (r *Repository) ListConversationsRecent(ctx context.Context, limit int) ([]models.Conversation, error) {
	var rows []models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Provider").
		Order("last_activity_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateMessage inserts a message row.
func (r *Repository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// TouchConversation bumps the thread's last activity timestamp.
func (r *Repository) TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("last_activity_at", at).Error
}

// ListMessages returns the thread's messages, newest first, fetching one
// row beyond the limit for next-page detection.
func (r *Repository) ListMessages(ctx context.Context, conversationID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Message, error) {
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Message
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkMessagesRead stamps read_at on unread messages the reader did not
// send. Returns how many rows were stamped.
func (r *Repository) MarkMessagesRead(ctx context.Context, conversationID, readerUserID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_user_id <> ? AND read_at IS NULL", conversationID, readerUserID).
		Update("read_at", at)
	return res.RowsAffected, res.Error
}

// CountUnread returns how many messages in the thread the reader has not
// seen yet.
func (r *Repository) CountUnread(ctx context.Context, conversationID, readerUserID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_user_id <> ? AND read_at IS NULL", conversationID, readerUserID).
		Count(&count).Error
	return count, err
}
