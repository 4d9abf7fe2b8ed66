package notifications

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/db/models"
	pkgerrors "github.com/carenest/carenest-backend/pkg/errors"
	"github.com/carenest/carenest-backend/pkg/logger"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

const unreadCounterTTL = 24 * time.Hour

// Service covers the user notification feed. The unread total lives in
// a redis counter with the table as fallback and source of truth.
type Service interface {
	Push(ctx context.Context, input PushInput) (*NotificationDTO, error)
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page pagination.Params) (*NotificationPage, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationRepository interface {
	Insert(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, cursor *pagination.Cursor, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

// unreadCache is the slice of the redis client the service needs.
type unreadCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
	UnreadNotificationsKey(userID string) string
}

type service struct {
	repo  notificationRepository
	cache unreadCache
	logg  *logger.Logger
}

// ServiceParams wires the notification service dependencies.
type ServiceParams struct {
	Repo   notificationRepository
	Cache  unreadCache
	Logger *logger.Logger
}

// NewService validates dependencies and builds the notification service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications service requires a repository")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("notifications service requires an unread cache")
	}
	return &service{repo: params.Repo, cache: params.Cache, logg: params.Logger}, nil
}

func (s *service) Push(ctx context.Context, input PushInput) (*NotificationDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid notification type %q", input.Type))
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}

	notification := &models.Notification{
		UserID: input.UserID,
		Type:   input.Type,
		Title:  input.Title,
		Body:   input.Body,
		Link:   input.Link,
	}
	if err := s.repo.Insert(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert notification")
	}
	s.bumpCounter(ctx, input.UserID, func(key string) error {
		_, err := s.cache.Incr(ctx, key)
		return err
	})
	return fromModel(notification), nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page pagination.Params) (*NotificationPage, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(page.Limit)
	rows, err := s.repo.ListForUser(ctx, userID, unreadOnly, cursor, pagination.LimitWithBuffer(page.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}
	out := &NotificationPage{Items: make([]NotificationDTO, 0, len(rows))}
	for i := range rows {
		if i == limit {
			last := rows[limit-1]
			out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		out.Items = append(out.Items, *fromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	affected, err := s.repo.MarkRead(ctx, userID, id, time.Now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	s.bumpCounter(ctx, userID, func(key string) error {
		_, err := s.cache.Decr(ctx, key)
		return err
	})
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID, time.Now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark all notifications read")
	}
	s.bumpCounter(ctx, userID, func(key string) error {
		return s.cache.Set(ctx, key, 0, unreadCounterTTL)
	})
	return affected, nil
}

// UnreadCount reads the redis counter and falls back to a table count,
// repriming the counter on a miss.
func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	key := s.cache.UnreadNotificationsKey(userID.String())
	if raw, err := s.cache.Get(ctx, key); err == nil {
		if count, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil && count >= 0 {
			return count, nil
		}
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread notifications")
	}
	if err := s.cache.Set(ctx, key, count, unreadCounterTTL); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "user_id", userID.String()), "prime unread counter failed")
	}
	return count, nil
}

// bumpCounter applies a counter mutation, dropping the key on failure so
// the next read reprimes from the table.
func (s *service) bumpCounter(ctx context.Context, userID uuid.UUID, mutate func(key string) error) {
	key := s.cache.UnreadNotificationsKey(userID.String())
	if err := mutate(key); err != nil {
		if delErr := s.cache.Del(ctx, key); delErr != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "user_id", userID.String()), "drop unread counter failed")
		}
	}
}
