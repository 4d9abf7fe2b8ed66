package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db"
	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
	pkgerrors "github.com/carenest/carenest-backend/pkg/errors"
	"github.com/carenest/carenest-backend/pkg/outbox"
	"github.com/carenest/carenest-backend/pkg/outbox/payloads"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

const messagePreviewLength = 120

// Service covers patient-provider messaging. Patients own their threads;
// nurse and admin accounts respond on the provider's behalf.
type Service interface {
	StartConversation(ctx context.Context, actor Actor, providerID uuid.UUID) (*ConversationDTO, error)
	ListConversations(ctx context.Context, actor Actor, limit int) ([]ConversationDTO, error)
	SendMessage(ctx context.Context, actor Actor, conversationID uuid.UUID, input SendMessageInput) (*MessageDTO, error)
	ListMessages(ctx context.Context, actor Actor, conversationID uuid.UUID, page pagination.Params) (*MessagePage, error)
	MarkRead(ctx context.Context, actor Actor, conversationID uuid.UUID) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type chatRepository interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	FindConversation(ctx context.Context, patientUserID, providerID uuid.UUID) (*models.Conversation, error)
	FindConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversationsForPatient(ctx context.Context, patientUserID uuid.UUID, limit int) ([]models.Conversation, error)
	ListConversationsRecent(ctx context.Context, limit int) ([]models.Conversation, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Message, error)
	MarkMessagesRead(ctx context.Context, conversationID, readerUserID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, conversationID, readerUserID uuid.UUID) (int64, error)
}

type providerRepository interface {
	FindProviderByID(ctx context.Context, id uuid.UUID) (*models.HealthcareProvider, error)
}

type staffDirectory interface {
	ListActiveStaffIDs(ctx context.Context) ([]uuid.UUID, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	db        txRunner
	repo      chatRepository
	providers providerRepository
	staff     staffDirectory
	events    outboxEmitter
	txRepo    func(tx *gorm.DB) chatRepository
}

// ServiceParams wires the chat service dependencies.
type ServiceParams struct {
	DB        txRunner
	Repo      chatRepository
	Providers providerRepository
	Staff     staffDirectory
	Outbox    outboxEmitter

	// Optional tx-scoped repo factory, stubbable in tests.
	TxRepoFactory func(tx *gorm.DB) chatRepository
}

// NewService validates dependencies and builds the chat service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("chat service requires a transaction runner")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("chat service requires a chat repository")
	}
	if params.Providers == nil {
		return nil, fmt.Errorf("chat service requires a provider repository")
	}
	if params.Staff == nil {
		return nil, fmt.Errorf("chat service requires a staff directory")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("chat service requires an outbox emitter")
	}
	svc := &service{
		db:        params.DB,
		repo:      params.Repo,
		providers: params.Providers,
		staff:     params.Staff,
		events:    params.Outbox,
		txRepo:    params.TxRepoFactory,
	}
	if svc.txRepo == nil {
		svc.txRepo = func(tx *gorm.DB) chatRepository { return NewRepository(tx) }
	}
	return svc, nil
}

func (s *service) StartConversation(ctx context.Context, actor Actor, providerID uuid.UUID) (*ConversationDTO, error) {
	provider, err := s.providers.FindProviderByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "provider not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load provider")
	}
	if !provider.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "provider not found")
	}

	existing, err := s.repo.FindConversation(ctx, actor.UserID, providerID)
	if err == nil {
		return conversationFromModel(existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load conversation")
	}

	conv := &models.Conversation{
		PatientUserID:  actor.UserID,
		ProviderID:     providerID,
		LastActivityAt: time.Now(),
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		// A concurrent request may have created the thread first.
		if db.IsUniqueViolation(err, "ux_conversations_patient_provider") {
			existing, lookupErr := s.repo.FindConversation(ctx, actor.UserID, providerID)
			if lookupErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lookupErr, "load conversation")
			}
			return conversationFromModel(existing), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create conversation")
	}
	conv.Provider = provider
	return conversationFromModel(conv), nil
}

// ListConversations returns the actor's threads. Patients see their own;
// staff see the shared inbox of every thread, most recent activity first.
func (s *service) ListConversations(ctx context.Context, actor Actor, limit int) ([]ConversationDTO, error) {
	var (
		rows []models.Conversation
		err  error
	)
	if actor.Role == enums.UserRoleNurse || actor.Role == enums.UserRoleAdmin {
		rows, err = s.repo.ListConversationsRecent(ctx, pagination.NormalizeLimit(limit))
	} else {
		rows, err = s.repo.ListConversationsForPatient(ctx, actor.UserID, pagination.NormalizeLimit(limit))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list conversations")
	}
	dtos := make([]ConversationDTO, 0, len(rows))
	for i := range rows {
		dto := conversationFromModel(&rows[i])
		unread, err := s.repo.CountUnread(ctx, rows[i].ID, actor.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread")
		}
		dto.UnreadCount = unread
		dtos = append(dtos, *dto)
	}
	return dtos, nil
}

func (s *service) SendMessage(ctx context.Context, actor Actor, conversationID uuid.UUID, input SendMessageInput) (*MessageDTO, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content is required")
	}
	msgType := input.Type
	if msgType == "" {
		msgType = enums.MessageTypeText
	}
	if !msgType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid message type %q", msgType))
	}
	conv, err := s.requireParticipant(ctx, actor, conversationID)
	if err != nil {
		return nil, err
	}

	// Staff-sent messages notify the patient; patient-sent messages fan
	// out to every active staff account covering the provider side.
	var recipients []uuid.UUID
	if actor.UserID != conv.PatientUserID {
		recipients = append(recipients, conv.PatientUserID)
	} else {
		staffIDs, err := s.staff.ListActiveStaffIDs(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list staff recipients")
		}
		recipients = staffIDs
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderUserID:   actor.UserID,
		Type:           msgType,
		Content:        content,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		if err := repo.CreateMessage(ctx, msg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create message")
		}
		if err := repo.TouchConversation(ctx, conversationID, time.Now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "touch conversation")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMessageSent,
			AggregateType: enums.AggregateConversation,
			AggregateID:   conversationID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID},
			Data: payloads.MessageSentEvent{
				MessageID:      msg.ID,
				ConversationID: conversationID,
				SenderUserID:   actor.UserID,
				RecipientIDs:   recipients,
				Type:           msgType,
				Preview:        preview(content),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return messageFromModel(msg), nil
}

func (s *service) ListMessages(ctx context.Context, actor Actor, conversationID uuid.UUID, page pagination.Params) (*MessagePage, error) {
	if _, err := s.requireParticipant(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(page.Limit)
	rows, err := s.repo.ListMessages(ctx, conversationID, cursor, pagination.LimitWithBuffer(page.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list messages")
	}
	out := &MessagePage{Items: make([]MessageDTO, 0, len(rows))}
	for i := range rows {
		if i == limit {
			last := rows[limit-1]
			out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		out.Items = append(out.Items, *messageFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) MarkRead(ctx context.Context, actor Actor, conversationID uuid.UUID) (int64, error) {
	if _, err := s.requireParticipant(ctx, actor, conversationID); err != nil {
		return 0, err
	}
	affected, err := s.repo.MarkMessagesRead(ctx, conversationID, actor.UserID, time.Now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark messages read")
	}
	return affected, nil
}

// requireParticipant loads the conversation and checks the actor may see
// it. Staff accounts cover the provider side of every thread.
func (s *service) requireParticipant(ctx context.Context, actor Actor, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.repo.FindConversationByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load conversation")
	}
	if actor.UserID == conv.PatientUserID {
		return conv, nil
	}
	if actor.Role == enums.UserRoleNurse || actor.Role == enums.UserRoleAdmin {
		return conv, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a participant in this conversation")
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= messagePreviewLength {
		return content
	}
	return string(runes[:messagePreviewLength])
}
