package chat

import (
	"context"
	"strings"
	"sync"

	"chatbox/internal/domain"
	"chatbox/internal/store"

	"go.uber.org/zap"
)

const titleMaxLen = 200

// Collaborator is the external model provider: one turn in, reply text
// and a superseding interaction id out.
type Collaborator interface {
	Send(ctx context.Context, prevInteractionID string, history []domain.Message, content, modelName string) (reply string, interactionID string, err error)
}

// Service owns chat lifecycle and message sends, plus the model
// registry. Sends to the same chat are serialized through an in-flight
// set so two turns can never race to set the continuation handle.
type Service struct {
	store  *store.Store
	collab Collaborator
	logger *zap.Logger

	mu       sync.Mutex
	inflight map[int64]struct{}
}

func NewService(st *store.Store, collab Collaborator, logger *zap.Logger) *Service {
	return &Service{
		store:    st,
		collab:   collab,
		logger:   logger,
		inflight: make(map[int64]struct{}),
	}
}

func (s *Service) ListChats(ctx context.Context, archived bool) ([]domain.Chat, error) {
	return s.store.ListChats(ctx, archived)
}

func (s *Service) CreateChat(ctx context.Context) (*domain.Chat, error) {
	chat, err := s.store.CreateChat(ctx, domain.DefaultTitle, "")
	if err != nil {
		return nil, err
	}
	s.logger.Info("chat created", zap.Int64("chat_id", chat.ID))
	return chat, nil
}

func (s *Service) GetChat(ctx context.Context, id int64) (*domain.Chat, []domain.Message, error) {
	chat, err := s.store.GetChat(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return chat, messages, nil
}

func (s *Service) RenameChat(ctx context.Context, id int64, title string) (*domain.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.Validationf("title is required")
	}
	if len([]rune(title)) > titleMaxLen {
		return nil, domain.Validationf("title too long (max %d characters)", titleMaxLen)
	}
	return s.store.RenameChat(ctx, id, title)
}

func (s *Service) ArchiveChat(ctx context.Context, id int64) (*domain.Chat, error) {
	return s.store.SetArchived(ctx, id, true)
}

func (s *Service) RestoreChat(ctx context.Context, id int64) (*domain.Chat, error) {
	return s.store.SetArchived(ctx, id, false)
}

func (s *Service) DeleteChat(ctx context.Context, id int64) error {
	if err := s.store.DeleteChat(ctx, id); err != nil {
		return err
	}
	s.logger.Info("chat deleted", zap.Int64("chat_id", id))
	return nil
}

// SendMessage appends the user message, runs one provider turn and, on
// success, appends the reply and records the superseding interaction
// id. On provider failure the user message stays and the chat row is
// left untouched so the previous continuation handle remains live.
func (s *Service) SendMessage(ctx context.Context, chatID int64, content, modelName string) (userMsg, modelMsg *domain.Message, updated *domain.Chat, err error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil, nil, domain.Validationf("message content is required")
	}
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return nil, nil, nil, domain.Validationf("model name is required")
	}

	if !s.acquire(chatID) {
		return nil, nil, nil, domain.ErrChatBusy
	}
	defer s.release(chatID)

	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, nil, nil, err
	}
	if chat.Archived {
		return nil, nil, nil, domain.Validationf("chat is archived; restore it before sending")
	}

	history, err := s.store.ListMessages(ctx, chatID)
	if err != nil {
		return nil, nil, nil, err
	}

	userMsg, err = s.store.AppendMessage(ctx, chatID, domain.RoleUser, content)
	if err != nil {
		return nil, nil, nil, err
	}

	reply, interactionID, err := s.collab.Send(ctx, chat.InteractionID, history, content, modelName)
	if err != nil {
		s.logger.Error("provider call failed",
			zap.Int64("chat_id", chatID),
			zap.String("model", modelName),
			zap.Error(err))
		return userMsg, nil, nil, &domain.ProviderError{Err: err}
	}

	modelMsg, err = s.store.AppendMessage(ctx, chatID, domain.RoleModel, reply)
	if err != nil {
		return userMsg, nil, nil, err
	}

	title := chat.Title
	if title == domain.DefaultTitle {
		title = domain.DeriveTitle(content)
	}

	updated, err = s.store.UpdateAfterTurn(ctx, chatID, interactionID, modelName, title)
	if err != nil {
		return userMsg, modelMsg, nil, err
	}

	s.logger.Info("turn complete",
		zap.Int64("chat_id", chatID),
		zap.String("model", modelName),
		zap.Int64("user_message_id", userMsg.ID),
		zap.Int64("model_message_id", modelMsg.ID))

	return userMsg, modelMsg, updated, nil
}

func (s *Service) acquire(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[chatID]; busy {
		return false
	}
	s.inflight[chatID] = struct{}{}
	return true
}

func (s *Service) release(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, chatID)
}
