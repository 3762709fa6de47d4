package chat

import (
	"context"
	"strings"

	"chatbox/internal/domain"

	"go.uber.org/zap"
)

// Model registry operations. Models are plain labels; chats keep the
// name used at send time, so registry changes never rewrite history.

func (s *Service) ListModels(ctx context.Context) ([]domain.Model, error) {
	return s.store.ListModels(ctx)
}

func (s *Service) AddModel(ctx context.Context, name string) (*domain.Model, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validationf("model name is required")
	}
	model, err := s.store.CreateModel(ctx, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("model added", zap.Int64("model_id", model.ID), zap.String("name", model.Name))
	return model, nil
}

func (s *Service) RenameModel(ctx context.Context, id int64, name string) (*domain.Model, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validationf("model name is required")
	}
	return s.store.RenameModel(ctx, id, name)
}

func (s *Service) DeleteModel(ctx context.Context, id int64) error {
	if err := s.store.DeleteModel(ctx, id); err != nil {
		return err
	}
	s.logger.Info("model deleted", zap.Int64("model_id", id))
	return nil
}
