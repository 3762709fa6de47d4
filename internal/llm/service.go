package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatbox/internal/domain"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"
)

// Service talks to the Gemini API on behalf of the chat service. The
// binding is stateless, so prior turns are re-sent under a token budget
// and a fresh interaction id is minted per successful turn. The id is
// opaque to callers: they store it, compare it, and replace it, nothing
// more.
type Service struct {
	model       llms.Model
	timeout     time.Duration
	tokenBudget int
	encoder     *tiktoken.Tiktoken
	logger      *zap.Logger
}

func New(ctx context.Context, apiKey string, timeout time.Duration, tokenBudget int, logger *zap.Logger) (*Service, error) {
	model, err := googleai.New(ctx, googleai.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		// Fall back to the rune heuristic in countTokens.
		logger.Warn("tiktoken encoding unavailable", zap.Error(err))
		encoder = nil
	}

	return &Service{
		model:       model,
		timeout:     timeout,
		tokenBudget: tokenBudget,
		encoder:     encoder,
		logger:      logger,
	}, nil
}

// Send runs one turn against the provider and returns the reply text
// together with the interaction id that supersedes prevInteractionID.
func (s *Service) Send(ctx context.Context, prevInteractionID string, history []domain.Message, content, modelName string) (string, string, error) {
	msgs := s.buildMessages(history, content)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.model.GenerateContent(ctx, msgs, llms.WithModel(modelName))
	if err != nil {
		return "", "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("model %q returned no choices", modelName)
	}

	reply := strings.TrimSpace(resp.Choices[0].Content)
	if reply == "" {
		return "", "", fmt.Errorf("model %q returned an empty reply", modelName)
	}

	interactionID := uuid.NewString()
	s.logger.Debug("model turn complete",
		zap.String("model", modelName),
		zap.String("prev_interaction_id", prevInteractionID),
		zap.String("interaction_id", interactionID),
		zap.Int("history_len", len(history)))

	return reply, interactionID, nil
}

// buildMessages converts persisted history into provider messages,
// dropping the oldest turns once the token budget is spent. The current
// user content is always included.
func (s *Service) buildMessages(history []domain.Message, content string) []llms.MessageContent {
	budget := s.tokenBudget - s.countTokens(content)

	keep := 0
	for i := len(history) - 1; i >= 0; i-- {
		cost := s.countTokens(history[i].Content)
		if cost > budget {
			break
		}
		budget -= cost
		keep++
	}

	msgs := make([]llms.MessageContent, 0, keep+1)
	for _, m := range history[len(history)-keep:] {
		role := llms.ChatMessageTypeHuman
		if m.Role == domain.RoleModel {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}
	return append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, content))
}

func (s *Service) countTokens(text string) int {
	if s.encoder != nil {
		return len(s.encoder.Encode(text, nil, nil))
	}
	// Rough heuristic: ~4 runes per token.
	return len([]rune(text))/4 + 1
}
