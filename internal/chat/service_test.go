package chat

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"chatbox/internal/domain"
	"chatbox/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type collabFunc func(ctx context.Context, prev string, history []domain.Message, content, modelName string) (string, string, error)

func (f collabFunc) Send(ctx context.Context, prev string, history []domain.Message, content, modelName string) (string, string, error) {
	return f(ctx, prev, history, content, modelName)
}

func echoCollab(interactionID string) collabFunc {
	return func(_ context.Context, _ string, _ []domain.Message, content, _ string) (string, string, error) {
		return "echo: " + content, interactionID, nil
	}
}

func newTestService(t *testing.T, collab Collaborator) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "chatbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, collab, zap.NewNop())
}

func TestSendMessageFirstTurn(t *testing.T) {
	svc := newTestService(t, echoCollab("itx-1"))
	ctx := context.Background()

	c, err := svc.CreateChat(ctx)
	require.NoError(t, err)

	userMsg, modelMsg, updated, err := svc.SendMessage(ctx, c.ID, "Hello", "gemini-3-flash-preview")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleUser, userMsg.Role)
	assert.Equal(t, "Hello", userMsg.Content)
	assert.Equal(t, domain.RoleModel, modelMsg.Role)
	assert.Equal(t, "echo: Hello", modelMsg.Content)

	assert.Equal(t, "Hello", updated.Title)
	assert.Equal(t, "gemini-3-flash-preview", updated.LastModel)
	assert.Equal(t, "itx-1", updated.InteractionID)

	_, messages, err := svc.GetChat(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Equal(t, domain.RoleModel, messages[1].Role)
}

func TestSendMessageSupersedesInteractionID(t *testing.T) {
	var prevSeen []string
	turn := 0
	collab := collabFunc(func(_ context.Context, prev string, _ []domain.Message, _, _ string) (string, string, error) {
		prevSeen = append(prevSeen, prev)
		turn++
		if turn == 1 {
			return "first", "itx-1", nil
		}
		return "second", "itx-2", nil
	})
	svc := newTestService(t, collab)
	ctx := context.Background()

	c, err := svc.CreateChat(ctx)
	require.NoError(t, err)

	_, _, _, err = svc.SendMessage(ctx, c.ID, "one", "gemini-3-flash-preview")
	require.NoError(t, err)
	_, _, updated, err := svc.SendMessage(ctx, c.ID, "two", "gemini-3-flash-preview")
	require.NoError(t, err)

	require.Equal(t, []string{"", "itx-1"}, prevSeen)
	assert.Equal(t, "itx-2", updated.InteractionID)
}

func TestSendMessageProviderFailure(t *testing.T) {
	collab := collabFunc(func(context.Context, string, []domain.Message, string, string) (string, string, error) {
		return "", "", errors.New("deadline exceeded")
	})
	svc := newTestService(t, collab)
	ctx := context.Background()

	c, err := svc.CreateChat(ctx)
	require.NoError(t, err)

	userMsg, modelMsg, updated, err := svc.SendMessage(ctx, c.ID, "Hello", "gemini-3-flash-preview")

	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Nil(t, modelMsg)
	assert.Nil(t, updated)

	// The user message survives the failed call.
	require.NotNil(t, userMsg)
	after, messages, err := svc.GetChat(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, domain.RoleUser, messages[0].Role)

	// Chat row untouched: continuation handle, title and updated_at
	// all keep their pre-call values.
	assert.Equal(t, c.InteractionID, after.InteractionID)
	assert.Equal(t, c.Title, after.Title)
	assert.True(t, after.UpdatedAt.Equal(c.UpdatedAt))
}

func TestSendMessageValidation(t *testing.T) {
	svc := newTestService(t, echoCollab("itx-1"))
	ctx := context.Background()

	c, err := svc.CreateChat(ctx)
	require.NoError(t, err)

	tests := []struct {
		name      string
		content   string
		modelName string
	}{
		{"empty content", "", "gemini-3-flash-preview"},
		{"whitespace content", "   \n\t", "gemini-3-flash-preview"},
		{"empty model", "hello", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := svc.SendMessage(ctx, c.ID, tc.content, tc.modelName)
			var validationErr *domain.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	// Nothing was persisted by the rejected sends.
	_, messages, err := svc.GetChat(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestSendMessageUnknownChat(t *testing.T) {
	svc := newTestService(t, echoCollab("itx-1"))

	_, _, _, err := svc.SendMessage(context.Background(), 9999, "hello", "gemini-3-flash-preview")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSendMessageArchivedChatRejected(t *testing.T) {
	svc := newTestService(t, echoCollab("itx-1"))
	ctx := context.Background()

	c, err := svc.CreateChat(ctx)
	require.NoError(t, err)
	_, err = svc.ArchiveChat(ctx, c.ID)
	require.NoError(t, err)

	_, _, _, err = svc.SendMessage(ctx, c.ID, "hello", "gemini-3-flash-preview")
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)

	// Restoring makes the chat sendable again.
	_, err = svc.RestoreChat(ctx, c.ID)
	require.NoError(t, err)
	_, _, _, err = svc.SendMessage(ctx, c.ID, "hello", "gemini-3-flash-preview")
	assert.NoError(t, err)
}

func TestSendMessageRejectsConcurrentTurn(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var enteredOnce sync.Once
	collab := collabFunc(func(context.Context, string, []domain.Message, string, string) (string, string, error) {
		enteredOnce.Do(func() { close(entered) })
		<-release
		return "slow reply", "itx-1", nil
	})
	svc := newTestService(t, collab)
	ctx := context.Background()

	c, err := svc.CreateChat(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, _, _, err := svc.SendMessage(ctx, c.ID, "first", "gemini-3-flash-preview")
		done <- err
	}()

	<-entered
	_, _, _, err = svc.SendMessage(ctx, c.ID, "second", "gemini-3-flash-preview")
	assert.ErrorIs(t, err, domain.ErrChatBusy)

	close(release)
	require.NoError(t, <-done)

	// The guard is released once the turn finishes.
	_, _, _, err = svc.SendMessage(ctx, c.ID, "third", "gemini-3-flash-preview")
	assert.NoError(t, err)
}

func TestSendMessageKeepsExplicitTitle(t *testing.T) {
	svc := newTestService(t, echoCollab("itx-1"))
	ctx := context.Background()

	c, err := svc.CreateChat(ctx)
	require.NoError(t, err)
	_, err = svc.RenameChat(ctx, c.ID, "My research notes")
	require.NoError(t, err)

	_, _, updated, err := svc.SendMessage(ctx, c.ID, "Hello", "gemini-3-flash-preview")
	require.NoError(t, err)
	assert.Equal(t, "My research notes", updated.Title)
}

func TestDeriveTitleTruncatesLongFirstMessage(t *testing.T) {
	svc := newTestService(t, echoCollab("itx-1"))
	ctx := context.Background()

	c, err := svc.CreateChat(ctx)
	require.NoError(t, err)

	long := "This opening message is deliberately much longer than sixty characters to exercise truncation"
	_, _, updated, err := svc.SendMessage(ctx, c.ID, long, "gemini-3-flash-preview")
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(updated.Title)), 60)
	assert.Equal(t, domain.DeriveTitle(long), updated.Title)
}

func TestRenameChatValidation(t *testing.T) {
	svc := newTestService(t, echoCollab("itx-1"))
	ctx := context.Background()

	c, err := svc.CreateChat(ctx)
	require.NoError(t, err)

	var validationErr *domain.ValidationError

	_, err = svc.RenameChat(ctx, c.ID, "   ")
	require.ErrorAs(t, err, &validationErr)

	tooLong := make([]rune, 201)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	_, err = svc.RenameChat(ctx, c.ID, string(tooLong))
	require.ErrorAs(t, err, &validationErr)

	renamed, err := svc.RenameChat(ctx, c.ID, "  trimmed  ")
	require.NoError(t, err)
	assert.Equal(t, "trimmed", renamed.Title)
}

func TestRenamingModelDoesNotRewriteHistory(t *testing.T) {
	svc := newTestService(t, echoCollab("itx-1"))
	ctx := context.Background()

	m, err := svc.AddModel(ctx, "my-model")
	require.NoError(t, err)

	c, err := svc.CreateChat(ctx)
	require.NoError(t, err)
	_, _, updated, err := svc.SendMessage(ctx, c.ID, "hello", "my-model")
	require.NoError(t, err)
	require.Equal(t, "my-model", updated.LastModel)

	_, err = svc.RenameModel(ctx, m.ID, "renamed-model")
	require.NoError(t, err)

	after, _, err := svc.GetChat(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "my-model", after.LastModel)
}

func TestAddModelValidation(t *testing.T) {
	svc := newTestService(t, echoCollab("itx-1"))
	ctx := context.Background()

	var validationErr *domain.ValidationError

	_, err := svc.AddModel(ctx, "  ")
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.AddModel(ctx, "x")
	require.NoError(t, err)
	_, err = svc.AddModel(ctx, "x")
	require.ErrorAs(t, err, &validationErr)

	models, err := svc.ListModels(ctx)
	require.NoError(t, err)
	assert.Len(t, models, 4) // 3 seeded + "x"
}
