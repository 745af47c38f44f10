package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
)

type stubText struct {
	reply string
	err   error
	seen  []entities.Turn
}

func (s *stubText) Complete(ctx context.Context, messages []entities.Turn) (string, error) {
	s.seen = messages
	return s.reply, s.err
}

func TestFromText_NormalizesToAssistant(t *testing.T) {
	model := &stubText{reply: "  grounded answer \n"}
	llm := FromText(model)

	turn, err := llm.Invoke(context.Background(), []entities.Turn{entities.UserTurn("q")})
	require.NoError(t, err)
	assert.Equal(t, entities.RoleAssistant, turn.Role)
	assert.Equal(t, "grounded answer", turn.Content)
	assert.Len(t, model.seen, 1)
}

func TestFromText_PropagatesError(t *testing.T) {
	boom := errors.New("backend down")
	_, err := FromText(&stubText{err: boom}).Invoke(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestLLMFunc_ForcesAssistantRole(t *testing.T) {
	f := LLMFunc(func(ctx context.Context, messages []entities.Turn) (entities.Turn, error) {
		return entities.Turn{Role: entities.RoleUser, Content: "Yes"}, nil
	})
	turn, err := f.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, entities.AssistantTurn("Yes"), turn)
}

func TestFileOperation_String(t *testing.T) {
	assert.Equal(t, "created", FileCreated.String())
	assert.Equal(t, "modified", FileModified.String())
	assert.Equal(t, "deleted", FileDeleted.String())
	assert.Equal(t, "unknown", FileOperation(9).String())
}
