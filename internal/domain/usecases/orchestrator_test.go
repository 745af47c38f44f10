package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
)

// mockRetriever implements ports.Retriever for testing
type mockRetriever struct {
	mu      sync.Mutex
	docs    []entities.DocumentChunk
	err     error
	queries []string
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string) ([]entities.DocumentChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	return m.docs, m.err
}

// scriptedLLM answers generation prompts with numbered answers and
// validation prompts from a verdict script.
type scriptedLLM struct {
	mu          sync.Mutex
	verdicts    []string
	generations [][]entities.Turn
	validations [][]entities.Turn
	genErr      error
	valErr      error
}

func (m *scriptedLLM) Invoke(ctx context.Context, messages []entities.Turn) (entities.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	last := messages[len(messages)-1]
	if strings.HasPrefix(last.Content, "You are a validator") {
		m.validations = append(m.validations, messages)
		if m.valErr != nil {
			return entities.Turn{}, m.valErr
		}
		verdict := "Yes"
		if i := len(m.validations) - 1; i < len(m.verdicts) {
			verdict = m.verdicts[i]
		}
		return entities.AssistantTurn(verdict), nil
	}

	m.generations = append(m.generations, messages)
	if m.genErr != nil {
		return entities.Turn{}, m.genErr
	}
	return entities.AssistantTurn(fmt.Sprintf("answer %d: ALPHA-999-BETA", len(m.generations))), nil
}

func codeDocs() []entities.DocumentChunk {
	return []entities.DocumentChunk{
		{Content: "The secret code is ALPHA-999-BETA.", Source: "a.pdf"},
		{Content: "Unrelated appendix text.", Source: "a.pdf", SourceIndex: 1},
	}
}

func TestOrchestrator_ValidatedFirstTry(t *testing.T) {
	retriever := &mockRetriever{docs: codeDocs()}
	llm := &scriptedLLM{verdicts: []string{"Yes"}}
	o := NewOrchestrator(retriever, llm, 0, quietLogger())

	state, err := o.Run(context.Background(), "What is the code?")
	require.NoError(t, err)

	assert.Equal(t, []string{"What is the code?"}, retriever.queries)
	assert.Equal(t, 1, state.RetryCount)
	assert.True(t, state.Validated)
	require.NotNil(t, state.FinalAnswer)
	assert.Equal(t, "answer 1: ALPHA-999-BETA", *state.FinalAnswer)
	assert.Len(t, llm.generations, 1)
	assert.Len(t, llm.validations, 1)
}

func TestOrchestrator_GenerationSeesContextAndLog(t *testing.T) {
	llm := &scriptedLLM{verdicts: []string{"No"}}
	o := NewOrchestrator(&mockRetriever{docs: codeDocs()}, llm, 3, quietLogger())

	_, err := o.Run(context.Background(), "What is the code?")
	require.NoError(t, err)
	require.Len(t, llm.generations, 2)

	first := llm.generations[0]
	require.Len(t, first, 2)
	assert.Equal(t, entities.UserTurn("What is the code?"), first[0])
	assert.Contains(t, first[1].Content, "The secret code is ALPHA-999-BETA.\n\nUnrelated appendix text.")
	assert.Contains(t, first[1].Content, "User Question: What is the code?")

	retry := llm.generations[1]
	require.Len(t, retry, 4)
	assert.Equal(t, entities.AssistantTurn("answer 1: ALPHA-999-BETA"), retry[1])
	assert.Equal(t, entities.AssistantTurn(GroundingFeedback), retry[2])
}

func TestOrchestrator_ValidationIsIsolated(t *testing.T) {
	llm := &scriptedLLM{verdicts: []string{"No", "Yes"}}
	o := NewOrchestrator(&mockRetriever{docs: codeDocs()}, llm, 3, quietLogger())

	_, err := o.Run(context.Background(), "What is the code?")
	require.NoError(t, err)
	require.Len(t, llm.validations, 2)
	for i, v := range llm.validations {
		require.Len(t, v, 1, "validation %d must see only its own prompt", i)
		assert.Contains(t, v[0].Content, "Generated Answer:\nanswer "+fmt.Sprint(i+1))
		assert.Contains(t, v[0].Content, "ALPHA-999-BETA")
	}
}

func TestOrchestrator_RetriesUntilValidated(t *testing.T) {
	llm := &scriptedLLM{verdicts: []string{"No", "No", "Yes"}}
	o := NewOrchestrator(&mockRetriever{docs: codeDocs()}, llm, 3, quietLogger())

	state, err := o.Run(context.Background(), "What is the code?")
	require.NoError(t, err)

	assert.Len(t, llm.generations, 3)
	assert.Equal(t, 3, state.RetryCount)
	assert.True(t, state.Validated)
	require.NotNil(t, state.FinalAnswer)
	assert.Equal(t, "answer 3: ALPHA-999-BETA", *state.FinalAnswer)
}

func TestOrchestrator_RetryCeiling(t *testing.T) {
	llm := &scriptedLLM{verdicts: []string{"No", "No", "No", "No", "No"}}
	o := NewOrchestrator(&mockRetriever{docs: codeDocs()}, llm, 3, quietLogger())

	state, err := o.Run(context.Background(), "What is the code?")
	require.NoError(t, err)

	assert.Len(t, llm.generations, 3)
	assert.Len(t, llm.validations, 2, "the ceiling accepts without another model call")
	assert.Equal(t, 3, state.RetryCount)
	assert.True(t, state.Validated)
	require.NotNil(t, state.FinalAnswer)
	assert.Equal(t, "answer 3: ALPHA-999-BETA", *state.FinalAnswer)
}

func TestOrchestrator_NoDocumentsSkipsValidator(t *testing.T) {
	llm := &scriptedLLM{}
	o := NewOrchestrator(&mockRetriever{}, llm, 3, quietLogger())

	state, err := o.Run(context.Background(), "anything?")
	require.NoError(t, err)
	assert.Empty(t, llm.validations)
	assert.Len(t, llm.generations, 3)
	assert.True(t, state.Validated)
	require.NotNil(t, state.FinalAnswer)
	assert.Equal(t, "answer 3: ALPHA-999-BETA", *state.FinalAnswer)
}

func TestOrchestrator_PropagatesCollaboratorErrors(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name      string
		retriever *mockRetriever
		llm       *scriptedLLM
		step      Step
	}{
		{"retriever", &mockRetriever{err: boom}, &scriptedLLM{}, StepRetrieve},
		{"generator", &mockRetriever{docs: codeDocs()}, &scriptedLLM{genErr: boom}, StepGenerate},
		{"validator", &mockRetriever{docs: codeDocs()}, &scriptedLLM{valErr: boom}, StepValidate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(tt.retriever, tt.llm, 3, quietLogger())
			state, err := o.Run(context.Background(), "q")
			require.ErrorIs(t, err, boom)
			assert.True(t, strings.HasPrefix(err.Error(), string(tt.step)))
			assert.Nil(t, state.FinalAnswer)

			_, err = o.Answer(context.Background(), "q")
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestOrchestrator_Answer(t *testing.T) {
	o := NewOrchestrator(&mockRetriever{docs: codeDocs()}, &scriptedLLM{}, 3, quietLogger())
	answer, err := o.Answer(context.Background(), "What is the code?")
	require.NoError(t, err)
	assert.Contains(t, answer, "ALPHA-999-BETA")
}

func TestOrchestrator_ConcurrentRunsAreIndependent(t *testing.T) {
	o := NewOrchestrator(&mockRetriever{docs: codeDocs()}, &scriptedLLM{}, 3, quietLogger())

	var wg sync.WaitGroup
	states := make([]State, 8)
	for i := range states {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := o.Run(context.Background(), fmt.Sprintf("question %d", i))
			assert.NoError(t, err)
			states[i] = s
		}()
	}
	wg.Wait()

	for i, s := range states {
		first, ok := entities.FirstTurn(s.Messages, entities.RoleUser)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("question %d", i), first.Content)
		assert.Equal(t, 1, s.RetryCount)
	}
}

func TestOrchestrator_RetrieveWithoutUserTurn(t *testing.T) {
	retriever := &mockRetriever{docs: codeDocs()}
	o := NewOrchestrator(retriever, &scriptedLLM{}, 3, quietLogger())

	in := State{}
	out, err := o.Retrieve(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Empty(t, retriever.queries)
}

func TestOrchestrator_StepsDoNotMutateInput(t *testing.T) {
	o := NewOrchestrator(&mockRetriever{docs: codeDocs()}, &scriptedLLM{verdicts: []string{"No"}}, 3, quietLogger())
	in := NewState("What is the code?")
	in.RetrievedDocuments = codeDocs()
	in.Messages = append(make([]entities.Turn, 0, 8), in.Messages...)

	gen, err := o.Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, in.Messages, 1)
	assert.Zero(t, in.RetryCount)

	val, err := o.Validate(context.Background(), gen)
	require.NoError(t, err)
	assert.Len(t, gen.Messages, 2)
	assert.Len(t, val.Messages, 3)
	assert.False(t, val.Validated)
}

func TestOrchestrator_ValidateGuards(t *testing.T) {
	o := NewOrchestrator(&mockRetriever{}, &scriptedLLM{}, 3, quietLogger())
	ctx := context.Background()

	exhausted, err := o.Validate(ctx, State{RetryCount: 3})
	require.NoError(t, err)
	assert.True(t, exhausted.Validated)

	noDocs, err := o.Validate(ctx, State{Messages: []entities.Turn{entities.AssistantTurn("a")}, RetryCount: 1})
	require.NoError(t, err)
	assert.False(t, noDocs.Validated)

	noAnswer, err := o.Validate(ctx, State{Messages: []entities.Turn{entities.UserTurn("q")}, RetrievedDocuments: codeDocs(), RetryCount: 1})
	require.NoError(t, err)
	assert.False(t, noAnswer.Validated)
}

func TestOrchestrator_RespondApology(t *testing.T) {
	o := NewOrchestrator(&mockRetriever{}, &scriptedLLM{}, 3, quietLogger())
	out := o.Respond(NewState("q"))
	require.NotNil(t, out.FinalAnswer)
	assert.Equal(t, ApologyAnswer, *out.FinalAnswer)
}

func TestNextStep(t *testing.T) {
	tests := []struct {
		name  string
		step  Step
		state State
		want  Step
	}{
		{"retrieve", StepRetrieve, State{}, StepGenerate},
		{"generate", StepGenerate, State{}, StepValidate},
		{"validated", StepValidate, State{Validated: true, RetryCount: 1}, StepRespond},
		{"retry", StepValidate, State{RetryCount: 2}, StepGenerate},
		{"exhausted", StepValidate, State{RetryCount: 3}, StepRespond},
		{"respond", StepRespond, State{}, StepDone},
		{"done", StepDone, State{}, StepDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStep(tt.step, tt.state, 3))
		})
	}
}

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		verdict string
		want    bool
	}{
		{"Yes", true},
		{"yes.", true},
		{"  YES, it is grounded", true},
		{"**Yes**", true},
		{"No", false},
		{"No, this is not yes-answerable", false},
		{"Yesterday", false},
		{"", false},
		{"Answer: Yes", true},
		{"Grounded: yes", true},
		{"Verdict - YES.", true},
		{"Answer: No", false},
		{"The answer is not yes", false},
		{"Grounded? maybe", false},
	}
	for _, tt := range tests {
		t.Run(tt.verdict, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAffirmative(tt.verdict))
		})
	}
}
