package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/ports"
)

// DefaultMaxAttempts is the generation ceiling for one question.
const DefaultMaxAttempts = 3

const (
	// ApologyAnswer is returned when no answer could be produced at all.
	ApologyAnswer = "I apologize, but I couldn't generate a valid answer."

	// GroundingFeedback is appended after a failed validation so the next
	// generation sees why the previous answer was rejected.
	GroundingFeedback = "Validation failed: The previous answer was not fully grounded in the context. " +
		"Please try again and ensure every claim is supported by the provided documents."
)

// Step names a node of the answer state machine.
type Step string

const (
	StepRetrieve Step = "retrieve"
	StepGenerate Step = "generate"
	StepValidate Step = "validate"
	StepRespond  Step = "respond"
	StepDone     Step = "done"
)

// State is the value threaded through one question's run.
type State struct {
	Messages           []entities.Turn
	RetrievedDocuments []entities.DocumentChunk
	RetryCount         int
	Validated          bool
	FinalAnswer        *string
}

// NewState starts a run for question.
func NewState(question string) State {
	return State{Messages: []entities.Turn{entities.UserTurn(question)}}
}

func (s State) clone() State {
	s.Messages = slices.Clone(s.Messages)
	s.RetrievedDocuments = slices.Clone(s.RetrievedDocuments)
	return s
}

// route picks the next step from the state that the current step produced.
type route func(s State, maxAttempts int) Step

var transitions = map[Step]route{
	StepRetrieve: func(State, int) Step { return StepGenerate },
	StepGenerate: func(State, int) Step { return StepValidate },
	StepValidate: func(s State, maxAttempts int) Step {
		switch {
		case s.Validated:
			return StepRespond
		case s.RetryCount < maxAttempts:
			return StepGenerate
		default:
			return StepRespond
		}
	},
	StepRespond: func(State, int) Step { return StepDone },
}

// NextStep looks up the transition out of step.
func NextStep(step Step, s State, maxAttempts int) Step {
	next, ok := transitions[step]
	if !ok {
		return StepDone
	}
	return next(s, maxAttempts)
}

// Orchestrator answers questions with a retrieve, generate, validate loop.
// It holds no per-question state and is safe for concurrent use.
type Orchestrator struct {
	retriever   ports.Retriever
	llm         ports.LLM
	maxAttempts int
	logger      *slog.Logger
}

// NewOrchestrator creates an Orchestrator. maxAttempts <= 0 selects the default.
func NewOrchestrator(retriever ports.Retriever, llm ports.LLM, maxAttempts int, logger *slog.Logger) *Orchestrator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{retriever: retriever, llm: llm, maxAttempts: maxAttempts, logger: logger}
}

// Run drives one question to the terminal step and returns the final state.
func (o *Orchestrator) Run(ctx context.Context, question string) (State, error) {
	log := o.logger.With("run_id", uuid.NewString())
	state := NewState(question)

	for step := StepRetrieve; step != StepDone; step = NextStep(step, state, o.maxAttempts) {
		var err error
		switch step {
		case StepRetrieve:
			state, err = o.Retrieve(ctx, state)
		case StepGenerate:
			state, err = o.Generate(ctx, state)
		case StepValidate:
			state, err = o.Validate(ctx, state)
		case StepRespond:
			state = o.Respond(state)
		}
		if err != nil {
			log.Error("run failed", "step", step, "error", err)
			return state, fmt.Errorf("%s step: %w", step, err)
		}
		log.Debug("step finished", "step", step, "retry_count", state.RetryCount, "validated", state.Validated)
	}

	log.Info("question answered", "attempts", state.RetryCount, "validated", state.Validated, "documents", len(state.RetrievedDocuments))
	return state, nil
}

// Answer runs the state machine and returns only the final answer.
func (o *Orchestrator) Answer(ctx context.Context, question string) (string, error) {
	state, err := o.Run(ctx, question)
	if err != nil {
		return "", err
	}
	if state.FinalAnswer == nil {
		return ApologyAnswer, nil
	}
	return *state.FinalAnswer, nil
}

// Retrieve replaces the retrieved documents using the first user turn as query.
func (o *Orchestrator) Retrieve(ctx context.Context, s State) (State, error) {
	question, ok := entities.FirstTurn(s.Messages, entities.RoleUser)
	if !ok {
		return s, nil
	}
	docs, err := o.retriever.Retrieve(ctx, question.Content)
	if err != nil {
		return s, fmt.Errorf("retrieving documents: %w", err)
	}
	next := s.clone()
	next.RetrievedDocuments = slices.Clone(docs)
	return next, nil
}

// Generate asks the model for an answer given the whole log plus a grounding prompt.
func (o *Orchestrator) Generate(ctx context.Context, s State) (State, error) {
	next := s.clone()
	next.RetryCount++

	question, _ := entities.FirstTurn(s.Messages, entities.RoleUser)
	prompt := groundingPrompt(joinContext(s.RetrievedDocuments), question.Content)

	input := append(slices.Clone(s.Messages), entities.UserTurn(prompt))
	reply, err := o.llm.Invoke(ctx, input)
	if err != nil {
		return s, fmt.Errorf("generating answer: %w", err)
	}
	next.Messages = append(next.Messages, reply)
	return next, nil
}

// Validate checks the latest answer against the retrieved context in isolation.
func (o *Orchestrator) Validate(ctx context.Context, s State) (State, error) {
	next := s.clone()
	if s.RetryCount >= o.maxAttempts {
		next.Validated = true
		return next, nil
	}
	if len(s.Messages) == 0 || len(s.RetrievedDocuments) == 0 {
		next.Validated = false
		return next, nil
	}
	answer, ok := entities.LastTurn(s.Messages, entities.RoleAssistant)
	if !ok {
		next.Validated = false
		return next, nil
	}

	prompt := validationPrompt(joinContext(s.RetrievedDocuments), answer.Content)
	verdict, err := o.llm.Invoke(ctx, []entities.Turn{entities.UserTurn(prompt)})
	if err != nil {
		return s, fmt.Errorf("validating answer: %w", err)
	}

	next.Validated = IsAffirmative(verdict.Content)
	if !next.Validated {
		next.Messages = append(next.Messages, entities.AssistantTurn(GroundingFeedback))
	}
	return next, nil
}

// Respond sets the final answer from the last assistant turn.
func (o *Orchestrator) Respond(s State) State {
	next := s.clone()
	answer := ApologyAnswer
	if last, ok := entities.LastTurn(s.Messages, entities.RoleAssistant); ok {
		answer = last.Content
	}
	next.FinalAnswer = &answer
	return next
}

// IsAffirmative reports whether a validator verdict says yes. The first
// standalone "yes", "no" or "not" word decides, so labels such as
// "Answer: Yes" pass while "Yesterday" or "not yes" do not.
func IsAffirmative(verdict string) bool {
	words := strings.FieldsFunc(verdict, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		switch strings.ToLower(w) {
		case "yes":
			return true
		case "no", "not":
			return false
		}
	}
	return false
}

func joinContext(docs []entities.DocumentChunk) string {
	return strings.Join(entities.Contents(docs), "\n\n")
}

func groundingPrompt(context, question string) string {
	var sb strings.Builder
	sb.WriteString("Based on the following context, answer the user's question.\n")
	sb.WriteString("If the context doesn't contain enough information to answer, say so.\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nUser Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

func validationPrompt(context, answer string) string {
	var sb strings.Builder
	sb.WriteString("You are a validator. Check if the following answer is grounded in the provided context.\n")
	sb.WriteString("Answer with only \"Yes\" or \"No\".\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nGenerated Answer:\n")
	sb.WriteString(answer)
	sb.WriteString("\n\nIs the answer grounded in the context? Answer Yes or No:")
	return sb.String()
}
