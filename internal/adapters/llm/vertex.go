package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
)

// VertexChat implements ports.TextModel with a Gemini model on Vertex AI.
type VertexChat struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewVertexChat creates a Vertex AI client for the given project and region.
func NewVertexChat(ctx context.Context, projectID, region, model string, temperature float32) (*VertexChat, error) {
	if projectID == "" || region == "" {
		return nil, errors.New("vertex: project and region cannot be empty")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	m := client.GenerativeModel(model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr(temperature),
	}
	return &VertexChat{client: client, model: m}, nil
}

// Complete implements ports.TextModel. The trailing user content is sent
// and everything before it becomes chat history.
func (v *VertexChat) Complete(ctx context.Context, messages []entities.Turn) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("vertex: no messages to send")
	}
	history, parts := splitLast(toContents(messages))

	cs := v.model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("calling Vertex AI: %w", err)
	}
	return responseText(resp), nil
}

// Close releases the underlying client.
func (v *VertexChat) Close() error {
	return v.client.Close()
}

// toContents maps turns to Gemini contents, merging consecutive turns of
// the same role into one content with several parts.
func toContents(turns []entities.Turn) []*genai.Content {
	var out []*genai.Content
	for _, t := range turns {
		role := "user"
		if t.Role == entities.RoleAssistant {
			role = "model"
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, genai.Text(t.Content))
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	return out
}

// splitLast separates the final user content from the history. A log that
// ends on a model turn is sent with an empty continuation prompt.
func splitLast(contents []*genai.Content) ([]*genai.Content, []genai.Part) {
	n := len(contents)
	if n == 0 || contents[n-1].Role != "user" {
		return contents, []genai.Part{genai.Text("")}
	}
	return contents[:n-1], contents[n-1].Parts
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}
