// Package mcp exposes question answering and ingestion as Model Context
// Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/NiteeshPutla/agentic-rag/internal/app"
)

// Service is the subset of the application the tools call.
type Service interface {
	Ask(ctx context.Context, question string) (app.AskResult, error)
	Ingest(ctx context.Context, paths []string, reset bool) (app.IngestReport, error)
}

// MetadataAskDocuments describes the ask_documents tool.
var MetadataAskDocuments = &mcp.Tool{
	Name: "ask_documents",
	Description: "Answer a question from the ingested documents. The answer is generated from " +
		"retrieved passages and checked for grounding by a validator; up to three attempts are made. " +
		"The result reports whether the answer passed validation and which documents were used.",
}

// MetadataIngestDocuments describes the ingest_documents tool.
var MetadataIngestDocuments = &mcp.Tool{
	Name: "ingest_documents",
	Description: "Extract, clean, chunk and index documents so they can be queried with ask_documents. " +
		"Accepts local PDF, text or markdown paths, directories, and gs://bucket/object URIs " +
		"(a gs:// URI ending in / is treated as a prefix). Scanned PDFs are OCR'd automatically.",
}

// InputAskDocuments is the input for the ask_documents tool.
type InputAskDocuments struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
}

// OutputAskDocuments is the output for the ask_documents tool.
type OutputAskDocuments struct {
	Answer    string   `json:"answer"`
	Attempts  int      `json:"attempts" jsonschema:"number of generation attempts made"`
	Validated bool     `json:"validated" jsonschema:"whether the run finished in the validated state"`
	Sources   []string `json:"sources" jsonschema:"documents the answer was grounded on"`
}

// InputIngestDocuments is the input for the ingest_documents tool.
type InputIngestDocuments struct {
	Paths []string `json:"paths" jsonschema:"document paths, directories or gs:// URIs"`
	Reset bool     `json:"reset,omitempty" jsonschema:"clear the index before adding these documents"`
}

// OutputIngestDocuments is the output for the ingest_documents tool.
type OutputIngestDocuments struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Sources   []string `json:"sources"`
}

// Tools binds the tool handlers to a Service.
type Tools struct {
	service Service
	logger  *slog.Logger
}

// NewTools creates the tool handlers.
func NewTools(service Service, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{service: service, logger: logger}
}

// AskDocuments answers a question from the indexed documents.
func (t *Tools) AskDocuments(ctx context.Context, _ *mcp.CallToolRequest, input InputAskDocuments) (*mcp.CallToolResult, OutputAskDocuments, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, OutputAskDocuments{}, fmt.Errorf("question is required")
	}

	result, err := t.service.Ask(ctx, question)
	if err != nil {
		t.logger.Error("ask_documents failed", "error", err)
		return nil, OutputAskDocuments{}, err
	}
	return nil, OutputAskDocuments{
		Answer:    result.Answer,
		Attempts:  result.Attempts,
		Validated: result.Validated,
		Sources:   nonNil(result.Sources),
	}, nil
}

// IngestDocuments indexes the given documents.
func (t *Tools) IngestDocuments(ctx context.Context, _ *mcp.CallToolRequest, input InputIngestDocuments) (*mcp.CallToolResult, OutputIngestDocuments, error) {
	if len(input.Paths) == 0 {
		return nil, OutputIngestDocuments{}, fmt.Errorf("at least one path is required")
	}

	report, err := t.service.Ingest(ctx, input.Paths, input.Reset)
	if err != nil {
		t.logger.Error("ingest_documents failed", "error", err)
		return nil, OutputIngestDocuments{}, err
	}
	return nil, OutputIngestDocuments{
		Documents: report.Documents,
		Chunks:    report.Chunks,
		Sources:   nonNil(report.Sources),
	}, nil
}

// NewServer registers both tools on a new MCP server.
func NewServer(service Service, version string, logger *slog.Logger) *mcp.Server {
	tools := NewTools(service, logger)
	server := mcp.NewServer(&mcp.Implementation{Name: "agentic-rag", Version: version}, nil)
	mcp.AddTool(server, MetadataAskDocuments, tools.AskDocuments)
	mcp.AddTool(server, MetadataIngestDocuments, tools.IngestDocuments)
	return server
}

// Serve runs the MCP server over stdin/stdout until the client disconnects.
func Serve(ctx context.Context, service Service, version string, logger *slog.Logger) error {
	return NewServer(service, version, logger).Run(ctx, &mcp.StdioTransport{})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
