package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docqa/internal/decode"
	"github.com/bull/docqa/internal/index"
	"github.com/bull/docqa/internal/retrieval"
	"github.com/bull/docqa/internal/segment"
)

// makeIndexHandler creates the index_document tool handler.
// Flow: decode markdown/html to text, segment, embed, swap in the new generation.
func makeIndexHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, IndexDocumentInput,
) (*mcp.CallToolResult, IndexDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexDocumentInput) (
		*mcp.CallToolResult, IndexDocumentOutput, error,
	) {
		strategy := cfg.DefaultStrategy
		if input.Strategy != "" {
			s, err := segment.ParseStrategy(input.Strategy)
			if err != nil {
				return nil, IndexDocumentOutput{}, fmt.Errorf("invalid_request: %w", err)
			}
			strategy = s
		}

		format, err := decode.ParseFormat(input.Format)
		if err != nil {
			return nil, IndexDocumentOutput{}, fmt.Errorf("unsupported_format: %w", err)
		}
		if format == decode.FormatPDF || format == decode.FormatDOCX {
			return nil, IndexDocumentOutput{}, fmt.Errorf("unsupported_format: %s documents must be uploaded over HTTP", format)
		}

		text := input.Text
		if format != decode.FormatText {
			if text, err = decode.Decode([]byte(input.Text), format); err != nil {
				return nil, IndexDocumentOutput{}, fmt.Errorf("decode_failure: %w", err)
			}
		}

		source := input.Source
		if source == "" {
			source = "inline"
		}

		result, err := cfg.Retriever.IndexDocument(ctx, text, source, strategy)
		if err != nil {
			if errors.Is(err, retrieval.ErrEmptyDocument) {
				return nil, IndexDocumentOutput{}, fmt.Errorf("empty_document: nothing to index with the %s strategy; the previous index is unchanged", strategy)
			}
			return nil, IndexDocumentOutput{}, toolError(err)
		}

		cfg.logger().Info("Indexed document over MCP", "source", source, "chunks", result.Chunks)
		return nil, IndexDocumentOutput{
			Generation: result.Generation,
			Chunks:     result.Chunks,
			Message:    fmt.Sprintf("Indexed %s as %d chunks.", source, result.Chunks),
		}, nil
	}
}

// makeAskHandler creates the ask_question tool handler.
// Generation failures still produce an answer (source "fallback"); only retrieval errors fail the call.
func makeAskHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, AskQuestionInput,
) (*mcp.CallToolResult, AskQuestionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskQuestionInput) (
		*mcp.CallToolResult, AskQuestionOutput, error,
	) {
		if strings.TrimSpace(input.Question) == "" {
			return nil, AskQuestionOutput{}, errors.New("invalid_request: question is required")
		}
		topK, err := resolveTopK(cfg, input.TopK)
		if err != nil {
			return nil, AskQuestionOutput{}, err
		}

		ans, err := cfg.Asker.Ask(ctx, input.Question, topK)
		if err != nil {
			return nil, AskQuestionOutput{}, toolError(err)
		}

		return nil, AskQuestionOutput{
			Answer:      ans.Text,
			Source:      string(ans.Source),
			Explanation: ans.Explanation,
			Supporting:  summarize(ans.Basis),
		}, nil
	}
}

// makeSearchHandler creates the search_chunks tool handler.
func makeSearchHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, SearchChunksInput,
) (*mcp.CallToolResult, SearchChunksOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchChunksInput) (
		*mcp.CallToolResult, SearchChunksOutput, error,
	) {
		topK, err := resolveTopK(cfg, input.TopK)
		if err != nil {
			return nil, SearchChunksOutput{}, err
		}

		chunks, err := cfg.Retriever.Query(ctx, input.Query, topK)
		if err != nil {
			return nil, SearchChunksOutput{}, toolError(err)
		}

		if len(chunks) == 0 {
			return nil, SearchChunksOutput{
				Chunks:  []ChunkSummary{},
				Message: "The index is empty.",
			}, nil
		}
		return nil, SearchChunksOutput{Chunks: summarize(chunks)}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
func makeStatusHandler(r Retriever) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		st := r.Status()

		out := StatusOutput{
			Built:      st.Built,
			Generation: st.Generation,
			Chunks:     st.Entries,
			Dimension:  st.Dimension,
			Sources:    st.Sources,
		}
		if out.Sources == nil {
			out.Sources = []string{} // Ensure non-nil for JSON marshaling
		}
		if st.Built {
			out.BuiltAt = st.BuiltAt.Format(time.RFC3339)
		}
		return nil, out, nil
	}
}

func resolveTopK(cfg *Config, topK int) (int, error) {
	if topK == 0 {
		return cfg.DefaultTopK, nil
	}
	if topK < 0 || topK > cfg.MaxTopK {
		return 0, fmt.Errorf("invalid_request: top_k must be between 1 and %d, got %d", cfg.MaxTopK, topK)
	}
	return topK, nil
}

// toolError prefixes err with a stable code so clients can tell failures apart.
func toolError(err error) error {
	switch {
	case errors.Is(err, retrieval.ErrIndexNotBuilt):
		return fmt.Errorf("index_not_built: no document has been indexed yet; call index_document first")
	case errors.Is(err, retrieval.ErrEmbedder):
		return fmt.Errorf("embedder_failure: %w", err)
	default:
		return fmt.Errorf("internal: %w", err)
	}
}

func summarize(chunks []index.Chunk) []ChunkSummary {
	out := make([]ChunkSummary, len(chunks))
	for i, c := range chunks {
		out[i] = ChunkSummary{ID: c.ID, Source: c.Source, Text: c.Text}
	}
	return out
}
