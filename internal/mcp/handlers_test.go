package mcp

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/answer"
	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/retrieval"
	"github.com/bull/docqa/internal/segment"
)

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Generate(context.Context, string) (string, error) { return g.text, g.err }

const policy = `A grace period of thirty days is provided for premium payment.
The waiting period for cataract surgery is two years from inception.
Maternity expenses are covered after twenty four months of continuous cover.`

func newTestConfig(gen answer.Generator) *Config {
	r := retrieval.NewRetriever(segment.NewSegmenter(segment.Config{}), embedding.NewHashEmbedder(256), nil)
	return &Config{
		Retriever:       r,
		Asker:           answer.NewComposer(r, gen, nil),
		DefaultStrategy: segment.StrategyClause,
		DefaultTopK:     2,
		MaxTopK:         5,
	}
}

func TestIndexAndAsk(t *testing.T) {
	cfg := newTestConfig(stubGenerator{text: "Two years."})
	ctx := context.Background()

	_, idx, err := makeIndexHandler(cfg)(ctx, nil, IndexDocumentInput{Text: policy, Source: "policy.txt"})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Chunks)
	assert.NotEmpty(t, idx.Generation)

	_, out, err := makeAskHandler(cfg)(ctx, nil, AskQuestionInput{Question: "What is the waiting period for cataract surgery?"})
	require.NoError(t, err)
	assert.Equal(t, "Two years.", out.Answer)
	assert.Equal(t, "generated", out.Source)
	require.Len(t, out.Supporting, 2)
	assert.Contains(t, out.Supporting[0].Text, "cataract")
	assert.Equal(t, "policy.txt", out.Supporting[0].Source)
}

func TestAsk_Fallback(t *testing.T) {
	cfg := newTestConfig(stubGenerator{err: errors.New("quota exceeded")})
	ctx := context.Background()

	_, _, err := makeIndexHandler(cfg)(ctx, nil, IndexDocumentInput{Text: policy})
	require.NoError(t, err)

	_, out, err := makeAskHandler(cfg)(ctx, nil, AskQuestionInput{Question: "grace period", TopK: 1})
	require.NoError(t, err)
	assert.Equal(t, "fallback", out.Source)
	assert.Equal(t, answer.FallbackNotice, out.Answer)
	assert.Len(t, out.Supporting, 1)
}

func TestAsk_Errors(t *testing.T) {
	cfg := newTestConfig(nil)
	ctx := context.Background()

	_, _, err := makeAskHandler(cfg)(ctx, nil, AskQuestionInput{Question: "anything"})
	assert.ErrorContains(t, err, "index_not_built")

	_, _, err = makeAskHandler(cfg)(ctx, nil, AskQuestionInput{Question: " "})
	assert.ErrorContains(t, err, "invalid_request")

	_, _, err = makeAskHandler(cfg)(ctx, nil, AskQuestionInput{Question: "q", TopK: 6})
	assert.ErrorContains(t, err, "invalid_request")
}

func TestIndex_Errors(t *testing.T) {
	cfg := newTestConfig(nil)
	ctx := context.Background()

	_, _, err := makeIndexHandler(cfg)(ctx, nil, IndexDocumentInput{Text: "short\nlines"})
	assert.ErrorContains(t, err, "empty_document")

	_, _, err = makeIndexHandler(cfg)(ctx, nil, IndexDocumentInput{Text: policy, Strategy: "sentence"})
	assert.ErrorContains(t, err, "invalid_request")

	_, _, err = makeIndexHandler(cfg)(ctx, nil, IndexDocumentInput{Text: policy, Format: "pdf"})
	assert.ErrorContains(t, err, "unsupported_format")

	_, _, err = makeIndexHandler(cfg)(ctx, nil, IndexDocumentInput{Text: "<script>x</script>", Format: "html"})
	assert.ErrorContains(t, err, "decode_failure")
}

func TestIndex_FormatAndStrategy(t *testing.T) {
	cfg := newTestConfig(nil)

	md := "# Policy\n\nA grace period of thirty days\nis provided for premium payment.\n"
	_, out, err := makeIndexHandler(cfg)(context.Background(), nil, IndexDocumentInput{Text: md, Format: "markdown"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Chunks)

	_, out, err = makeIndexHandler(cfg)(context.Background(), nil, IndexDocumentInput{Text: "tiny", Strategy: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Chunks)
}

func TestSearchAndStatus(t *testing.T) {
	cfg := newTestConfig(nil)
	ctx := context.Background()

	_, st, err := makeStatusHandler(cfg.Retriever)(ctx, nil, StatusInput{})
	require.NoError(t, err)
	assert.False(t, st.Built)
	assert.Empty(t, st.BuiltAt)
	assert.Equal(t, []string{}, st.Sources)

	_, _, err = makeSearchHandler(cfg)(ctx, nil, SearchChunksInput{Query: "q"})
	assert.ErrorContains(t, err, "index_not_built")

	_, _, err = makeIndexHandler(cfg)(ctx, nil, IndexDocumentInput{Text: policy, Source: "policy.txt"})
	require.NoError(t, err)

	_, found, err := makeSearchHandler(cfg)(ctx, nil, SearchChunksInput{Query: "maternity expenses", TopK: 1})
	require.NoError(t, err)
	require.Len(t, found.Chunks, 1)
	assert.Contains(t, found.Chunks[0].Text, "Maternity")

	_, st, err = makeStatusHandler(cfg.Retriever)(ctx, nil, StatusInput{})
	require.NoError(t, err)
	assert.True(t, st.Built)
	assert.Equal(t, 3, st.Chunks)
	assert.Equal(t, 256, st.Dimension)
	assert.Equal(t, []string{"policy.txt"}, st.Sources)
	assert.NotEmpty(t, st.BuiltAt)
}

func TestServer_InMemorySession(t *testing.T) {
	ctx := context.Background()
	srv := NewServer(newTestConfig(stubGenerator{text: "Thirty days."}))

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, len(tools.Tools))
	for i, tool := range tools.Tools {
		names[i] = tool.Name
	}
	assert.ElementsMatch(t, []string{"index_document", "ask_question", "search_chunks", "get_index_status"}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "ask_question",
		Arguments: map[string]any{"question": "grace period?"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError, "asking before indexing is a tool error")

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "index_document",
		Arguments: map[string]any{"text": policy, "source": "policy.txt"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "ask_question",
		Arguments: map[string]any{"question": "How long is the grace period?", "top_k": 1},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Thirty days.")
}

func TestIndex_ConfigWithoutLogger(t *testing.T) {
	cfg := newTestConfig(nil)
	require.Nil(t, cfg.Logger)

	assert.NotPanics(t, func() {
		_, out, err := makeIndexHandler(cfg)(context.Background(), nil, IndexDocumentInput{Text: policy})
		require.NoError(t, err)
		assert.Equal(t, 3, out.Chunks)
	})
}

func TestServer_HTTPHandler(t *testing.T) {
	ctx := context.Background()
	srv := NewServer(newTestConfig(nil))
	ts := httptest.NewServer(srv.HTTPHandler())
	defer ts.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: ts.URL}, nil)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "index_document",
		Arguments: map[string]any{"text": policy, "source": "policy.txt"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "get_index_status", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "policy.txt")
}
