// Package mcp exposes document indexing and question answering as MCP tools.
package mcp

// IndexDocumentInput defines the input parameters for the index_document tool.
type IndexDocumentInput struct {
	// Text is the document body.
	Text string `json:"text" jsonschema:"The full document text to index. Replaces anything indexed before."`
	// Source identifies the document in answers.
	Source string `json:"source,omitempty" jsonschema:"A name for the document, e.g. its file name"`
	// Format is text, markdown or html.
	Format string `json:"format,omitempty" jsonschema:"How the text is encoded: text (default), markdown or html"`
	// Strategy is fixed, clause or whole.
	Strategy string `json:"strategy,omitempty" jsonschema:"Splitting strategy: fixed (500 character slices), clause (one chunk per meaningful line) or whole (the entire document as one chunk)"`
}

// IndexDocumentOutput reports the new index generation.
type IndexDocumentOutput struct {
	Generation string `json:"generation"`
	Chunks     int    `json:"chunks"`
	Message    string `json:"message"`
}

// AskQuestionInput defines the input parameters for the ask_question tool.
type AskQuestionInput struct {
	// Question is answered from the indexed document.
	Question string `json:"question" jsonschema:"The question to answer from the indexed document"`
	// TopK is the number of chunks used as context.
	TopK int `json:"top_k,omitempty" jsonschema:"Number of supporting chunks to retrieve (default 3)"`
}

// AskQuestionOutput contains the answer and its supporting chunks.
type AskQuestionOutput struct {
	Answer      string         `json:"answer"`
	Source      string         `json:"source"` // generated or fallback
	Explanation string         `json:"explanation"`
	Supporting  []ChunkSummary `json:"supporting_chunks"`
}

// SearchChunksInput defines the input parameters for the search_chunks tool.
type SearchChunksInput struct {
	Query string `json:"query" jsonschema:"Text to find the closest document chunks for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"Maximum number of chunks to return (default 3)"`
}

// SearchChunksOutput contains the nearest chunks, best match first.
type SearchChunksOutput struct {
	Chunks  []ChunkSummary `json:"chunks"`
	Message string         `json:"message,omitempty"`
}

// ChunkSummary is a chunk as shown to MCP clients.
type ChunkSummary struct {
	ID     int    `json:"id"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

// StatusInput defines the input parameters for the get_index_status tool.
// This tool takes no parameters.
type StatusInput struct{}

// StatusOutput describes the live index.
type StatusOutput struct {
	Built      bool     `json:"built"`
	Generation string   `json:"generation,omitempty"`
	Chunks     int      `json:"chunks"`
	Dimension  int      `json:"dimension"`
	Sources    []string `json:"sources"`
	BuiltAt    string   `json:"built_at,omitempty"` // RFC 3339
}
