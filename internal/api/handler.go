package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bull/docqa/internal/answer"
	"github.com/bull/docqa/internal/decode"
	"github.com/bull/docqa/internal/index"
	"github.com/bull/docqa/internal/retrieval"
	"github.com/bull/docqa/internal/segment"
)

// Handler serves the JSON endpoints.
type Handler struct {
	indexer         Indexer
	asker           Asker
	defaultStrategy segment.Strategy
	defaultTopK     int
	maxTopK         int
	maxUploadBytes  int64
	logger          *slog.Logger
}

// NewHandler creates a handler from server config.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		indexer:         cfg.Indexer,
		asker:           cfg.Asker,
		defaultStrategy: cfg.DefaultStrategy,
		defaultTopK:     cfg.DefaultTopK,
		maxTopK:         cfg.MaxTopK,
		maxUploadBytes:  cfg.MaxUploadBytes,
		logger:          cfg.Logger,
	}
}

// IndexTextRequest is the body of POST /api/documents.
type IndexTextRequest struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Format   string `json:"format,omitempty"`   // text (default), markdown or html
	Strategy string `json:"strategy,omitempty"` // fixed, clause or whole
}

// IndexResponse reports a successful build.
type IndexResponse struct {
	Generation string   `json:"generation"`
	Documents  int      `json:"documents"`
	Chunks     int      `json:"chunks"`
	Skipped    []string `json:"skipped,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// QueryRequest is the body of POST /api/query and /intelligent-query.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// QueryResponse wraps an Answer with the question it answers.
type QueryResponse struct {
	Query string `json:"query"`
	*answer.Answer
}

// Status returns the live index generation.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.indexer.Status())
}

// IndexText indexes raw text sent as JSON, replacing the current index.
func (h *Handler) IndexText(w http.ResponseWriter, r *http.Request) {
	var req IndexTextRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, r, err)
		return
	}
	if req.Source == "" {
		req.Source = "inline"
	}

	strategy, err := h.strategy(req.Strategy)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}

	format, err := decode.ParseFormat(req.Format)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}
	if format == decode.FormatPDF || format == decode.FormatDOCX {
		h.jsonError(w, r, invalid(fmt.Sprintf("format %q must be uploaded as a file", format)))
		return
	}

	text := req.Text
	if format != decode.FormatText {
		if text, err = decode.Decode([]byte(req.Text), format); err != nil {
			h.jsonError(w, r, err)
			return
		}
	}

	result, err := h.indexer.IndexDocument(r.Context(), text, req.Source, strategy)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, indexResponse(result))
}

// IndexUpload decodes a multipart "file" upload and indexes it.
// The format comes from the file extension; the strategy defaults to clause.
func (h *Handler) IndexUpload(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.readUpload(w, r)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}

	strategy := segment.StrategyClause
	if s := r.FormValue("strategy"); s != "" {
		if strategy, err = segment.ParseStrategy(s); err != nil {
			h.jsonError(w, r, err)
			return
		}
	}

	format, err := decode.FormatFromFilename(name)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}
	text, err := decode.Decode(data, format)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}

	result, err := h.indexer.IndexDocument(r.Context(), text, name, strategy)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, indexResponse(result))
}

// Query answers a question over the live index.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	req, topK, err := h.queryRequest(w, r)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}

	ans, err := h.asker.Ask(r.Context(), req.Query, topK)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, QueryResponse{Query: req.Query, Answer: ans})
}

// queryRequest parses and validates a question body, applying the default top_k.
func (h *Handler) queryRequest(w http.ResponseWriter, r *http.Request) (*QueryRequest, int, error) {
	var req QueryRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		return nil, 0, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, 0, invalid("field 'query' is required")
	}

	topK := h.defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK <= 0 || topK > h.maxTopK {
		return nil, 0, invalid(fmt.Sprintf("top_k must be between 1 and %d, got %d", h.maxTopK, topK))
	}
	return &req, topK, nil
}

func (h *Handler) strategy(name string) (segment.Strategy, error) {
	if name == "" {
		return h.defaultStrategy, nil
	}
	return segment.ParseStrategy(name)
}

// decodeJSON reads a size-limited JSON body.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return invalid("invalid JSON body: " + err.Error())
	}
	return nil
}

// readUpload returns the name and bytes of the multipart "file" field.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return "", nil, invalid("invalid multipart upload: " + err.Error())
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, invalid("form field 'file' is required")
		}
		return "", nil, invalid("read upload: " + err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return header.Filename, data, nil
}

// jsonError logs and writes an error response.
func (h *Handler) jsonError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", r.URL.Path, "code", code, "error", err)
	} else {
		h.logger.Debug("Request rejected", "path", r.URL.Path, "code", code, "error", err)
	}
	jsonResponse(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func indexResponse(res *retrieval.BuildResult) IndexResponse {
	return IndexResponse{
		Generation: res.Generation,
		Documents:  res.Documents,
		Chunks:     res.Chunks,
		Skipped:    res.Skipped,
		DurationMS: res.Duration.Milliseconds(),
	}
}

func supportingTexts(chunks []index.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
