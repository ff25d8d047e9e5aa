package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bull/docqa/internal/decode"
	"github.com/bull/docqa/internal/retrieval"
	"github.com/bull/docqa/internal/segment"
)

// ParsePDFResponse is returned by POST /parse-pdf.
type ParsePDFResponse struct {
	Message        string `json:"message"`
	ClausesIndexed int    `json:"clauses_indexed"`
	ExtractedText  string `json:"extracted_text"`
}

// HackRxRequest is the body of POST /hackrx/run.
type HackRxRequest struct {
	Documents []string `json:"documents"`
}

// MessageResponse carries a single human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// FinalReasoning is the answer shape of POST /intelligent-query.
type FinalReasoning struct {
	Answer            string   `json:"answer"`
	SupportingClauses []string `json:"supporting_clauses"`
	Explanation       string   `json:"explanation"`
}

// IntelligentQueryResponse wraps FinalReasoning.
type IntelligentQueryResponse struct {
	FinalReasoning FinalReasoning `json:"final_reasoning"`
}

// ParsePDF indexes an uploaded PDF clause by clause and echoes the clauses back.
func (h *Handler) ParsePDF(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.readUpload(w, r)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		h.jsonError(w, r, invalid("Only PDF files are supported."))
		return
	}

	text, err := decode.Decode(data, decode.FormatPDF)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}

	result, err := h.indexer.IndexDocument(r.Context(), text, name, segment.StrategyClause)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, ParsePDFResponse{
		Message:        "PDF parsed and indexed successfully.",
		ClausesIndexed: result.Chunks,
		ExtractedText:  strings.Join(result.Texts, "\n"),
	})
}

// HackRxRun indexes a batch of already-extracted documents as one generation,
// one chunk per document. Blank documents are skipped.
func (h *Handler) HackRxRun(w http.ResponseWriter, r *http.Request) {
	var req HackRxRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, r, err)
		return
	}
	if len(req.Documents) == 0 {
		h.jsonError(w, r, invalid("Field 'documents' is required."))
		return
	}

	docs := make([]retrieval.Document, len(req.Documents))
	for i, text := range req.Documents {
		docs[i] = retrieval.Document{Source: fmt.Sprintf("document-%d", i), Text: text}
	}

	if _, err := h.indexer.IndexDocuments(r.Context(), docs, segment.StrategyWhole); err != nil {
		h.jsonError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Indexed %d documents successfully.", len(req.Documents)),
	})
}

// IntelligentQuery answers a question in the final_reasoning shape.
func (h *Handler) IntelligentQuery(w http.ResponseWriter, r *http.Request) {
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

	jsonResponse(w, http.StatusOK, IntelligentQueryResponse{
		FinalReasoning: FinalReasoning{
			Answer:            ans.Text,
			SupportingClauses: supportingTexts(ans.Basis),
			Explanation:       ans.Explanation,
		},
	})
}
