// Package api exposes the parser over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/lucasew/contapila/pkg/parser"
	"github.com/lucasew/contapila/pkg/worker"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 32 << 20

// ParseHandler handles the parse endpoints.
type ParseHandler struct {
	worker *worker.Worker
	logger *slog.Logger
	nextID atomic.Uint64
}

// NewParseHandler creates a new ParseHandler.
func NewParseHandler(w *worker.Worker, logger *slog.Logger) *ParseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseHandler{worker: w, logger: logger}
}

// ParseRequest is the body of POST /api/parse.
type ParseRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

// ParseResponse is the response of POST /api/parse.
type ParseResponse struct {
	Entries []parser.Entry `json:"entries"`
}

// ParseMultipleRequest is the body of POST /api/parse-multiple.
type ParseMultipleRequest struct {
	Files []worker.File `json:"files"`
}

// Parse handles POST /api/parse.
func (h *ParseHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Filename == "" {
		req.Filename = parser.DefaultSourceName
	}

	entries, err := h.worker.ParseFile(worker.File{Text: req.Text, Filename: req.Filename})
	if err != nil {
		var syntaxErr *parser.SyntaxError
		if errors.As(err, &syntaxErr) {
			writeJSONError(w, http.StatusUnprocessableEntity, "syntax_error", err.Error())
			return
		}
		h.logger.Error("parse failed", "filename", req.Filename, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ParseResponse{Entries: entries})
}

// ParseMultiple handles POST /api/parse-multiple. The response is a
// stream of newline-delimited worker responses: progress lines followed by
// one terminal line.
func (h *ParseHandler) ParseMultiple(w http.ResponseWriter, r *http.Request) {
	var req ParseMultipleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.Files) == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "files must not be empty")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	id := h.nextID.Add(1)

	h.worker.Handle(r.Context(), worker.Request{
		ID:   id,
		Type: worker.RequestParseMultiple,
		Data: worker.RequestData{Files: req.Files},
	}, func(resp worker.Response) {
		if err := enc.Encode(resp); err != nil {
			h.logger.Debug("failed to stream response", "id", id, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	})
}

// Health handles GET /healthz.
func (h *ParseHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
