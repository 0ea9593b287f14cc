package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/qwant1k/rag/internal/core/domain"
	"github.com/qwant1k/rag/internal/logger"
)

// maxUploadBytes bounds uploaded file size (50 MiB).
const maxUploadBytes = 50 << 20

// chatRequest is the body of POST /chat and POST /chat/sync.
type chatRequest struct {
	Message string               `json:"message"`
	History []domain.ChatMessage `json:"history"`
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChatSync answers a question in one JSON response.
func (s *Server) handleChatSync(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	answer, err := s.chat.Answer(r.Context(), req.Message, req.History)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// handleChatStream answers a question as a server-sent event stream:
// token events, then one sources event, then done. An error event
// terminates the stream instead.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, err := s.chat.AnswerStream(r.Context(), req.Message, req.History)
	if err != nil {
		writeChatError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for event := range events {
		var payload any
		switch event.Type {
		case domain.StreamToken:
			payload = map[string]string{"type": "token", "token": event.Token}
		case domain.StreamSources:
			payload = map[string]any{"type": "sources", "sources": event.Sources}
		case domain.StreamDone:
			payload = map[string]string{"type": "done"}
		case domain.StreamError:
			payload = map[string]string{"type": "error", "error": event.Token}
		default:
			continue
		}

		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error("Marshalling stream event: %v", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client went away; the context cancellation stops the stream.
			return
		}
		flusher.Flush()
	}
}

// handleUpload accepts a multipart file, stores it in the documents
// directory and ingests it immediately. Unlike watcher-driven
// ingestion, failures surface to the caller.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	filename, err := safeFilename(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := os.MkdirAll(s.docsDir, 0o755); err != nil {
		logger.Error("Creating documents directory: %v", err)
		writeError(w, http.StatusInternalServerError, "storing file failed")
		return
	}

	path := filepath.Join(s.docsDir, filename)
	dst, err := os.Create(path)
	if err != nil {
		logger.Error("Creating %s: %v", path, err)
		writeError(w, http.StatusInternalServerError, "storing file failed")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		logger.Error("Writing %s: %v", path, err)
		writeError(w, http.StatusInternalServerError, "storing file failed")
		return
	}
	if err := dst.Close(); err != nil {
		logger.Error("Closing %s: %v", path, err)
		writeError(w, http.StatusInternalServerError, "storing file failed")
		return
	}

	count, err := s.ingestor.IngestFile(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("ingesting %s: %v", filename, err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"filename":     filename,
		"chunks_added": count,
	})
}

// handleListDocuments summarises the indexed documents.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	infos, err := s.ingestor.ListDocuments(r.Context())
	if err != nil {
		logger.Error("Listing documents: %v", err)
		writeError(w, http.StatusInternalServerError, "listing documents failed")
		return
	}
	if infos == nil {
		infos = []domain.DocumentInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": infos})
}

// handleDeleteDocument removes a document's index entries and its file.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	filename, err := safeFilename(r.PathValue("filename"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	removed, err := s.ingestor.DeleteSource(r.Context(), filename)
	if err != nil {
		logger.Error("Deleting %s: %v", filename, err)
		writeError(w, http.StatusInternalServerError, "deleting document failed")
		return
	}

	path := filepath.Join(s.docsDir, filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Removing file %s: %v", path, err)
	}

	if removed == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s is not indexed", filename))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename":       filename,
		"chunks_removed": removed,
	})
}

// handleReindex re-ingests every document under the documents root.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	counts, err := s.ingestor.IngestAll(r.Context())
	if err != nil {
		logger.Error("Reindexing: %v", err)
		writeError(w, http.StatusInternalServerError, "reindex failed")
		return
	}

	total := 0
	for _, count := range counts {
		total += count
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents":    counts,
		"chunks_total": total,
	})
}

// decodeChatRequest parses and validates a chat request body.
func decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return req, false
	}
	return req, true
}

// writeChatError maps service failures to HTTP status codes.
func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		logger.Error("Chat backend: %v", err)
		writeError(w, http.StatusBadGateway, "generation backend unavailable")
	default:
		logger.Error("Chat: %v", err)
		writeError(w, http.StatusInternalServerError, "chat failed")
	}
}

// safeFilename rejects path traversal in user-supplied names.
func safeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == ".." || base != name {
		return "", fmt.Errorf("invalid filename %q", name)
	}
	return base, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
