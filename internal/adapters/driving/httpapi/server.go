// Package httpapi exposes the chatbot over HTTP: chat (streamed and
// synchronous), document upload and management, and reindexing.
package httpapi

import (
	"net/http"
	"time"

	"github.com/qwant1k/rag/internal/core/ports/driving"
)

// Server holds the services behind the HTTP API.
type Server struct {
	ingestor driving.Ingestor
	chat     driving.ChatService
	docsDir  string
}

// NewHandler builds the API routing with middleware applied.
func NewHandler(ingestor driving.Ingestor, chat driving.ChatService, docsDir string) http.Handler {
	s := &Server{
		ingestor: ingestor,
		chat:     chat,
		docsDir:  docsDir,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChatStream)
	mux.HandleFunc("POST /chat/sync", s.handleChatSync)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /documents", s.handleListDocuments)
	mux.HandleFunc("DELETE /documents/{filename}", s.handleDeleteDocument)
	mux.HandleFunc("POST /reindex", s.handleReindex)

	return withRequestLogging(withCORS(mux))
}

// New creates an HTTP server for the API.
func New(addr string, ingestor driving.Ingestor, chat driving.ChatService, docsDir string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewHandler(ingestor, chat, docsDir),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
