// Package sqlite provides the SQLite-backed vector index.
//
// Chunks are keyed by their content-addressed identifier and carry a
// source column so a whole document's entries can be replaced or
// deleted in one statement. Search loads candidate embeddings and ranks
// them by cosine similarity in process.
package sqlite
