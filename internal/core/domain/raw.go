package domain

// RawDocument represents opaque file bytes before normalisation.
type RawDocument struct {
	// Path is the absolute location on disk.
	Path string

	// Source is the path relative to the documents root.
	Source string

	// Content is the raw bytes.
	Content []byte
}
