// Package normalisers provides file-format parsers that turn raw document
// bytes into cleaned per-page text, plus the extension registry that
// selects between them.
package normalisers
