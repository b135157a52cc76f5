// Package ingest splits documents into overlapping chunks and stores each
// chunk with its position in the document.
//
// Chunks are split with a recursive character splitter that tries paragraph
// breaks, then line breaks, then spaces, then single characters, so a chunk
// never exceeds the configured size. Consecutive chunks share up to
// ChunkOverlap runes.
package ingest
