// Package ragtest provides deterministic fakes for the RAG pipeline's
// external collaborators: an embedder, a chat model and a vector store.
package ragtest
