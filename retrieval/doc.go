// Package retrieval provides the dense in-memory vector store, cosine
// similarity retrieval, embedders and the token chunker shared by the
// document (rag) and long-term memory services.
//
// Search is brute force over all stored rows. Stores are safe for concurrent
// use.
package retrieval
