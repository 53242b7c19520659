// Package rag turns reference documents into embedded chunks and retrieves
// the most relevant ones by cosine similarity.
package rag
