// Package ingestion turns source documents into vector records.
//
// The Pipeline chunks each document, embeds the chunks in batches and
// upserts the resulting records into a storage.VectorStore. Record IDs are
// derived from the source URL and chunk position, so re-ingesting the same
// document overwrites rather than duplicates.
//
// Batches are processed sequentially by default. WithConcurrency runs them on
// a worker pool instead. An embedding failure skips its batch and the run
// continues; a write failure aborts the run.
package ingestion
