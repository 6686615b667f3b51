// Package qdrant implements storage.VectorStore over the Qdrant gRPC API.
//
// Each index maps to a Qdrant collection. Qdrant point IDs must be integers
// or UUIDs, so record IDs are mapped to name-based UUIDs (version 5) and the
// original ID travels in the "_id" payload field. The mapping is stable,
// which keeps upserts idempotent.
//
// Euclidean collections report distances; Query converts them to
// 1/(1+distance) so that higher scores are better for every metric.
package qdrant
