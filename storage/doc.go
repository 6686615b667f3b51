// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the vector store abstraction for ragline.
//
// VectorStore decouples the ingestion pipeline and the retriever from the
// index implementation. Two backends are provided:
//
//   - storage/badger: an embedded index on BadgerDB, used by default and in tests
//   - storage/qdrant: a remote index served by Qdrant over its REST API
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.VectorStore interface:
//
//	store, err := badger.OpenStore("/path/to/db", false)  // returns storage.VectorStore
//
// Internal constructors may return concrete types since they are only used
// within the implementation package.
//
// # Semantics
//
// Record IDs are the only identity. Upsert overwrites, so re-ingesting the
// same chunk never duplicates it. EnsureIndex is idempotent and DeleteAll
// keeps the index definition. Query scores are "higher is better" for every
// supported metric.
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent
// access from multiple goroutines.
package storage
