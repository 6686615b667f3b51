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


package core

import "errors"

// Failure taxonomy shared by the gateways and the pipeline.
var (
	// ErrProviderUnavailable indicates an external provider is missing a credential
	// or failed to answer. Callers treat it as non-fatal and fall back.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrStoreWrite indicates the vector store rejected an index, upsert or delete call.
	ErrStoreWrite = errors.New("vector store write failed")

	// ErrStoreRead indicates a vector store query failed.
	ErrStoreRead = errors.New("vector store read failed")
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a SourceDocument failed validation.
	ErrInvalidDocument = errors.New("invalid source document")

	// ErrInvalidRecord indicates a VectorRecord failed validation.
	ErrInvalidRecord = errors.New("invalid vector record")

	// ErrEmptyContent indicates the text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyURL indicates a document has no source URL.
	ErrEmptyURL = errors.New("url cannot be empty")

	// ErrEmptyID indicates a record has no identifier.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyVector indicates a record carries no embedding.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrInvalidMetric indicates an unknown similarity metric name.
	ErrInvalidMetric = errors.New("invalid similarity metric")
)
