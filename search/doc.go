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


// Package search retrieves context passages for a query.
//
// A Retriever tries an ordered list of strategies and returns the passages
// of the first one that hits. The default order is vector similarity search
// followed by a keyword scan of the bundled seed corpus, so retrieval keeps
// working when the embedding provider or the vector store is unavailable.
//
// Vector hits are gated by MinScore. An empty vector result is still a hit
// and does not fall through to keyword search.
package search
